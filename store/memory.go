package store

import (
	"context"
	"sort"
	"sync"

	"github.com/va2ai/ai-agent-orchestration-platform/types"
)

type sessionRecord struct {
	session    types.Session
	versions   map[int]types.DocumentVersion
	reviews    map[int][]types.Review
	iterations []types.IterationRecord
	report     *types.ConvergenceReport
}

// MemoryStore is an in-process Store backed by a mutex-protected map,
// modeled on the teacher's in-memory persistence primitives. It is the
// default backend for tests and for hosts that don't need durability
// across restarts.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionRecord
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*sessionRecord)}
}

func (s *MemoryStore) CreateSession(_ context.Context, session types.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[session.SessionID]; exists {
		return types.NewError(types.ErrConflict, "session already exists")
	}
	s.sessions[session.SessionID] = &sessionRecord{
		session:  session,
		versions: make(map[int]types.DocumentVersion),
		reviews:  make(map[int][]types.Review),
	}
	return nil
}

func (s *MemoryStore) UpdateSessionStatus(_ context.Context, sessionID string, status types.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	rec.session.Status = status
	return nil
}

func (s *MemoryStore) SaveSession(_ context.Context, session types.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[session.SessionID]
	if !ok {
		return ErrSessionNotFound
	}
	rec.session = session
	return nil
}

func (s *MemoryStore) LoadSession(_ context.Context, sessionID string) (types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return types.Session{}, ErrSessionNotFound
	}
	return rec.session, nil
}

func (s *MemoryStore) ListSessions(_ context.Context) ([]types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Session, 0, len(s.sessions))
	for _, rec := range s.sessions {
		out = append(out, rec.session)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *MemoryStore) SaveVersion(_ context.Context, sessionID string, version types.DocumentVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	max := 0
	for v := range rec.versions {
		if v > max {
			max = v
		}
	}
	if version.Version != max+1 {
		return ErrVersionConflict
	}
	rec.versions[version.Version] = version
	return nil
}

func (s *MemoryStore) LoadVersion(_ context.Context, sessionID string, version int) (types.DocumentVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return types.DocumentVersion{}, ErrSessionNotFound
	}
	v, ok := rec.versions[version]
	if !ok {
		return types.DocumentVersion{}, ErrVersionNotFound
	}
	return v, nil
}

func (s *MemoryStore) MaxVersion(_ context.Context, sessionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return 0, ErrSessionNotFound
	}
	max := 0
	for v := range rec.versions {
		if v > max {
			max = v
		}
	}
	return max, nil
}

func (s *MemoryStore) SaveReviews(_ context.Context, sessionID string, version int, reviews []types.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	cp := make([]types.Review, len(reviews))
	copy(cp, reviews)
	rec.reviews[version] = cp
	return nil
}

func (s *MemoryStore) LoadReviews(_ context.Context, sessionID string, version int) ([]types.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return rec.reviews[version], nil
}

func (s *MemoryStore) SaveIteration(_ context.Context, sessionID string, iteration types.IterationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	rec.iterations = append(rec.iterations, iteration)
	return nil
}

func (s *MemoryStore) LoadIterations(_ context.Context, sessionID string) ([]types.IterationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	out := make([]types.IterationRecord, len(rec.iterations))
	copy(out, rec.iterations)
	return out, nil
}

func (s *MemoryStore) SaveReport(_ context.Context, sessionID string, report types.ConvergenceReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	r := report
	rec.report = &r
	return nil
}

func (s *MemoryStore) LoadReport(_ context.Context, sessionID string) (types.ConvergenceReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return types.ConvergenceReport{}, ErrSessionNotFound
	}
	if rec.report == nil {
		return types.ConvergenceReport{}, ErrReportNotFound
	}
	return *rec.report, nil
}
