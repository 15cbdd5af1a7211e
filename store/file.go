package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/va2ai/ai-agent-orchestration-platform/types"
)

// FileStore is a durable Store backed by one directory tree per session,
// following spec.md §6's layout, with JSON files:
//
//	sessions/<id>/meta.json
//	sessions/<id>/versions/<v>.json
//	sessions/<id>/reviews/<v>.json
//	sessions/<id>/iterations.json
//	sessions/<id>/report.json
//
// Every write goes through a temp-file-then-rename, the same atomic-write
// pattern agent/persistence/file_task_store.go uses for its index file,
// generalized here from a single shared index to one file per artifact so
// concurrent sessions never contend on the same inode.
type FileStore struct {
	baseDir string
	// mu serializes writes within a single process; cross-process safety
	// relies on os.Rename's atomicity within one filesystem, matching the
	// teacher's own single-writer-per-store assumption.
	mu sync.Mutex
}

// NewFileStore returns a FileStore rooted at baseDir, creating it if
// necessary.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, types.NewError(types.ErrStoreWriteFailure, "create base dir").WithCause(err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (f *FileStore) sessionDir(id string) string   { return filepath.Join(f.baseDir, "sessions", id) }
func (f *FileStore) metaPath(id string) string     { return filepath.Join(f.sessionDir(id), "meta.json") }
func (f *FileStore) versionsDir(id string) string  { return filepath.Join(f.sessionDir(id), "versions") }
func (f *FileStore) versionPath(id string, v int) string {
	return filepath.Join(f.versionsDir(id), intToString(v)+".json")
}
func (f *FileStore) reviewsDir(id string) string { return filepath.Join(f.sessionDir(id), "reviews") }
func (f *FileStore) reviewPath(id string, v int) string {
	return filepath.Join(f.reviewsDir(id), intToString(v)+".json")
}
func (f *FileStore) iterationsPath(id string) string {
	return filepath.Join(f.sessionDir(id), "iterations.json")
}
func (f *FileStore) reportPath(id string) string { return filepath.Join(f.sessionDir(id), "report.json") }

func intToString(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func atomicWriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (f *FileStore) CreateSession(_ context.Context, session types.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := os.Stat(f.metaPath(session.SessionID)); err == nil {
		return types.NewError(types.ErrConflict, "session already exists")
	}
	if err := atomicWriteJSON(f.metaPath(session.SessionID), session); err != nil {
		return types.NewError(types.ErrStoreWriteFailure, "write session meta").WithCause(err)
	}
	return nil
}

func (f *FileStore) UpdateSessionStatus(ctx context.Context, sessionID string, status types.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var session types.Session
	if err := readJSON(f.metaPath(sessionID), &session); err != nil {
		return ErrSessionNotFound
	}
	session.Status = status
	if err := atomicWriteJSON(f.metaPath(sessionID), session); err != nil {
		return types.NewError(types.ErrStoreWriteFailure, "write session meta").WithCause(err)
	}
	return nil
}

func (f *FileStore) SaveSession(_ context.Context, session types.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := os.Stat(f.metaPath(session.SessionID)); err != nil {
		return ErrSessionNotFound
	}
	if err := atomicWriteJSON(f.metaPath(session.SessionID), session); err != nil {
		return types.NewError(types.ErrStoreWriteFailure, "write session meta").WithCause(err)
	}
	return nil
}

func (f *FileStore) LoadSession(_ context.Context, sessionID string) (types.Session, error) {
	var session types.Session
	if err := readJSON(f.metaPath(sessionID), &session); err != nil {
		return types.Session{}, ErrSessionNotFound
	}
	return session, nil
}

func (f *FileStore) ListSessions(_ context.Context) ([]types.Session, error) {
	entries, err := os.ReadDir(filepath.Join(f.baseDir, "sessions"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, types.NewError(types.ErrInternal, "list sessions").WithCause(err)
	}
	out := make([]types.Session, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		var session types.Session
		if err := readJSON(f.metaPath(e.Name()), &session); err == nil {
			out = append(out, session)
		}
	}
	return out, nil
}

func (f *FileStore) DeleteSession(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.RemoveAll(f.sessionDir(sessionID)); err != nil {
		return types.NewError(types.ErrStoreWriteFailure, "delete session").WithCause(err)
	}
	return nil
}

func (f *FileStore) SaveVersion(_ context.Context, sessionID string, version types.DocumentVersion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	max, err := f.maxVersionLocked(sessionID)
	if err != nil {
		return err
	}
	if version.Version != max+1 {
		return ErrVersionConflict
	}
	if err := atomicWriteJSON(f.versionPath(sessionID, version.Version), version); err != nil {
		return types.NewError(types.ErrStoreWriteFailure, "write version").WithCause(err)
	}
	return nil
}

func (f *FileStore) LoadVersion(_ context.Context, sessionID string, version int) (types.DocumentVersion, error) {
	var v types.DocumentVersion
	if err := readJSON(f.versionPath(sessionID, version), &v); err != nil {
		return types.DocumentVersion{}, ErrVersionNotFound
	}
	return v, nil
}

func (f *FileStore) MaxVersion(_ context.Context, sessionID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxVersionLocked(sessionID)
}

func (f *FileStore) maxVersionLocked(sessionID string) (int, error) {
	entries, err := os.ReadDir(f.versionsDir(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, types.NewError(types.ErrInternal, "list versions").WithCause(err)
	}
	max := 0
	for _, e := range entries {
		if v, ok := parseVersionFilename(e.Name()); ok && v > max {
			max = v
		}
	}
	return max, nil
}

// parseVersionFilename extracts the version number from a "<n>.json"
// filename.
func parseVersionFilename(name string) (int, bool) {
	base := name
	for i := 0; i < len(base); i++ {
		if base[i] == '.' {
			base = base[:i]
			break
		}
	}
	if base == "" {
		return 0, false
	}
	n := 0
	for _, c := range base {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

func (f *FileStore) SaveReviews(_ context.Context, sessionID string, version int, reviews []types.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := atomicWriteJSON(f.reviewPath(sessionID, version), reviews); err != nil {
		return types.NewError(types.ErrStoreWriteFailure, "write reviews").WithCause(err)
	}
	return nil
}

func (f *FileStore) LoadReviews(_ context.Context, sessionID string, version int) ([]types.Review, error) {
	var reviews []types.Review
	if err := readJSON(f.reviewPath(sessionID, version), &reviews); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, types.NewError(types.ErrInternal, "read reviews").WithCause(err)
	}
	return reviews, nil
}

func (f *FileStore) SaveIteration(_ context.Context, sessionID string, iteration types.IterationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var iterations []types.IterationRecord
	_ = readJSON(f.iterationsPath(sessionID), &iterations)
	iterations = append(iterations, iteration)
	if err := atomicWriteJSON(f.iterationsPath(sessionID), iterations); err != nil {
		return types.NewError(types.ErrStoreWriteFailure, "write iterations").WithCause(err)
	}
	return nil
}

func (f *FileStore) LoadIterations(_ context.Context, sessionID string) ([]types.IterationRecord, error) {
	var iterations []types.IterationRecord
	if err := readJSON(f.iterationsPath(sessionID), &iterations); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, types.NewError(types.ErrInternal, "read iterations").WithCause(err)
	}
	return iterations, nil
}

func (f *FileStore) SaveReport(_ context.Context, sessionID string, report types.ConvergenceReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := atomicWriteJSON(f.reportPath(sessionID), report); err != nil {
		return types.NewError(types.ErrStoreWriteFailure, "write report").WithCause(err)
	}
	return nil
}

func (f *FileStore) LoadReport(_ context.Context, sessionID string) (types.ConvergenceReport, error) {
	var report types.ConvergenceReport
	if err := readJSON(f.reportPath(sessionID), &report); err != nil {
		return types.ConvergenceReport{}, ErrReportNotFound
	}
	return report, nil
}
