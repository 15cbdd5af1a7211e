// Package store implements the durable persistence layer spec.md §4.7
// describes: sessions, document versions, reviews, and terminal reports,
// each written atomically and addressed only by session id and version
// number — there is no content addressing.
package store

import (
	"context"

	"github.com/va2ai/ai-agent-orchestration-platform/types"
)

// Store is the persistence contract the session runtime drives. Every
// write is atomic per artifact: a save either lands in full or not at
// all, matching spec.md's "no partial-iteration persistence" non-goal at
// the storage layer.
type Store interface {
	CreateSession(ctx context.Context, session types.Session) error
	UpdateSessionStatus(ctx context.Context, sessionID string, status types.Status) error
	SaveSession(ctx context.Context, session types.Session) error
	LoadSession(ctx context.Context, sessionID string) (types.Session, error)
	ListSessions(ctx context.Context) ([]types.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// SaveVersion rejects any version number other than the current max
	// plus one, keeping the version sequence gap-free (P1).
	SaveVersion(ctx context.Context, sessionID string, version types.DocumentVersion) error
	LoadVersion(ctx context.Context, sessionID string, version int) (types.DocumentVersion, error)
	MaxVersion(ctx context.Context, sessionID string) (int, error)

	SaveReviews(ctx context.Context, sessionID string, version int, reviews []types.Review) error
	LoadReviews(ctx context.Context, sessionID string, version int) ([]types.Review, error)

	SaveIteration(ctx context.Context, sessionID string, iteration types.IterationRecord) error
	LoadIterations(ctx context.Context, sessionID string) ([]types.IterationRecord, error)

	SaveReport(ctx context.Context, sessionID string, report types.ConvergenceReport) error
	LoadReport(ctx context.Context, sessionID string) (types.ConvergenceReport, error)
}

// Common sentinel-style errors, mirroring agent/persistence/store.go's
// ErrNotFound/ErrAlreadyExists/ErrInvalidInput, expressed as this
// module's *types.Error so callers can use types.CodeOf uniformly across
// packages instead of a second error taxonomy just for storage.
var (
	ErrSessionNotFound = types.NewError(types.ErrNotFound, "session not found")
	ErrVersionNotFound = types.NewError(types.ErrNotFound, "document version not found")
	ErrReportNotFound  = types.NewError(types.ErrNotFound, "report not found")
	ErrVersionConflict = types.NewError(types.ErrConflict, "version is not current max plus one")
)
