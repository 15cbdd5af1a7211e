package store

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/va2ai/ai-agent-orchestration-platform/types"
)

// RetentionCleaner periodically prunes terminal sessions older than a
// configured age. It generalizes agent/persistence/file_task_store.go's
// hand-rolled time.Ticker cleanupLoop into cron syntax, borrowed from
// zulandar-railyard's use of robfig/cron/v3 for scheduled jobs — a
// concrete home for that dependency within this spec's store package.
type RetentionCleaner struct {
	store   Store
	maxAge  time.Duration
	logger  *zap.Logger
	cron    *cron.Cron
	entryID cron.EntryID
}

// NewRetentionCleaner constructs a cleaner. schedule is a standard 5-field
// cron expression (e.g. "0 3 * * *" for daily at 03:00); maxAge bounds
// how old a terminal session (Completed/Failed/Cancelled) may be before
// it is deleted.
func NewRetentionCleaner(s Store, schedule string, maxAge time.Duration, logger *zap.Logger) (*RetentionCleaner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rc := &RetentionCleaner{
		store:  s,
		maxAge: maxAge,
		logger: logger.With(zap.String("component", "retention_cleaner")),
		cron:   cron.New(),
	}
	id, err := rc.cron.AddFunc(schedule, rc.runOnce)
	if err != nil {
		return nil, types.NewError(types.ErrInputValidation, "invalid cron schedule").WithCause(err)
	}
	rc.entryID = id
	return rc, nil
}

// Start begins the cron scheduler in the background.
func (rc *RetentionCleaner) Start() { rc.cron.Start() }

// Stop halts the scheduler and waits for any in-flight run to finish.
func (rc *RetentionCleaner) Stop() { <-rc.cron.Stop().Done() }

func (rc *RetentionCleaner) runOnce() {
	ctx := context.Background()
	sessions, err := rc.store.ListSessions(ctx)
	if err != nil {
		rc.logger.Warn("retention sweep failed to list sessions", zap.Error(err))
		return
	}
	cutoff := time.Now().Add(-rc.maxAge)
	pruned := 0
	for _, s := range sessions {
		if !isTerminal(s.Status) {
			continue
		}
		reference := s.EndedAt
		if reference.IsZero() {
			reference = s.CreatedAt
		}
		if reference.Before(cutoff) {
			if err := rc.store.DeleteSession(ctx, s.SessionID); err != nil {
				rc.logger.Warn("retention sweep failed to delete session", zap.String("session_id", s.SessionID), zap.Error(err))
				continue
			}
			pruned++
		}
	}
	if pruned > 0 {
		rc.logger.Info("retention sweep pruned sessions", zap.Int("count", pruned))
	}
}

func isTerminal(status types.Status) bool {
	switch status {
	case types.StatusCompleted, types.StatusFailed, types.StatusCancelled:
		return true
	default:
		return false
	}
}
