package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/va2ai/ai-agent-orchestration-platform/eventbus"
	"github.com/va2ai/ai-agent-orchestration-platform/store"
	"github.com/va2ai/ai-agent-orchestration-platform/types"
)

// Status returns the current persisted state of sessionID.
func (rt *Runtime) Status(ctx context.Context, sessionID string) (types.Session, error) {
	return rt.store.LoadSession(ctx, sessionID)
}

// List returns every known session, most recently created first is not
// guaranteed — callers that need ordering should sort on CreatedAt.
func (rt *Runtime) List(ctx context.Context) ([]types.Session, error) {
	return rt.store.ListSessions(ctx)
}

// GetVersion returns one document version of sessionID.
func (rt *Runtime) GetVersion(ctx context.Context, sessionID string, version int) (types.DocumentVersion, error) {
	return rt.store.LoadVersion(ctx, sessionID, version)
}

// GetReviews returns the reviews collected against one document version.
func (rt *Runtime) GetReviews(ctx context.Context, sessionID string, version int) ([]types.Review, error) {
	return rt.store.LoadReviews(ctx, sessionID, version)
}

// GetReport returns the terminal ConvergenceReport for sessionID. It is only
// available once the session has reached Completed (spec.md §7); any other
// status returns store.ErrReportNotFound.
func (rt *Runtime) GetReport(ctx context.Context, sessionID string) (types.ConvergenceReport, error) {
	sess, err := rt.store.LoadSession(ctx, sessionID)
	if err != nil {
		return types.ConvergenceReport{}, err
	}
	if sess.Status != types.StatusCompleted {
		return types.ConvergenceReport{}, store.ErrReportNotFound
	}
	return rt.store.LoadReport(ctx, sessionID)
}

// Subscribe streams sessionID's events from this point forward. The
// returned func unsubscribes and is idempotent.
func (rt *Runtime) Subscribe(sessionID string) (<-chan eventbus.Event, func()) {
	return rt.bus.Subscribe(sessionID)
}

// Cancel cooperatively stops an in-flight session at its next safe point (the
// top of the iteration loop, before the next reviewer fan-out begins), or
// marks an already-idle session Cancelled directly if no driver goroutine is
// currently running for it.
func (rt *Runtime) Cancel(ctx context.Context, sessionID string) error {
	rt.mu.Lock()
	cancel, running := rt.cancels[sessionID]
	rt.mu.Unlock()
	if running {
		cancel()
		return nil
	}
	return rt.cancelSession(ctx, sessionID)
}

func (rt *Runtime) cancelSession(ctx context.Context, sessionID string) error {
	sess, err := rt.store.LoadSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if isTerminal(sess.Status) {
		return nil
	}
	sess.Status = types.StatusCancelled
	sess.EndedAt = time.Now().UTC()
	if err := rt.store.SaveSession(ctx, sess); err != nil {
		return err
	}
	rt.bus.Publish(logEvent(sessionID, eventbus.LogLevelInfo, "session cancelled"))
	rt.bus.Forget(sessionID)
	return nil
}

// Delete removes all persisted state for sessionID. It fails with
// types.ErrConflict unless the session's status is already terminal
// (Completed, Failed, or Cancelled) — spec.md §4.6 requires callers to
// Cancel a running session before deleting it rather than letting Delete
// silently force-terminate it.
func (rt *Runtime) Delete(ctx context.Context, sessionID string) error {
	sess, err := rt.store.LoadSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if !isTerminal(sess.Status) {
		return types.NewError(types.ErrConflict,
			fmt.Sprintf("session %q must be terminal before it can be deleted, status is %q", sessionID, sess.Status))
	}

	rt.mu.Lock()
	if cancel, ok := rt.cancels[sessionID]; ok {
		cancel()
		delete(rt.cancels, sessionID)
	}
	rt.mu.Unlock()
	rt.bus.Forget(sessionID)
	rt.logger.Info("deleting session", zap.String("session_id", sessionID))
	return rt.store.DeleteSession(ctx, sessionID)
}

func isTerminal(status types.Status) bool {
	return status == types.StatusCompleted || status == types.StatusFailed || status == types.StatusCancelled
}
