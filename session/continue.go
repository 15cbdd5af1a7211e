package session

import (
	"context"
	"time"

	"github.com/va2ai/ai-agent-orchestration-platform/types"
)

// Continue re-enters a Completed session's refinement loop, per spec.md's
// continuation protocol: only sessions that stopped because they exhausted
// max_iterations — with at least one High severity issue still open on
// their last iteration — are eligible. New iterations are numbered
// continuing from current_iteration+1, and the resulting report records
// continued_from_iteration.
func (rt *Runtime) Continue(ctx context.Context, sessionID string, additionalIterations int) error {
	if additionalIterations < 1 {
		return types.NewError(types.ErrInputValidation, "additional_iterations must be at least 1")
	}

	sess, err := rt.store.LoadSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if !sess.CanContinue() {
		return types.NewError(types.ErrConflict,
			"session is not eligible for continuation: must be Completed with stopped_by=max_iterations")
	}

	iterations, err := rt.store.LoadIterations(ctx, sessionID)
	if err != nil {
		return err
	}
	if len(iterations) == 0 {
		return types.NewError(types.ErrConflict, "session has no completed iterations")
	}
	last := iterations[len(iterations)-1]
	if highCount(last.Reviews) == 0 {
		return types.NewError(types.ErrConflict,
			"session's last iteration has no remaining high severity issues, continuation would be a no-op")
	}

	sess.Config.MaxIterations += additionalIterations
	sess.Status = types.StatusRunning
	sess.StoppedBy = types.StoppedByNone
	sess.ConvergenceReason = ""
	sess.ContinuedFromIteration = sess.CurrentIteration
	sess.EndedAt = time.Time{}
	if err := rt.store.SaveSession(ctx, sess); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	rt.mu.Lock()
	rt.cancels[sessionID] = cancel
	rt.mu.Unlock()

	go func() {
		defer rt.clearCancel(sessionID)
		rt.driveIterations(runCtx, sessionID)
	}()
	return nil
}

func highCount(reviews []types.Review) int {
	n := 0
	for _, r := range reviews {
		n += r.HighSeverityCount()
	}
	return n
}
