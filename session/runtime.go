// Package session implements the Session Runtime: the state machine that
// drives one roundtable from Pending through Planning, Running, and a
// terminal status, fanning reviewers out concurrently, joining them at a
// barrier before the moderator runs, and publishing every event spec.md
// §4.5 defines. Grounded on agent/orchestrator.go's supervisor-goroutine
// pattern (one long-lived goroutine per run, cooperative cancellation via
// context, status transitions guarded by a store write) and
// original_source/src/ai_orchestrator/orchestration/runner.py's
// step()/run_roundtable() sequencing (collect all reviews, fail the
// iteration on any agent error before ever calling the moderator; moderator
// failure is a distinct, later failure mode).
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/google/uuid"

	"github.com/va2ai/ai-agent-orchestration-platform/convergence"
	"github.com/va2ai/ai-agent-orchestration-platform/eventbus"
	"github.com/va2ai/ai-agent-orchestration-platform/internal/ctxkeys"
	"github.com/va2ai/ai-agent-orchestration-platform/internal/telemetry"
	"github.com/va2ai/ai-agent-orchestration-platform/llmclient"
	"github.com/va2ai/ai-agent-orchestration-platform/llmclient/retry"
	"github.com/va2ai/ai-agent-orchestration-platform/moderator"
	"github.com/va2ai/ai-agent-orchestration-platform/planner"
	"github.com/va2ai/ai-agent-orchestration-platform/reviewer"
	"github.com/va2ai/ai-agent-orchestration-platform/store"
	"github.com/va2ai/ai-agent-orchestration-platform/types"
)

// defaultLLMCallTimeout bounds a single outbound LLM call once it has been
// detached from the session's cancellation signal (see detachedCallContext).
// Cancel must let an in-flight call run to completion rather than abort it
// (spec.md §4.6/§5), but a call still needs some ceiling so a provider that
// never returns can't wedge a cancelled session's goroutine forever.
const defaultLLMCallTimeout = 5 * time.Minute

// detachedCallContext derives a context for one outbound LLM call that is
// independent of ctx's own cancellation: Cancel()'s cancel() call reaches the
// loop-top check in driveIterations, never the call itself. Values (session
// id, iteration index, participant name) still propagate, since
// context.WithoutCancel preserves them; only Done()/Err() are detached.
func detachedCallContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), defaultLLMCallTimeout)
}

// Runtime owns every in-flight session's driver goroutine. The zero value is
// not usable; construct with New.
type Runtime struct {
	store     store.Store
	bus       *eventbus.Bus
	reviewer  *reviewer.Agent
	moderator *moderator.Agent
	planner   *planner.Planner
	metrics   *telemetry.Metrics
	logger    *zap.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// New wires an LLM client, a persistence Store, and an event Bus into a
// Runtime, building the Reviewer, Moderator, and Meta-Planner agents around
// a shared retry policy.
func New(client llmclient.LLMClient, st store.Store, bus *eventbus.Bus, retryPolicy retry.Policy, metrics *telemetry.Metrics, logger *zap.Logger) *Runtime {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "session"))
	return &Runtime{
		store:     st,
		bus:       bus,
		reviewer:  reviewer.New(client, retryPolicy, logger),
		moderator: moderator.New(client, retryPolicy, logger),
		planner:   planner.New(client, retryPolicy, logger),
		metrics:   metrics,
		logger:    logger,
		cancels:   make(map[string]context.CancelFunc),
	}
}

// Start creates a session and returns its id immediately; planning and the
// refinement loop run on a background goroutine, observable via Subscribe.
func (rt *Runtime) Start(ctx context.Context, req StartRequest) (string, error) {
	req.normalize()
	if req.Title == "" {
		return "", types.NewError(types.ErrInputValidation, "title must not be empty")
	}
	if req.Content == "" {
		return "", types.NewError(types.ErrInputValidation, "content must not be empty")
	}

	sessionID := uuid.NewString()
	now := time.Now().UTC()
	sess := types.Session{
		SessionID:    sessionID,
		Title:        req.Title,
		Goal:         req.Goal,
		DocumentType: req.DocumentType,
		Config:       req.Config,
		Status:       types.StatusPending,
		StoppedBy:    types.StoppedByNone,
		CreatedAt:    now,
	}
	if err := rt.store.CreateSession(ctx, sess); err != nil {
		return "", err
	}
	rt.bus.Publish(eventbus.Event{Kind: eventbus.KindSessionCreated, SessionID: sessionID, Timestamp: now, Payload: sess})

	runCtx, cancel := context.WithCancel(context.Background())
	rt.mu.Lock()
	rt.cancels[sessionID] = cancel
	rt.mu.Unlock()

	go rt.run(runCtx, sessionID, req)
	return sessionID, nil
}

func (rt *Runtime) run(ctx context.Context, sessionID string, req StartRequest) {
	defer rt.clearCancel(sessionID)

	ctx = ctxkeys.WithSessionID(ctx, sessionID)
	logger := rt.logger.With(zap.String("session_id", sessionID))
	ctx, span := telemetry.Tracer().Start(ctx, "session", trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()

	if err := rt.store.UpdateSessionStatus(ctx, sessionID, types.StatusPlanning); err != nil {
		rt.fail(ctx, sessionID, err)
		return
	}
	rt.bus.Publish(eventbus.Event{Kind: eventbus.KindRoundtableGenerating, SessionID: sessionID, Timestamp: time.Now().UTC()})

	planCtx, planCancel := detachedCallContext(ctx)
	result := rt.planner.Plan(planCtx, planner.Request{
		Title:            req.Title,
		DocumentType:     req.DocumentType,
		Goal:             req.Goal,
		NumParticipants:  req.Config.NumParticipants,
		Preset:           req.Config.Preset,
		ParticipantStyle: req.Config.ParticipantStyle,
		Model:            req.Config.Model,
		ModelStrategy:    req.Config.ModelStrategy,
		Content:          req.Content,
	})
	planCancel()
	if result.Warning != "" {
		rt.bus.Publish(logEvent(sessionID, eventbus.LogLevelWarn, result.Warning))
	}

	sess, err := rt.store.LoadSession(ctx, sessionID)
	if err != nil {
		rt.fail(ctx, sessionID, err)
		return
	}
	sess.Participants = result.Participants
	sess.ModeratorFocus = result.ModeratorFocus
	sess.Status = types.StatusRunning
	if err := rt.store.SaveSession(ctx, sess); err != nil {
		rt.fail(ctx, sessionID, err)
		return
	}
	rt.bus.Publish(eventbus.Event{
		Kind: eventbus.KindRoundtableGenerated, SessionID: sessionID, Timestamp: time.Now().UTC(),
		Payload: roundtableGeneratedPayload{Participants: participantNames(result.Participants), ModeratorFocus: result.ModeratorFocus},
	})

	doc := types.NewDocumentVersion(1, req.Title, req.DocumentType, req.Content, time.Now().UTC())
	if err := rt.store.SaveVersion(ctx, sessionID, doc); err != nil {
		rt.fail(ctx, sessionID, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.SessionsStarted.WithLabelValues(string(req.Config.Preset)).Inc()
	}
	logger.Info("session running", zap.Int("participants", len(result.Participants)))
	rt.driveIterations(ctx, sessionID)
}

// driveIterations runs the reviewer/converge/moderate loop starting from
// whatever iteration and document version the session currently sits at,
// used both for a fresh Start and for a Continue re-entry.
func (rt *Runtime) driveIterations(ctx context.Context, sessionID string) {
	sess, err := rt.store.LoadSession(ctx, sessionID)
	if err != nil {
		rt.logger.Error("failed to load session for iteration loop", zap.String("session_id", sessionID), zap.Error(err))
		return
	}

	history, err := rt.store.LoadIterations(ctx, sessionID)
	if err != nil {
		rt.fail(ctx, sessionID, err)
		return
	}
	summaries := make([]convergence.IterationSummary, 0, len(history)+1)
	for _, rec := range history {
		summaries = append(summaries, convergence.IterationSummary{
			IterationIndex: rec.IterationIndex,
			Reviews:        rec.Reviews,
			Delta:          rec.ConvergenceCheck.Delta,
		})
	}

	for {
		select {
		case <-ctx.Done():
			rt.cancelSession(context.Background(), sessionID)
			return
		default:
		}

		inputVersion, err := rt.store.MaxVersion(ctx, sessionID)
		if err != nil {
			rt.fail(ctx, sessionID, err)
			return
		}
		doc, err := rt.store.LoadVersion(ctx, sessionID, inputVersion)
		if err != nil {
			rt.fail(ctx, sessionID, err)
			return
		}

		iterationIndex := sess.CurrentIteration + 1
		started := time.Now().UTC()
		ctx = ctxkeys.WithIteration(ctx, iterationIndex)
		iterCtx, span := telemetry.Tracer().Start(ctx, "iteration", trace.WithAttributes(
			attribute.String("session_id", sessionID),
			attribute.Int("iteration_index", iterationIndex),
		))

		rt.bus.Publish(eventbus.Event{
			Kind: eventbus.KindIterationStart, SessionID: sessionID, Timestamp: started,
			Payload: iterationStartPayload{IterationIndex: iterationIndex, InputVersion: inputVersion},
		})

		reviews, err := rt.collectReviews(iterCtx, sessionID, sess.Participants, doc)
		if err != nil {
			span.RecordError(err)
			span.End()
			rt.bus.Publish(logEvent(sessionID, eventbus.LogLevelError, fmt.Sprintf("iteration %d aborted: %v", iterationIndex, err)))
			rt.fail(ctx, sessionID, err)
			return
		}
		if err := rt.store.SaveReviews(iterCtx, sessionID, inputVersion, reviews); err != nil {
			span.End()
			rt.fail(ctx, sessionID, err)
			return
		}

		delta := 0.0
		if inputVersion > 1 {
			if prevDoc, err := rt.store.LoadVersion(iterCtx, sessionID, inputVersion-1); err == nil {
				delta = convergence.Delta(prevDoc.Content, doc.Content)
			}
		}
		summaries = append(summaries, convergence.IterationSummary{IterationIndex: iterationIndex, Reviews: reviews, Delta: delta})

		check := convergence.Decide(sess.Config, summaries, nil)
		rt.bus.Publish(eventbus.Event{
			Kind: eventbus.KindConvergenceCheck, SessionID: sessionID, Timestamp: time.Now().UTC(),
			Payload: convergenceCheckPayload{IterationIndex: iterationIndex, Check: check},
		})

		record := types.IterationRecord{
			IterationIndex:   iterationIndex,
			InputVersion:     inputVersion,
			Reviews:          reviews,
			ConvergenceCheck: check,
			StartedAt:        started,
		}
		sess.CurrentIteration = iterationIndex
		sess.TokenCounts = sess.TokenCounts.Add(tallyTokens(reviews))

		if rt.metrics != nil {
			rt.metrics.IterationDuration.WithLabelValues(string(check.StoppedBy)).Observe(time.Since(started).Seconds())
		}

		if check.ShouldStop {
			record.EndedAt = time.Now().UTC()
			if err := rt.store.SaveIteration(iterCtx, sessionID, record); err != nil {
				span.End()
				rt.fail(ctx, sessionID, err)
				return
			}
			span.End()
			rt.finalize(ctx, sessionID, sess, summaries, check, inputVersion)
			return
		}

		rt.bus.Publish(eventbus.Event{
			Kind: eventbus.KindModeratorStart, SessionID: sessionID, Timestamp: time.Now().UTC(),
			Payload: moderatorStartPayload{IterationIndex: iterationIndex},
		})
		modCtx, modCancel := detachedCallContext(iterCtx)
		refined, modTokens, err := rt.moderator.Refine(modCtx, sess.ModeratorFocus, sess.Config.Model, doc, reviews)
		modCancel()
		record.EndedAt = time.Now().UTC()
		if err != nil {
			// Reviews already persisted above; the iteration record is saved
			// without an OutputVersion, and the session fails outright — a
			// moderator failure can't be silently retried into the next
			// iteration since there is no new document to hand it.
			_ = rt.store.SaveIteration(iterCtx, sessionID, record)
			span.RecordError(err)
			span.End()
			rt.bus.Publish(logEvent(sessionID, eventbus.LogLevelError, fmt.Sprintf("moderator failed on iteration %d: %v", iterationIndex, err)))
			rt.fail(ctx, sessionID, err)
			return
		}
		sess.TokenCounts = sess.TokenCounts.Add(modTokens)

		nextVersion := inputVersion + 1
		newDoc := types.NewDocumentVersion(nextVersion, doc.Title, doc.DocumentType, refined, time.Now().UTC())
		newDoc.ProducingModeratorVersion = inputVersion
		if err := rt.store.SaveVersion(iterCtx, sessionID, newDoc); err != nil {
			span.End()
			rt.fail(ctx, sessionID, err)
			return
		}
		record.OutputVersion = nextVersion
		if err := rt.store.SaveIteration(iterCtx, sessionID, record); err != nil {
			span.End()
			rt.fail(ctx, sessionID, err)
			return
		}
		if err := rt.store.SaveSession(iterCtx, sess); err != nil {
			span.End()
			rt.fail(ctx, sessionID, err)
			return
		}
		rt.bus.Publish(eventbus.Event{
			Kind: eventbus.KindModeratorComplete, SessionID: sessionID, Timestamp: time.Now().UTC(),
			Payload: moderatorCompletePayload{IterationIndex: iterationIndex, OutputVersion: nextVersion},
		})
		span.End()
	}
}

// collectReviews fans reviewer calls out over an errgroup and joins them at
// a barrier: any single fatal reviewer error aborts the whole iteration
// before the moderator is ever consulted, and no partial review set is
// persisted (spec.md §4.6, R runner.py's step()).
func (rt *Runtime) collectReviews(ctx context.Context, sessionID string, participants []types.Participant, doc types.DocumentVersion) ([]types.Review, error) {
	reviews := make([]types.Review, len(participants))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range participants {
		i, p := i, p
		g.Go(func() error {
			rt.bus.Publish(eventbus.Event{
				Kind: eventbus.KindCriticReviewStart, SessionID: sessionID, Timestamp: time.Now().UTC(),
				Payload: criticReviewStartPayload{Participant: p.DisplayName},
			})
			callCtx, cancel := detachedCallContext(ctxkeys.WithParticipant(gctx, p.DisplayName))
			defer cancel()
			review, err := rt.reviewer.Review(callCtx, p, doc)
			if err != nil {
				if rt.metrics != nil {
					rt.metrics.ReviewerCalls.WithLabelValues("error").Inc()
				}
				return fmt.Errorf("reviewer %q: %w", p.DisplayName, err)
			}
			if rt.metrics != nil {
				rt.metrics.ReviewerCalls.WithLabelValues("ok").Inc()
			}
			reviews[i] = review
			rt.bus.Publish(eventbus.Event{
				Kind: eventbus.KindCriticReviewComplete, SessionID: sessionID, Timestamp: time.Now().UTC(),
				Payload: criticReviewCompletePayload{Participant: p.DisplayName, HighSeverityCount: review.HighSeverityCount()},
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reviews, nil
}

func tallyTokens(reviews []types.Review) types.TokenCounts {
	var total types.TokenCounts
	for _, r := range reviews {
		total = total.Add(r.TokenCounts)
	}
	return total
}

// finalize persists the terminal ConvergenceReport and flips the session to
// Completed. It is only ever reached when a convergence rule fired, never on
// error — error paths go through fail instead.
func (rt *Runtime) finalize(ctx context.Context, sessionID string, sess types.Session, summaries []convergence.IterationSummary, check types.ConvergenceCheck, finalVersion int) {
	now := time.Now().UTC()
	sess.Status = types.StatusCompleted
	sess.StoppedBy = check.StoppedBy
	sess.ConvergenceReason = check.Reason
	sess.FinalVersion = finalVersion
	sess.EndedAt = now
	if err := rt.store.SaveSession(ctx, sess); err != nil {
		rt.fail(ctx, sessionID, err)
		return
	}

	last := summaries[len(summaries)-1]
	report := types.ConvergenceReport{
		SessionID:              sessionID,
		Title:                  sess.Title,
		InitialVersion:         1,
		FinalVersion:           finalVersion,
		IterationCount:         len(summaries),
		Converged:              true,
		ConvergenceReason:      check.Reason,
		StoppedBy:              check.StoppedBy,
		TotalIssuesIdentified:  totalIssueCount(summaries),
		FinalIssueCounts:       types.CountBySeverity(last.Reviews),
		TokenCounts:            sess.TokenCounts,
		DeltaMetric:            "difflib_character_ratio",
		StartedAt:              sess.CreatedAt,
		EndedAt:                now,
		ContinuedFromIteration: sess.ContinuedFromIteration,
		Metadata:               sess.Config.Metadata,
	}
	if err := rt.store.SaveReport(ctx, sessionID, report); err != nil {
		rt.fail(ctx, sessionID, err)
		return
	}

	rt.bus.Publish(eventbus.Event{Kind: eventbus.KindRefinementComplete, SessionID: sessionID, Timestamp: now, Payload: report})
	if rt.metrics != nil {
		rt.metrics.SessionsFinished.WithLabelValues(string(check.StoppedBy), string(types.StatusCompleted)).Inc()
	}
	rt.bus.Forget(sessionID)
}

func totalIssueCount(summaries []convergence.IterationSummary) int {
	n := 0
	for _, s := range summaries {
		for _, r := range s.Reviews {
			n += len(r.Issues)
		}
	}
	return n
}

// fail marks sessionID Failed and records cause as its convergence reason.
// Used for every error path that isn't a clean convergence stop.
func (rt *Runtime) fail(ctx context.Context, sessionID string, cause error) {
	now := time.Now().UTC()
	fields := []zap.Field{zap.String("session_id", sessionID), zap.Error(cause)}
	if iteration, ok := ctxkeys.Iteration(ctx); ok {
		fields = append(fields, zap.Int("iteration_index", iteration))
	}
	if sess, err := rt.store.LoadSession(ctx, sessionID); err == nil {
		sess.Status = types.StatusFailed
		sess.StoppedBy = types.StoppedByError
		sess.EndedAt = now
		sess.ConvergenceReason = cause.Error()
		_ = rt.store.SaveSession(ctx, sess)
	} else {
		_ = rt.store.UpdateSessionStatus(ctx, sessionID, types.StatusFailed)
	}
	rt.bus.Publish(logEvent(sessionID, eventbus.LogLevelError, cause.Error()))
	if rt.metrics != nil {
		rt.metrics.SessionsFinished.WithLabelValues(string(types.StoppedByError), string(types.StatusFailed)).Inc()
	}
	rt.logger.Error("session failed", fields...)
	rt.bus.Forget(sessionID)
}

func (rt *Runtime) clearCancel(sessionID string) {
	rt.mu.Lock()
	delete(rt.cancels, sessionID)
	rt.mu.Unlock()
}

func logEvent(sessionID string, level eventbus.LogLevel, message string) eventbus.Event {
	return eventbus.Event{
		Kind: eventbus.KindLog, SessionID: sessionID, Timestamp: time.Now().UTC(),
		Payload: eventbus.LogPayload{Level: level, Message: message},
	}
}
