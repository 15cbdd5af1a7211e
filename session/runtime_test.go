package session_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/va2ai/ai-agent-orchestration-platform/eventbus"
	"github.com/va2ai/ai-agent-orchestration-platform/llmclient"
	"github.com/va2ai/ai-agent-orchestration-platform/llmclient/retry"
	"github.com/va2ai/ai-agent-orchestration-platform/session"
	"github.com/va2ai/ai-agent-orchestration-platform/store"
	"github.com/va2ai/ai-agent-orchestration-platform/testutil/mocks"
	"github.com/va2ai/ai-agent-orchestration-platform/types"
)

const noHighIssuesJSON = `{"issues":[],"overall_assessment":"fine"}`

func highIssueJSON(description string) string {
	return `{"issues":[{"category":"Clarity","description":"` + description + `","severity":"High","suggested_fix":"add detail"}],"overall_assessment":"needs work"}`
}

func isModeratorSystemPrompt(system string) bool {
	return strings.Contains(system, "skilled moderator")
}

func isSalvageSystemPrompt(system string) bool {
	return strings.Contains(system, "reformat malformed content")
}

// waitForTerminal polls Status until the session leaves Pending/Planning/
// Running, since Start returns before the driver goroutine does any work.
func waitForTerminal(t *testing.T, rt *session.Runtime, sessionID string) types.Session {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		sess, err := rt.Status(context.Background(), sessionID)
		require.NoError(t, err)
		switch sess.Status {
		case types.StatusCompleted, types.StatusFailed, types.StatusCancelled:
			return sess
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("session never reached a terminal status")
	return types.Session{}
}

func newRuntime(client llmclient.LLMClient) (*session.Runtime, store.Store) {
	st := store.NewMemoryStore()
	bus := eventbus.New(nil)
	rt := session.New(client, st, bus, retry.DefaultPolicy(), nil, zap.NewNop())
	return rt, st
}

// S1: every reviewer immediately reports no issues, so the very first
// iteration converges on no_high_issues without ever calling the moderator.
func TestScenarioS1ImmediateConvergence(t *testing.T) {
	client := mocks.NewSuccess(noHighIssuesJSON)
	rt, _ := newRuntime(client)

	sessionID, err := rt.Start(context.Background(), session.StartRequest{
		Title:        "Empty",
		Content:      "trivial doc",
		DocumentType: "document",
		Config: types.Config{
			MaxIterations:      3,
			NumParticipants:    2,
			Preset:             types.PresetCodeReview,
			StopOnNoHighIssues: true,
			DeltaThreshold:     0.05,
		},
	})
	require.NoError(t, err)

	sess := waitForTerminal(t, rt, sessionID)
	require.Equal(t, types.StatusCompleted, sess.Status)
	assert.Equal(t, types.StoppedByNoHighIssues, sess.StoppedBy)
	assert.Equal(t, 1, sess.CurrentIteration)
	assert.Equal(t, 1, sess.FinalVersion)

	report, err := rt.GetReport(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.IterationCount)
	assert.Equal(t, 1, report.FinalVersion)
	assert.True(t, report.Converged)
}

// S2: reviewers always find a High severity issue and the moderator's
// rewrites keep changing the document substantially, so the loop only stops
// once max_iterations is exhausted, with high severity issues still open.
func TestScenarioS2MaxIterationsExhausted(t *testing.T) {
	var moderatorCalls int32
	client := mocks.New().WithCompletionFunc(func(ctx context.Context, req llmclient.ChatRequest) (llmclient.ChatResponse, error) {
		system := req.Messages[0].Content
		if isModeratorSystemPrompt(system) {
			n := atomic.AddInt32(&moderatorCalls, 1)
			content := strings.Repeat("revision ", int(n)) + strings.Repeat("alpha bravo charlie delta echo foxtrot ", int(n))
			return llmclient.ChatResponse{Content: content, Usage: llmclient.Usage{PromptTokens: 5, CompletionTokens: 5, TotalTokens: 10}}, nil
		}
		return llmclient.ChatResponse{Content: highIssueJSON("scope is unclear"), Usage: llmclient.Usage{PromptTokens: 5, CompletionTokens: 5, TotalTokens: 10}}, nil
	})
	rt, _ := newRuntime(client)

	sessionID, err := rt.Start(context.Background(), session.StartRequest{
		Title:        "Design doc",
		Content:      "Initial content that needs several rounds of revision.",
		DocumentType: "document",
		Config: types.Config{
			MaxIterations:      3,
			NumParticipants:    2,
			Preset:             types.PresetCodeReview,
			StopOnNoHighIssues: true,
			DeltaThreshold:     0.05,
		},
	})
	require.NoError(t, err)

	sess := waitForTerminal(t, rt, sessionID)
	require.Equal(t, types.StatusCompleted, sess.Status)
	assert.Equal(t, types.StoppedByMaxIterations, sess.StoppedBy)
	assert.Equal(t, 3, sess.CurrentIteration)

	report, err := rt.GetReport(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, 3, report.IterationCount)
	assert.Greater(t, report.TotalIssuesIdentified, 0)
	assert.Equal(t, 2, report.FinalIssueCounts["high"], "2 participants each still reporting one High issue on the final iteration")
}

// S3: reviewers keep finding a High issue, but the moderator stops changing
// the document at all after the first refinement, so delta collapses to
// zero and the loop stops on stability before max_iterations is reached.
func TestScenarioS3StabilityStopViaDeltaThreshold(t *testing.T) {
	client := mocks.New().WithCompletionFunc(func(ctx context.Context, req llmclient.ChatRequest) (llmclient.ChatResponse, error) {
		system := req.Messages[0].Content
		if isModeratorSystemPrompt(system) {
			return llmclient.ChatResponse{Content: "Stable document body that never changes again.", Usage: llmclient.Usage{PromptTokens: 5, CompletionTokens: 5, TotalTokens: 10}}, nil
		}
		return llmclient.ChatResponse{Content: highIssueJSON("still needs polish"), Usage: llmclient.Usage{PromptTokens: 5, CompletionTokens: 5, TotalTokens: 10}}, nil
	})
	rt, _ := newRuntime(client)

	sessionID, err := rt.Start(context.Background(), session.StartRequest{
		Title:        "Stability check",
		Content:      "Original content.",
		DocumentType: "document",
		Config: types.Config{
			MaxIterations:      5,
			NumParticipants:    2,
			Preset:             types.PresetCodeReview,
			StopOnNoHighIssues: true,
			DeltaThreshold:     0.05,
		},
	})
	require.NoError(t, err)

	sess := waitForTerminal(t, rt, sessionID)
	require.Equal(t, types.StatusCompleted, sess.Status)
	assert.Equal(t, types.StoppedByDeltaThreshold, sess.StoppedBy)
	// Iteration 1 refines "Original content." into the stable text (a big
	// delta against iteration 0's input, but delta isn't evaluated on
	// iteration 1 at all). Iteration 2 measures delta between iteration 1's
	// input and iteration 2's input — still the big rewrite — so it takes a
	// third iteration, comparing the stable text against itself, to observe
	// delta collapse to zero.
	assert.Equal(t, 3, sess.CurrentIteration)
}

// S5: a reviewer's first response is unparseable; the salvage reformat call
// recovers a valid review and the session still completes normally.
func TestScenarioS5ReviewerMalformedThenSalvaged(t *testing.T) {
	client := mocks.New().WithCompletionFunc(func(ctx context.Context, req llmclient.ChatRequest) (llmclient.ChatResponse, error) {
		system := req.Messages[0].Content
		switch {
		case isSalvageSystemPrompt(system):
			return llmclient.ChatResponse{Content: noHighIssuesJSON, Usage: llmclient.Usage{PromptTokens: 5, CompletionTokens: 5, TotalTokens: 10}}, nil
		case isModeratorSystemPrompt(system):
			return llmclient.ChatResponse{Content: "unreachable in this scenario"}, nil
		default:
			return llmclient.ChatResponse{Content: "not json at all, sorry", Usage: llmclient.Usage{PromptTokens: 5, CompletionTokens: 5, TotalTokens: 10}}, nil
		}
	})
	rt, _ := newRuntime(client)

	sessionID, err := rt.Start(context.Background(), session.StartRequest{
		Title:        "Salvage path",
		Content:      "Document that reviewers will initially mangle their response about.",
		DocumentType: "document",
		Config: types.Config{
			MaxIterations:      3,
			NumParticipants:    2,
			Preset:             types.PresetCodeReview,
			StopOnNoHighIssues: true,
			DeltaThreshold:     0.05,
		},
	})
	require.NoError(t, err)

	sess := waitForTerminal(t, rt, sessionID)
	require.Equal(t, types.StatusCompleted, sess.Status, "a malformed-then-salvaged reviewer response must not fail the session")
	assert.Equal(t, types.StoppedByNoHighIssues, sess.StoppedBy)

	reviews, err := rt.GetReviews(context.Background(), sessionID, 1)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	for _, review := range reviews {
		assert.Empty(t, review.Issues)
	}
}

// S6: every reviewer call fails outright (not retryable), so the whole
// iteration is aborted before the moderator is ever consulted and the
// session fails with no report persisted.
func TestScenarioS6ReviewerFatalError(t *testing.T) {
	client := mocks.NewError(errors.New("provider outage"))
	rt, _ := newRuntime(client)

	sessionID, err := rt.Start(context.Background(), session.StartRequest{
		Title:        "Doomed session",
		Content:      "Content that will never be reviewed successfully.",
		DocumentType: "document",
		Config: types.Config{
			MaxIterations:      3,
			NumParticipants:    2,
			Preset:             types.PresetCodeReview,
			StopOnNoHighIssues: true,
			DeltaThreshold:     0.05,
		},
	})
	require.NoError(t, err)

	sess := waitForTerminal(t, rt, sessionID)
	require.Equal(t, types.StatusFailed, sess.Status)
	assert.Equal(t, types.StoppedByError, sess.StoppedBy)
	assert.NotEmpty(t, sess.ConvergenceReason)

	_, err = rt.GetReport(context.Background(), sessionID)
	assert.ErrorIs(t, err, store.ErrReportNotFound)
}

// TestContinueReentersAfterMaxIterations covers the continuation protocol
// (S4-shaped): a session that stopped on max_iterations with High issues
// still open can be continued for additional iterations.
func TestContinueReentersAfterMaxIterations(t *testing.T) {
	var moderatorCalls int32
	client := mocks.New().WithCompletionFunc(func(ctx context.Context, req llmclient.ChatRequest) (llmclient.ChatResponse, error) {
		system := req.Messages[0].Content
		if isModeratorSystemPrompt(system) {
			n := atomic.AddInt32(&moderatorCalls, 1)
			content := strings.Repeat("revision ", int(n)) + strings.Repeat("alpha bravo charlie delta echo foxtrot ", int(n))
			return llmclient.ChatResponse{Content: content, Usage: llmclient.Usage{PromptTokens: 5, CompletionTokens: 5, TotalTokens: 10}}, nil
		}
		return llmclient.ChatResponse{Content: highIssueJSON("scope is unclear"), Usage: llmclient.Usage{PromptTokens: 5, CompletionTokens: 5, TotalTokens: 10}}, nil
	})
	rt, _ := newRuntime(client)

	sessionID, err := rt.Start(context.Background(), session.StartRequest{
		Title:        "Continuation candidate",
		Content:      "Content needing more rounds than the initial budget allows.",
		DocumentType: "document",
		Config: types.Config{
			MaxIterations:      2,
			NumParticipants:    2,
			Preset:             types.PresetCodeReview,
			StopOnNoHighIssues: true,
			DeltaThreshold:     0.05,
		},
	})
	require.NoError(t, err)

	sess := waitForTerminal(t, rt, sessionID)
	require.Equal(t, types.StatusCompleted, sess.Status)
	require.Equal(t, types.StoppedByMaxIterations, sess.StoppedBy)
	require.True(t, sess.CanContinue())

	require.NoError(t, rt.Continue(context.Background(), sessionID, 2))

	final := waitForTerminal(t, rt, sessionID)
	require.Equal(t, types.StatusCompleted, final.Status)
	assert.Equal(t, types.StoppedByMaxIterations, final.StoppedBy)
	assert.Equal(t, 4, final.CurrentIteration)
	assert.Equal(t, 2, final.ContinuedFromIteration)
}

// TestContinueRejectsSessionsStoppedByOtherRules covers the Open Question
// resolution: continuation is restricted to stopped_by=max_iterations.
func TestContinueRejectsSessionsStoppedByOtherRules(t *testing.T) {
	client := mocks.NewSuccess(noHighIssuesJSON)
	rt, _ := newRuntime(client)

	sessionID, err := rt.Start(context.Background(), session.StartRequest{
		Title:        "Converged already",
		Content:      "trivial doc",
		DocumentType: "document",
		Config: types.Config{
			MaxIterations:      3,
			NumParticipants:    2,
			Preset:             types.PresetCodeReview,
			StopOnNoHighIssues: true,
			DeltaThreshold:     0.05,
		},
	})
	require.NoError(t, err)
	waitForTerminal(t, rt, sessionID)

	err = rt.Continue(context.Background(), sessionID, 1)
	require.Error(t, err)
	assert.Equal(t, types.ErrConflict, types.CodeOf(err))
}
