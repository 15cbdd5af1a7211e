// Package moderator implements the Moderator Agent: a single LLM call
// that synthesizes a new document version from the current version plus
// the iteration's reviews. Grounded on
// original_source/agents/moderator.py (single system+human call, token
// usage from the response) and
// original_source/src/ai_orchestrator/agents/dynamic_critic.py's
// DynamicModerator.refine (review-summary prompt shape and guidelines).
package moderator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/va2ai/ai-agent-orchestration-platform/llmclient"
	"github.com/va2ai/ai-agent-orchestration-platform/llmclient/retry"
	"github.com/va2ai/ai-agent-orchestration-platform/types"
)

// Agent refines a document based on a set of reviews.
type Agent struct {
	client      llmclient.LLMClient
	retryPolicy retry.Policy
	logger      *zap.Logger
}

// New constructs a moderator Agent.
func New(client llmclient.LLMClient, retryPolicy retry.Policy, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{client: client, retryPolicy: retryPolicy, logger: logger.With(zap.String("component", "moderator"))}
}

// Refine produces the next document content given the current version
// and the reviews collected against it. Reviews are passed to the LLM as
// a structured list, never merged into free prose, per spec.md §4.3.
func (a *Agent) Refine(ctx context.Context, moderatorFocus string, model string, document types.DocumentVersion, reviews []types.Review) (string, types.TokenCounts, error) {
	system := buildSystemPrompt(moderatorFocus)
	human := buildHumanPrompt(document, reviews)

	var resp llmclient.ChatResponse
	var tallied types.TokenCounts
	err := retry.Do(ctx, a.retryPolicy, func(ctx context.Context) error {
		r, err := a.client.Complete(ctx, llmclient.ChatRequest{
			Model: model,
			Messages: []llmclient.Message{
				{Role: llmclient.RoleSystem, Content: system},
				{Role: llmclient.RoleUser, Content: human},
			},
		})
		if err != nil {
			return err
		}
		resp = r
		tallied = tallied.Add(types.TokenCounts{
			PromptTokens:     r.Usage.PromptTokens,
			CompletionTokens: r.Usage.CompletionTokens,
			TotalTokens:      r.Usage.TotalTokens,
		})
		return nil
	})
	if err != nil {
		return "", tallied, types.NewError(types.ErrFatalLLM, "moderator LLM call failed").WithCause(err)
	}

	refined := strings.TrimSpace(resp.Content)
	a.logger.Info("moderator refined document",
		zap.Int("input_chars", len([]rune(document.Content))),
		zap.Int("output_chars", len([]rune(refined))))
	return refined, tallied, nil
}

// BuildPrompt exposes the system and human-turn prompts for tests and for callers
// that want to preview what the moderator will see without invoking the
// LLM.
func BuildPrompt(moderatorFocus string, document types.DocumentVersion, reviews []types.Review) (system, human string) {
	return buildSystemPrompt(moderatorFocus), buildHumanPrompt(document, reviews)
}

func buildSystemPrompt(moderatorFocus string) string {
	return fmt.Sprintf(`You are a skilled moderator facilitating a document refinement discussion.

Your job is to take feedback from multiple expert reviewers and produce an improved version
of the document that addresses their concerns.

Focus: %s

Guidelines:
- You MUST resolve every High severity issue.
- You SHOULD resolve Medium severity issues when doing so materially helps.
- You MAY ignore Low severity issues.
- You MUST preserve the document's stated purpose and any explicitly in-scope sections.
- You MUST NOT invent facts to fill a gap a reviewer identified; insert an explicit
  placeholder (e.g. "[TODO: needs input on X]") instead of fabricating content.
- Keep the document focused; don't add unnecessary content.

Output ONLY the refined document content.`, moderatorFocus)
}

func buildHumanPrompt(document types.DocumentVersion, reviews []types.Review) string {
	var b strings.Builder
	b.WriteString("Current Document:\n\n")
	fmt.Fprintf(&b, "Title: %s\nVersion: %d\n\nContent:\n%s\n\n", document.Title, document.Version, document.Content)
	b.WriteString("Expert Reviews:\n")
	for _, r := range reviews {
		fmt.Fprintf(&b, "\n=== %s ===\n", r.ReviewerName)
		fmt.Fprintf(&b, "Overall: %s\n", r.OverallAssessment)
		for _, issue := range r.Issues {
			fmt.Fprintf(&b, "[%s] %s: %s\n", issue.Severity, issue.Category, issue.Description)
			if issue.SuggestedFix != "" {
				fmt.Fprintf(&b, "  -> Suggested fix: %s\n", issue.SuggestedFix)
			}
		}
	}
	b.WriteString("\nPlease produce an improved version that addresses the feedback. Output the complete refined document.")
	return b.String()
}
