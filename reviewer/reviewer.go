// Package reviewer implements the Reviewer Agent: one LLM call per
// participant per iteration, producing a structured Review against the
// current document version. Grounded on agent/base.go's Execute pattern
// (structured logging around a single provider call) and
// original_source/src/ai_orchestrator/agents/dynamic_critic.py's prompt
// shape and defensive JSON field-aliasing.
package reviewer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/va2ai/ai-agent-orchestration-platform/internal/ctxkeys"
	"github.com/va2ai/ai-agent-orchestration-platform/llmclient"
	"github.com/va2ai/ai-agent-orchestration-platform/llmclient/retry"
	"github.com/va2ai/ai-agent-orchestration-platform/types"
)

// Agent reviews a document version from one participant's perspective.
type Agent struct {
	client      llmclient.LLMClient
	retryPolicy retry.Policy
	logger      *zap.Logger
}

// New constructs a reviewer Agent. A nil logger falls back to zap.NewNop.
func New(client llmclient.LLMClient, retryPolicy retry.Policy, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{client: client, retryPolicy: retryPolicy, logger: logger.With(zap.String("component", "reviewer"))}
}

// rawIssue mirrors the JSON shape the LLM is asked to produce, tolerant
// of the field-name aliases original_source's DynamicCritic.review()
// defensively accepts (category/section, description/issue,
// suggested_fix/fix).
type rawIssue struct {
	Category      string `json:"category"`
	Section       string `json:"section"`
	Description   string `json:"description"`
	IssueField    string `json:"issue"`
	Severity      string `json:"severity"`
	SuggestedFix  string `json:"suggested_fix"`
	Fix           string `json:"fix"`
	Reviewer      string `json:"reviewer"`
}

type rawReview struct {
	Issues            []rawIssue `json:"issues"`
	OverallAssessment string     `json:"overall_assessment"`
}

// Review runs one reviewer call against document, returning a structured
// Review. On a first-attempt parse failure it makes one salvage
// reformatting call before giving up: the returned error is a
// *types.Error{Code: types.ErrMalformedReview} carrying the last raw
// response text as its message so callers can persist it for debugging
// (spec.md §4.2 — "malformed raw output persisted for debugging").
func (a *Agent) Review(ctx context.Context, participant types.Participant, document types.DocumentVersion) (types.Review, error) {
	human := buildReviewPrompt(document)

	resp, usage, err := a.complete(ctx, participant, []llmclient.Message{
		{Role: llmclient.RoleSystem, Content: participant.SystemPrompt},
		{Role: llmclient.RoleUser, Content: human},
	})
	if err != nil {
		return types.Review{}, err
	}

	review, parseErr := a.parse(resp.Content, participant.DisplayName)
	if parseErr == nil {
		review.TokenCounts = usage
		review.Timestamp = time.Now().UTC()
		return review, nil
	}

	logger := a.logger
	if sessionID, ok := ctxkeys.SessionID(ctx); ok {
		logger = logger.With(zap.String("session_id", sessionID))
	}
	logger.Warn("reviewer response failed to parse, attempting salvage reformat",
		zap.String("participant", participant.DisplayName), zap.Error(parseErr))

	salvagePrompt := fmt.Sprintf(
		"Your previous response could not be parsed as JSON. Reformat the following content into EXACTLY this JSON schema and output nothing else:\n"+
			`{"issues":[{"category":"...","description":"...","severity":"High|Medium|Low","suggested_fix":"..."}],"overall_assessment":"..."}`+
			"\n\nPrevious response:\n%s", resp.Content)

	salvageResp, salvageUsage, err := a.complete(ctx, participant, []llmclient.Message{
		{Role: llmclient.RoleSystem, Content: "You reformat malformed content into strict JSON. Output only the JSON object."},
		{Role: llmclient.RoleUser, Content: salvagePrompt},
	})
	if err != nil {
		return types.Review{}, err
	}

	review, parseErr = a.parse(salvageResp.Content, participant.DisplayName)
	if parseErr != nil {
		return types.Review{}, types.NewError(types.ErrMalformedReview,
			fmt.Sprintf("reviewer %q produced unparseable output after salvage attempt: %s", participant.DisplayName, salvageResp.Content)).
			WithCause(parseErr)
	}

	logger.Warn("salvaged malformed reviewer output", zap.String("participant", participant.DisplayName))
	review.TokenCounts = usage.Add(salvageUsage)
	review.Timestamp = time.Now().UTC()
	return review, nil
}

func (a *Agent) complete(ctx context.Context, participant types.Participant, messages []llmclient.Message) (llmclient.ChatResponse, types.TokenCounts, error) {
	var resp llmclient.ChatResponse
	var tallied types.TokenCounts

	err := retry.Do(ctx, a.retryPolicy, func(ctx context.Context) error {
		r, err := a.client.Complete(ctx, llmclient.ChatRequest{
			Model:    participant.ModelID,
			Messages: messages,
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
		return llmclient.ChatResponse{}, tallied, types.NewError(types.ErrFatalLLM,
			fmt.Sprintf("reviewer %q LLM call failed", participant.DisplayName)).WithCause(err)
	}
	return resp, tallied, nil
}

func (a *Agent) parse(content, reviewerName string) (types.Review, error) {
	content = extractJSON(content)
	var raw rawReview
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return types.Review{}, err
	}

	issues := make([]types.Issue, 0, len(raw.Issues))
	for _, ri := range raw.Issues {
		category := firstNonEmpty(ri.Category, ri.Section, "General")
		description := firstNonEmpty(ri.Description, ri.IssueField)
		severity := types.ParseSeverity(ri.Severity)
		issues = append(issues, types.Issue{
			Category:     category,
			Description:  description,
			Severity:     severity,
			SuggestedFix: firstNonEmpty(ri.SuggestedFix, ri.Fix),
			ReviewerName: reviewerName,
		})
	}

	return types.Review{
		ReviewerName:      reviewerName,
		Issues:            issues,
		OverallAssessment: raw.OverallAssessment,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// extractJSON trims a leading/trailing markdown code fence, a pattern
// LLMs frequently wrap JSON in despite instructions not to.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}
	return content
}

func buildReviewPrompt(document types.DocumentVersion) string {
	return fmt.Sprintf(
		"Review the following document:\n\nTitle: %s\nVersion: %d\n\nContent:\n%s\n\n"+
			"Provide your expert review following the instructions in your system prompt. "+
			"Focus on your specific area of expertise and flag any issues you identify. "+
			`Respond with a JSON object of the form {"issues":[{"category":"...","description":"...","severity":"High|Medium|Low","suggested_fix":"..."}],"overall_assessment":"..."} and nothing else.`,
		document.Title, document.Version, document.Content)
}
