package moderator_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/va2ai/ai-agent-orchestration-platform/llmclient/retry"
	"github.com/va2ai/ai-agent-orchestration-platform/moderator"
	"github.com/va2ai/ai-agent-orchestration-platform/testutil/mocks"
	"github.com/va2ai/ai-agent-orchestration-platform/types"
)

func testDocument() types.DocumentVersion {
	return types.NewDocumentVersion(1, "Design Doc", "document", "Original content.", time.Now().UTC())
}

func testReviews() []types.Review {
	return []types.Review{
		{
			ReviewerName:      "Security Engineer",
			OverallAssessment: "needs work",
			Issues: []types.Issue{
				{Category: "Security", Description: "missing auth check", Severity: types.SeverityHigh, SuggestedFix: "add authz middleware"},
			},
		},
	}
}

func TestRefineReturnsTrimmedContentAndTallyTokens(t *testing.T) {
	client := mocks.New().WithResponse("  Refined document content.  \n").WithTokenUsage(50, 75)
	agent := moderator.New(client, retry.DefaultPolicy(), zap.NewNop())

	content, tokens, err := agent.Refine(context.Background(), "clarity and correctness", "test-model", testDocument(), testReviews())
	require.NoError(t, err)
	assert.Equal(t, "Refined document content.", content)
	assert.Equal(t, 50, tokens.PromptTokens)
	assert.Equal(t, 75, tokens.CompletionTokens)
	assert.Equal(t, 125, tokens.TotalTokens)
}

func TestRefineWrapsFatalLLMError(t *testing.T) {
	client := mocks.New().WithError(errors.New("provider outage"))
	agent := moderator.New(client, retry.DefaultPolicy(), zap.NewNop())

	_, _, err := agent.Refine(context.Background(), "clarity", "test-model", testDocument(), testReviews())
	require.Error(t, err)
	assert.Equal(t, types.ErrFatalLLM, types.CodeOf(err))
}

// TestBuildPromptIncludesFocusAndReviews covers spec.md §4.3's requirement
// that reviews reach the moderator as a structured list, not merged prose:
// every reviewer's name, assessment, and issue detail must appear verbatim.
func TestBuildPromptIncludesFocusAndReviews(t *testing.T) {
	system, human := moderator.BuildPrompt("clarity and correctness", testDocument(), testReviews())

	assert.Contains(t, system, "clarity and correctness")
	assert.Contains(t, system, "You MUST resolve every High severity issue")

	assert.Contains(t, human, "Security Engineer")
	assert.Contains(t, human, "needs work")
	assert.Contains(t, human, "missing auth check")
	assert.Contains(t, human, "add authz middleware")
	assert.Contains(t, human, testDocument().Title)
}

func TestBuildPromptWithNoReviewsOmitsIssueLines(t *testing.T) {
	_, human := moderator.BuildPrompt("clarity", testDocument(), nil)
	assert.NotContains(t, human, "Suggested fix")
}
