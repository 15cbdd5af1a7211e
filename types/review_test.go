package types_test

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/va2ai/ai-agent-orchestration-platform/types"
)

func TestTokenCountsAdd(t *testing.T) {
	a := types.TokenCounts{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30}
	b := types.TokenCounts{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3}
	sum := a.Add(b)
	assert.Equal(t, types.TokenCounts{PromptTokens: 11, CompletionTokens: 22, TotalTokens: 33}, sum)
}

func TestReviewHighSeverityCount(t *testing.T) {
	r := types.Review{Issues: []types.Issue{
		{Severity: types.SeverityHigh},
		{Severity: types.SeverityLow},
		{Severity: types.SeverityHigh},
		{Severity: types.SeverityMedium},
	}}
	assert.Equal(t, 2, r.HighSeverityCount())
}

func TestHasHighSeverity(t *testing.T) {
	noHigh := []types.Review{{Issues: []types.Issue{{Severity: types.SeverityMedium}}}}
	assert.False(t, types.HasHighSeverity(noHigh))

	withHigh := []types.Review{
		{Issues: []types.Issue{{Severity: types.SeverityLow}}},
		{Issues: []types.Issue{{Severity: types.SeverityHigh}}},
	}
	assert.True(t, types.HasHighSeverity(withHigh))
}

func TestCountBySeverity(t *testing.T) {
	reviews := []types.Review{
		{Issues: []types.Issue{{Severity: types.SeverityHigh}, {Severity: types.SeverityHigh}}},
		{Issues: []types.Issue{{Severity: types.SeverityMedium}, {Severity: types.SeverityLow}}},
	}
	counts := types.CountBySeverity(reviews)
	assert.Equal(t, map[string]int{"high": 2, "medium": 1, "low": 1}, counts)
}

func TestCountBySeverityEmpty(t *testing.T) {
	counts := types.CountBySeverity(nil)
	assert.Equal(t, map[string]int{"high": 0, "medium": 0, "low": 0}, counts)
}

func TestSeverityValid(t *testing.T) {
	assert.True(t, types.SeverityHigh.Valid())
	assert.True(t, types.SeverityMedium.Valid())
	assert.True(t, types.SeverityLow.Valid())
	assert.False(t, types.Severity("Critical").Valid())
}

func TestParseSeverityUnrecognizedFallsBackToLow(t *testing.T) {
	assert.Equal(t, types.SeverityLow, types.ParseSeverity("Critical"))
	assert.Equal(t, types.SeverityLow, types.ParseSeverity(""))
}

// TestParseSeverityIsCaseInsensitive property-tests spec.md §4.2's
// case-insensitive severity requirement across every casing of "high",
// "medium", and "low" a reviewer LLM might emit.
func TestParseSeverityIsCaseInsensitive(t *testing.T) {
	canonical := map[string]types.Severity{
		"high":   types.SeverityHigh,
		"medium": types.SeverityMedium,
		"low":    types.SeverityLow,
	}
	rapid.Check(t, func(rt *rapid.T) {
		word := rapid.SampledFrom([]string{"high", "medium", "low"}).Draw(rt, "word")
		var b strings.Builder
		for _, r := range word {
			if rapid.Bool().Draw(rt, "upper") {
				b.WriteRune(unicode.ToUpper(r))
			} else {
				b.WriteRune(r)
			}
		}
		assert.Equal(t, canonical[word], types.ParseSeverity(b.String()))
	})
}

// TestTokenCountsAddIsAssociativeAndFieldwise covers P7: total token
// accounting is a plain field-wise sum, so summing in any grouping order
// must agree.
func TestTokenCountsAddIsAssociativeAndFieldwise(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		draw := func(label string) types.TokenCounts {
			p := rapid.IntRange(0, 100000).Draw(rt, label+"_prompt")
			c := rapid.IntRange(0, 100000).Draw(rt, label+"_completion")
			return types.TokenCounts{PromptTokens: p, CompletionTokens: c, TotalTokens: p + c}
		}
		a, b, c := draw("a"), draw("b"), draw("c")

		leftFirst := a.Add(b).Add(c)
		rightFirst := a.Add(b.Add(c))
		assert.Equal(t, leftFirst, rightFirst)
		assert.Equal(t, a.PromptTokens+b.PromptTokens+c.PromptTokens, leftFirst.PromptTokens)
		assert.Equal(t, a.CompletionTokens+b.CompletionTokens+c.CompletionTokens, leftFirst.CompletionTokens)
		assert.Equal(t, a.TotalTokens+b.TotalTokens+c.TotalTokens, leftFirst.TotalTokens)
	})
}
