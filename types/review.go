package types

import (
	"strings"
	"time"
)

// Severity classifies how strongly an Issue blocks convergence. Only High
// issues block the no_high_issues stop rule; Medium and Low are advisory.
type Severity string

const (
	SeverityHigh   Severity = "High"
	SeverityMedium Severity = "Medium"
	SeverityLow    Severity = "Low"
)

// Valid reports whether s is one of the three recognized severity levels.
func (s Severity) Valid() bool {
	switch s {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return true
	default:
		return false
	}
}

// ParseSeverity maps s onto one of the three recognized severity levels
// case-insensitively (spec.md §4.2 requires "high"/"HIGH"/"High" to be
// treated identically), falling back to SeverityLow for anything else —
// the same fallback reviewer.Agent.Review applies when a value simply isn't
// present.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return SeverityHigh
	case "medium":
		return SeverityMedium
	case "low":
		return SeverityLow
	default:
		return SeverityLow
	}
}

// Issue is a single finding raised by a reviewer against a document
// version.
type Issue struct {
	Category      string   `json:"category"`
	Description   string   `json:"description"`
	Severity      Severity `json:"severity"`
	SuggestedFix  string   `json:"suggested_fix,omitempty"`
	ReviewerName  string   `json:"reviewer_name"`
}

// TokenCounts tallies prompt/completion tokens for a single LLM call or an
// aggregate across many. Every accounting site in this module (reviewer,
// moderator, session aggregate) uses this same shape so P7's sum
// invariant is a plain field-wise addition. The planner's LLM call is not
// tallied.
type TokenCounts struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add returns the field-wise sum of t and other.
func (t TokenCounts) Add(other TokenCounts) TokenCounts {
	return TokenCounts{
		PromptTokens:     t.PromptTokens + other.PromptTokens,
		CompletionTokens: t.CompletionTokens + other.CompletionTokens,
		TotalTokens:      t.TotalTokens + other.TotalTokens,
	}
}

// Review is one reviewer's structured critique of a document version.
// Invariant: every Issue in Issues must carry ReviewerName == ReviewerName.
type Review struct {
	ReviewerName      string      `json:"reviewer_name"`
	Issues            []Issue     `json:"issues"`
	OverallAssessment string      `json:"overall_assessment"`
	Timestamp         time.Time   `json:"timestamp"`
	TokenCounts       TokenCounts `json:"token_counts"`
}

// HighSeverityCount returns the number of High severity issues in r.
func (r Review) HighSeverityCount() int {
	n := 0
	for _, i := range r.Issues {
		if i.Severity == SeverityHigh {
			n++
		}
	}
	return n
}

// CountBySeverity tallies issues in reviews by severity level, keyed by
// the lower-case severity name ("high", "medium", "low"), matching the
// shape original_source's count_issues_by_severity produced.
func CountBySeverity(reviews []Review) map[string]int {
	counts := map[string]int{"high": 0, "medium": 0, "low": 0}
	for _, review := range reviews {
		for _, issue := range review.Issues {
			switch issue.Severity {
			case SeverityHigh:
				counts["high"]++
			case SeverityMedium:
				counts["medium"]++
			default:
				counts["low"]++
			}
		}
	}
	return counts
}

// HasHighSeverity reports whether any review in reviews carries a High
// severity issue.
func HasHighSeverity(reviews []Review) bool {
	for _, r := range reviews {
		if r.HighSeverityCount() > 0 {
			return true
		}
	}
	return false
}
