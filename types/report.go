package types

import "time"

// ConvergenceReport is the terminal artifact produced once a session
// reaches Completed. It is only retrievable for Completed sessions —
// get_report on any other status returns NotFound (spec.md §7).
type ConvergenceReport struct {
	SessionID             string         `json:"session_id"`
	Title                 string         `json:"title"`
	InitialVersion        int            `json:"initial_version"`
	FinalVersion          int            `json:"final_version"`
	IterationCount        int            `json:"iteration_count"`
	Converged             bool           `json:"converged"`
	ConvergenceReason     string         `json:"convergence_reason"`
	StoppedBy             StoppedBy      `json:"stopped_by"`
	TotalIssuesIdentified int            `json:"total_issues_identified"`
	FinalIssueCounts      map[string]int `json:"final_issue_counts"`
	TokenCounts           TokenCounts    `json:"token_counts"`
	DeltaMetric           string         `json:"delta_metric"`
	StartedAt             time.Time      `json:"started_at"`
	EndedAt               time.Time      `json:"ended_at"`
	ContinuedFromIteration int           `json:"continued_from_iteration,omitempty"`
	Metadata              map[string]any `json:"metadata,omitempty"`
}
