package session

import "github.com/va2ai/ai-agent-orchestration-platform/types"

// Event payload shapes published on the eventbus for this package's
// operations. Each mirrors the corresponding field set from spec.md §4.5.

type iterationStartPayload struct {
	IterationIndex int `json:"iteration_index"`
	InputVersion   int `json:"input_version"`
}

type criticReviewStartPayload struct {
	Participant string `json:"participant"`
}

type criticReviewCompletePayload struct {
	Participant       string `json:"participant"`
	HighSeverityCount int    `json:"high_severity_count"`
}

type convergenceCheckPayload struct {
	IterationIndex int                    `json:"iteration_index"`
	Check          types.ConvergenceCheck `json:"convergence_check"`
}

type moderatorStartPayload struct {
	IterationIndex int `json:"iteration_index"`
}

type moderatorCompletePayload struct {
	IterationIndex int `json:"iteration_index"`
	OutputVersion  int `json:"output_version"`
}

type roundtableGeneratedPayload struct {
	Participants   []string `json:"participants"`
	ModeratorFocus string   `json:"moderator_focus"`
}

func participantNames(participants []types.Participant) []string {
	names := make([]string, len(participants))
	for i, p := range participants {
		names[i] = p.DisplayName
	}
	return names
}
