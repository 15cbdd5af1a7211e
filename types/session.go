package types

import "time"

// Status is the lifecycle state of a Session.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusPlanning  Status = "Planning"
	StatusRunning   Status = "Running"
	StatusCompleted Status = "Completed"
	StatusFailed    Status = "Failed"
	StatusCancelled Status = "Cancelled"
)

// StoppedBy identifies which convergence rule terminated a session, or
// "none" while the session is still in flight.
type StoppedBy string

const (
	StoppedByNone            StoppedBy = "none"
	StoppedByNoHighIssues    StoppedBy = "no_high_issues"
	StoppedByMaxIterations   StoppedBy = "max_iterations"
	StoppedByDeltaThreshold  StoppedBy = "delta_threshold"
	StoppedByCustom          StoppedBy = "custom"
	StoppedByError           StoppedBy = "error"
)

// ModelStrategy controls how participants are assigned models when a
// caller supplies more than one candidate model.
type ModelStrategy string

const (
	ModelStrategyUniform ModelStrategy = "uniform"
	ModelStrategyDiverse ModelStrategy = "diverse"
)

// Preset names a built-in Meta-Planner participant template.
type Preset string

const (
	PresetPRD              Preset = "prd"
	PresetCodeReview        Preset = "code-review"
	PresetArchitecture      Preset = "architecture"
	PresetBusinessStrategy  Preset = "business-strategy"
)

// Config is the tunable surface of a roundtable session, per spec.md §6.
type Config struct {
	MaxIterations       int           `json:"max_iterations"`
	NumParticipants     int           `json:"num_participants"`
	Preset              Preset        `json:"preset,omitempty"`
	ParticipantStyle    string        `json:"participant_style,omitempty"`
	Model               string        `json:"model,omitempty"`
	ModelStrategy       ModelStrategy `json:"model_strategy,omitempty"`
	DeltaThreshold      float64       `json:"delta_threshold"`
	StopOnNoHighIssues  bool          `json:"stop_on_no_high_issues"`
	ForceMaxIterations  bool          `json:"force_max_iterations"`
	Metadata            map[string]any `json:"metadata,omitempty"`
}

// DefaultConfig returns the recommended, non-normative defaults spec.md
// §5/§6 describe: 3 iterations, delta_threshold 0.05, stop_on_no_high_issues
// true, force_max_iterations false, num_participants clamped into [2,6].
func DefaultConfig() Config {
	return Config{
		MaxIterations:      3,
		NumParticipants:    3,
		ModelStrategy:      ModelStrategyUniform,
		DeltaThreshold:     0.05,
		StopOnNoHighIssues: true,
		ForceMaxIterations: false,
	}
}

// Clamp normalizes NumParticipants into [2,6] in place, matching spec.md
// §6's configuration surface.
func (c *Config) Clamp() {
	if c.NumParticipants < 2 {
		c.NumParticipants = 2
	}
	if c.NumParticipants > 6 {
		c.NumParticipants = 6
	}
}

// Session is the top-level, persisted record of one roundtable run.
type Session struct {
	SessionID             string        `json:"session_id"`
	Title                 string        `json:"title"`
	Goal                  string        `json:"goal,omitempty"`
	DocumentType          string        `json:"document_type"`
	Participants          []Participant `json:"participants"`
	ModeratorFocus        string        `json:"moderator_focus"`
	Config                Config        `json:"config"`
	Status                Status        `json:"status"`
	CurrentIteration      int           `json:"current_iteration"`
	CreatedAt             time.Time     `json:"created_at"`
	EndedAt               time.Time     `json:"ended_at,omitempty"`
	FinalVersion          int           `json:"final_version,omitempty"`
	ConvergenceReason     string        `json:"convergence_reason,omitempty"`
	StoppedBy             StoppedBy     `json:"stopped_by,omitempty"`
	ContinuedFromIteration int          `json:"continued_from_iteration,omitempty"`
	TokenCounts           TokenCounts   `json:"token_counts"`
}

// CanContinue reports whether the session is eligible for the
// continuation protocol: it must have completed by exhausting
// max_iterations, not by any other stop rule (spec.md's Open Question
// resolution — continuation is restricted to stopped_by=max_iterations).
func (s Session) CanContinue() bool {
	return s.Status == StatusCompleted && s.StoppedBy == StoppedByMaxIterations
}
