package types

// RoleSpec describes a single roundtable participant. Every field except
// ModelID is required; ModelID lets model_strategy=diverse pin a
// participant to a specific model instead of the session's primary model.
type RoleSpec struct {
	Name         string `json:"name"`
	Role         string `json:"role"`
	Expertise    string `json:"expertise"`
	Perspective  string `json:"perspective"`
	SystemPrompt string `json:"system_prompt"`
	ModelID      string `json:"model_id,omitempty"`
}

// Participant is the runtime identity of a RoleSpec once bound into a
// session; it is a RoleSpec plus the disambiguated display name (later
// duplicates of a name from the planner get " B", " C", ... suffixes).
type Participant struct {
	RoleSpec
	DisplayName string `json:"display_name"`
}
