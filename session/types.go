package session

import "github.com/va2ai/ai-agent-orchestration-platform/types"

// StartRequest is the input to Runtime.Start, mirroring spec.md §6's
// refinement control "start" operation parameter list.
type StartRequest struct {
	Title        string
	Content      string
	Goal         string
	DocumentType string
	Config       types.Config
}

// normalize applies the defaults and clamping rules spec.md §6
// describes, filling in anything the caller left zero-valued.
func (r *StartRequest) normalize() {
	if r.DocumentType == "" {
		r.DocumentType = "document"
	}
	if r.Config.MaxIterations < 1 {
		r.Config.MaxIterations = types.DefaultConfig().MaxIterations
	}
	if r.Config.DeltaThreshold <= 0 || r.Config.DeltaThreshold >= 1 {
		r.Config.DeltaThreshold = types.DefaultConfig().DeltaThreshold
	}
	if r.Config.NumParticipants == 0 {
		r.Config.NumParticipants = types.DefaultConfig().NumParticipants
	}
	r.Config.Clamp()
	if r.Config.ModelStrategy == "" {
		r.Config.ModelStrategy = types.ModelStrategyUniform
	}
}
