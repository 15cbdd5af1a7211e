package planner_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/va2ai/ai-agent-orchestration-platform/llmclient/retry"
	"github.com/va2ai/ai-agent-orchestration-platform/planner"
	"github.com/va2ai/ai-agent-orchestration-platform/testutil/mocks"
	"github.com/va2ai/ai-agent-orchestration-platform/types"
)

// TestPlanPresetTruncatesToNumParticipants regression-tests the fix for the
// preset path ignoring num_participants: architecture's template ships 4
// role specs, so num_participants=2 must truncate rather than return all 4.
func TestPlanPresetTruncatesToNumParticipants(t *testing.T) {
	p := planner.New(mocks.NewSuccess(""), retry.DefaultPolicy(), zap.NewNop())
	result := p.Plan(context.Background(), planner.Request{
		Title:           "Payments platform redesign",
		Preset:          types.PresetArchitecture,
		NumParticipants: 2,
	})
	require.Len(t, result.Participants, 2)
	assert.Equal(t, "Distinguished Architect", result.Participants[0].DisplayName)
	assert.Equal(t, "Security Architect", result.Participants[1].DisplayName)
}

// TestPlanPresetExtendsToNumParticipants regression-tests the other half of
// the fix: prd's template ships 3 role specs, so num_participants=6 must
// cycle-extend rather than return only 3.
func TestPlanPresetExtendsToNumParticipants(t *testing.T) {
	p := planner.New(mocks.NewSuccess(""), retry.DefaultPolicy(), zap.NewNop())
	result := p.Plan(context.Background(), planner.Request{
		Title:           "New onboarding flow",
		Preset:          types.PresetPRD,
		NumParticipants: 6,
	})
	require.Len(t, result.Participants, 6)
	// Cycled participants 4-6 repeat participants 1-3's underlying role
	// specs and get a " B" suffix from dedupeNames since their base names
	// collide with the first three.
	assert.Equal(t, "Senior Product Manager", result.Participants[0].DisplayName)
	assert.Equal(t, "Staff Software Engineer", result.Participants[1].DisplayName)
	assert.Equal(t, "AI Safety Reviewer", result.Participants[2].DisplayName)
	assert.Equal(t, "Senior Product Manager B", result.Participants[3].DisplayName)
	assert.Equal(t, "Staff Software Engineer B", result.Participants[4].DisplayName)
	assert.Equal(t, "AI Safety Reviewer B", result.Participants[5].DisplayName)
}

func TestPlanPresetClampsOutOfRangeRequest(t *testing.T) {
	p := planner.New(mocks.NewSuccess(""), retry.DefaultPolicy(), zap.NewNop())

	tooFew := p.Plan(context.Background(), planner.Request{Preset: types.PresetCodeReview, NumParticipants: 0})
	assert.Len(t, tooFew.Participants, 2)

	tooMany := p.Plan(context.Background(), planner.Request{Preset: types.PresetCodeReview, NumParticipants: 99})
	assert.Len(t, tooMany.Participants, 6)
}

// TestPlanFallsBackToGenericTemplateOnLLMFailure exercises the non-preset
// path: when the LLM call fails, Plan must not error, instead falling back
// to the generic template sized to num_participants and setting Warning.
func TestPlanFallsBackToGenericTemplateOnLLMFailure(t *testing.T) {
	p := planner.New(mocks.NewError(errors.New("provider unavailable")), retry.DefaultPolicy(), zap.NewNop())
	result := p.Plan(context.Background(), planner.Request{
		Title:           "Untemplated topic",
		NumParticipants: 5,
	})
	require.Len(t, result.Participants, 5)
	assert.NotEmpty(t, result.Warning)
}

func TestPlanAssignModelsUniform(t *testing.T) {
	p := planner.New(mocks.NewSuccess(""), retry.DefaultPolicy(), zap.NewNop())
	result := p.Plan(context.Background(), planner.Request{
		Preset:          types.PresetCodeReview,
		NumParticipants: 3,
		Model:           "gpt-primary",
		ModelStrategy:   types.ModelStrategyUniform,
	})
	for _, participant := range result.Participants {
		assert.Equal(t, "gpt-primary", participant.ModelID)
	}
}

func TestPlanAssignModelsDiverseRoundRobins(t *testing.T) {
	p := planner.New(mocks.NewSuccess(""), retry.DefaultPolicy(), zap.NewNop())
	result := p.Plan(context.Background(), planner.Request{
		Preset:           types.PresetArchitecture,
		NumParticipants:  4,
		ModelStrategy:    types.ModelStrategyDiverse,
		DiverseModelPool: []string{"model-a", "model-b"},
	})
	require.Len(t, result.Participants, 4)
	assert.Equal(t, "model-a", result.Participants[0].ModelID)
	assert.Equal(t, "model-b", result.Participants[1].ModelID)
	assert.Equal(t, "model-a", result.Participants[2].ModelID)
	assert.Equal(t, "model-b", result.Participants[3].ModelID)
}

func TestPlanAssignModelsDiverseWithEmptyPoolDegeneratesToPrimary(t *testing.T) {
	p := planner.New(mocks.NewSuccess(""), retry.DefaultPolicy(), zap.NewNop())
	result := p.Plan(context.Background(), planner.Request{
		Preset:          types.PresetCodeReview,
		NumParticipants: 3,
		Model:           "solo-model",
		ModelStrategy:   types.ModelStrategyDiverse,
	})
	for _, participant := range result.Participants {
		assert.Equal(t, "solo-model", participant.ModelID)
	}
}
