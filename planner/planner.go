// Package planner implements the Meta-Planner: given a topic and a
// participant count, it produces the set of reviewer role specs, the
// moderator's focus, and a convergence-criteria hint. Grounded on
// original_source/src/ai_orchestrator/agents/meta_orchestrator.py
// (preset table, single-call generation contract) and
// agent/collaboration/roles.go's RoleDefinition/RoleRegistry shape for
// the resulting participant set.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/va2ai/ai-agent-orchestration-platform/llmclient"
	"github.com/va2ai/ai-agent-orchestration-platform/llmclient/retry"
	"github.com/va2ai/ai-agent-orchestration-platform/types"
)

// Request is the Meta-Planner's input contract, per spec.md §4.4.
type Request struct {
	Title            string
	DocumentType     string
	Goal             string
	NumParticipants  int
	Preset           types.Preset
	ParticipantStyle string
	Model            string
	ModelStrategy    types.ModelStrategy
	// DiverseModelPool is this implementation's resolution of spec.md
	// §9's Open Question: the diverse-model pool is implementation
	// defined. An empty pool degenerates round-robin to the single
	// configured Model, trivially satisfying the round-robin property.
	DiverseModelPool []string
	Content          string
}

// Result is the Meta-Planner's output contract.
type Result struct {
	Participants            []types.Participant
	ModeratorFocus           string
	ConvergenceCriteriaHint  string
	// Warning is set when planning fell back to the built-in generic
	// template after the LLM-driven path failed; the session is not
	// failed, but the warning is surfaced as a log{level=warn} event by
	// the caller.
	Warning string
}

// Planner generates roundtable participants.
type Planner struct {
	client      llmclient.LLMClient
	retryPolicy retry.Policy
	logger      *zap.Logger
}

// New constructs a Planner.
func New(client llmclient.LLMClient, retryPolicy retry.Policy, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{client: client, retryPolicy: retryPolicy, logger: logger.With(zap.String("component", "planner"))}
}

// Plan produces a Result for req. It never returns an error: a failure
// generating a custom roundtable falls back to the built-in generic
// template and is reported via Result.Warning instead, per spec.md §4.4
// ("on failure ... does NOT fail session").
func (p *Planner) Plan(ctx context.Context, req Request) Result {
	n := req.NumParticipants
	if n < 2 {
		n = 2
	}
	if n > 6 {
		n = 6
	}

	var result Result
	if tmpl, ok := presetTemplates[req.Preset]; ok {
		result = Result{
			Participants:            specsToParticipants(resizeSpecs(tmpl.participants, n)),
			ModeratorFocus:          tmpl.moderatorFocus,
			ConvergenceCriteriaHint: tmpl.convergenceCriteriaHint,
		}
	} else {
		generated, err := p.generate(ctx, req, n)
		if err != nil {
			p.logger.Warn("meta-planner generation failed, falling back to generic template", zap.Error(err))
			result = Result{
				Participants:            specsToParticipants(genericFallback(n)),
				ModeratorFocus:          "Resolve every High severity issue while preserving the document's stated purpose.",
				ConvergenceCriteriaHint: "Converged once no reviewer raises a High severity issue.",
				Warning:                 fmt.Sprintf("meta-planner fell back to the generic 3-participant template: %v", err),
			}
		} else {
			result = generated
		}
	}

	dedupeNames(result.Participants)
	assignModels(result.Participants, req)
	return result
}

func specsToParticipants(specs []types.RoleSpec) []types.Participant {
	out := make([]types.Participant, len(specs))
	for i, s := range specs {
		out[i] = types.Participant{RoleSpec: s, DisplayName: s.Name}
	}
	return out
}

// genericFallback is the built-in 3-participant template used when the
// LLM-driven planning path fails for a non-preset request.
func genericFallback(n int) []types.RoleSpec {
	base := []types.RoleSpec{
		{
			Name: "Generalist Reviewer A", Role: "Review for clarity and completeness",
			Expertise: "General domain review", Perspective: "Clarity and completeness",
			SystemPrompt: rolePrompt("Generalist Reviewer A", "Review for clarity and completeness",
				"General domain review", "clarity, completeness, and internal consistency"),
		},
		{
			Name: "Generalist Reviewer B", Role: "Review for feasibility and risk",
			Expertise: "General domain review", Perspective: "Feasibility and risk",
			SystemPrompt: rolePrompt("Generalist Reviewer B", "Review for feasibility and risk",
				"General domain review", "feasibility, risk, and unstated assumptions"),
		},
		{
			Name: "Generalist Reviewer C", Role: "Review for quality and correctness",
			Expertise: "General domain review", Perspective: "Quality and correctness",
			SystemPrompt: rolePrompt("Generalist Reviewer C", "Review for quality and correctness",
				"General domain review", "correctness, quality, and edge cases"),
		},
	}
	return resizeSpecs(base, n)
}

// resizeSpecs truncates or cycle-extends specs to exactly n entries, per
// spec.md §4.4 ("template's role-specs truncated/extended to match
// num_participants"). Used for both preset templates and the generic
// fallback so every participant-set source respects num_participants.
func resizeSpecs(specs []types.RoleSpec, n int) []types.RoleSpec {
	if len(specs) == 0 || n <= 0 {
		return nil
	}
	if n <= len(specs) {
		out := make([]types.RoleSpec, n)
		copy(out, specs[:n])
		return out
	}
	out := make([]types.RoleSpec, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, specs[i%len(specs)])
	}
	return out
}

type generatedParticipant struct {
	Name         string `json:"name"`
	Role         string `json:"role"`
	Expertise    string `json:"expertise"`
	Perspective  string `json:"perspective"`
	SystemPrompt string `json:"system_prompt"`
}

type generatedResult struct {
	Participants            []generatedParticipant `json:"participants"`
	ModeratorFocus           string                 `json:"moderator_focus"`
	ConvergenceCriteria      string                 `json:"convergence_criteria"`
}

func (p *Planner) generate(ctx context.Context, req Request, n int) (Result, error) {
	system := `You are a Meta-Orchestrator that designs expert roundtable discussions.

Your job is to analyze a topic and generate the most valuable set of expert participants
who should review and refine a document through iterative discussion.

For each participant, define their name, what they review, their expertise, their
perspective, and a complete system prompt that ends with instructions to respond in the
issues/overall_assessment JSON schema.

Output valid JSON matching this schema:
{
  "participants": [
    {"name": "...", "role": "...", "expertise": "...", "perspective": "...", "system_prompt": "..."}
  ],
  "moderator_focus": "...",
  "convergence_criteria": "..."
}`

	style := ""
	if req.ParticipantStyle != "" {
		style = fmt.Sprintf("\nCRITICAL STYLE INSTRUCTION: participants should be '%s'.\n", req.ParticipantStyle)
	}
	goal := ""
	if req.Goal != "" {
		goal = fmt.Sprintf("Goal: %s\n", req.Goal)
	}
	preview := req.Content
	if len(preview) > 500 {
		preview = preview[:500]
	}

	human := fmt.Sprintf("Topic: %s\n%sContent to be refined:\n%s...\n\nNumber of participants needed: %d\n%s\nGenerate %d expert participants with diverse, complementary perspectives.",
		req.Title, goal, preview, n, style, n)

	var resp llmclient.ChatResponse
	err := retry.Do(ctx, p.retryPolicy, func(ctx context.Context) error {
		r, err := p.client.Complete(ctx, llmclient.ChatRequest{
			Model: req.Model,
			Messages: []llmclient.Message{
				{Role: llmclient.RoleSystem, Content: system},
				{Role: llmclient.RoleUser, Content: human},
			},
		})
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	content := strings.TrimSpace(resp.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var parsed generatedResult
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &parsed); err != nil {
		return Result{}, types.NewError(types.ErrPlannerFailure, "failed to parse planner response").WithCause(err)
	}
	if len(parsed.Participants) == 0 {
		return Result{}, types.NewError(types.ErrPlannerFailure, "planner returned zero participants")
	}

	specs := make([]types.RoleSpec, 0, len(parsed.Participants))
	for _, gp := range parsed.Participants {
		specs = append(specs, types.RoleSpec{
			Name:         gp.Name,
			Role:         gp.Role,
			Expertise:    gp.Expertise,
			Perspective:  gp.Perspective,
			SystemPrompt: gp.SystemPrompt,
		})
	}

	return Result{
		Participants:            specsToParticipants(resizeSpecs(specs, n)),
		ModeratorFocus:          parsed.ModeratorFocus,
		ConvergenceCriteriaHint: parsed.ConvergenceCriteria,
	}, nil
}

// dedupeNames appends letter suffixes to participants sharing a display
// name, per spec.md §4.4: the first occurrence keeps the bare name, the
// second gets " B", the third " C", and so on.
func dedupeNames(participants []types.Participant) {
	seen := make(map[string]int)
	suffixes := "ABCDEFGHIJ"
	for i := range participants {
		name := participants[i].DisplayName
		count := seen[name]
		if count > 0 {
			participants[i].DisplayName = fmt.Sprintf("%s %c", name, suffixes[count])
		}
		seen[name] = count + 1
	}
}

// assignModels applies model_strategy to the finalized participant set:
// uniform pins every participant to req.Model, diverse round-robins over
// req.DiverseModelPool (falling back to req.Model when the pool is
// empty, trivially satisfying the round-robin property over one
// element).
func assignModels(participants []types.Participant, req Request) {
	if req.ModelStrategy != types.ModelStrategyDiverse {
		for i := range participants {
			if participants[i].ModelID == "" {
				participants[i].ModelID = req.Model
			}
		}
		return
	}
	pool := req.DiverseModelPool
	if len(pool) == 0 {
		pool = []string{req.Model}
	}
	for i := range participants {
		participants[i].ModelID = pool[i%len(pool)]
	}
}
