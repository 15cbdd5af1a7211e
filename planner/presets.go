package planner

import "github.com/va2ai/ai-agent-orchestration-platform/types"

// presetTemplate is a fully baked-in participant set for one preset name,
// grounded on original_source's
// src/ai_orchestrator/agents/meta_orchestrator.py `presets` table
// (topic/num_participants/hint), expanded into complete RoleSpecs here
// since spec.md's presets are deterministic built-ins rather than an
// LLM-generated set — unlike the Python original, which still made one
// LLM call per preset using the hint as a steer. Baking the presets in
// removes that LLM round trip for the common cases while keeping the
// custom (no-preset) path LLM-driven.
type presetTemplate struct {
	participants          []types.RoleSpec
	moderatorFocus        string
	convergenceCriteriaHint string
}

func schemaInstructions() string {
	return `You must respond with a JSON object in this EXACT format:
{
  "issues": [
    {
      "category": "Issue category (e.g. 'Clarity', 'Technical Feasibility', 'Security')",
      "description": "Detailed description of the issue",
      "severity": "High|Medium|Low",
      "suggested_fix": "Suggested fix or improvement (optional)"
    }
  ],
  "overall_assessment": "Overall assessment and summary"
}

All fields are required except suggested_fix, which may be omitted.`
}

func rolePrompt(name, role, expertise, focus string) string {
	return "You are " + name + ", reviewing as: " + role + ".\n\n" +
		"Areas of expertise: " + expertise + ".\n\n" +
		"When reviewing, focus on: " + focus + ".\n\n" +
		"Severity levels: High issues block acceptance and must be fixed before this document can move forward. " +
		"Medium issues should be fixed if they meaningfully improve the document. " +
		"Low issues are optional polish.\n\n" +
		schemaInstructions()
}

var presetTemplates = map[types.Preset]presetTemplate{
	types.PresetPRD: {
		participants: []types.RoleSpec{
			{
				Name: "Senior Product Manager", Role: "Review for user value and market fit",
				Expertise: "Product strategy, user research, market analysis", Perspective: "User value and business viability",
				SystemPrompt: rolePrompt("Senior Product Manager", "Review for user value and market fit",
					"Product strategy, user research, market analysis", "user value, market fit, and success metrics"),
			},
			{
				Name: "Staff Software Engineer", Role: "Review for engineering feasibility",
				Expertise: "System design, scalability, implementation complexity", Perspective: "Engineering feasibility",
				SystemPrompt: rolePrompt("Staff Software Engineer", "Review for engineering feasibility",
					"System design, scalability, implementation complexity", "technical feasibility, scope, and implementation risk"),
			},
			{
				Name: "AI Safety Reviewer", Role: "Review for responsible AI practices",
				Expertise: "AI safety, fairness, misuse potential", Perspective: "Responsible AI and risk mitigation",
				SystemPrompt: rolePrompt("AI Safety Reviewer", "Review for responsible AI practices",
					"AI safety, fairness, misuse potential", "safety guardrails, bias, and misuse scenarios"),
			},
		},
		moderatorFocus:          "Resolve product, engineering feasibility, and AI safety concerns while keeping the PRD concise and actionable.",
		convergenceCriteriaHint: "Converged once no reviewer raises a High severity gap in user value, feasibility, or safety.",
	},
	types.PresetCodeReview: {
		participants: []types.RoleSpec{
			{
				Name: "Principal Engineer", Role: "Review for code quality and maintainability",
				Expertise: "Code architecture, readability, testing", Perspective: "Long-term maintainability",
				SystemPrompt: rolePrompt("Principal Engineer", "Review for code quality and maintainability",
					"Code architecture, readability, testing", "code quality, structure, and test coverage"),
			},
			{
				Name: "Security Engineer", Role: "Review for security vulnerabilities",
				Expertise: "Application security, secure coding practices", Perspective: "Security risk",
				SystemPrompt: rolePrompt("Security Engineer", "Review for security vulnerabilities",
					"Application security, secure coding practices", "injection risks, secrets handling, and auth gaps"),
			},
			{
				Name: "Performance Engineer", Role: "Review for performance and efficiency",
				Expertise: "Profiling, algorithmic complexity, resource usage", Perspective: "Runtime performance",
				SystemPrompt: rolePrompt("Performance Engineer", "Review for performance and efficiency",
					"Profiling, algorithmic complexity, resource usage", "hot paths, complexity, and resource waste"),
			},
		},
		moderatorFocus:          "Resolve code quality, security, and performance findings without changing the change's intent.",
		convergenceCriteriaHint: "Converged once no reviewer raises a High severity quality, security, or performance issue.",
	},
	types.PresetArchitecture: {
		participants: []types.RoleSpec{
			{
				Name: "Distinguished Architect", Role: "Review for scalability",
				Expertise: "Distributed systems, capacity planning", Perspective: "Scalability under growth",
				SystemPrompt: rolePrompt("Distinguished Architect", "Review for scalability",
					"Distributed systems, capacity planning", "scaling bottlenecks and single points of failure"),
			},
			{
				Name: "Security Architect", Role: "Review for security posture",
				Expertise: "Threat modeling, network security, identity", Perspective: "System-wide security posture",
				SystemPrompt: rolePrompt("Security Architect", "Review for security posture",
					"Threat modeling, network security, identity", "trust boundaries and attack surface"),
			},
			{
				Name: "Platform Engineer", Role: "Review for maintainability",
				Expertise: "Service boundaries, API design, tech debt", Perspective: "Long-term maintainability",
				SystemPrompt: rolePrompt("Platform Engineer", "Review for maintainability",
					"Service boundaries, API design, tech debt", "coupling, ownership boundaries, and API clarity"),
			},
			{
				Name: "Site Reliability Engineer", Role: "Review for operability",
				Expertise: "Observability, incident response, deployment", Perspective: "Operational readiness",
				SystemPrompt: rolePrompt("Site Reliability Engineer", "Review for operability",
					"Observability, incident response, deployment", "monitoring, rollback, and failure recovery"),
			},
		},
		moderatorFocus:          "Resolve scalability, security, maintainability, and operational concerns while preserving the design's stated goals.",
		convergenceCriteriaHint: "Converged once no reviewer raises a High severity scalability, security, maintainability, or operability gap.",
	},
	types.PresetBusinessStrategy: {
		participants: []types.RoleSpec{
			{
				Name: "Market Analyst", Role: "Review for market positioning",
				Expertise: "Competitive analysis, market sizing", Perspective: "Market viability",
				SystemPrompt: rolePrompt("Market Analyst", "Review for market positioning",
					"Competitive analysis, market sizing", "competitive differentiation and market timing"),
			},
			{
				Name: "Finance Lead", Role: "Review for financial viability",
				Expertise: "Unit economics, forecasting, budgeting", Perspective: "Financial soundness",
				SystemPrompt: rolePrompt("Finance Lead", "Review for financial viability",
					"Unit economics, forecasting, budgeting", "unit economics, cost assumptions, and forecasts"),
			},
			{
				Name: "Operations Lead", Role: "Review for operational feasibility",
				Expertise: "Execution planning, resourcing, logistics", Perspective: "Operational feasibility",
				SystemPrompt: rolePrompt("Operations Lead", "Review for operational feasibility",
					"Execution planning, resourcing, logistics", "staffing, timelines, and execution risk"),
			},
		},
		moderatorFocus:          "Resolve market, financial, and operational concerns while keeping the strategy concrete and executable.",
		convergenceCriteriaHint: "Converged once no reviewer raises a High severity market, financial, or operational gap.",
	},
}
