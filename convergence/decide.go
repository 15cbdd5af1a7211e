package convergence

import (
	"fmt"

	"github.com/va2ai/ai-agent-orchestration-platform/types"
)

// IterationSummary is the minimal view of a completed iteration Decide
// needs: the reviews collected against that iteration's input, and the
// delta already measured against the previous iteration's output (0 for
// iteration 1, by definition — spec.md is explicit that iteration 1 never
// participates in a delta_threshold stop). Computing Delta is the caller's
// job (the session runtime, which alone has access to the actual
// DocumentVersion content); Decide itself stays a pure function over
// already-summarized history.
type IterationSummary struct {
	IterationIndex int
	Reviews        []types.Review
	Delta          float64
}

// CustomStop is an optional caller-supplied stop predicate, evaluated
// before the built-in rules. It returns a decision and whether that
// decision should be honored (a false second value means "no opinion,
// fall through to the built-in rules").
type CustomStop func(iterations []IterationSummary) (types.ConvergenceCheck, bool)

// Decide evaluates the stop rules in the order spec.md §4.1 mandates:
//
//  1. force_max_iterations override — while set and max_iterations has
//     not yet been reached, every other rule is skipped and the loop
//     continues unconditionally (B3).
//  2. custom stop predicate, if supplied.
//  3. no_high_issues — stop if the current iteration's reviews carry no
//     High severity issue and Config.StopOnNoHighIssues is set.
//  4. max_iterations — stop once the iteration count reaches the cap.
//  5. delta_threshold — stop if the measured delta against the previous
//     iteration's output falls below the configured threshold; never
//     evaluated on iteration 1, since there is no previous iteration to
//     compare against.
//  6. continue — none of the above fired.
func Decide(cfg types.Config, iterations []IterationSummary, custom CustomStop) types.ConvergenceCheck {
	if len(iterations) == 0 {
		return types.ConvergenceCheck{ShouldStop: false, Reason: "no iterations completed yet", StoppedBy: types.StoppedByNone}
	}

	current := iterations[len(iterations)-1]
	n := len(iterations)
	high := highCount(current.Reviews)

	if cfg.ForceMaxIterations && n < cfg.MaxIterations {
		return types.ConvergenceCheck{
			ShouldStop: false,
			Reason:     fmt.Sprintf("force_max_iterations set, %d/%d iterations complete", n, cfg.MaxIterations),
			StoppedBy:  types.StoppedByNone,
			Delta:      current.Delta,
		}
	}

	if custom != nil {
		if decision, stop := custom(iterations); stop {
			return decision
		}
	}

	if cfg.StopOnNoHighIssues && !types.HasHighSeverity(current.Reviews) {
		return types.ConvergenceCheck{
			ShouldStop: true,
			Reason:     "No high severity issues remaining (0 remaining)",
			StoppedBy:  types.StoppedByNoHighIssues,
			Delta:      current.Delta,
		}
	}

	if n >= cfg.MaxIterations {
		return types.ConvergenceCheck{
			ShouldStop: true,
			Reason:     fmt.Sprintf("Max iterations reached (%d). %d high severity issues remain.", cfg.MaxIterations, high),
			StoppedBy:  types.StoppedByMaxIterations,
			Delta:      current.Delta,
		}
	}

	if n >= 2 {
		if current.Delta < cfg.DeltaThreshold {
			return types.ConvergenceCheck{
				ShouldStop: true,
				Reason:     fmt.Sprintf("Document stable (delta: %.2f%%)", current.Delta*100),
				StoppedBy:  types.StoppedByDeltaThreshold,
				Delta:      current.Delta,
			}
		}
	}

	return types.ConvergenceCheck{
		ShouldStop: false,
		Reason:     fmt.Sprintf("%d high severity issues remain", high),
		StoppedBy:  types.StoppedByNone,
		Delta:      current.Delta,
	}
}

func highCount(reviews []types.Review) int {
	n := 0
	for _, r := range reviews {
		n += r.HighSeverityCount()
	}
	return n
}
