package convergence_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/va2ai/ai-agent-orchestration-platform/convergence"
	"github.com/va2ai/ai-agent-orchestration-platform/types"
)

func highReview() types.Review {
	return types.Review{Issues: []types.Issue{{Severity: types.SeverityHigh}}}
}

func lowReview() types.Review {
	return types.Review{Issues: []types.Issue{{Severity: types.SeverityLow}}}
}

func TestDecideNoIterationsContinues(t *testing.T) {
	check := convergence.Decide(types.DefaultConfig(), nil, nil)
	assert.False(t, check.ShouldStop)
	assert.Equal(t, types.StoppedByNone, check.StoppedBy)
}

func TestDecideForceMaxIterationsOverridesEverythingElse(t *testing.T) {
	cfg := types.Config{ForceMaxIterations: true, MaxIterations: 3, StopOnNoHighIssues: true}
	iterations := []convergence.IterationSummary{{IterationIndex: 1, Reviews: []types.Review{lowReview()}}}
	check := convergence.Decide(cfg, iterations, nil)
	assert.False(t, check.ShouldStop, "force_max_iterations must keep the loop running until max_iterations, even with no high issues")
	assert.Equal(t, types.StoppedByNone, check.StoppedBy)
}

func TestDecideForceMaxIterationsStopsOnceReached(t *testing.T) {
	cfg := types.Config{ForceMaxIterations: true, MaxIterations: 1, StopOnNoHighIssues: true}
	iterations := []convergence.IterationSummary{{IterationIndex: 1, Reviews: []types.Review{lowReview()}}}
	check := convergence.Decide(cfg, iterations, nil)
	assert.True(t, check.ShouldStop)
	assert.Equal(t, types.StoppedByNoHighIssues, check.StoppedBy)
}

func TestDecideCustomStopTakesPriorityOverBuiltinRules(t *testing.T) {
	cfg := types.Config{MaxIterations: 10, StopOnNoHighIssues: true}
	iterations := []convergence.IterationSummary{{IterationIndex: 1, Reviews: []types.Review{highReview()}}}
	custom := func(iters []convergence.IterationSummary) (types.ConvergenceCheck, bool) {
		return types.ConvergenceCheck{ShouldStop: true, Reason: "editorial override", StoppedBy: types.StoppedByCustom}, true
	}
	check := convergence.Decide(cfg, iterations, custom)
	assert.True(t, check.ShouldStop)
	assert.Equal(t, types.StoppedByCustom, check.StoppedBy)
}

func TestDecideCustomStopDeclinesFallsThrough(t *testing.T) {
	cfg := types.Config{MaxIterations: 10, StopOnNoHighIssues: true}
	iterations := []convergence.IterationSummary{{IterationIndex: 1, Reviews: []types.Review{lowReview()}}}
	custom := func(iters []convergence.IterationSummary) (types.ConvergenceCheck, bool) {
		return types.ConvergenceCheck{}, false
	}
	check := convergence.Decide(cfg, iterations, custom)
	assert.True(t, check.ShouldStop)
	assert.Equal(t, types.StoppedByNoHighIssues, check.StoppedBy)
}

func TestDecideNoHighIssuesStops(t *testing.T) {
	cfg := types.Config{MaxIterations: 10, StopOnNoHighIssues: true}
	iterations := []convergence.IterationSummary{{IterationIndex: 1, Reviews: []types.Review{lowReview()}}}
	check := convergence.Decide(cfg, iterations, nil)
	assert.True(t, check.ShouldStop)
	assert.Equal(t, types.StoppedByNoHighIssues, check.StoppedBy)
}

func TestDecideMaxIterationsStopsEvenWithHighIssuesRemaining(t *testing.T) {
	cfg := types.Config{MaxIterations: 2, StopOnNoHighIssues: true}
	iterations := []convergence.IterationSummary{
		{IterationIndex: 1, Reviews: []types.Review{highReview()}},
		{IterationIndex: 2, Reviews: []types.Review{highReview()}},
	}
	check := convergence.Decide(cfg, iterations, nil)
	assert.True(t, check.ShouldStop)
	assert.Equal(t, types.StoppedByMaxIterations, check.StoppedBy)
}

func TestDecideDeltaThresholdStopsOnStability(t *testing.T) {
	cfg := types.Config{MaxIterations: 10, StopOnNoHighIssues: true, DeltaThreshold: 0.05}
	iterations := []convergence.IterationSummary{
		{IterationIndex: 1, Reviews: []types.Review{highReview()}, Delta: 0},
		{IterationIndex: 2, Reviews: []types.Review{highReview()}, Delta: 0.01},
	}
	check := convergence.Decide(cfg, iterations, nil)
	assert.True(t, check.ShouldStop)
	assert.Equal(t, types.StoppedByDeltaThreshold, check.StoppedBy)
}

// B1: iteration 1 never triggers delta_threshold, even when its Delta value
// (which the caller shouldn't populate meaningfully for iteration 1 anyway)
// is below the threshold.
func TestDecideIteration1NeverTriggersDeltaThreshold(t *testing.T) {
	cfg := types.Config{MaxIterations: 10, StopOnNoHighIssues: false, DeltaThreshold: 0.5}
	iterations := []convergence.IterationSummary{
		{IterationIndex: 1, Reviews: []types.Review{highReview()}, Delta: 0},
	}
	check := convergence.Decide(cfg, iterations, nil)
	assert.False(t, check.ShouldStop)
	assert.Equal(t, types.StoppedByNone, check.StoppedBy)
}

func TestDecideContinuesWhenNoRuleFires(t *testing.T) {
	cfg := types.Config{MaxIterations: 10, StopOnNoHighIssues: true, DeltaThreshold: 0.05}
	iterations := []convergence.IterationSummary{
		{IterationIndex: 1, Reviews: []types.Review{highReview()}, Delta: 0},
		{IterationIndex: 2, Reviews: []types.Review{highReview()}, Delta: 0.9},
	}
	check := convergence.Decide(cfg, iterations, nil)
	assert.False(t, check.ShouldStop)
	assert.Equal(t, types.StoppedByNone, check.StoppedBy)
}

// TestDecidePropertyIteration1NeverTriggersDeltaThreshold generalizes B1
// across randomly generated single-iteration histories and thresholds: no
// matter what Delta a caller stuffs into iteration 1's summary, delta
// comparison never applies before there is a second document version to
// compare against.
func TestDecidePropertyIteration1NeverTriggersDeltaThreshold(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		threshold := rapid.Float64Range(0, 1).Draw(rt, "threshold")
		delta := rapid.Float64Range(0, threshold).Draw(rt, "delta")
		review := lowReview()
		if rapid.Bool().Draw(rt, "high") {
			review = highReview()
		}
		cfg := types.Config{MaxIterations: 100, StopOnNoHighIssues: false, DeltaThreshold: threshold}
		iterations := []convergence.IterationSummary{{IterationIndex: 1, Reviews: []types.Review{review}, Delta: delta}}
		check := convergence.Decide(cfg, iterations, nil)
		assert.NotEqual(t, types.StoppedByDeltaThreshold, check.StoppedBy)
	})
}

// TestDecidePropertyExclusiveStopReason covers P4: Decide never reports more
// than one active stop reason — StoppedBy is either none or exactly one of
// the recognized rules, across randomly generated two-iteration histories.
func TestDecidePropertyExclusiveStopReason(t *testing.T) {
	validReasons := map[types.StoppedBy]bool{
		types.StoppedByNone:           true,
		types.StoppedByNoHighIssues:   true,
		types.StoppedByMaxIterations:  true,
		types.StoppedByDeltaThreshold: true,
	}
	rapid.Check(t, func(rt *rapid.T) {
		cfg := types.Config{
			MaxIterations:      rapid.IntRange(1, 5).Draw(rt, "max_iterations"),
			StopOnNoHighIssues: rapid.Bool().Draw(rt, "stop_on_no_high_issues"),
			DeltaThreshold:     rapid.Float64Range(0, 1).Draw(rt, "delta_threshold"),
		}
		review := lowReview()
		if rapid.Bool().Draw(rt, "high") {
			review = highReview()
		}
		iterations := []convergence.IterationSummary{
			{IterationIndex: 1, Reviews: []types.Review{review}, Delta: 0},
			{IterationIndex: 2, Reviews: []types.Review{review}, Delta: rapid.Float64Range(0, 1).Draw(rt, "delta")},
		}
		check := convergence.Decide(cfg, iterations, nil)
		assert.True(t, validReasons[check.StoppedBy], "unexpected StoppedBy value %q", check.StoppedBy)
		assert.Equal(t, check.ShouldStop, check.StoppedBy != types.StoppedByNone)
	})
}
