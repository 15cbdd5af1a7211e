package convergence_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/va2ai/ai-agent-orchestration-platform/convergence"
)

func TestDeltaBothEmptyIsZero(t *testing.T) {
	assert.Equal(t, 0.0, convergence.Delta("", ""))
}

func TestDeltaOneEmptyIsOne(t *testing.T) {
	assert.Equal(t, 1.0, convergence.Delta("", "some content"))
	assert.Equal(t, 1.0, convergence.Delta("some content", ""))
}

func TestDeltaSmallEditIsSmall(t *testing.T) {
	a := "This document explains the roundtable refinement loop in detail."
	b := "This document explains the roundtable refinement loop in detail!"
	assert.Less(t, convergence.Delta(a, b), 0.1)
}

// TestDeltaPropertyBounded and its siblings below cover P5: every recorded
// delta lies in [0,1], delta(x,x)=0, and delta(x,y)=delta(y,x), checked
// against randomly generated document pairs rather than a handful of
// hand-picked examples.
func TestDeltaPropertyBounded(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.String().Draw(rt, "a")
		b := rapid.String().Draw(rt, "b")
		d := convergence.Delta(a, b)
		assert.GreaterOrEqual(t, d, 0.0)
		assert.LessOrEqual(t, d, 1.0)
	})
}

func TestDeltaPropertyIdenticalIsZero(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := rapid.String().Draw(rt, "s")
		assert.Equal(t, 0.0, convergence.Delta(s, s))
	})
}

func TestDeltaPropertySymmetric(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.String().Draw(rt, "a")
		b := rapid.String().Draw(rt, "b")
		assert.InDelta(t, convergence.Delta(a, b), convergence.Delta(b, a), 1e-9)
	})
}
