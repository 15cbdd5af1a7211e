package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/va2ai/ai-agent-orchestration-platform/types"
)

func TestConfigClampBounds(t *testing.T) {
	tooFew := types.Config{NumParticipants: 0}
	tooFew.Clamp()
	assert.Equal(t, 2, tooFew.NumParticipants)

	tooMany := types.Config{NumParticipants: 40}
	tooMany.Clamp()
	assert.Equal(t, 6, tooMany.NumParticipants)

	inRange := types.Config{NumParticipants: 4}
	inRange.Clamp()
	assert.Equal(t, 4, inRange.NumParticipants)
}

func TestCanContinue(t *testing.T) {
	cases := []struct {
		name string
		sess types.Session
		want bool
	}{
		{"completed by max_iterations", types.Session{Status: types.StatusCompleted, StoppedBy: types.StoppedByMaxIterations}, true},
		{"completed by no_high_issues", types.Session{Status: types.StatusCompleted, StoppedBy: types.StoppedByNoHighIssues}, false},
		{"completed by delta_threshold", types.Session{Status: types.StatusCompleted, StoppedBy: types.StoppedByDeltaThreshold}, false},
		{"still running", types.Session{Status: types.StatusRunning, StoppedBy: types.StoppedByNone}, false},
		{"failed", types.Session{Status: types.StatusFailed, StoppedBy: types.StoppedByError}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.sess.CanContinue())
		})
	}
}
