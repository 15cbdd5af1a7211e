// Package ctxkeys defines the context keys the roundtable core threads
// through blocking calls (LLM, store, event bus) so log lines and traces
// can be correlated without plumbing extra parameters everywhere.
package ctxkeys

import "context"

type contextKey string

const (
	sessionIDKey   contextKey = "session_id"
	iterationKey   contextKey = "iteration_index"
	participantKey contextKey = "participant_name"
)

// WithSessionID attaches a session id to ctx.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// SessionID retrieves the session id attached by WithSessionID.
func SessionID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(sessionIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithIteration attaches the current iteration index to ctx.
func WithIteration(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, iterationKey, index)
}

// Iteration retrieves the iteration index attached by WithIteration.
func Iteration(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(iterationKey).(int)
	return v, ok
}

// WithParticipant attaches the acting participant's name to ctx.
func WithParticipant(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, participantKey, name)
}

// Participant retrieves the participant name attached by WithParticipant.
func Participant(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(participantKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
