// Package retry implements the exponential-backoff-with-jitter policy
// spec.md §7 recommends for TransientLLM errors: up to 3 retries after
// the first attempt,
// starting at 1s, doubling up to a 30s cap, with jitter to avoid
// synchronized retry storms across concurrently running reviewers.
package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/va2ai/ai-agent-orchestration-platform/types"
)

// Policy configures a Retryer.
type Policy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
	// OnRetry, if set, is invoked before each retry sleep with the
	// zero-based attempt number and the error that triggered the retry.
	// Nothing in this module sets it; tokens spent on failed attempts are
	// not added to any session's token counts.
	OnRetry func(attempt int, err error)
}

// DefaultPolicy returns the recommended defaults from spec.md §7.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:   3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Do runs fn, retrying while the returned error is a *types.Error marked
// Retryable, up to Policy.MaxRetries additional attempts. A non-retryable
// error (FatalLLM and everything else) returns immediately. Do respects
// ctx cancellation between attempts.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	var lastErr error
	delay := p.InitialDelay

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !types.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == p.MaxRetries {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, lastErr)
		}

		sleep := delay
		if p.Jitter {
			sleep = time.Duration(float64(sleep) * (0.5 + rand.Float64()))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}

		delay = time.Duration(float64(delay) * p.Multiplier)
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return lastErr
}
