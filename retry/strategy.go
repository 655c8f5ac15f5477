// Package retry provides exponential backoff for calls to external providers.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// Strategy defines the retry behavior for a failing call.
//
// The retry schedule follows: delay = min(BaseDelay * ExponentialBase^attempt, MaxDelay)
//
// Example with defaults (1s base, 2.0 exponential, 30s max, 3 attempts):
//
//	Attempt 1 fails: wait 1s
//	Attempt 2 fails: wait 2s
//	Attempt 3 fails: give up
type Strategy struct {
	MaxAttempts     int           // Total attempts including the first one
	BaseDelay       time.Duration // Delay after the first failure
	MaxDelay        time.Duration // Maximum retry delay cap
	ExponentialBase float64       // Backoff multiplier (e.g., 2.0 for doubling)
}

// DefaultStrategy returns the strategy used for price, catalog and vote lookups:
// 3 attempts with 1s then 2s pauses, capped at 30s.
func DefaultStrategy() Strategy {
	return Strategy{
		MaxAttempts:     3,
		BaseDelay:       1 * time.Second,
		MaxDelay:        30 * time.Second,
		ExponentialBase: 2.0,
	}
}

// NoRetry returns a strategy that makes exactly one attempt.
func NoRetry() Strategy {
	return Strategy{MaxAttempts: 1}
}

// CalculateRetryDelay calculates the delay that follows the given attempt using exponential backoff.
// Formula: delay = min(BaseDelay * ExponentialBase^attemptNumber, MaxDelay)
func (s Strategy) CalculateRetryDelay(attemptNumber int) time.Duration {
	if attemptNumber <= 0 {
		return s.capped(float64(s.BaseDelay))
	}

	delay := float64(s.BaseDelay) * math.Pow(s.ExponentialBase, float64(attemptNumber))
	return s.capped(delay)
}

func (s Strategy) capped(delay float64) time.Duration {
	if s.MaxDelay > 0 && delay > float64(s.MaxDelay) {
		return s.MaxDelay
	}
	return time.Duration(delay)
}

// IsRetryable checks if another attempt is allowed after attemptCount attempts.
func (s Strategy) IsRetryable(attemptCount int) bool {
	return attemptCount < s.MaxAttempts
}

// GetRetrySchedule returns a human-readable description of the retry schedule.
//
// Example output:
//
//	Retry Schedule:
//	  Attempt 1 fails: wait 1s
//	  Attempt 2 fails: wait 2s
//	  Attempt 3 fails: give up
func (s Strategy) GetRetrySchedule() string {
	schedule := "Retry Schedule:\n"
	for i := 1; i <= s.MaxAttempts; i++ {
		if i == s.MaxAttempts {
			schedule += fmt.Sprintf("  Attempt %d fails: give up\n", i)
			break
		}
		schedule += fmt.Sprintf("  Attempt %d fails: wait %v\n", i, s.CalculateRetryDelay(i-1))
	}
	return schedule
}

// permanentError marks an error that must not be retried.
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so Do returns it immediately without retrying.
// Use it for client errors such as an invalid API key or an unknown id.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Do calls fn until it succeeds, returns a permanent error, the attempts run out,
// or ctx is done. The last error is returned.
func Do(ctx context.Context, s Strategy, fn func(ctx context.Context) error) error {
	attempts := s.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if IsPermanent(err) || attempt == attempts {
			break
		}

		timer := time.NewTimer(s.CalculateRetryDelay(attempt - 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry interrupted after %d attempts: %w", attempt, errors.Join(err, ctx.Err()))
		case <-timer.C:
		}
	}
	return err
}
