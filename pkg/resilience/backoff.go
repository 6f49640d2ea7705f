package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy computes the pause before retry number attempt (0-indexed).
type BackoffStrategy interface {
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff grows the delay by Multiplier per attempt, capped at
// MaxDelay, spread by a ±Jitter fraction.
type ExponentialBackoff struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	Jitter     float64
}

// DefaultExponentialBackoff is used for unsent SOAP requests: ~100ms, 200ms, 400ms...
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.1,
	}
}

// ReportBackoff is used for On-Demand report queries. The reporting service
// indexes slowly, so retries start at 500ms and cap at 5s.
func ReportBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.1,
	}
}

func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		return eb.BaseDelay
	}

	delay := math.Min(
		float64(eb.BaseDelay)*math.Pow(eb.Multiplier, float64(attempt)),
		float64(eb.MaxDelay),
	)
	if eb.Jitter > 0 {
		delay += (rand.Float64()*2 - 1) * delay * eb.Jitter
	}
	if delay < 0 {
		return eb.BaseDelay
	}
	return time.Duration(delay)
}

// FixedBackoff waits the same Delay before every retry.
type FixedBackoff struct {
	Delay time.Duration
}

func (fb *FixedBackoff) NextDelay(int) time.Duration {
	return fb.Delay
}

// Wait blocks for d or until ctx is done, whichever comes first.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryPolicy bounds a retry loop.
type RetryPolicy struct {
	MaxRetries int
	Backoff    BackoffStrategy
	// Retryable decides whether err is worth another attempt. Nil retries everything.
	Retryable func(err error) bool
	// OnRetry is called before each pause.
	OnRetry func(attempt int, delay time.Duration, lastErr error)
}

// Retry runs fn up to MaxRetries+1 times and returns the last error. A
// cancelled context while waiting returns the context error wrapped with
// the last attempt's error available through errors.Is.
func Retry(ctx context.Context, p RetryPolicy, fn func(attempt int) error) error {
	var err error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := p.Backoff.NextDelay(attempt - 1)
			if p.OnRetry != nil {
				p.OnRetry(attempt, delay, err)
			}
			if waitErr := Wait(ctx, delay); waitErr != nil {
				return &RetryCancelledError{Err: waitErr, Last: err}
			}
		}

		if err = fn(attempt); err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
	}
	return err
}

// RetryCancelledError is returned when the context ends between attempts.
type RetryCancelledError struct {
	Err  error
	Last error
}

func (e *RetryCancelledError) Error() string {
	return "retry cancelled: " + e.Err.Error()
}

func (e *RetryCancelledError) Unwrap() []error {
	return []error{e.Err, e.Last}
}
