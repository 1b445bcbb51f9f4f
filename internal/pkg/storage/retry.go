package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Vodeneev/adnbet/internal/pkg/config"
	"github.com/Vodeneev/adnbet/internal/pkg/failure"
)

// RetryObserver is notified of every retried attempt.
type RetryObserver interface {
	ObserveRetry(op string, attempt int, err error)
}

// Retrier retries transient store errors with exponential backoff behind a circuit
// breaker. A nil *Retrier runs the operation once and only classifies its error.
type Retrier struct {
	maxAttempts  int
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64

	breaker  *gobreaker.CircuitBreaker
	observer RetryObserver
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewRetrier creates a retrier sharing one breaker across every operation it runs.
func NewRetrier(name string, rc config.RetryConfig, bc config.BreakerConfig, observer RetryObserver) *Retrier {
	st := gobreaker.Settings{
		Name:     name,
		Interval: bc.Interval,
		Timeout:  bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bc.ConsecutiveFailures
		},
		// only IO failures count against the breaker
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			return !failure.IsTransient(err)
		},
	}
	return &Retrier{
		maxAttempts:  rc.MaxAttempts,
		initialDelay: rc.InitialDelay,
		maxDelay:     rc.MaxDelay,
		multiplier:   rc.Multiplier,
		breaker:      gobreaker.NewCircuitBreaker(st),
		observer:     observer,
		sleep:        sleepContext,
	}
}

// Do runs fn until it succeeds, fails permanently or the attempts are exhausted.
// The returned error is always classified (see failure.KindOf).
func (r *Retrier) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if r == nil {
		return failure.ClassifyIO(op, fn(ctx))
	}

	var lastErr error
	delay := r.initialDelay

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		_, err := r.breaker.Execute(func() (interface{}, error) {
			return nil, fn(ctx)
		})
		if err == nil {
			return nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return failure.New(failure.KindPermanentIO, op, err)
		}

		classified := failure.ClassifyIO(op, err)
		if failure.KindOf(classified) != failure.KindTransientIO {
			return classified
		}
		lastErr = err

		// Don't sleep after last attempt
		if attempt == r.maxAttempts {
			break
		}
		if r.observer != nil {
			r.observer.ObserveRetry(op, attempt, err)
		}
		if err := r.sleep(ctx, delay); err != nil {
			return failure.New(failure.KindTimeout, op, err)
		}
		delay = time.Duration(float64(delay) * r.multiplier)
		if delay > r.maxDelay {
			delay = r.maxDelay
		}
	}

	return failure.New(failure.KindPermanentIO, op, fmt.Errorf("failed after %d attempts: %w", r.maxAttempts, lastErr))
}

// State exposes the breaker state for logging.
func (r *Retrier) State() string {
	if r == nil {
		return "disabled"
	}
	return r.breaker.State().String()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
