package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/Vodeneev/adnbet/internal/pkg/config"
	"github.com/Vodeneev/adnbet/internal/pkg/failure"
)

type recordingObserver struct {
	attempts []int
}

func (o *recordingObserver) ObserveRetry(_ string, attempt int, _ error) {
	o.attempts = append(o.attempts, attempt)
}

func newTestRetrier(maxAttempts int, failures uint32, obs RetryObserver) (*Retrier, *[]time.Duration) {
	var slept []time.Duration
	r := NewRetrier("test",
		config.RetryConfig{MaxAttempts: maxAttempts, InitialDelay: 100 * time.Millisecond, MaxDelay: 250 * time.Millisecond, Multiplier: 2},
		config.BreakerConfig{ConsecutiveFailures: failures, Timeout: time.Minute}, obs)
	r.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return r, &slept
}

func TestRetrier_BackoffIsBounded(t *testing.T) {
	obs := &recordingObserver{}
	r, slept := newTestRetrier(4, 100, obs)

	calls := 0
	err := r.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return &pq.Error{Code: "40P01"}
	})

	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 250 * time.Millisecond}, *slept)
	assert.Equal(t, []int{1, 2, 3}, obs.attempts)
	assert.Equal(t, failure.KindPermanentIO, failure.KindOf(err))
	assert.Contains(t, err.Error(), "failed after 4 attempts")
}

func TestRetrier_PermanentErrorIsNotRetried(t *testing.T) {
	r, slept := newTestRetrier(4, 100, nil)

	calls := 0
	err := r.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return &pq.Error{Code: "42P01"}
	})

	assert.Equal(t, 1, calls)
	assert.Empty(t, *slept)
	assert.Equal(t, failure.KindPermanentIO, failure.KindOf(err))
}

func TestRetrier_KeepsClassifiedErrors(t *testing.T) {
	r, _ := newTestRetrier(4, 100, nil)
	err := r.Do(context.Background(), "op", func(context.Context) error {
		return failure.New(failure.KindInconsistent, "load", errors.New("bad pair"))
	})
	assert.Equal(t, failure.KindInconsistent, failure.KindOf(err))
}

func TestRetrier_OpenBreakerIsPermanent(t *testing.T) {
	r, _ := newTestRetrier(1, 2, nil)
	transient := func(context.Context) error { return &pq.Error{Code: "08006"} }

	_ = r.Do(context.Background(), "op", transient)
	_ = r.Do(context.Background(), "op", transient)
	assert.Equal(t, "open", r.State())

	calls := 0
	err := r.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return nil
	})
	assert.Zero(t, calls)
	assert.Equal(t, failure.KindPermanentIO, failure.KindOf(err))
}

func TestRetrier_CancelledWhileWaiting(t *testing.T) {
	r, _ := newTestRetrier(3, 100, nil)
	r.sleep = sleepContext

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := r.Do(ctx, "op", func(context.Context) error { return &pq.Error{Code: "40001"} })
	assert.Equal(t, failure.KindTimeout, failure.KindOf(err))
}

func TestNilRetrier_RunsOnce(t *testing.T) {
	var r *Retrier
	assert.NoError(t, r.Do(context.Background(), "op", func(context.Context) error { return nil }))
	assert.Equal(t, failure.KindTransientIO, failure.KindOf(r.Do(context.Background(), "op", func(context.Context) error {
		return &pq.Error{Code: "40001"}
	})))
	assert.Equal(t, "disabled", r.State())
}
