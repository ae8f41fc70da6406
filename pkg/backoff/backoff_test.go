package backoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPolicyDelay(t *testing.T) {
	policy := Policy{
		InitialInterval: 100 * time.Millisecond,
		Coefficient:     2.0,
		MaxInterval:     time.Second,
		MaxRetries:      5,
	}

	assert.Equal(t, 100*time.Millisecond, policy.Delay(0))
	assert.Equal(t, 200*time.Millisecond, policy.Delay(1))
	assert.Equal(t, 400*time.Millisecond, policy.Delay(2))
	assert.Equal(t, 800*time.Millisecond, policy.Delay(3))
	assert.Equal(t, time.Second, policy.Delay(4))
	assert.Equal(t, time.Second, policy.Delay(10))
}

func TestPolicyDelayZeroValue(t *testing.T) {
	var policy Policy
	assert.Equal(t, time.Duration(0), policy.Delay(0))
	assert.Equal(t, time.Duration(0), policy.NextDelay(3))
}

func TestPolicyNextDelayWithinJitterBounds(t *testing.T) {
	policy := Policy{InitialInterval: time.Second, Coefficient: 2.0, MaxRetries: 3}

	for i := 0; i < 50; i++ {
		delay := policy.NextDelay(0)
		assert.GreaterOrEqual(t, delay, 800*time.Millisecond)
		assert.Less(t, delay, time.Second)
	}
}

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	policy := Policy{InitialInterval: time.Millisecond, Coefficient: 2.0, MaxRetries: 3}

	calls := 0
	result, err := Retry(context.Background(), policy, func(ctx context.Context) (interface{}, error) {
		calls++
		return "ok", nil
	}, func(err error) bool { return true })

	assert.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	policy := Policy{InitialInterval: time.Millisecond, Coefficient: 2.0, MaxRetries: 3}
	transient := errors.New("UNAVAILABLE")

	calls := 0
	result, err := Retry(context.Background(), policy, func(ctx context.Context) (interface{}, error) {
		calls++
		if calls <= 3 {
			return nil, transient
		}
		return "ok", nil
	}, func(err error) bool { return errors.Is(err, transient) })

	assert.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 4, calls)
}

func TestRetryStopsOnNonRetriableError(t *testing.T) {
	policy := Policy{InitialInterval: time.Millisecond, Coefficient: 2.0, MaxRetries: 5}
	permanent := errors.New("REJECTED")

	calls := 0
	result, err := Retry(context.Background(), policy, func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, permanent
	}, func(err error) bool { return false })

	assert.ErrorIs(t, err, permanent)
	assert.Nil(t, result)
	assert.Equal(t, 1, calls)
}

func TestRetryExhaustsBudget(t *testing.T) {
	policy := Policy{InitialInterval: time.Millisecond, Coefficient: 2.0, MaxRetries: 2}
	transient := errors.New("UNAVAILABLE")

	calls := 0
	_, err := Retry(context.Background(), policy, func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, transient
	}, func(err error) bool { return true })

	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	policy := Policy{InitialInterval: time.Minute, Coefficient: 2.0, MaxRetries: 3}
	transient := errors.New("UNAVAILABLE")

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := Retry(ctx, policy, func(ctx context.Context) (interface{}, error) {
			calls++
			return nil, transient
		}, func(err error) bool { return true })
		assert.ErrorIs(t, err, context.Canceled)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("retry did not stop after context cancellation")
	}

	assert.Equal(t, 1, calls)
}
