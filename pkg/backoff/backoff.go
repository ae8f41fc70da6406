package backoff

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

type (
	// Operation is executed under retry until it succeeds, fails
	// permanently or the policy is exhausted.
	Operation func(ctx context.Context) (interface{}, error)

	// IsRetriable reports whether the error returned by an Operation
	// is worth another attempt.
	IsRetriable func(error) bool
)

// Policy describes how failed operations are retried. The zero value
// performs no retries.
type Policy struct {
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	Coefficient     float64       `mapstructure:"coefficient"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	MaxRetries      int           `mapstructure:"max_retries"`
}

// Delay returns the backoff delay before retry number `retry`
// (zero-based), without jitter.
func (p Policy) Delay(retry int) time.Duration {
	if p.InitialInterval <= 0 {
		return 0
	}

	coefficient := p.Coefficient
	if coefficient < 1 {
		coefficient = 1
	}

	interval := float64(p.InitialInterval) * math.Pow(coefficient, float64(retry))
	if p.MaxInterval > 0 {
		interval = math.Min(interval, float64(p.MaxInterval))
	}

	return time.Duration(interval)
}

// NextDelay returns the delay before retry number `retry` with jitter
// applied: 80% of the computed interval plus a random share of the
// remaining 20%.
func (p Policy) NextDelay(retry int) time.Duration {
	delay := p.Delay(retry)
	if delay <= 0 {
		return 0
	}

	jitter := int64(0.2 * float64(delay))
	if jitter < 1 {
		return delay
	}

	return time.Duration(0.8*float64(delay)) + time.Duration(rand.Int64N(jitter))
}

// Retry executes operation until it succeeds, returns a non-retriable
// error, the retry budget is spent, or ctx is cancelled. The first call
// is not counted as a retry, so at most MaxRetries+1 calls are made.
func Retry(ctx context.Context, policy Policy, operation Operation, retriable IsRetriable) (interface{}, error) {
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(policy.NextDelay(attempt - 1)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		response, err := operation(ctx)
		if err == nil {
			return response, nil
		}

		if !retriable(err) {
			return nil, err
		}

		lastErr = err
	}

	return nil, lastErr
}
