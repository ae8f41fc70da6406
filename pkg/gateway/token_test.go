package gateway_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dukapay/payments/pkg/backoff"
	"github.com/dukapay/payments/pkg/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPolicy = backoff.Policy{InitialInterval: time.Millisecond, Coefficient: 2.0, MaxRetries: 3}

func TestTokenCacheReusesTokenUntilMargin(t *testing.T) {
	var fetches int32
	source := gateway.TokenSourceFunc(func(ctx context.Context) (gateway.Token, error) {
		atomic.AddInt32(&fetches, 1)
		return gateway.Token{AccessToken: "token-1", ExpiresAt: time.Now().Add(time.Hour)}, nil
	})

	cache := gateway.NewTokenCache(gateway.MobileMoney, source, 30*time.Second, testPolicy)

	for i := 0; i < 10; i++ {
		token, err := cache.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "token-1", token.AccessToken)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&fetches))
}

func TestTokenCacheRefreshesWithinSafetyMargin(t *testing.T) {
	var fetches int32
	source := gateway.TokenSourceFunc(func(ctx context.Context) (gateway.Token, error) {
		n := atomic.AddInt32(&fetches, 1)
		if n == 1 {
			// expires inside the safety margin, so it is never served
			return gateway.Token{AccessToken: "stale", ExpiresAt: time.Now().Add(10 * time.Second)}, nil
		}
		return gateway.Token{AccessToken: "fresh", ExpiresAt: time.Now().Add(time.Hour)}, nil
	})

	cache := gateway.NewTokenCache(gateway.MobileMoney, source, 30*time.Second, testPolicy)

	token, err := cache.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "stale", token.AccessToken)

	token, err = cache.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", token.AccessToken)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fetches))
}

func TestTokenCacheSingleFlightUnderConcurrentCallers(t *testing.T) {
	var fetches int32
	source := gateway.TokenSourceFunc(func(ctx context.Context) (gateway.Token, error) {
		atomic.AddInt32(&fetches, 1)
		time.Sleep(20 * time.Millisecond)
		return gateway.Token{AccessToken: "shared", ExpiresAt: time.Now().Add(time.Hour)}, nil
	})

	cache := gateway.NewTokenCache(gateway.Card, source, 30*time.Second, testPolicy)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := cache.Token(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "shared", token.AccessToken)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&fetches))
}

func TestTokenCacheRetriesAcquisition(t *testing.T) {
	var fetches int32
	source := gateway.TokenSourceFunc(func(ctx context.Context) (gateway.Token, error) {
		n := atomic.AddInt32(&fetches, 1)
		if n <= 2 {
			return gateway.Token{}, errors.New("connection refused")
		}
		return gateway.Token{AccessToken: "eventually", ExpiresAt: time.Now().Add(time.Hour)}, nil
	})

	cache := gateway.NewTokenCache(gateway.MobileMoney, source, 30*time.Second, testPolicy)

	token, err := cache.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "eventually", token.AccessToken)
	assert.Equal(t, int32(3), atomic.LoadInt32(&fetches))
}

func TestTokenCacheSurfacesExhaustedAcquisition(t *testing.T) {
	var fetches int32
	source := gateway.TokenSourceFunc(func(ctx context.Context) (gateway.Token, error) {
		atomic.AddInt32(&fetches, 1)
		return gateway.Token{}, errors.New("connection refused")
	})

	cache := gateway.NewTokenCache(gateway.Card, source, 30*time.Second, testPolicy)

	_, err := cache.Token(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, gateway.ErrAuthFailed)
	assert.Equal(t, int32(4), atomic.LoadInt32(&fetches))

	// a later acquisition is not poisoned by the earlier failure
	atomic.StoreInt32(&fetches, 10)
	source = gateway.TokenSourceFunc(func(ctx context.Context) (gateway.Token, error) {
		return gateway.Token{AccessToken: "recovered", ExpiresAt: time.Now().Add(time.Hour)}, nil
	})
	cache = gateway.NewTokenCache(gateway.Card, source, 30*time.Second, testPolicy)

	token, err := cache.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "recovered", token.AccessToken)
}

func TestTokenCacheInvalidateForcesRefetch(t *testing.T) {
	var fetches int32
	source := gateway.TokenSourceFunc(func(ctx context.Context) (gateway.Token, error) {
		atomic.AddInt32(&fetches, 1)
		return gateway.Token{AccessToken: "token", ExpiresAt: time.Now().Add(time.Hour)}, nil
	})

	cache := gateway.NewTokenCache(gateway.MobileMoney, source, 30*time.Second, testPolicy)

	_, err := cache.Token(context.Background())
	require.NoError(t, err)

	cache.Invalidate()

	_, err = cache.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fetches))
}
