package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dukapay/payments/pkg/backoff"
	"github.com/patrickmn/go-cache"
)

type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// TokenSource fetches a fresh bearer token from the gateway's auth
// endpoint. A response missing the token field is an acquisition
// failure, not a fatal error.
type TokenSource interface {
	FetchToken(ctx context.Context) (Token, error)
}

type TokenSourceFunc func(ctx context.Context) (Token, error)

func (f TokenSourceFunc) FetchToken(ctx context.Context) (Token, error) {
	return f(ctx)
}

// TokenCache holds one bearer token per gateway and refreshes it when
// the remaining lifetime drops below the safety margin. Only one
// acquisition is in flight at a time; concurrent callers block on it
// instead of issuing duplicate requests. The cached entry is replaced
// on successful acquisition only.
type TokenCache struct {
	name   Name
	source TokenSource
	store  *cache.Cache
	margin time.Duration
	policy backoff.Policy

	mu sync.Mutex
}

const defaultSafetyMargin = 30 * time.Second

func NewTokenCache(name Name, source TokenSource, margin time.Duration, policy backoff.Policy) *TokenCache {
	if margin <= 0 {
		margin = defaultSafetyMargin
	}

	return &TokenCache{
		name:   name,
		source: source,
		store:  cache.New(cache.NoExpiration, 10*time.Minute),
		margin: margin,
		policy: policy,
	}
}

func (t *TokenCache) Token(ctx context.Context) (Token, error) {
	if token, ok := t.cached(); ok {
		return token, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if token, ok := t.cached(); ok {
		return token, nil
	}

	result, err := backoff.Retry(ctx, t.policy, func(ctx context.Context) (interface{}, error) {
		return t.source.FetchToken(ctx)
	}, func(err error) bool { return true })
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	token := result.(Token)
	t.store.Set(string(t.name), token, time.Until(token.ExpiresAt))

	return token, nil
}

// Invalidate drops the cached token so the next caller acquires a fresh
// one. Used when the gateway rejects a request with an auth-expiry
// status before the local expiry was reached.
func (t *TokenCache) Invalidate() {
	t.store.Delete(string(t.name))
}

func (t *TokenCache) cached() (Token, bool) {
	entry, ok := t.store.Get(string(t.name))
	if !ok {
		return Token{}, false
	}

	token := entry.(Token)
	if time.Now().After(token.ExpiresAt.Add(-t.margin)) {
		return Token{}, false
	}

	return token, true
}
