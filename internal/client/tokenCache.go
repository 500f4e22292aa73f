package client

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// refresh this long before the provider-reported expiry
const tokenRefreshSkew = 60 * time.Second

type accessToken struct {
	value     string
	expiresAt time.Time
}

// tokenCache keeps one OAuth token per client. Concurrent misses share one fetch.
// A token without a known expiry is never reused.
type tokenCache struct {
	mu    sync.Mutex
	token accessToken
	group singleflight.Group
	fetch func(ctx context.Context) (accessToken, error)
	now   func() time.Time
}

func newTokenCache(fetch func(ctx context.Context) (accessToken, error)) *tokenCache {
	return &tokenCache{fetch: fetch, now: time.Now}
}

func (c *tokenCache) Get(ctx context.Context) (string, error) {
	c.mu.Lock()
	t := c.token
	c.mu.Unlock()

	if t.value != "" && c.now().Before(t.expiresAt.Add(-tokenRefreshSkew)) {
		return t.value, nil
	}

	v, err, _ := c.group.Do("token", func() (interface{}, error) {
		tok, err := c.fetch(ctx)
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.token = tok
		c.mu.Unlock()
		return tok.value, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the cached token, e.g. after the provider answered 401.
func (c *tokenCache) Invalidate() {
	c.mu.Lock()
	c.token = accessToken{}
	c.mu.Unlock()
}
