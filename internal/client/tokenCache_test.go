package client

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCacheRefreshesBeforeExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	var calls atomic.Int32

	c := newTokenCache(func(ctx context.Context) (accessToken, error) {
		n := calls.Add(1)
		return accessToken{value: string(rune('a' + n - 1)), expiresAt: now.Add(5 * time.Minute)}, nil
	})
	c.now = func() time.Time { return now }

	v, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	now = now.Add(3 * time.Minute)
	v, _ = c.Get(context.Background())
	assert.Equal(t, "a", v)

	// inside the refresh skew
	now = now.Add(90 * time.Second)
	v, _ = c.Get(context.Background())
	assert.Equal(t, "b", v)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTokenCacheUnknownExpiryNotReused(t *testing.T) {
	var calls atomic.Int32
	c := newTokenCache(func(ctx context.Context) (accessToken, error) {
		calls.Add(1)
		return accessToken{value: "tok"}, nil
	})

	for i := 0; i < 3; i++ {
		_, err := c.Get(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestTokenCacheCollapsesConcurrentFetches(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	c := newTokenCache(func(ctx context.Context) (accessToken, error) {
		calls.Add(1)
		<-release
		return accessToken{value: "tok", expiresAt: time.Now().Add(time.Hour)}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Get(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "tok", v)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestTokenCacheErrorAndInvalidate(t *testing.T) {
	fail := true
	c := newTokenCache(func(ctx context.Context) (accessToken, error) {
		if fail {
			return accessToken{}, errors.New("boom")
		}
		return accessToken{value: "ok", expiresAt: time.Now().Add(time.Hour)}, nil
	})

	_, err := c.Get(context.Background())
	require.Error(t, err)

	fail = false
	v, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", v)

	c.Invalidate()
	c.mu.Lock()
	assert.Empty(t, c.token.value)
	c.mu.Unlock()
}
