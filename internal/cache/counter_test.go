package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCounter(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCounter()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := c.Incr(ctx, "k", time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	other, err := c.Incr(ctx, "other", time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), other)

	now = now.Add(time.Second)
	got, err := c.Incr(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got, "window expired")
}

func TestConfigOptions(t *testing.T) {
	t.Setenv("REDIS_HOST", "redis.internal")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_TLS_ENABLED", "true")

	opts := LoadConfigFromEnv().Options()
	assert.Equal(t, "redis.internal:6380", opts.Addr)
	assert.NotNil(t, opts.TLSConfig)
}
