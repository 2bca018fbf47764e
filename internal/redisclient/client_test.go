package redisclient

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestJSONCache(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	type stats struct {
		Count int `json:"count"`
	}

	var got stats
	found, err := c.GetJSON(ctx, "stats", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.SetJSON(ctx, "stats", stats{Count: 3}, time.Minute))
	found, err = c.GetJSON(ctx, "stats", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 3, got.Count)

	mr.FastForward(2 * time.Minute)
	found, err = c.GetJSON(ctx, "stats", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.SetJSON(ctx, "stats", stats{Count: 1}, time.Minute))
	require.NoError(t, c.Invalidate(ctx, "stats"))
	found, _ = c.GetJSON(ctx, "stats", &got)
	assert.False(t, found)
}

func TestIdempotencyKey(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	_, found, err := c.GetIdempotencyKey(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.SetIdempotencyKey(ctx, "abc", "sale-1", time.Hour))
	val, found, err := c.GetIdempotencyKey(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "sale-1", val)
}

func TestLock(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	ok, err := c.AcquireLock(ctx, "sale:abc", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.AcquireLock(ctx, "sale:abc", time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.ReleaseLock(ctx, "sale:abc"))
	ok, _ = c.AcquireLock(ctx, "sale:abc", time.Second)
	assert.True(t, ok)
}
