package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/PaulFidika/nekokit/entitlements"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCache_RoundTripAndExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	c := NewStatusCache(rdb, "", 30*time.Second)
	ctx := context.Background()
	end := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	cancel := false
	require.NoError(t, c.Put(ctx, "u1", entitlements.Status{Subscribed: true, Tier: entitlements.TierBuild, SubscriptionEnd: &end, CancelAtPeriodEnd: &cancel}))

	got, ok, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entitlements.TierBuild, got.Tier)
	assert.True(t, got.SubscriptionEnd.Equal(end))

	mr.FastForward(31 * time.Second)
	_, ok, err = c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatusCache_Del(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	c := NewStatusCache(rdb, "test:", time.Minute)
	ctx := context.Background()
	require.NoError(t, c.Put(ctx, "u1", entitlements.FreeStatus()))
	assert.True(t, mr.Exists("test:u1"))
	require.NoError(t, c.Del(ctx, "u1"))
	_, ok, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}
