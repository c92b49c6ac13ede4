package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStats_NilClientIsNoop(t *testing.T) {
	s := NewRedisStats(nil, "", time.Hour)

	require.NoError(t, s.Record(context.Background(), StatsEvent{Key: "k", Allowed: true}))
	c, err := s.Totals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Counters{}, c)
}

func TestRedisStats_KeyLayout(t *testing.T) {
	s := NewRedisStats(nil, ":namecollector:ratelimit:", time.Hour)

	at := time.Date(2024, 3, 9, 14, 7, 59, 0, time.UTC)
	assert.Equal(t, "namecollector:ratelimit:minute:202403091407", s.minuteKey(at))
}

func newMiniRedisStats(t *testing.T) (*RedisStats, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStats(rdb, "nc:stats", 2*time.Hour), mr
}

func TestRedisStats_RecordThenTotals(t *testing.T) {
	s, mr := newMiniRedisStats(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 9, 14, 7, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Record(ctx, StatsEvent{Key: "10.0.0.1", Allowed: true, Method: "POST", Path: "/api/submit", At: at}))
	}
	require.NoError(t, s.Record(ctx, StatsEvent{Key: "10.0.0.1", Allowed: false, Method: "POST", Path: "/api/submit", At: at}))

	total, err := s.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counters{Allowed: 3, Denied: 1}, total)

	minute := "nc:stats:minute:202403091407"
	assert.Equal(t, "3", mr.HGet(minute, "allowed"))
	assert.Equal(t, "1", mr.HGet(minute, "denied"))
	assert.Equal(t, 2*time.Hour, mr.TTL(minute))
	assert.Equal(t, time.Duration(0), mr.TTL("nc:stats:total"), "totals never expire")

	for _, k := range mr.Keys() {
		assert.NotContains(t, k, "10.0.0.1", "client keys are not stored")
	}
}

func TestRedisStats_Routes(t *testing.T) {
	s, _ := newMiniRedisStats(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, StatsEvent{Allowed: true, Method: "POST", Path: "/api/submit"}))
	require.NoError(t, s.Record(ctx, StatsEvent{Allowed: false, Method: "POST", Path: "/api/submit"}))
	require.NoError(t, s.Record(ctx, StatsEvent{Allowed: true, Method: "GET", Path: "/a:b"}))

	routes, err := s.Routes(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]Counters{
		"POST /api/submit": {Allowed: 1, Denied: 1},
		"GET /a:b":         {Allowed: 1},
	}, routes)
}

func TestRedisStats_TotalsFailsWhenRedisIsDown(t *testing.T) {
	s, mr := newMiniRedisStats(t)
	mr.Close()

	_, err := s.Totals(context.Background())
	require.Error(t, err)
	assert.Error(t, s.Record(context.Background(), StatsEvent{Allowed: true}))
}
