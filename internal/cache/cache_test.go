package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type payload struct {
	Company string `json:"company"`
	Cited   int    `json:"cited"`
}

func newTestCache(t *testing.T) (*AnalysisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := New(context.Background(), mr.Addr(), 10*time.Minute, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestCache_SetGetRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	key := Key("session-1", "Sirion")

	c.Set(ctx, key, payload{Company: "sirion", Cited: 4})

	var got payload
	require.True(t, c.Get(ctx, key, &got))
	assert.Equal(t, "sirion", got.Company)
	assert.Equal(t, 4, got.Cited)
}

func TestCache_MissOnUnknownKey(t *testing.T) {
	c, _ := newTestCache(t)

	var got payload
	assert.False(t, c.Get(context.Background(), Key("session-1", "Sirion"), &got))
}

func TestCache_KeyNormalization(t *testing.T) {
	assert.Equal(t, Key("s1", "sirion"), Key("s1", "  SIRION "))
	assert.NotEqual(t, Key("s1", "sirion"), Key("s2", "sirion"))
}

func TestCache_TTLApplied(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	key := Key("session-1", "Sirion")

	c.Set(ctx, key, payload{Company: "sirion"})

	mr.FastForward(11 * time.Minute)
	var got payload
	assert.False(t, c.Get(ctx, key, &got))
}

func TestCache_CorruptEntryDiscarded(t *testing.T) {
	c, mr := newTestCache(t)
	key := Key("session-1", "Sirion")
	require.NoError(t, mr.Set(key, "not json"))

	var got payload
	assert.False(t, c.Get(context.Background(), key, &got))
	assert.False(t, mr.Exists(key), "corrupt entries are deleted on read")
}

func TestCache_InvalidateSession(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, Key("s1", "sirion"), payload{})
	c.Set(ctx, Key("s1", "icertis"), payload{})
	c.Set(ctx, Key("s2", "sirion"), payload{})

	c.InvalidateSession(ctx, "s1")

	var got payload
	assert.False(t, c.Get(ctx, Key("s1", "sirion"), &got))
	assert.False(t, c.Get(ctx, Key("s1", "icertis"), &got))
	assert.True(t, c.Get(ctx, Key("s2", "sirion"), &got), "other sessions untouched")
}

func TestCache_NilCacheIsInert(t *testing.T) {
	var c *AnalysisCache
	ctx := context.Background()

	c.Set(ctx, "k", payload{})
	var got payload
	assert.False(t, c.Get(ctx, "k", &got))
	assert.NoError(t, c.Ping(ctx))
	assert.NoError(t, c.Close())
	c.InvalidateSession(ctx, "s")
}

func TestCache_DegradesWhenRedisDown(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	key := Key("s1", "sirion")
	c.Set(ctx, key, payload{Company: "sirion"})

	mr.Close()

	var got payload
	assert.False(t, c.Get(ctx, key, &got), "a dead backend reads as a miss")
	c.Set(ctx, key, payload{}) // must not panic
	assert.Error(t, c.Ping(ctx))
}

func TestNew_EmptyAddrDisablesCache(t *testing.T) {
	c, err := New(context.Background(), "", time.Minute, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Nil(t, c)
}
