package cache

import (
	"context"
	"io"
	"testing"
	"time"

	"stationhours/internal/availability"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*ConfigCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	logger := zerolog.New(io.Discard)
	return New(rdb, ttl, &logger), mr
}

func sampleConfig() availability.AvailabilityConfig {
	until := time.Date(2026, time.January, 12, 18, 30, 0, 0, time.UTC)
	return availability.AvailabilityConfig{
		Schedule: availability.Normalize([]availability.WeekdayRule{
			{Day: availability.Monday, OpenTime: "07:00", CloseTime: "21:00"},
		}),
		Exceptions: []availability.Exception{
			{Date: availability.Date{Year: 2026, Month: time.January, Day: 1}, Closed: true, Reason: "New Year"},
		},
		Override: availability.ManualOverride{Mode: availability.OverrideClosed, Until: &until},
	}
}

func TestConfigCache_RoundTrip(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	_, ok := c.Get(ctx, 1)
	assert.False(t, ok)

	want := sampleConfig()
	c.Set(ctx, 1, want)
	assert.True(t, mr.Exists("availability:1"))
	assert.Equal(t, time.Minute, mr.TTL("availability:1"))

	got, ok := c.Get(ctx, 1)
	require.True(t, ok)
	assert.Equal(t, want.Schedule, got.Schedule)
	assert.Equal(t, want.Exceptions, got.Exceptions)
	assert.Equal(t, want.Override.Mode, got.Override.Mode)
	require.NotNil(t, got.Override.Until)
	assert.True(t, want.Override.Until.Equal(*got.Override.Until))

	mr.FastForward(2 * time.Minute)
	_, ok = c.Get(ctx, 1)
	assert.False(t, ok, "entry expires after ttl")
}

func TestConfigCache_Invalidate(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	for id := int64(1); id <= 3; id++ {
		c.Set(ctx, id, sampleConfig())
	}
	require.NoError(t, mr.Set("unrelated", "x"))

	c.Invalidate(ctx, 2)
	assert.True(t, mr.Exists("availability:1"))
	assert.False(t, mr.Exists("availability:2"))

	c.InvalidateAll(ctx)
	assert.False(t, mr.Exists("availability:1"))
	assert.False(t, mr.Exists("availability:3"))
	assert.True(t, mr.Exists("unrelated"))
}

func TestConfigCache_CorruptEntry(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)

	require.NoError(t, mr.Set("availability:5", "{not json"))
	_, ok := c.Get(context.Background(), 5)
	assert.False(t, ok)
	assert.False(t, mr.Exists("availability:5"), "corrupt entry is dropped")
}

func TestConfigCache_RedisDown(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	mr.Close()

	ctx := context.Background()
	c.Set(ctx, 1, sampleConfig())
	_, ok := c.Get(ctx, 1)
	assert.False(t, ok)
	assert.Error(t, c.Ping(ctx))
}

func TestConfigCache_Disabled(t *testing.T) {
	logger := zerolog.New(io.Discard)
	c := New(nil, time.Minute, &logger)
	assert.Nil(t, c)

	ctx := context.Background()
	c.Set(ctx, 1, sampleConfig())
	_, ok := c.Get(ctx, 1)
	assert.False(t, ok)
	c.Invalidate(ctx, 1)
	c.InvalidateAll(ctx)
	assert.NoError(t, c.Ping(ctx))
}
