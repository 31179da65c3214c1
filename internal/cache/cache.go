// Package cache keeps JSON snapshots of station availability configs in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stationhours/internal/availability"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const keyPrefix = "availability:"

// ConfigCache stores AvailabilityConfig snapshots keyed by station id.
// A nil *ConfigCache is valid and behaves as a permanently empty cache.
type ConfigCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zerolog.Logger
}

// New returns a cache backed by rdb. A nil client or non-positive ttl disables it.
func New(rdb *redis.Client, ttl time.Duration, logger *zerolog.Logger) *ConfigCache {
	if rdb == nil || ttl <= 0 {
		return nil
	}
	l := logger.With().Str("component", "cache").Logger()
	return &ConfigCache{rdb: rdb, ttl: ttl, logger: &l}
}

// Key returns the redis key of a station snapshot.
func Key(stationID int64) string {
	return fmt.Sprintf("%s%d", keyPrefix, stationID)
}

// Get returns a cached config. Misses, redis failures and undecodable
// payloads all report false.
func (c *ConfigCache) Get(ctx context.Context, stationID int64) (availability.AvailabilityConfig, bool) {
	var cfg availability.AvailabilityConfig
	if c == nil {
		return cfg, false
	}

	val, err := c.rdb.Get(ctx, Key(stationID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Int64("station_id", stationID).Msg("cache read failed")
		}
		return cfg, false
	}
	if err := json.Unmarshal(val, &cfg); err != nil {
		c.logger.Warn().Err(err).Int64("station_id", stationID).Msg("dropping undecodable cache entry")
		_ = c.rdb.Del(ctx, Key(stationID)).Err()
		return cfg, false
	}
	return cfg, true
}

// Set stores a snapshot with the configured TTL. Failures are logged only.
func (c *ConfigCache) Set(ctx context.Context, stationID int64, cfg availability.AvailabilityConfig) {
	if c == nil {
		return
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		c.logger.Warn().Err(err).Int64("station_id", stationID).Msg("cache encode failed")
		return
	}
	if err := c.rdb.Set(ctx, Key(stationID), data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Int64("station_id", stationID).Msg("cache write failed")
	}
}

// Invalidate drops the snapshots of the given stations.
func (c *ConfigCache) Invalidate(ctx context.Context, stationIDs ...int64) {
	if c == nil || len(stationIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(stationIDs))
	for _, id := range stationIDs {
		keys = append(keys, Key(id))
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn().Err(err).Strs("keys", keys).Msg("cache invalidate failed")
	}
}

// InvalidateAll drops every station snapshot, e.g. after stations.yaml is re-applied.
func (c *ConfigCache) InvalidateAll(ctx context.Context) {
	if c == nil {
		return
	}
	iter := c.rdb.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn().Err(err).Msg("cache scan failed")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("cache flush failed")
	}
}

// Ping reports whether redis is reachable.
func (c *ConfigCache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}
