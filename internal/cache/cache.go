// Package cache provides a Redis-backed cache for citation analysis
// results. The cache is strictly best-effort: any Redis failure degrades to
// recomputing the analysis, never to a request failure.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/arifalam4785/AEO-Audit-Engine/internal/metrics"
)

const keyPrefix = "aeo:analysis:"

// AnalysisCache stores serialized analysis payloads keyed by session and
// audited entity. A nil *AnalysisCache is valid and caches nothing.
type AnalysisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New connects to Redis and verifies the connection. Returns nil (with no
// error) when addr is empty so callers can treat the cache as optional.
func New(ctx context.Context, addr string, ttl time.Duration, logger *zap.Logger) (*AnalysisCache, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	logger.Info("Analysis cache connected", zap.String("addr", addr), zap.Duration("ttl", ttl))
	return &AnalysisCache{client: client, ttl: ttl, logger: logger}, nil
}

// Key builds the cache key for one session/entity pair. The entity is
// normalized so trivially different spellings share a slot.
func Key(sessionID, entity string) string {
	return keyPrefix + sessionID + ":" + strings.ToLower(strings.TrimSpace(entity))
}

// Get returns the cached payload for key, unmarshalled into dest. The
// boolean reports whether a usable entry was found.
func (c *AnalysisCache) Get(ctx context.Context, key string, dest any) bool {
	if c == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		}
		metrics.AnalysisCacheMisses.Inc()
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.logger.Warn("Discarding corrupt cache entry", zap.String("key", key), zap.Error(err))
		_ = c.client.Del(ctx, key).Err()
		metrics.AnalysisCacheMisses.Inc()
		return false
	}
	metrics.AnalysisCacheHits.Inc()
	return true
}

// Set stores value under key with the configured TTL. Failures are logged
// and swallowed.
func (c *AnalysisCache) Set(ctx context.Context, key string, value any) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("Cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// InvalidateSession drops every cached analysis for the session. Called when
// new responses land so stale analyses never outlive their inputs.
func (c *AnalysisCache) InvalidateSession(ctx context.Context, sessionID string) {
	if c == nil {
		return
	}
	pattern := keyPrefix + sessionID + ":*"
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("Cache scan failed", zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			c.logger.Warn("Cache invalidation failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
}

// Ping reports whether Redis is reachable. Nil caches are always healthy.
func (c *AnalysisCache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Close releases the Redis connection.
func (c *AnalysisCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
