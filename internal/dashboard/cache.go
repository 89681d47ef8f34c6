package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// cacheKey holds the serialized overview in Redis.
const cacheKey = "dashboard:stats"

// DefaultCacheTTL keeps the overview fresh without hammering the stores.
const DefaultCacheTTL = 30 * time.Second

// Cache is an optional Redis-backed cache for the dashboard overview.
// A nil *Cache disables caching.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCache creates a dashboard cache. rdb may be nil, which returns a nil
// cache (all operations become no-ops).
func NewCache(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if rdb == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{rdb: rdb, ttl: ttl, logger: logger}
}

// Get returns the cached overview, if present and decodable. Cache failures
// are treated as misses.
func (c *Cache) Get(ctx context.Context) (*Stats, bool) {
	if c == nil {
		return nil, false
	}

	payload, err := c.rdb.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("dashboard cache read failed", "error", err)
		}
		return nil, false
	}

	var stats Stats
	if err := json.Unmarshal(payload, &stats); err != nil {
		c.logger.Warn("dashboard cache decode failed", "error", err)
		return nil, false
	}
	return &stats, true
}

// Set stores the overview. Failures are logged, never surfaced.
func (c *Cache) Set(ctx context.Context, stats *Stats) {
	if c == nil {
		return
	}

	payload, err := json.Marshal(stats)
	if err != nil {
		c.logger.Warn("dashboard cache encode failed", "error", err)
		return
	}
	if err := c.rdb.Set(ctx, cacheKey, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("dashboard cache write failed", "error", err)
	}
}
