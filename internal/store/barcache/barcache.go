// Package barcache caches daily-bar history in Redis so repeated runs within
// the same session skip refetching from the rate-limited data provider.
//
// The cache is best-effort observability-free plumbing: a miss or a Redis
// failure falls through to the provider, never failing the symbol.
package barcache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"fractional-trader/internal/model"
)

// DefaultTTL keeps cached history for one trading session.
const DefaultTTL = 12 * time.Hour

// Cache wraps a Redis client for PriceSeries storage.
type Cache struct {
	rdb *goredis.Client
	ttl time.Duration
	log *slog.Logger
}

// New connects to Redis and verifies the connection with a ping.
func New(ctx context.Context, addr, password string, log *slog.Logger) (*Cache, error) {
	if log == nil {
		log = slog.Default()
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Cache{rdb: rdb, ttl: DefaultTTL, log: log}, nil
}

func key(symbol string, lookbackDays int) string {
	return fmt.Sprintf("bars:%s:%d", symbol, lookbackDays)
}

// Get returns the cached series for a symbol, or false on miss or error.
func (c *Cache) Get(ctx context.Context, symbol string, lookbackDays int) (model.PriceSeries, bool) {
	raw, err := c.rdb.Get(ctx, key(symbol, lookbackDays)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.log.Warn("bar cache read failed", slog.String("symbol", symbol), slog.String("error", err.Error()))
		}
		return nil, false
	}
	var series model.PriceSeries
	if err := json.Unmarshal(raw, &series); err != nil {
		c.log.Warn("bar cache corrupt entry", slog.String("symbol", symbol), slog.String("error", err.Error()))
		return nil, false
	}
	return series, true
}

// Put stores a series with the cache TTL. Errors are logged and swallowed.
func (c *Cache) Put(ctx context.Context, symbol string, lookbackDays int, series model.PriceSeries) {
	raw, err := json.Marshal(series)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key(symbol, lookbackDays), raw, c.ttl).Err(); err != nil {
		c.log.Warn("bar cache write failed", slog.String("symbol", symbol), slog.String("error", err.Error()))
	}
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	return c.rdb.Close()
}
