package forex

import (
	"context"
	"fmt"
	"time"

	"invoicer/internal/domain"
	"invoicer/pkg/logger"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// RateCache stores pair rates with an expiry. Caching is a performance
// optimization, not a correctness requirement: implementations must fold
// backing-store failures into misses on the read path and swallow them on
// the write path.
type RateCache interface {
	Get(ctx context.Context, from, to domain.Currency) (decimal.Decimal, bool)
	Set(ctx context.Context, from, to domain.Currency, rate decimal.Decimal, ttl time.Duration)
}

// RedisRateCache keeps rates as decimal text under expiring string keys.
type RedisRateCache struct {
	client *redis.Client
	logger logger.Logger
}

func NewRedisRateCache(client *redis.Client, log logger.Logger) *RedisRateCache {
	return &RedisRateCache{client: client, logger: log}
}

func cacheKey(from, to domain.Currency) string {
	return fmt.Sprintf("exchange_rate:%s:%s", from, to)
}

// Get reports a miss when the key is absent or expired, when the stored
// value is not a positive decimal, and when redis itself is unreachable.
func (c *RedisRateCache) Get(ctx context.Context, from, to domain.Currency) (decimal.Decimal, bool) {
	key := cacheKey(from, to)

	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return decimal.Zero, false
	}
	if err != nil {
		c.logger.Warn("Rate cache unavailable, treating as miss", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return decimal.Zero, false
	}

	rate, err := decimal.NewFromString(val)
	if err != nil || rate.Sign() <= 0 {
		c.logger.Warn("Discarding corrupt cached rate", map[string]interface{}{
			"key":   key,
			"value": val,
		})
		return decimal.Zero, false
	}

	return rate, true
}

// Set writes the rate best-effort; failures are logged and swallowed.
func (c *RedisRateCache) Set(ctx context.Context, from, to domain.Currency, rate decimal.Decimal, ttl time.Duration) {
	key := cacheKey(from, to)

	if err := c.client.Set(ctx, key, rate.String(), ttl).Err(); err != nil {
		c.logger.Error("Failed to cache exchange rate", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}
