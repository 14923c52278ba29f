package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/swipe4care/opportunity-feed/internal/config"
)

// AcceptedCountTTL bounds how long a cached accepted count may serve reads
// before falling back to the ledger.
const AcceptedCountTTL = time.Hour

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

// KeyForAcceptedCount generates the Redis key for a user's accepted count.
func (c *RedisCache) KeyForAcceptedCount(userID string) string {
	return fmt.Sprintf("accepted:count:%s", userID)
}

// GetAcceptedCount reads the cached accepted count. The second return is
// false on a cache miss.
func (c *RedisCache) GetAcceptedCount(ctx context.Context, userID string) (int64, bool, error) {
	key := c.KeyForAcceptedCount(userID)
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil // cache miss
	} else if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil // treat garbage as a miss
	}
	// refresh TTL on access
	_ = c.Client.Expire(ctx, key, AcceptedCountTTL).Err()
	return n, true, nil
}

// SetAcceptedCount stores the accepted count with the standard TTL.
func (c *RedisCache) SetAcceptedCount(ctx context.Context, userID string, count int64) error {
	return c.Client.Set(ctx, c.KeyForAcceptedCount(userID), count, AcceptedCountTTL).Err()
}

// InvalidateAcceptedCount drops the cached count. Called on every ledger
// write for the user; the decision is last-write-wins, so the count can only
// be recomputed from the table.
func (c *RedisCache) InvalidateAcceptedCount(ctx context.Context, userID string) error {
	return c.Client.Del(ctx, c.KeyForAcceptedCount(userID)).Err()
}
