package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	errx "github.com/zenai/agentcore/internal/core/error"
	logx "github.com/zenai/agentcore/pkg/logger"
)

// RedisCache stores values as plain Redis strings.
type RedisCache struct {
	rdb redis.Cmdable
}

func NewRedisCache(rdb redis.Cmdable) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		logx.Ctx(ctx).Error().Err(err).Str("key", key).Msg("failed to read from redis")
		return nil, false, errx.WrapRedis(err)
	}
	return b, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := c.rdb.Set(ctx, key, val, ttl).Err(); err != nil {
		logx.Ctx(ctx).Error().Err(err).Str("key", key).Msg("failed to write to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		logx.Ctx(ctx).Error().Err(err).Str("key", key).Msg("failed to delete from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return errx.WrapRedis(c.rdb.Ping(ctx).Err())
}

var _ Cache = (*RedisCache)(nil)
