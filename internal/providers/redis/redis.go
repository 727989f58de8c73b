package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RedisProvider struct {
	Client *redis.Client
	URL    string
	logger *zap.SugaredLogger
	ttl    time.Duration
}

func NewRedisProvider(redisURL string, logger *zap.Logger, ttl time.Duration) *RedisProvider {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		opts = &redis.Options{
			Addr: redisURL,
			DB:   0,
		}
	}

	client := redis.NewClient(opts)

	client.Options().MaxRetries = 3
	client.Options().MinRetryBackoff = 100 * time.Millisecond
	client.Options().MaxRetryBackoff = 500 * time.Millisecond

	provider := &RedisProvider{
		Client: client,
		URL:    redisURL,
		logger: logger.Sugar(),
		ttl:    ttl,
	}

	if err := client.Ping(context.Background()).Err(); err != nil {
		provider.logger.Errorw("Redis connection failed at startup", "error", err)
	} else {
		provider.logger.Infow("Redis connected",
			"url", redisURL,
			"db", opts.DB,
			"default_ttl", ttl.String(),
		)
	}

	return provider
}

// SetEX stores a value with the given TTL; a non-positive TTL falls
// back to the provider default.
func (r *RedisProvider) SetEX(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	if ttl <= 0 {
		ttl = r.ttl
	}
	return r.Client.Set(ctx, key, value, ttl)
}

func (r *RedisProvider) Get(ctx context.Context, key string) *redis.StringCmd {
	return r.Client.Get(ctx, key)
}

func (r *RedisProvider) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	return r.Client.Del(ctx, keys...)
}

func (r *RedisProvider) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	return r.Client.Exists(ctx, keys...)
}
