package ratelimit

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/rupeeback/verify/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module wires the optional redis-backed limiter and locker. When
// REDIS_ADDR is unset the providers return nil and everything above
// them degrades to pass-through.
var Module = fx.Module("ratelimit",
	fx.Provide(NewRedisClient),
	fx.Provide(NewTokenBucket),
	fx.Provide(NewLocker),
	fx.Provide(func(bucket *TokenBucket, cfg config.Config, log *zap.Logger) *UploadLimiter {
		return NewUploadLimiter(bucket, cfg.UploadRatePerMinute, cfg.UploadBurst, log)
	}),
)

func NewRedisClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		log.Info("redis not configured, rate limiting disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("redis unreachable at startup", zap.Error(err))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client
}
