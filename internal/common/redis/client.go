package redis

import (
	"context"

	"eldercare-survey/internal/common/config"

	"github.com/go-redis/redis/v8"
)

// Client alias so callers need not import go-redis directly.
type Client = redis.Client

func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}

func Close(client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
