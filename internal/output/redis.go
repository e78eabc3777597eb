package output

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/chrisdamba/slawatch/internal/models"
)

// RedisClient is the subset of *redis.Client the sink uses.
type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// RedisOutput keeps the latest update per topic under "<prefix>:<topic>"
// and announces it on a channel of the same name.
type RedisOutput struct {
	ctx    context.Context
	client RedisClient
	prefix string
}

func NewRedisOutput(ctx context.Context, cfg models.RedisConfig) (*RedisOutput, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("could not connect to redis at %s: %w", cfg.Addr, err)
	}
	return NewRedisOutputWithClient(ctx, client, cfg.KeyPrefix), nil
}

func NewRedisOutputWithClient(ctx context.Context, client RedisClient, prefix string) *RedisOutput {
	return &RedisOutput{ctx: ctx, client: client, prefix: prefix}
}

func (r *RedisOutput) Key(topic string) string {
	if r.prefix == "" {
		return topic
	}
	return r.prefix + ":" + topic
}

func (r *RedisOutput) WriteMessage(topic string, msg []byte) error {
	key := r.Key(topic)
	if err := r.client.Set(r.ctx, key, msg, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	if err := r.client.Publish(r.ctx, key, msg).Err(); err != nil {
		return fmt.Errorf("failed to publish %s: %w", key, err)
	}
	return nil
}

func (r *RedisOutput) Close() error {
	return r.client.Close()
}
