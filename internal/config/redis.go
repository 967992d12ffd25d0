package config

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/docxpress/internal/logger"
)

// NewRedisClient creates a Redis client from cfg and pings it.
// Returns a ready-to-use client or an error; the caller decides whether a
// missing Redis is fatal.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	logger.Printf("NewRedisClient: addr=%s db=%d passwordSet=%v", cfg.Addr, cfg.DB, cfg.Password != "")

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Password: cfg.Password,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis at %s: %w", cfg.Addr, err)
	}

	logger.Printf("NewRedisClient: connected to Redis")
	return client, nil
}
