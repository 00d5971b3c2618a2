package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"rosterboard/internal/platform/config"
)

// Client wraps the go-redis client so callers depend on this package
// instead of the driver directly.
type Client struct {
	*redis.Client
}

// New connects a Redis client from configuration, verifying the
// connection with a ping. An empty URL returns nil: Redis is optional and
// the directory cache falls back to process memory.
func New(cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{Client: client}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.Client.Close()
}
