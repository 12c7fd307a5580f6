package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"assent/internal/platform/config"
)

const pingTimeout = 5 * time.Second

// Client wraps go-redis so callers can health-check and close the pool
// without importing the driver themselves.
type Client struct {
	*redis.Client
}

// New dials Redis using the connection URL from the configuration and
// verifies the server answers before handing the pool out. An empty URL
// means Redis is not configured; that returns (nil, nil) so the caller
// can fall back to a cookie-only identity backend.
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
	opts.DialTimeout = cfg.DialTimeout()
	opts.ReadTimeout = cfg.ReadTimeout()
	opts.WriteTimeout = cfg.WriteTimeout()

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Client{Client: client}, nil
}

// Health reports whether the server still answers.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.Client.Close()
}
