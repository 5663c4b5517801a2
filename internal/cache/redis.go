// Package cache provides the Redis access layer and in-process fallbacks.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ClientName identifies gateway connections in CLIENT LIST.
const ClientName = "tpln-gateway"

// Cache holds the Redis client used for rate limiting and webhook deduplication.
type Cache struct {
	client *redis.Client
}

// New parses redisURL, connects and pings.
func New(ctx context.Context, redisURL string) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Request-path timeouts.
	opt.ClientName = ClientName
	opt.PoolSize = 10
	opt.PoolTimeout = time.Second
	opt.ReadTimeout = 500 * time.Millisecond
	opt.WriteTimeout = 500 * time.Millisecond

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return NewFromClient(client), nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Ping implements the readiness check.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client returns the underlying client.
func (c *Cache) Client() *redis.Client {
	return c.client
}
