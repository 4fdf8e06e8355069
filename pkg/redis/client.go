package redis

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wonny/ecfr-scorecard/pkg/config"
)

const pingTimeout = 3 * time.Second

// Client is the optional Redis connection shared by the API response cache
// and the eCFR fetch rate limiter.
// ⭐ SSOT: the single Redis connection of a process is opened here
type Client struct {
	rdb     *redis.Client
	enabled bool
	addr    string
}

// Options maps REDIS_* settings onto go-redis options
func Options(cfg config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:     net.JoinHostPort(cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// New connects when REDIS_ENABLED is set. Otherwise it returns a disabled client;
// cache lookups then miss and the rate limiter lets every request through.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	if !cfg.Redis.Enabled {
		return &Client{}, nil
	}

	opts := Options(cfg.Redis)
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	return &Client{rdb: rdb, enabled: true, addr: opts.Addr}, nil
}

// Close is a no-op on a disabled client
func (c *Client) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// Enabled reports whether a server is connected
func (c *Client) Enabled() bool {
	return c.enabled
}

// Addr is the connected host:port, empty when disabled
func (c *Client) Addr() string {
	return c.addr
}

// Redis exposes the go-redis handle for the cache and limiter scripts
func (c *Client) Redis() *redis.Client {
	return c.rdb
}
