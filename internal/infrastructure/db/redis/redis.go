package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultTimeout = 5 * time.Second
	// Login lockout runs on the request path; a slow Redis must not stall logins.
	defaultCommandTimeout = 500 * time.Millisecond
)

// Config captures the settings for the Redis connection backing the login
// limiter.
type Config struct {
	Addr     string
	Password string
	DB       int
	// PoolSize caps open connections. Zero keeps the go-redis default.
	PoolSize int
	// Timeout bounds the startup ping.
	Timeout time.Duration
	// CommandTimeout bounds every read and write after startup.
	CommandTimeout time.Duration
}

func (c Config) options() *redis.Options {
	cmd := c.CommandTimeout
	if cmd <= 0 {
		cmd = defaultCommandTimeout
	}
	return &redis.Options{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		ReadTimeout:  cmd,
		WriteTimeout: cmd,
	}
}

// Connect opens a client and pings it. The client is closed again when the
// ping fails, so callers only own it on success.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := redis.NewClient(cfg.options())

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	return client, nil
}
