package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/LerianStudio/lib-payscore/payscore/backoff"
	"github.com/LerianStudio/lib-payscore/payscore/log"
	"github.com/LerianStudio/lib-payscore/payscore/opentelemetry"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// ErrNilClient is returned when a method is called on a nil *Client.
	ErrNilClient = errors.New("redis: nil client")
	// ErrInvalidConfig indicates a Config that cannot produce a connection.
	ErrInvalidConfig = errors.New("redis: invalid config")
)

const reconnectBackoffCap = 30 * time.Second

// Config describes how to reach Redis. More than one address selects cluster mode.
type Config struct {
	Addresses    []string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Logger       log.Logger
}

// String never exposes the password.
func (c Config) String() string {
	return fmt.Sprintf("redis.Config{Addresses:%s DB:%d Password:REDACTED}", strings.Join(c.Addresses, ","), c.DB)
}

// GoString never exposes the password.
func (c Config) GoString() string { return c.String() }

func (c Config) validate() error {
	if len(c.Addresses) == 0 {
		return fmt.Errorf("%w: at least one address is required", ErrInvalidConfig)
	}

	for _, addr := range c.Addresses {
		if strings.TrimSpace(addr) == "" {
			return fmt.Errorf("%w: empty address", ErrInvalidConfig)
		}
	}

	if c.DB != 0 && len(c.Addresses) > 1 {
		return fmt.Errorf("%w: cluster mode supports only DB 0", ErrInvalidConfig)
	}

	return nil
}

// Client owns a lazily (re)connected redis.UniversalClient.
type Client struct {
	mu     sync.RWMutex
	cfg    Config
	logger log.Logger
	client redis.UniversalClient

	lastAttempt time.Time
	attempts    int
}

// New validates cfg and connects.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	c := &Client{cfg: cfg, logger: log.OrNop(cfg.Logger)}

	if err := c.Connect(ctx); err != nil {
		return nil, err
	}

	return c, nil
}

// Connect dials Redis and verifies the connection, replacing any existing one.
func (c *Client) Connect(ctx context.Context) error {
	if c == nil {
		return ErrNilClient
	}

	ctx, span := opentelemetry.Tracer(nil).Start(ctx, "redis.connect")
	defer span.End()

	span.SetAttributes(attribute.String("db.system", "redis"))

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connectLocked(ctx); err != nil {
		opentelemetry.HandleSpanError(span, "failed to connect to redis", err)

		return err
	}

	return nil
}

// GetClient returns the live client, reconnecting if needed. Repeated
// reconnect failures are rate limited with exponential backoff.
//
//nolint:ireturn
func (c *Client) GetClient(ctx context.Context) (redis.UniversalClient, error) {
	if c == nil {
		return nil, ErrNilClient
	}

	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	if client != nil {
		return client, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	if c.attempts > 0 {
		delay := min(backoff.Exponential(500*time.Millisecond, c.attempts), reconnectBackoffCap)
		if elapsed := time.Since(c.lastAttempt); elapsed < delay {
			return nil, fmt.Errorf("redis reconnect: rate-limited (next attempt in %s)", delay-elapsed)
		}
	}

	c.lastAttempt = time.Now()

	if err := c.connectLocked(ctx); err != nil {
		c.attempts++

		return nil, err
	}

	c.attempts = 0

	return c.client, nil
}

// Close closes the underlying connection. The next GetClient reconnects.
func (c *Client) Close() error {
	if c == nil {
		return ErrNilClient
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil
	}

	err := c.client.Close()
	c.client = nil

	return err
}

// IsConnected reports whether a live connection is held.
func (c *Client) IsConnected() bool {
	if c == nil {
		return false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.client != nil
}

func (c *Client) connectLocked(ctx context.Context) error {
	if c.client != nil {
		if err := c.client.Close(); err != nil {
			c.logger.Log(ctx, log.LevelWarn, "close before connect failed", log.Err(err))
		}

		c.client = nil
	}

	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        c.cfg.Addresses,
		Password:     c.cfg.Password,
		DB:           c.cfg.DB,
		PoolSize:     c.cfg.PoolSize,
		DialTimeout:  c.cfg.DialTimeout,
		ReadTimeout:  c.cfg.ReadTimeout,
		WriteTimeout: c.cfg.WriteTimeout,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()

		c.logger.Log(ctx, log.LevelError, "redis ping failed", log.Err(err))

		return fmt.Errorf("redis connect: ping: %w", err)
	}

	c.client = rdb

	c.logger.Log(ctx, log.LevelInfo, "connected to redis", log.Int("addresses", len(c.cfg.Addresses)))

	return nil
}
