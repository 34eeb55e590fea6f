package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/LerianStudio/lib-payscore/payscore/log"
	"github.com/LerianStudio/lib-payscore/payscore/opentelemetry"
	"github.com/go-redsync/redsync/v4"
	redsyncredis "github.com/go-redsync/redsync/v4/redis"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
)

const (
	maxLockTries  = 1000
	unlockTimeout = 5 * time.Second
)

var (
	// ErrEmptyLockKey is returned when an empty lock key is provided.
	ErrEmptyLockKey = errors.New("lock key cannot be empty")
	// ErrNilLockFn is returned when a nil function is passed to WithLock.
	ErrNilLockFn = errors.New("lock function is nil")
	// ErrInvalidLockOptions is returned for non-positive expiry, tries outside
	// [1, 1000], a negative retry delay or a drift factor outside [0, 1).
	ErrInvalidLockOptions = errors.New("invalid lock options")
)

// LockOptions configures how a lock is acquired.
type LockOptions struct {
	Expiry      time.Duration
	Tries       int
	RetryDelay  time.Duration
	DriftFactor float64
}

// DefaultLockOptions suits operations that finish within a few seconds, such
// as downloading the platform certificate list.
func DefaultLockOptions() LockOptions {
	return LockOptions{
		Expiry:      10 * time.Second,
		Tries:       3,
		RetryDelay:  500 * time.Millisecond,
		DriftFactor: 0.01,
	}
}

func (o LockOptions) validate() error {
	switch {
	case o.Expiry <= 0:
		return fmt.Errorf("%w: expiry must be positive", ErrInvalidLockOptions)
	case o.Tries < 1 || o.Tries > maxLockTries:
		return fmt.Errorf("%w: tries must be between 1 and %d", ErrInvalidLockOptions, maxLockTries)
	case o.RetryDelay < 0:
		return fmt.Errorf("%w: retry delay is negative", ErrInvalidLockOptions)
	case o.DriftFactor < 0 || o.DriftFactor >= 1:
		return fmt.Errorf("%w: drift factor must be in [0, 1)", ErrInvalidLockOptions)
	}

	return nil
}

// clientPool resolves the current client on every Get so the pool survives
// reconnects.
type clientPool struct {
	conn *Client
}

func (p *clientPool) Get(ctx context.Context) (redsyncredis.Conn, error) {
	rdb, err := p.conn.GetClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("redis client for lock pool: %w", err)
	}

	return goredis.NewPool(rdb).Get(ctx)
}

// LockManager provides RedLock mutual exclusion across service instances.
type LockManager struct {
	redsync *redsync.Redsync
	opts    LockOptions
	logger  log.Logger
}

// NewLockManager returns a LockManager using opts for every lock. Zero opts
// means DefaultLockOptions.
func NewLockManager(conn *Client, opts LockOptions) (*LockManager, error) {
	if conn == nil {
		return nil, ErrNilClient
	}

	if opts == (LockOptions{}) {
		opts = DefaultLockOptions()
	}

	if err := opts.validate(); err != nil {
		return nil, err
	}

	return &LockManager{
		redsync: redsync.New(&clientPool{conn: conn}),
		opts:    opts,
		logger:  conn.logger,
	}, nil
}

// WithLock runs fn while holding lockKey. The lock is released when fn
// returns, including on panic.
func (l *LockManager) WithLock(ctx context.Context, lockKey string, fn func(context.Context) error) error {
	if fn == nil {
		return ErrNilLockFn
	}

	if strings.TrimSpace(lockKey) == "" {
		return ErrEmptyLockKey
	}

	safeKey := safeLockKeyForLogs(lockKey)

	ctx, span := opentelemetry.Tracer(nil).Start(ctx, "redis.lock.with_lock")
	defer span.End()

	mutex := l.redsync.NewMutex(
		lockKey,
		redsync.WithExpiry(l.opts.Expiry),
		redsync.WithTries(l.opts.Tries),
		redsync.WithRetryDelay(l.opts.RetryDelay),
		redsync.WithDriftFactor(l.opts.DriftFactor),
	)

	if err := mutex.LockContext(ctx); err != nil {
		opentelemetry.HandleSpanError(span, "failed to acquire lock", err)
		l.logger.Log(ctx, log.LevelWarn, "failed to acquire lock", log.String("lock_key", safeKey), log.Err(err))

		return fmt.Errorf("acquire lock %s: %w", safeKey, err)
	}

	defer func() {
		// Release even when the caller's ctx is already cancelled.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), unlockTimeout)
		defer cancel()

		if ok, err := mutex.UnlockContext(releaseCtx); !ok || err != nil {
			l.logger.Log(ctx, log.LevelWarn, "failed to release lock",
				log.String("lock_key", safeKey), log.Bool("unlock_ok", ok), log.Err(err))
		}
	}()

	if err := fn(ctx); err != nil {
		opentelemetry.HandleSpanError(span, "function failed under lock", err)

		return err
	}

	return nil
}

func safeLockKeyForLogs(lockKey string) string {
	const maxLen = 128

	quoted := strconv.QuoteToASCII(lockKey)
	if len(quoted) <= maxLen {
		return quoted
	}

	return quoted[:maxLen] + "...(truncated)"
}
