package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// Options tunes the Redis lock.
type Options struct {
	// Expiry bounds how long a crashed holder can keep the lock. The lock is
	// not extended, so Expiry must be longer than any critical section;
	// config.Validate enforces this against the ledger write timeout.
	Expiry     time.Duration
	Tries      int
	RetryDelay time.Duration
}

func DefaultOptions() Options {
	return Options{
		Expiry:     10 * time.Second,
		Tries:      32,
		RetryDelay: 100 * time.Millisecond,
	}
}

// Redis is a Locker shared by every instance pointing at the same Redis,
// built on redsync.
type Redis struct {
	rs   *redsync.Redsync
	opts Options
}

func NewRedis(client redis.UniversalClient, opts Options) *Redis {
	if opts.Expiry <= 0 {
		opts.Expiry = DefaultOptions().Expiry
	}
	if opts.Tries <= 0 {
		opts.Tries = DefaultOptions().Tries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultOptions().RetryDelay
	}
	return &Redis{rs: redsync.New(goredis.NewPool(client)), opts: opts}
}

func (l *Redis) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	mutex := l.rs.NewMutex(
		key,
		redsync.WithExpiry(l.opts.Expiry),
		redsync.WithTries(l.opts.Tries),
		redsync.WithRetryDelay(l.opts.RetryDelay),
	)

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := mutex.LockContext(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s: %w", ErrNotAcquired, key, err)
	}

	defer func() {
		// Release even if the caller's context is already done.
		if ok, err := mutex.UnlockContext(context.WithoutCancel(ctx)); !ok || err != nil {
			slog.Error("failed to release lock", "lock_key", key, "unlock_ok", ok, "error", err)
		}
	}()

	return fn(ctx)
}
