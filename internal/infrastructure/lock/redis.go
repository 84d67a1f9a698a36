package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/expense-requirement/internal/application/port"
)

// ErrLockFailed is returned when the lock is still held after all retries
var ErrLockFailed = errors.New("failed to acquire distributed lock")

// releaseScript deletes the key only while it still holds our token, so a
// holder whose lease expired cannot release someone else's lock.
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// extendScript pushes the expiry forward only while the key holds our token.
var extendScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// RedisConfig tunes the distributed lock
type RedisConfig struct {
	Prefix string
	// TTL is the lease length. The holder renews it every TTL/3 until release,
	// so it only has to outlast a stalled holder's last renewal, but it must
	// still exceed the SQLite busy timeout plus one transaction.
	TTL           time.Duration
	RetryInterval time.Duration
	MaxRetries    int
}

// RedisLocker locks requirements across processes with SET NX PX
type RedisLocker struct {
	client redis.Cmdable
	cfg    RedisConfig
	logger *zap.Logger
}

// NewRedisLocker creates a distributed lock on client
func NewRedisLocker(client redis.Cmdable, cfg RedisConfig, logger *zap.Logger) *RedisLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "requirement:lock:"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 50 * time.Millisecond
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 100
	}
	return &RedisLocker{client: client, cfg: cfg, logger: logger}
}

// TryLock makes a single non-blocking attempt
func (l *RedisLocker) TryLock(ctx context.Context, key string) (func(), bool, error) {
	token := uuid.NewString()
	fullKey := l.cfg.Prefix + key

	ok, err := l.client.SetNX(ctx, fullKey, token, l.cfg.TTL).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis setnx %s: %w", fullKey, err)
	}
	if !ok {
		return nil, false, nil
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.renew(fullKey, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			l.release(fullKey, token)
		})
	}, true, nil
}

// renew keeps the lease alive until stop is closed or the lease is lost
func (l *RedisLocker) renew(fullKey, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	interval := l.cfg.TTL / 3
	if interval < time.Millisecond {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ttlMillis := l.cfg.TTL.Milliseconds()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), interval)
		n, err := extendScript.Run(ctx, l.client, []string{fullKey}, token, ttlMillis).Int64()
		cancel()
		if err != nil {
			// Transient; the next tick retries while the lease is still valid
			l.logger.Warn("Failed to renew requirement lock",
				zap.String("key", fullKey), zap.Error(err))
			continue
		}
		if n == 0 {
			l.logger.Error("Requirement lock lease lost before release",
				zap.String("key", fullKey))
			return
		}
	}
}

// release deletes the key if we still own it and logs anything unexpected
func (l *RedisLocker) release(fullKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := releaseScript.Run(ctx, l.client, []string{fullKey}, token).Int64()
	if err != nil {
		l.logger.Error("Failed to release requirement lock",
			zap.String("key", fullKey), zap.Error(err))
		return
	}
	if n == 0 {
		l.logger.Warn("Requirement lock already expired or taken over at release",
			zap.String("key", fullKey))
	}
}

// Lock retries TryLock until it succeeds, ctx is done or retries run out
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	for i := 0; i < l.cfg.MaxRetries; i++ {
		unlock, ok, err := l.TryLock(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			return unlock, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.cfg.RetryInterval):
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrLockFailed, key)
}

var _ port.Locker = (*RedisLocker)(nil)
