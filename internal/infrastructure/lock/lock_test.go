package lock

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"

	"github.com/garyjia/expense-requirement/internal/application/port"
)

func exerciseMutualExclusion(t *testing.T, locker port.Locker) {
	t.Helper()

	var (
		inside  int32
		maxSeen int32
		total   int32
	)
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 20; i++ {
		g.Go(func() error {
			unlock, err := locker.Lock(ctx, "req-1")
			if err != nil {
				return err
			}
			defer unlock()

			n := atomic.AddInt32(&inside, 1)
			for {
				seen := atomic.LoadInt32(&maxSeen)
				if n <= seen || atomic.CompareAndSwapInt32(&maxSeen, seen, n) {
					break
				}
			}
			atomic.AddInt32(&total, 1)
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), maxSeen)
	assert.Equal(t, int32(20), total)
}

func TestLocalLocker_MutualExclusion(t *testing.T) {
	exerciseMutualExclusion(t, NewLocalLocker())
}

func TestLocalLocker_IndependentKeys(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	unlockA, err := l.Lock(ctx, "a")
	require.NoError(t, err)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB, err := l.Lock(ctx, "b")
		if err == nil {
			unlockB()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked behind a")
	}
}

func TestLocalLocker_ContextCancel(t *testing.T) {
	l := NewLocalLocker()
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()

	again, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	again()

	l.mu.Lock()
	assert.Empty(t, l.slots)
	l.mu.Unlock()
}

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisLocker_MutualExclusion(t *testing.T) {
	client := newRedisClient(t)
	locker := NewRedisLocker(client, RedisConfig{Prefix: "test:" + t.Name() + ":", RetryInterval: 2 * time.Millisecond, MaxRetries: 2000}, nil)
	exerciseMutualExclusion(t, locker)
}

func TestRedisLocker_TryLockAndRelease(t *testing.T) {
	client := newRedisClient(t)
	locker := NewRedisLocker(client, RedisConfig{Prefix: "test:" + t.Name() + ":", TTL: time.Second}, nil)
	ctx := context.Background()

	unlock, ok, err := locker.TryLock(ctx, "r")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryLock(ctx, "r")
	require.NoError(t, err)
	assert.False(t, ok)

	unlock()
	unlock2, ok, err := locker.TryLock(ctx, "r")
	require.NoError(t, err)
	assert.True(t, ok)
	unlock2()
}

func TestRedisLocker_ReleaseKeepsForeignLock(t *testing.T) {
	client := newRedisClient(t)
	prefix := "test:" + t.Name() + ":"
	core, logs := observer.New(zap.WarnLevel)
	locker := NewRedisLocker(client, RedisConfig{Prefix: prefix, TTL: time.Second}, zap.New(core))
	ctx := context.Background()

	stale, ok, err := locker.TryLock(ctx, "r")
	require.NoError(t, err)
	require.True(t, ok)

	// Another holder took the key over after our lease was lost
	require.NoError(t, client.Set(ctx, prefix+"r", "someone-else", time.Minute).Err())
	t.Cleanup(func() { client.Del(context.Background(), prefix+"r") })

	stale()
	val, err := client.Get(ctx, prefix+"r").Result()
	require.NoError(t, err)
	assert.Equal(t, "someone-else", val)
	assert.Equal(t, 1, logs.FilterMessage("Requirement lock already expired or taken over at release").Len())
}

func TestRedisLocker_RenewsLeaseWhileHeld(t *testing.T) {
	client := newRedisClient(t)
	locker := NewRedisLocker(client, RedisConfig{Prefix: "test:" + t.Name() + ":", TTL: 60 * time.Millisecond}, nil)
	ctx := context.Background()

	unlock, ok, err := locker.TryLock(ctx, "r")
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(250 * time.Millisecond)
	_, ok, err = locker.TryLock(ctx, "r")
	require.NoError(t, err)
	assert.False(t, ok, "lease should still be held after several TTLs")

	unlock()
	unlock()
	again, ok, err := locker.TryLock(ctx, "r")
	require.NoError(t, err)
	assert.True(t, ok)
	again()
}

func TestRedisLocker_LogsReleaseFailure(t *testing.T) {
	newRedisClient(t)
	client := redis.NewClient(&redis.Options{Addr: os.Getenv("REDIS_ADDR")})
	prefix := "test:" + t.Name() + ":"
	core, logs := observer.New(zap.WarnLevel)
	locker := NewRedisLocker(client, RedisConfig{Prefix: prefix, TTL: time.Second}, zap.New(core))

	unlock, ok, err := locker.TryLock(context.Background(), "r")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, client.Close())
	unlock()

	entries := logs.FilterMessage("Failed to release requirement lock").All()
	require.Len(t, entries, 1)
	assert.Equal(t, prefix+"r", entries[0].ContextMap()["key"])
}
