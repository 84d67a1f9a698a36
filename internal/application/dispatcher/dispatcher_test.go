package dispatcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/expense-requirement/internal/domain/event"
)

type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func (m *mockLogger) ErrorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

func newEvent(t event.Type) *event.Event {
	return event.NewEvent(t, "req-1", "u-1", nil, time.Now())
}

func TestDispatch_RunsHandlersInOrder(t *testing.T) {
	d := NewDispatcher()
	var order []string

	d.SubscribeNamed(event.TypeRequirementSubmitted, "first", func(ctx context.Context, evt *event.Event) error {
		order = append(order, "first")
		return nil
	})
	d.SubscribeNamed(event.TypeRequirementSubmitted, "second", func(ctx context.Context, evt *event.Event) error {
		order = append(order, "second")
		return nil
	})
	d.Subscribe(event.TypeRequirementRejected, func(ctx context.Context, evt *event.Event) error {
		order = append(order, "other")
		return nil
	})

	require.NoError(t, d.Dispatch(context.Background(), newEvent(event.TypeRequirementSubmitted)))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestDispatch_StopsAtFirstError(t *testing.T) {
	d := NewDispatcher(WithLogger(&mockLogger{}))
	boom := errors.New("boom")
	called := false

	d.SubscribeNamed(event.TypeRequirementApproved, "failing", func(ctx context.Context, evt *event.Event) error {
		return boom
	})
	d.SubscribeNamed(event.TypeRequirementApproved, "never", func(ctx context.Context, evt *event.Event) error {
		called = true
		return nil
	})

	err := d.Dispatch(context.Background(), newEvent(event.TypeRequirementApproved))
	assert.ErrorIs(t, err, boom)
	assert.False(t, called)
}

func TestDispatch_RecoversPanics(t *testing.T) {
	d := NewDispatcher()
	d.Subscribe(event.TypeRequirementClosed, func(ctx context.Context, evt *event.Event) error {
		panic("handler exploded")
	})

	err := d.Dispatch(context.Background(), newEvent(event.TypeRequirementClosed))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler exploded")
}

func TestDispatchAsync_CloseWaitsForHandlers(t *testing.T) {
	logger := &mockLogger{}
	d := NewDispatcher(WithLogger(logger))
	var count atomic.Int32

	for i := 0; i < 3; i++ {
		d.Subscribe(event.TypeRequirementCompleted, func(ctx context.Context, evt *event.Event) error {
			time.Sleep(10 * time.Millisecond)
			count.Add(1)
			return nil
		})
	}
	d.Subscribe(event.TypeRequirementCompleted, func(ctx context.Context, evt *event.Event) error {
		return errors.New("async failure")
	})

	d.DispatchAsync(context.Background(), newEvent(event.TypeRequirementCompleted))
	require.NoError(t, d.Close())

	assert.Equal(t, int32(3), count.Load())
	assert.Equal(t, 1, logger.ErrorCount())
}

func TestClose_RejectsFurtherDispatch(t *testing.T) {
	d := NewDispatcher()
	require.NoError(t, d.Close())

	assert.Error(t, d.Close())
	assert.Error(t, d.Dispatch(context.Background(), newEvent(event.TypeRequirementOpened)))
}

func TestClose_NoHandlerStartsAfterCloseReturns(t *testing.T) {
	for round := 0; round < 20; round++ {
		d := NewDispatcher()
		var (
			closeReturned atomic.Bool
			late          atomic.Int32
		)
		d.Subscribe(event.TypeRequirementApproved, func(ctx context.Context, evt *event.Event) error {
			if closeReturned.Load() {
				late.Add(1)
			}
			return nil
		})

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					d.DispatchAsync(context.Background(), newEvent(event.TypeRequirementApproved))
				}
			}()
		}

		require.NoError(t, d.Close())
		closeReturned.Store(true)
		wg.Wait()

		assert.Zero(t, late.Load(), "round %d", round)
	}
}
