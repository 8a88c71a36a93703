package bus_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinkertool/tinker/internal/bus"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func newTestBus(t *testing.T, bufferSize int) *bus.Bus[string] {
	logger := zaptest.NewLogger(t)
	return bus.New[string](logger, bufferSize)
}

func TestBus_PublishWithoutSubscribers(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := newTestBus(t, 8)
	defer b.Close()

	// Broadcasting into the void must succeed silently.
	n := b.Publish("nobody home")
	assert.Equal(t, 0, n)
}

func TestBus_DeliveryOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := newTestBus(t, 8)
	defer b.Close()

	sub := b.Subscribe()
	defer sub.Close()

	for i := 0; i < 5; i++ {
		b.Publish(fmt.Sprintf("msg-%d", i))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 5; i++ {
		msg, err := sub.Recv(ctx)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("msg-%d", i), msg)
	}
}

func TestBus_FanOut(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := newTestBus(t, 8)
	defer b.Close()

	subA := b.Subscribe()
	defer subA.Close()
	subB := b.Subscribe()
	defer subB.Close()

	require.Equal(t, 2, b.SubscriberCount())
	b.Publish("shared")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for _, sub := range []*bus.Subscription[string]{subA, subB} {
		msg, err := sub.Recv(ctx)
		require.NoError(t, err)
		assert.Equal(t, "shared", msg)
	}
}

func TestBus_SlowSubscriberLags(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := newTestBus(t, 4)
	defer b.Close()

	sub := b.Subscribe()
	defer sub.Close()

	// 7 publishes into a capacity-4 ring: the oldest 3 get dropped.
	for i := 0; i < 7; i++ {
		b.Publish(fmt.Sprintf("msg-%d", i))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := sub.Recv(ctx)
	var lagged *bus.LaggedError
	require.ErrorAs(t, err, &lagged)
	assert.Equal(t, uint64(3), lagged.Skipped)

	// After the lag signal, the oldest retained message is next.
	msg, err := sub.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, "msg-3", msg)

	// The remaining buffered messages follow in order with no further lag.
	for i := 4; i < 7; i++ {
		msg, err := sub.Recv(ctx)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("msg-%d", i), msg)
	}
}

func TestBus_LagReportedOncePerGap(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := newTestBus(t, 2)
	defer b.Close()

	sub := b.Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 3; i++ {
		b.Publish(fmt.Sprintf("first-%d", i))
	}
	_, err := sub.Recv(ctx)
	var lagged *bus.LaggedError
	require.ErrorAs(t, err, &lagged)
	assert.Equal(t, uint64(1), lagged.Skipped)

	// Drain, then lag again; the counter must restart from zero.
	for i := 0; i < 2; i++ {
		_, err := sub.Recv(ctx)
		require.NoError(t, err)
	}
	for i := 0; i < 4; i++ {
		b.Publish(fmt.Sprintf("second-%d", i))
	}
	_, err = sub.Recv(ctx)
	require.ErrorAs(t, err, &lagged)
	assert.Equal(t, uint64(2), lagged.Skipped)
}

func TestBus_RecvHonorsContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := newTestBus(t, 8)
	defer b.Close()

	sub := b.Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := sub.Recv(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBus_CloseDrainsThenErrs(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := newTestBus(t, 8)
	sub := b.Subscribe()
	defer sub.Close()

	b.Publish("last words")
	b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	msg, err := sub.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, "last words", msg)

	_, err = sub.Recv(ctx)
	assert.ErrorIs(t, err, bus.ErrClosed)
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := newTestBus(t, 8)
	defer b.Close()

	sub := b.Subscribe()
	sub.Close()

	n := b.Publish("unheard")
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestBus_TryRecv(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := newTestBus(t, 8)
	defer b.Close()

	sub := b.Subscribe()
	defer sub.Close()

	_, ok, _ := sub.TryRecv()
	assert.False(t, ok)

	b.Publish("ready")
	msg, ok, err := sub.TryRecv()
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, "ready", msg)
}

func TestBus_ConcurrentPublish(t *testing.T) {
	defer goleak.VerifyNone(t)

	const (
		producers   = 8
		perProducer = 50
	)

	b := newTestBus(t, producers*perProducer)
	defer b.Close()

	sub := b.Subscribe()
	defer sub.Close()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				b.Publish(fmt.Sprintf("p%d-%d", p, i))
			}
		}(p)
	}
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	received := 0
	for received < producers*perProducer {
		_, err := sub.Recv(ctx)
		if errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("timed out after %d messages", received)
		}
		require.NoError(t, err)
		received++
	}
	assert.Equal(t, producers*perProducer, received)
}
