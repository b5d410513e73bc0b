package notify_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/dide/internal/auth/notify"
	"github.com/stretchr/testify/require"
)

// collector records delivered ids and signals each one on got.
type collector struct {
	mu  sync.Mutex
	ids []int64
	got chan int64
}

func newCollector() *collector {
	return &collector{got: make(chan int64, 64)}
}

func (c *collector) handle(ctx context.Context, id int64) error {
	c.mu.Lock()
	c.ids = append(c.ids, id)
	c.mu.Unlock()
	c.got <- id
	return nil
}

func (c *collector) wait(t *testing.T, want int64) {
	t.Helper()
	select {
	case id := <-c.got:
		require.Equal(t, want, id)
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for notification %d", want)
	}
}

func TestMemoryPublishSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := notify.NewMemory(8, nil)
	c := newCollector()

	connected := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- ch.Subscribe(ctx, c.handle, notify.OnConnect(func(context.Context) {
			connected <- struct{}{}
		}))
	}()
	<-connected

	require.NoError(t, ch.Publish(ctx, 7))
	require.NoError(t, ch.Publish(ctx, 8))
	c.wait(t, 7)
	c.wait(t, 8)

	cancel()
	require.NoError(t, <-done)
}

func TestMemoryPublishDoesNotBlock(t *testing.T) {
	ch := notify.NewMemory(1, nil)
	ctx := context.Background()

	require.NoError(t, ch.Publish(ctx, 1))
	require.ErrorIs(t, ch.Publish(ctx, 2), notify.ErrChannelFull)
}

func TestMemoryHandlerErrorDoesNotStopDelivery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := notify.NewMemory(8, nil)
	got := make(chan int64, 2)
	go func() {
		_ = ch.Subscribe(ctx, func(_ context.Context, id int64) error {
			got <- id
			return errors.New("boom")
		})
	}()

	require.NoError(t, ch.Publish(ctx, 1))
	require.NoError(t, ch.Publish(ctx, 2))

	for _, want := range []int64{1, 2} {
		select {
		case id := <-got:
			require.Equal(t, want, id)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out")
		}
	}
}

func TestMemoryClose(t *testing.T) {
	ch := notify.NewMemory(1, nil)

	done := make(chan error, 1)
	go func() {
		done <- ch.Subscribe(context.Background(), func(context.Context, int64) error { return nil })
	}()

	require.NoError(t, ch.Ping(context.Background()))
	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close(), "close is idempotent")
	require.ErrorIs(t, ch.Ping(context.Background()), notify.ErrClosed)
	require.ErrorIs(t, ch.Publish(context.Background(), 1), notify.ErrClosed)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("subscribe did not return after close")
	}
}
