package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Memory is an in-process channel for single-node deployments. Each
// notification reaches exactly one subscriber.
type Memory struct {
	logger *slog.Logger
	ch     chan int64

	closeOnce sync.Once
	closed    chan struct{}
}

// NewMemory returns a channel buffering up to size pending notifications.
func NewMemory(size int, logger *slog.Logger) *Memory {
	if size <= 0 {
		size = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Memory{
		logger: logger,
		ch:     make(chan int64, size),
		closed: make(chan struct{}),
	}
}

func (m *Memory) Publish(ctx context.Context, accountID int64) error {
	select {
	case <-m.closed:
		return ErrClosed
	default:
	}

	select {
	case m.ch <- accountID:
		published.WithLabelValues("memory", "ok").Inc()
		return nil
	default:
		published.WithLabelValues("memory", "full").Inc()
		return ErrChannelFull
	}
}

func (m *Memory) Subscribe(ctx context.Context, h Handler, opts ...SubscribeOption) error {
	cfg := applyOptions(opts)
	if cfg.onConnect != nil {
		cfg.onConnect(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-m.closed:
			return nil
		case id := <-m.ch:
			deliver(ctx, m.logger, "memory", h, id)
		}
	}
}

func (m *Memory) Ping(context.Context) error {
	select {
	case <-m.closed:
		return ErrClosed
	default:
		return nil
	}
}

func (m *Memory) Close() error {
	m.closeOnce.Do(func() { close(m.closed) })
	return nil
}
