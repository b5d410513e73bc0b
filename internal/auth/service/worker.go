package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/dide/internal/auth/notify"
	"github.com/aussiebroadwan/dide/pkg/slogx"
)

// EncryptionWorker keeps plaintext secrets short-lived. It handles change
// notifications as they arrive and runs a safety sweep on every
// (re)subscribe and on a fixed interval.
type EncryptionWorker struct {
	Secrets  *SecretService
	Channel  notify.Channel
	Logger   *slog.Logger
	Interval time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
	mu        sync.Mutex // guards cancel
	cancel    context.CancelFunc
	doneCh    chan struct{}
}

// NewEncryptionWorker creates a worker. If interval is 0 or negative,
// defaults to 1 hour.
func NewEncryptionWorker(secrets *SecretService, ch notify.Channel, logger *slog.Logger, interval time.Duration) *EncryptionWorker {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &EncryptionWorker{
		Secrets:  secrets,
		Channel:  ch,
		Logger:   logger,
		Interval: interval,
		doneCh:   make(chan struct{}),
	}
}

// Start launches the subscriber and the periodic sweep. It does not block;
// call Stop to shut down. Only the first call has any effect.
func (w *EncryptionWorker) Start() {
	w.startOnce.Do(w.start)
}

func (w *EncryptionWorker) start() {
	ctx, cancel := context.WithCancel(slogx.WithContext(context.Background(), w.Logger))
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	subDone := make(chan struct{})
	go func() {
		defer close(subDone)
		w.subscribe(ctx)
	}()

	go func() {
		defer close(w.doneCh)
		w.tick(ctx)
		<-subDone
	}()

	w.Logger.Info("encryption worker started", "interval", w.Interval)
}

// Stop cancels the worker and waits for any in-flight account to finish.
// It is a no-op before Start and after the first Stop. A Start after Stop
// does nothing.
func (w *EncryptionWorker) Stop() {
	w.startOnce.Do(func() {})

	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()
	if cancel == nil {
		return
	}

	w.stopOnce.Do(func() {
		cancel()
		<-w.doneCh
		w.Logger.Info("encryption worker stopped")
	})
}

func (w *EncryptionWorker) subscribe(ctx context.Context) {
	err := w.Channel.Subscribe(ctx, w.Secrets.HandleNotification, notify.OnConnect(w.sweep))
	if err != nil && ctx.Err() == nil {
		w.Logger.Error("notification subscriber exited", "error", err)
	}
}

func (w *EncryptionWorker) tick(ctx context.Context) {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (w *EncryptionWorker) sweep(ctx context.Context) {
	if _, err := w.Secrets.Sweep(ctx); err != nil {
		w.Logger.Warn("totp sweep finished with failures", "error", err)
	}
}
