package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// newBackOff is swapped in tests to keep reconnects fast.
var newBackOff = func() backoff.BackOff {
	return backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(500*time.Millisecond),
		backoff.WithMaxInterval(10*time.Second),
		backoff.WithMaxElapsedTime(0),
	)
}

// session runs one subscription until it fails. It calls ready once the
// subscription is live.
type session func(ctx context.Context, ready func()) error

// runWithReconnect keeps a session alive until ctx is done, backing off
// between failed attempts and resetting once a session becomes ready.
func runWithReconnect(ctx context.Context, logger *slog.Logger, transport string, cfg subscribeConfig, run session) error {
	b := newBackOff()

	for {
		err := run(ctx, func() {
			b.Reset()
			logger.Info("notification channel subscribed", "transport", transport)
			if cfg.onConnect != nil {
				cfg.onConnect(ctx)
			}
		})
		if ctx.Err() != nil {
			return nil
		}

		wait := b.NextBackOff()
		reconnects.WithLabelValues(transport).Inc()
		logger.Warn("notification channel dropped, reconnecting",
			"transport", transport,
			"error", err,
			"retry_in", wait,
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func deliver(ctx context.Context, logger *slog.Logger, transport string, h Handler, accountID int64) {
	err := h(ctx, accountID)
	delivered.WithLabelValues(transport, resultLabel(err)).Inc()
	if err != nil {
		logger.Error("notification handler failed",
			"transport", transport,
			"account_id", accountID,
			"error", err,
		)
	}
}
