// Package notify carries "this account's TOTP secret changed" signals from
// the write path to the encryption worker.
//
// Delivery is at-least-once when paired with a reconnect sweep: a subscriber
// may miss messages while disconnected, so every transport invokes the
// OnConnect hook after each successful (re)subscribe and the caller uses it
// to rescan for plaintext secrets. Handlers must be idempotent.
package notify

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultTopic is the channel name used when none is configured.
const DefaultTopic = "totp_encrypt"

var (
	ErrChannelFull = errors.New("notify: channel buffer full")
	ErrClosed      = errors.New("notify: channel closed")
)

// Handler processes one notification. Returned errors are logged and do not
// stop delivery.
type Handler func(ctx context.Context, accountID int64) error

// Channel is a pub/sub pipe of account ids.
type Channel interface {
	// Publish announces that accountID changed. It must not block on
	// delivery to subscribers.
	Publish(ctx context.Context, accountID int64) error

	// Subscribe delivers notifications to h until ctx is cancelled or the
	// channel is closed. It blocks; run it on its own goroutine.
	Subscribe(ctx context.Context, h Handler, opts ...SubscribeOption) error

	// Ping reports whether the transport can currently publish.
	Ping(ctx context.Context) error

	Close() error
}

type subscribeConfig struct {
	onConnect func(ctx context.Context)
}

type SubscribeOption func(*subscribeConfig)

// OnConnect registers fn to run after every successful (re)subscribe, before
// any notification from that session is handled.
func OnConnect(fn func(ctx context.Context)) SubscribeOption {
	return func(c *subscribeConfig) { c.onConnect = fn }
}

func applyOptions(opts []SubscribeOption) subscribeConfig {
	var cfg subscribeConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

var (
	published = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dide_notify_published_total",
		Help: "Notifications published, by transport and result.",
	}, []string{"transport", "result"})

	delivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dide_notify_delivered_total",
		Help: "Notifications handed to a subscriber, by transport and handler result.",
	}, []string{"transport", "result"})

	reconnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dide_notify_reconnects_total",
		Help: "Subscriber reconnect attempts after a dropped session.",
	}, []string{"transport"})
)

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
