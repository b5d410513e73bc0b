package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Redis uses PUBLISH/SUBSCRIBE for multi-node deployments without postgres.
type Redis struct {
	client *redis.Client
	topic  string
	logger *slog.Logger
}

// NewRedis takes ownership of client; Close closes it.
func NewRedis(client *redis.Client, topic string, logger *slog.Logger) *Redis {
	if topic == "" {
		topic = "dide:" + DefaultTopic
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{client: client, topic: topic, logger: logger}
}

func (r *Redis) Publish(ctx context.Context, accountID int64) error {
	err := r.client.Publish(ctx, r.topic, strconv.FormatInt(accountID, 10)).Err()
	published.WithLabelValues("redis", resultLabel(err)).Inc()
	if err != nil {
		return fmt.Errorf("notify: redis publish: %w", err)
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context, h Handler, opts ...SubscribeOption) error {
	return runWithReconnect(ctx, r.logger, "redis", applyOptions(opts), func(ctx context.Context, ready func()) error {
		return r.listen(ctx, h, ready)
	})
}

// listen reads with ReceiveMessage rather than Channel() so network errors
// surface here and trigger the reconnect hook.
func (r *Redis) listen(ctx context.Context, h Handler, ready func()) error {
	ps := r.client.Subscribe(ctx, r.topic)
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.topic, err)
	}
	ready()

	for {
		msg, err := ps.ReceiveMessage(ctx)
		if err != nil {
			return err
		}

		id, err := strconv.ParseInt(msg.Payload, 10, 64)
		if err != nil {
			r.logger.Warn("ignoring malformed notification payload", "topic", r.topic, "payload", msg.Payload)
			continue
		}

		deliver(ctx, r.logger, "redis", h, id)
	}
}

func (r *Redis) Ping(ctx context.Context) error { return r.client.Ping(ctx).Err() }

func (r *Redis) Close() error { return r.client.Close() }
