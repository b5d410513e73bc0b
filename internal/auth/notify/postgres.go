package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres uses LISTEN/NOTIFY. The payload is the decimal account id.
type Postgres struct {
	pool   *pgxpool.Pool
	topic  string
	logger *slog.Logger
}

// NewPostgres shares pool with the store; Close does not close it.
func NewPostgres(pool *pgxpool.Pool, topic string, logger *slog.Logger) *Postgres {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{pool: pool, topic: topic, logger: logger}
}

func (p *Postgres) Publish(ctx context.Context, accountID int64) error {
	_, err := p.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, p.topic, strconv.FormatInt(accountID, 10))
	published.WithLabelValues("postgres", resultLabel(err)).Inc()
	if err != nil {
		return fmt.Errorf("notify: pg_notify: %w", err)
	}
	return nil
}

func (p *Postgres) Subscribe(ctx context.Context, h Handler, opts ...SubscribeOption) error {
	return runWithReconnect(ctx, p.logger, "postgres", applyOptions(opts), func(ctx context.Context, ready func()) error {
		return p.listen(ctx, h, ready)
	})
}

// listen holds a dedicated connection for the session. The connection is
// taken out of the pool and closed afterwards so no LISTEN state leaks back.
func (p *Postgres) listen(ctx context.Context, h Handler, ready func()) error {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listener connection: %w", err)
	}
	raw := conn.Hijack()
	defer func() { _ = raw.Close(context.Background()) }()

	if _, err := raw.Exec(ctx, "LISTEN "+pgx.Identifier{p.topic}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", p.topic, err)
	}
	ready()

	for {
		n, err := raw.WaitForNotification(ctx)
		if err != nil {
			return err
		}

		id, err := strconv.ParseInt(n.Payload, 10, 64)
		if err != nil {
			p.logger.Warn("ignoring malformed notification payload", "topic", p.topic, "payload", n.Payload)
			continue
		}

		deliver(ctx, p.logger, "postgres", h, id)
	}
}

func (p *Postgres) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p *Postgres) Close() error { return nil }
