package notify_test

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/aussiebroadwan/dide/internal/auth/notify"
	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startContainer(t *testing.T, req testcontainers.ContainerRequest, port nat.Port) (string, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mapped, err := container.MappedPort(ctx, port)
	require.NoError(t, err)
	return host, mapped.Port()
}

// exercise subscribes, waits for the session to be live, publishes and checks
// delivery.
func exercise(t *testing.T, ch notify.Channel) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, ch.Ping(ctx))

	c := newCollector()
	ready := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- ch.Subscribe(ctx, c.handle, notify.OnConnect(func(context.Context) {
			ready <- struct{}{}
		}))
	}()

	select {
	case <-ready:
	case <-time.After(30 * time.Second):
		t.Fatal("subscriber never connected")
	}

	require.NoError(t, ch.Publish(ctx, 42))
	require.NoError(t, ch.Publish(ctx, 43))
	c.wait(t, 42)
	c.wait(t, 43)

	cancel()
	require.NoError(t, <-done)
}

func TestPostgresChannel(t *testing.T) {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "dide",
			"POSTGRES_PASSWORD": "dide",
			"POSTGRES_DB":       "dide",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}, "5432/tcp")

	pool, err := pgxpool.New(context.Background(), fmt.Sprintf("postgres://dide:dide@%s:%s/dide?sslmode=disable", host, port))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	exercise(t, notify.NewPostgres(pool, "", slog.Default()))
}

func TestRedisChannel(t *testing.T) {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
	}, "6379/tcp")

	client := redis.NewClient(&redis.Options{Addr: host + ":" + port})
	ch := notify.NewRedis(client, "", slog.Default())
	t.Cleanup(func() { _ = ch.Close() })

	exercise(t, ch)
}
