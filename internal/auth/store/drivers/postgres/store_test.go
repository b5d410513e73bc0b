package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/dide/internal/auth/domain"
	"github.com/aussiebroadwan/dide/internal/auth/store"
	"github.com/aussiebroadwan/dide/internal/auth/store/drivers/postgres"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres runs a throwaway postgres and returns its DSN.
func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
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
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://dide:dide@%s:%s/dide?sslmode=disable", host, port.Port())
}

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()
	dsn := startPostgres(t)

	s, err := postgres.NewStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.ApplyMigrations(), "migrations are idempotent")

	create := func(t *testing.T, username string, role domain.Role) int64 {
		t.Helper()
		id, err := s.Accounts().CreateAccount(ctx, domain.Account{
			Username:     username,
			PasswordHash: "$argon2id$test",
			Role:         role,
		})
		require.NoError(t, err)
		return id
	}

	t.Run("create and lookup", func(t *testing.T) {
		id := create(t, "Alice", domain.RoleSupervisor)

		got, err := s.Accounts().GetAccountByUsername(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, id, got.ID)
		require.Equal(t, domain.SecretAbsent, got.SecretState())

		_, err = s.Accounts().CreateAccount(ctx, domain.Account{Username: "ALICE", PasswordHash: "x", Role: domain.RoleUser})
		require.ErrorIs(t, err, store.ErrAlreadyExists)

		_, err = s.Accounts().GetAccountByID(ctx, id+1000)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("secret hash conflict", func(t *testing.T) {
		a := create(t, "pg-sup-a", domain.RoleSupervisor)
		b := create(t, "pg-sup-b", domain.RoleSupervisor)

		require.NoError(t, s.Accounts().SetTwoFactorSecret(ctx, a, "JBSWY3DPEHPK3PXP", "pg-hash"))
		err := s.Accounts().SetTwoFactorSecret(ctx, b, "JBSWY3DPEHPK3PXP", "pg-hash")
		require.ErrorIs(t, err, store.ErrConflict)
	})

	t.Run("compare and swap", func(t *testing.T) {
		id := create(t, "pg-cas", domain.RoleSupervisor)
		require.NoError(t, s.Accounts().SetTwoFactorSecret(ctx, id, "GEZDGNBVGY3TQOJQ", "pg-cas-hash"))

		changed, err := s.Accounts().ReplaceTwoFactorSecret(ctx, id, "NOPE", "enc:v1:a:b:c")
		require.NoError(t, err)
		require.False(t, changed)

		err = s.WithTx(ctx, func(tx store.Tx) error {
			changed, err = tx.Accounts().ReplaceTwoFactorSecret(ctx, id, "GEZDGNBVGY3TQOJQ", "enc:v1:a:b:c")
			return err
		})
		require.NoError(t, err)
		require.True(t, changed)

		ids, err := s.Accounts().ListPlaintextSecretAccounts(ctx)
		require.NoError(t, err)
		require.NotContains(t, ids, id)
	})

	t.Run("role change clears secret", func(t *testing.T) {
		id := create(t, "pg-demote", domain.RoleSupervisor)
		require.NoError(t, s.Accounts().SetTwoFactorSecret(ctx, id, "MFRGGZDFMZTWQ2LK", "pg-demote-hash"))
		require.NoError(t, s.Accounts().UpdateRole(ctx, id, domain.RoleAdmin))

		got, err := s.Accounts().GetAccountByID(ctx, id)
		require.NoError(t, err)
		require.Equal(t, domain.RoleAdmin, got.Role)
		require.Empty(t, got.TwoFactorSecret)
		require.Empty(t, got.TwoFactorNormHash)
		require.False(t, got.TwoFactorEnabled)
	})

	t.Run("concurrent writers one winner", func(t *testing.T) {
		const n = 6
		ids := make([]int64, n)
		for i := range n {
			ids[i] = create(t, fmt.Sprintf("pg-race-%d", i), domain.RoleSupervisor)
		}

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			ok        int
			conflicts int
		)
		for _, id := range ids {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				err := s.WithTx(ctx, func(tx store.Tx) error {
					return tx.Accounts().SetTwoFactorSecret(ctx, id, "ONSWG4TFOQ", "pg-race-hash")
				})
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					ok++
				case errors.Is(err, store.ErrConflict):
					conflicts++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}(id)
		}
		wg.Wait()

		require.Equal(t, 1, ok)
		require.Equal(t, n-1, conflicts)
	})
}
