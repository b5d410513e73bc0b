package dide_test

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/dide/internal/auth/service"
	"github.com/aussiebroadwan/dide/internal/auth/store/drivers/postgres"
	"github.com/aussiebroadwan/dide/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

const supervisorSecret = "JBSWY3DPEHPK3PXP"

// TestReplicasShareChangesOverRedis sets a secret on one replica and checks
// that it is sealed and usable through the other.
func TestReplicasShareChangesOverRedis(t *testing.T) {
	dsn := startPostgres(t)
	redisURL := startRedis(t)
	ctx := context.Background()

	a := startInstance(t, dsn, "redis", redisURL)
	b := startInstance(t, dsn, "redis", redisURL)

	adminA := a.admin(t)
	sup, err := adminA.CreateAccount(ctx, authsdk.CreateAccountRequest{
		Username: "supervisor", Password: "Sup123!", Role: "supervisor",
	})
	require.NoError(t, err)

	require.NoError(t, adminA.SetTOTPSecret(ctx, sup.ID, supervisorSecret))

	adminB := b.admin(t)
	requireSecretState(t, adminB, sup.ID, "encrypted")

	_, err = b.client.Login(ctx, "supervisor", "Sup123!", "")
	require.ErrorIs(t, err, authsdk.ErrTOTPRequired)

	s, err := b.client.Login(ctx, "supervisor", "Sup123!", currentCode(t, supervisorSecret))
	require.NoError(t, err)
	require.Equal(t, "supervisor", s.Role())
	require.Equal(t, "/admin", s.HomePath())
}

// TestPostgresNotifyAndDuplicates runs a single replica on LISTEN/NOTIFY and
// checks that the uniqueness of secrets holds after they are sealed.
func TestPostgresNotifyAndDuplicates(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	inst := startInstance(t, dsn, "postgres", "")
	admin := inst.admin(t)

	first, err := admin.CreateAccount(ctx, authsdk.CreateAccountRequest{
		Username: "sup-1", Password: "pw", Role: "supervisor", Base32: supervisorSecret,
	})
	require.NoError(t, err)
	requireSecretState(t, admin, first.ID, "encrypted")

	second, err := admin.CreateAccount(ctx, authsdk.CreateAccountRequest{
		Username: "sup-2", Password: "pw", Role: "supervisor",
	})
	require.NoError(t, err)

	err = admin.SetTOTPSecret(ctx, second.ID, "jbsw-y3dp-ehpk-3pxp")
	require.ErrorIs(t, err, authsdk.ErrDuplicateSecret)

	health, err := inst.client.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", health.Status)
	require.Equal(t, "ok", health.Checks.Notify)
}

// TestBootSweepSealsLeftoverPlaintext leaves a plaintext secret in the
// database with no replica running and checks that the next boot seals it
// before serving.
func TestBootSweepSealsLeftoverPlaintext(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	first := startInstance(t, dsn, "memory", "")
	sup, err := first.admin(t).CreateAccount(ctx, authsdk.CreateAccountRequest{
		Username: "supervisor", Password: "pw", Role: "supervisor",
	})
	require.NoError(t, err)
	first.app.Close()

	st, err := postgres.NewStore(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, st.Accounts().SetTwoFactorSecret(ctx, sup.ID, supervisorSecret, service.NormalizedHash(supervisorSecret)))
	require.NoError(t, st.Close())

	second := startInstance(t, dsn, "memory", "")
	acct, err := second.admin(t).GetAccount(ctx, sup.ID)
	require.NoError(t, err)
	require.Equal(t, "encrypted", acct.SecretState)

	_, err = second.client.Login(ctx, "supervisor", "pw", currentCode(t, supervisorSecret))
	require.NoError(t, err)
}
