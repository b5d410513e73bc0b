package dide_test

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/dide/internal/auth/app"
	"github.com/aussiebroadwan/dide/pkg/authsdk"
	"github.com/docker/go-connections/nat"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * End-to-end tests run one or more full service instances in-process against
 * real postgres and redis containers. Instances share the database and the
 * change channel, the same way replicas do in a deployment.
 */

const (
	adminUsername = "admin"
	adminPassword = "Admin123!"
	jwtSecret     = "e2e-jwt-secret-0123456789abcdef"
	totpEncKey    = "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"
)

var pepperFile string

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "dide-e2e")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create temp dir: %v\n", err)
		os.Exit(1)
	}
	pepperFile = filepath.Join(dir, "pepper")

	exitCode := m.Run()

	_ = os.RemoveAll(dir)
	os.Exit(exitCode)
}

// startContainer runs req and returns host and mapped port.
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
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mapped, err := container.MappedPort(ctx, port)
	require.NoError(t, err)

	return host, mapped.Port()
}

func startPostgres(t *testing.T) string {
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
	return fmt.Sprintf("postgres://dide:dide@%s:%s/dide?sslmode=disable", host, port)
}

func startRedis(t *testing.T) string {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
	}, "6379/tcp")
	return fmt.Sprintf("redis://%s:%s/0", host, port)
}

// instance is one running service replica.
type instance struct {
	app    *app.Application
	client *authsdk.SDKClient
}

// startInstance boots a replica on databaseURL using notifyDriver. The
// first replica on an empty database creates the admin account.
func startInstance(t *testing.T, databaseURL, notifyDriver, redisURL string) *instance {
	t.Helper()

	cfg := app.Config{
		Issuer:                 "dide-e2e",
		JWTSecret:              jwtSecret,
		AccessTTL:              time.Hour,
		TOTPEncKey:             totpEncKey,
		SweepInterval:          time.Hour,
		DatabaseDriver:         "postgres",
		DatabaseURL:            databaseURL,
		NotifyDriver:           notifyDriver,
		RedisURL:               redisURL,
		PepperFile:             pepperFile,
		BootstrapAdminUsername: adminUsername,
		BootstrapAdminPassword: adminPassword,
		Env:                    "test",
		LogLevel:               "warn",
		LogFormat:              "json",
		ShutdownGracePeriod:    time.Second,
	}

	a, err := app.New(cfg)
	require.NoError(t, err)
	a.Start(context.Background())
	t.Cleanup(a.Close)

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)

	return &instance{app: a, client: authsdk.NewSDKClient(srv.URL)}
}

func (i *instance) admin(t *testing.T) *authsdk.Session {
	t.Helper()
	s, err := i.client.Login(context.Background(), adminUsername, adminPassword, "")
	require.NoError(t, err, "admin login should succeed")
	return s
}

// currentCode returns the code for secret at wall-clock time.
func currentCode(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCodeCustom(secret, time.Now(), totp.ValidateOpts{
		Period:    30,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	require.NoError(t, err)
	return code
}

// requireSecretState waits until the account's secret reaches want.
func requireSecretState(t *testing.T, s *authsdk.Session, id int64, want string) {
	t.Helper()
	require.Eventually(t, func() bool {
		acct, err := s.GetAccount(context.Background(), id)
		return err == nil && acct.SecretState == want
	}, 10*time.Second, 100*time.Millisecond, "secret should become %s", want)
}
