package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range []string{
		"AUTH_ISSUER", "AUTH_ACCESS_TTL", "AUTH_DATABASE_DRIVER", "AUTH_NOTIFY_DRIVER",
		"AUTH_SWEEP_INTERVAL", "PORT", "TOTP_ENC_KEY",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("AUTH_JWT_SECRET", "s3cret")

	cfg := LoadConfig()
	require.Equal(t, "dide-auth", cfg.Issuer)
	require.Equal(t, 12*time.Hour, cfg.AccessTTL)
	require.Equal(t, time.Hour, cfg.SweepInterval)
	require.Equal(t, "sqlite", cfg.DatabaseDriver)
	require.Equal(t, "memory", cfg.NotifyDriver)
	require.Equal(t, 8080, cfg.Port)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigPostgresDefaultsNotify(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AUTH_DATABASE_DRIVER", "postgres")
	t.Setenv("AUTH_NOTIFY_DRIVER", "")
	t.Setenv("AUTH_SWEEP_INTERVAL", "15")

	cfg := LoadConfig()
	require.Equal(t, "postgres", cfg.NotifyDriver)
	require.Equal(t, 15*time.Minute, cfg.SweepInterval)
}

func TestConfigValidate(t *testing.T) {
	valid := Config{JWTSecret: "x", DatabaseDriver: "sqlite", NotifyDriver: "memory"}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, "AUTH_JWT_SECRET"},
		{"postgres without url", func(c *Config) { c.DatabaseDriver = "postgres" }, "AUTH_DATABASE_URL"},
		{"unknown driver", func(c *Config) { c.DatabaseDriver = "mysql" }, "AUTH_DATABASE_DRIVER"},
		{"pg notify on sqlite", func(c *Config) { c.NotifyDriver = "postgres" }, "needs the postgres"},
		{"half bootstrap", func(c *Config) { c.BootstrapAdminUsername = "root" }, "set together"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}
