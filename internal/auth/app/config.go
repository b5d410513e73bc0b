package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Issuer    string        // Optional: issuer claim for tokens (default: dide-auth)
	JWTSecret string        // Required: HS256 signing secret, also the TOTP key fallback
	AccessTTL time.Duration // Optional: access token lifetime (default: 12h)

	TOTPEncKey    string        // Optional: dedicated TOTP encryption key (64 hex chars or base64)
	SweepInterval time.Duration // Optional: periodic plaintext sweep (default: 1h)

	DatabaseDriver string // Optional: sqlite or postgres (default: sqlite)
	DatabaseFile   string // Optional: SQLite database file (default: ./dide.db)
	DatabaseURL    string // Required for postgres
	NotifyDriver   string // Optional: memory, postgres or redis (default: follows the database driver)
	RedisURL       string // Optional: redis URL for the redis notify driver

	PepperFile             string // Optional: password pepper file (default: ./pepper)
	BootstrapAdminUsername string // Optional: first admin, created on an empty database
	BootstrapAdminPassword string

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

// LoadConfig reads the environment, after loading .env when one exists.
func LoadConfig() Config {
	_ = godotenv.Load()

	cfg := Config{
		Issuer:    getEnvOrDefault("AUTH_ISSUER", "dide-auth"),
		JWTSecret: os.Getenv("AUTH_JWT_SECRET"),
		AccessTTL: getEnvDurationOrDefault("AUTH_ACCESS_TTL", 12*time.Hour),

		TOTPEncKey:    os.Getenv("TOTP_ENC_KEY"),
		SweepInterval: getEnvDurationOrDefault("AUTH_SWEEP_INTERVAL", time.Hour),

		DatabaseDriver: getEnvOrDefault("AUTH_DATABASE_DRIVER", "sqlite"),
		DatabaseFile:   getEnvOrDefault("AUTH_DATABASE_FILE", "dide.db"),
		DatabaseURL:    os.Getenv("AUTH_DATABASE_URL"),
		NotifyDriver:   os.Getenv("AUTH_NOTIFY_DRIVER"),
		RedisURL:       getEnvOrDefault("AUTH_REDIS_URL", "redis://localhost:6379/0"),

		PepperFile:             getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),
		BootstrapAdminUsername: os.Getenv("AUTH_BOOTSTRAP_ADMIN_USERNAME"),
		BootstrapAdminPassword: os.Getenv("AUTH_BOOTSTRAP_ADMIN_PASSWORD"),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}

	if cfg.NotifyDriver == "" {
		cfg.NotifyDriver = "memory"
		if cfg.DatabaseDriver == "postgres" {
			cfg.NotifyDriver = "postgres"
		}
	}

	return cfg
}

// Validate reports configuration that would stop the service from starting.
func (c Config) Validate() error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required"))
	}

	switch c.DatabaseDriver {
	case "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("AUTH_DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_DATABASE_DRIVER %q", c.DatabaseDriver))
	}

	switch c.NotifyDriver {
	case "memory", "redis":
	case "postgres":
		if c.DatabaseDriver != "postgres" {
			errs = append(errs, errors.New("AUTH_NOTIFY_DRIVER=postgres needs the postgres database driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_NOTIFY_DRIVER %q", c.NotifyDriver))
	}

	if (c.BootstrapAdminUsername == "") != (c.BootstrapAdminPassword == "") {
		errs = append(errs, errors.New("AUTH_BOOTSTRAP_ADMIN_USERNAME and _PASSWORD must be set together"))
	}

	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// "1h", "30m", "90s"
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
