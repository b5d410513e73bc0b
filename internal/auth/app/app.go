package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/dide/internal/auth/domain"
	httpapi "github.com/aussiebroadwan/dide/internal/auth/http"
	"github.com/aussiebroadwan/dide/internal/auth/notify"
	"github.com/aussiebroadwan/dide/internal/auth/service"
	"github.com/aussiebroadwan/dide/internal/auth/store"
	"github.com/aussiebroadwan/dide/internal/auth/store/drivers/postgres"
	"github.com/aussiebroadwan/dide/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/dide/pkg/cryptox"
	"github.com/aussiebroadwan/dide/pkg/jwtx"
	"github.com/aussiebroadwan/dide/pkg/slogx"
	"github.com/aussiebroadwan/dide/pkg/totpx"
	"github.com/hashicorp/go-multierror"
	"github.com/redis/go-redis/v9"
)

// BuildVersion is overridden at link time with
// -ldflags "-X github.com/aussiebroadwan/dide/internal/auth/app.BuildVersion=...".
var BuildVersion = "dev"

// Application wires the DiDe auth service together.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db      store.Store
	channel notify.Channel

	secretService    *service.SecretService
	accountService   *service.AccountService
	loginService     *service.LoginService
	bootstrapService *service.BootstrapService
	worker           *service.EncryptionWorker

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "dide-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(app.cfg.PepperFile)

	ctx := slogx.WithContext(context.Background(), app.logger)

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}
	if err := app.initNotify(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initServices(); err != nil {
		_ = app.closeBackends()
		return nil, err
	}
	if err := app.bootstrap(ctx); err != nil {
		_ = app.closeBackends()
		return nil, err
	}
	if err := app.initHTTP(); err != nil {
		_ = app.closeBackends()
		return nil, err
	}

	return app, nil
}

// Start runs the boot sweep and then starts the encryption worker. The
// sweep completes before Start returns, so no request is served while
// plaintext secrets from before the restart are still pending.
func (app *Application) Start(ctx context.Context) {
	ctx = slogx.WithContext(ctx, app.logger)

	// Failures are logged and left for the periodic sweep.
	if res, err := app.secretService.Sweep(ctx); err != nil {
		app.logger.Warn("boot sweep finished with errors", "error", err,
			"scanned", res.Scanned, "encrypted", res.Encrypted, "failed", res.Failed)
	} else {
		app.logger.Info("boot sweep complete",
			"scanned", res.Scanned, "encrypted", res.Encrypted, "skipped", res.Skipped)
	}

	app.worker.Start()
}

// Handler returns the HTTP handler with all routes applied.
func (app *Application) Handler() http.Handler { return app.router }

// Close stops the worker and releases the store and channel. Use it when
// the application was started with Start rather than Run.
func (app *Application) Close() {
	app.worker.Stop()
	if err := app.closeBackends(); err != nil {
		app.logger.Error("close failed", "error", err)
	}
}

// Run starts the application, serves HTTP and blocks until SIGINT or
// SIGTERM, then shuts down within the configured grace period.
func (app *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app.Start(ctx)
	app.logger.Info("dide auth service listening", "addr", app.server.Addr, "version", BuildVersion)

	serveErr := make(chan error, 1)
	go func() { serveErr <- app.server.ListenAndServe() }()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Close()
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		app.logger.Info("shutdown requested")
		return app.Shutdown()
	}
}

// Shutdown drains in-flight requests, then stops the worker and releases
// the backends.
func (app *Application) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	var result *multierror.Error
	if err := app.server.Shutdown(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("drain http: %w", err))
		_ = app.server.Close()
	}

	app.worker.Stop()
	if err := app.closeBackends(); err != nil {
		result = multierror.Append(result, err)
	}

	if err := result.ErrorOrNil(); err != nil {
		app.logger.Error("shutdown finished with errors", "error", err)
		return err
	}
	app.logger.Info("dide auth service stopped")
	return nil
}

// closeBackends closes whichever of the channel and store were opened.
func (app *Application) closeBackends() error {
	var result *multierror.Error
	if app.channel != nil {
		if err := app.channel.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close notify channel: %w", err))
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close store: %w", err))
		}
	}
	return result.ErrorOrNil()
}

// initDatabase opens the configured store and applies migrations.
func (app *Application) initDatabase(ctx context.Context) error {
	switch app.cfg.DatabaseDriver {
	case "postgres":
		db, err := postgres.NewStore(ctx, app.cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		app.db = db
	default:
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
		db, err := sqlite.NewStore(dsn)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		app.db = db
	}

	if err := app.db.ApplyMigrations(); err != nil {
		_ = app.db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

// initNotify selects the change channel transport.
func (app *Application) initNotify() error {
	logger := app.logger.With("component", "notify")

	switch app.cfg.NotifyDriver {
	case "postgres":
		pg, ok := app.db.(*postgres.Store)
		if !ok {
			return errors.New("postgres notify driver requires the postgres database driver")
		}
		app.channel = notify.NewPostgres(pg.Pool(), notify.DefaultTopic, logger)
	case "redis":
		opts, err := redis.ParseURL(app.cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid AUTH_REDIS_URL: %w", err)
		}
		app.channel = notify.NewRedis(redis.NewClient(opts), notify.DefaultTopic, logger)
	default:
		app.channel = notify.NewMemory(256, logger)
	}

	app.logger.Info("notify channel ready", "driver", app.cfg.NotifyDriver)
	return nil
}

// initServices builds the codec, verifier, signer and services.
func (app *Application) initServices() error {
	key, fromFallback, err := cryptox.DeriveTOTPKey(app.cfg.TOTPEncKey, app.cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("failed to resolve TOTP encryption key: %w", err)
	}
	if fromFallback {
		app.logger.Warn("TOTP_ENC_KEY not set, deriving the TOTP key from AUTH_JWT_SECRET; rotating that secret will make stored TOTP secrets unreadable")
	}

	codec, err := cryptox.NewSecretCodec(key)
	if err != nil {
		return fmt.Errorf("failed to create secret codec: %w", err)
	}

	signer, err := jwtx.NewSignerHS256([]byte(app.cfg.JWTSecret), app.cfg.Issuer)
	if err != nil {
		return fmt.Errorf("failed to create token signer: %w", err)
	}

	app.secretService = &service.SecretService{
		Store:    app.db,
		Codec:    codec,
		Verifier: totpx.NewVerifier(codec),
		Channel:  app.channel,
	}
	app.accountService = &service.AccountService{Store: app.db, Secrets: app.secretService}
	app.loginService = &service.LoginService{
		Store:     app.db,
		Secrets:   app.secretService,
		Signer:    signer,
		Issuer:    app.cfg.Issuer,
		AccessTTL: app.cfg.AccessTTL,
	}
	app.bootstrapService = &service.BootstrapService{Store: app.db, Accounts: app.accountService}

	app.worker = service.NewEncryptionWorker(
		app.secretService,
		app.channel,
		app.logger.With("component", "totp-worker"),
		app.cfg.SweepInterval,
	)

	return nil
}

// bootstrap creates the configured first admin on an empty database.
func (app *Application) bootstrap(ctx context.Context) error {
	if app.cfg.BootstrapAdminUsername == "" {
		return nil
	}

	_, err := app.bootstrapService.EnsureAdmin(ctx, domain.BootstrapData{
		AdminUsername: app.cfg.BootstrapAdminUsername,
		AdminPassword: app.cfg.BootstrapAdminPassword,
	})
	if errors.Is(err, service.ErrBootstrapAlready) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to bootstrap admin: %w", err)
	}
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() error {
	verifier, err := jwtx.NewVerifierHS256([]byte(app.cfg.JWTSecret), app.cfg.Issuer)
	if err != nil {
		return fmt.Errorf("failed to create token verifier: %w", err)
	}

	router := httpapi.NewRouter(verifier, BuildVersion, app.db, app.channel, app.logger)
	router.LoginService = app.loginService
	router.AccountService = app.accountService
	router.SecretService = app.secretService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}
