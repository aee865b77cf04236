package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/vault/internal/vault/http"
	"github.com/aussiebroadwan/vault/internal/vault/lockout"
	"github.com/aussiebroadwan/vault/internal/vault/passkey"
	"github.com/aussiebroadwan/vault/internal/vault/service"
	"github.com/aussiebroadwan/vault/internal/vault/store"
	"github.com/aussiebroadwan/vault/internal/vault/store/drivers/postgres"
	"github.com/aussiebroadwan/vault/internal/vault/store/drivers/sqlite"
	"github.com/aussiebroadwan/vault/pkg/cryptox"
	"github.com/aussiebroadwan/vault/pkg/httpx"
	"github.com/aussiebroadwan/vault/pkg/jwtx"
	"github.com/aussiebroadwan/vault/pkg/mailer"
	"github.com/aussiebroadwan/vault/pkg/slogx"
	"github.com/redis/go-redis/v9"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the vault service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	hasher   cryptox.Hasher
	ceremony *passkey.Ceremony
	mail     mailer.Sender
	redis    *redis.Client // nil when lockout is disabled
	limiter  *lockout.Limiter

	// Services
	securityService     *service.SecurityService
	ceremonyService     *service.CeremonyService
	verificationService *service.VerificationService
	resetService        *service.ResetService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
// A configuration that fails Validate aborts before anything is opened.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "vault-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	ctx := context.Background()

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}

	if err := app.initDependencies(ctx); err != nil {
		_ = app.closeDependencies()
		return nil, err
	}

	app.initServices()

	if err := app.initHTTP(); err != nil {
		_ = app.closeDependencies()
		return nil, err
	}

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	if err := app.housekeepingService.Start(); err != nil {
		return fmt.Errorf("start housekeeping: %w", err)
	}

	app.logger.Info("vault service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains in-flight requests, stops housekeeping and closes the
// database, mail and Redis connections.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down vault service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.closeDependencies(); err != nil {
		return err
	}

	app.logger.Info("vault service stopped")
	return nil
}

func (app *Application) closeDependencies() error {
	if closer, ok := app.mail.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			app.logger.Error("error closing mailer", "error", err)
		}
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}
	return nil
}

// initDatabase opens the configured store and applies migrations.
func (app *Application) initDatabase(ctx context.Context) error {
	db, driver, err := openStore(ctx, app.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", driver)
	return nil
}

func openStore(ctx context.Context, url string) (store.Store, string, error) {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		st, err := postgres.NewStore(ctx, url)
		return st, "postgres", err
	}

	dsn := strings.TrimPrefix(url, "sqlite://")
	if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dsn)
	}
	st, err := sqlite.NewStore(dsn)
	return st, "sqlite", err
}

// initDependencies builds the hasher, the WebAuthn relying party, the mail
// transport and, when REDIS_URL is set, the lockout limiter.
func (app *Application) initDependencies(ctx context.Context) error {
	pepper, err := cryptox.LoadOrGeneratePepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}
	hasher, err := cryptox.NewHasher(app.cfg.Hasher, app.cfg.BcryptCost, pepper)
	if err != nil {
		return fmt.Errorf("failed to initialize hasher: %w", err)
	}
	app.hasher = cryptox.NewBounded(hasher, app.cfg.HashConcurrency)

	app.ceremony, err = passkey.NewCeremony(passkey.Config{
		RPID:          app.cfg.WebAuthnRPID,
		RPDisplayName: app.cfg.WebAuthnRPName,
		RPOrigins:     app.cfg.WebAuthnOrigins,
		Timeout:       app.cfg.WebAuthnTimeout,
	})
	if err != nil {
		return err
	}

	switch app.cfg.MailDriver {
	case MailDriverSMTP:
		app.mail = &mailer.SMTPSender{
			Host:     app.cfg.SMTPHost,
			Port:     app.cfg.SMTPPort,
			Username: app.cfg.SMTPUser,
			Password: app.cfg.SMTPPassword,
			From:     app.cfg.SMTPFrom,
		}
	case MailDriverAMQP:
		sender, err := mailer.NewAMQPSender(app.cfg.RabbitMQURL, app.cfg.MailExchange, app.cfg.MailRoutingKey)
		if err != nil {
			return fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
		app.mail = sender
	default:
		app.logger.Warn("reset codes are only logged, set VAULT_MAIL_DRIVER for real delivery")
		app.mail = &mailer.LogSender{Logger: app.logger}
	}
	app.logger.Info("mail transport configured", "driver", app.cfg.MailDriver)

	if app.cfg.RedisURL == "" {
		app.logger.Warn("REDIS_URL not set, failed verification lockout disabled")
		return nil
	}
	opts, err := redis.ParseURL(app.cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	app.redis = redis.NewClient(opts)
	app.limiter = lockout.New(app.redis, app.cfg.LockoutThreshold, app.cfg.LockoutWindow)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := app.limiter.Ping(pingCtx); err != nil {
		// Verification fails open, so an unreachable Redis is not fatal.
		app.logger.Warn("redis unreachable at startup", "error", err)
	}
	app.logger.Info("failed verification lockout enabled",
		"threshold", app.cfg.LockoutThreshold, "window", app.cfg.LockoutWindow)
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	app.securityService = &service.SecurityService{
		Store:           app.db,
		Hasher:          app.hasher,
		FreshnessWindow: app.cfg.FreshnessWindow,
	}
	app.ceremonyService = &service.CeremonyService{
		Store:    app.db,
		Ceremony: app.ceremony,
		Timeout:  app.cfg.WebAuthnTimeout,
	}
	app.verificationService = &service.VerificationService{
		Security:   app.securityService,
		Ceremonies: app.ceremonyService,
	}
	if app.limiter != nil {
		app.verificationService.Limiter = app.limiter
	}
	app.resetService = &service.ResetService{
		Store:  app.db,
		Hasher: app.hasher,
		Mailer: app.mail,
		TTL:    app.cfg.ResetTTL,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingCron,
	)
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() error {
	verifier, err := jwtx.NewHS256Verifier([]byte(app.cfg.JWTSecret), app.cfg.JWTIssuer, 30*time.Second)
	if err != nil {
		return fmt.Errorf("failed to initialize token verifier: %w", err)
	}

	httpx.LoadRateLimitProfiles()

	router := httpapi.NewRouter(
		verifier,
		BuildVersion,
		app.db,
		app.logger,
		app.cfg.CORSAllowedOrigins,
	)

	// Wire services to router
	router.SecurityService = app.securityService
	router.CeremonyService = app.ceremonyService
	router.VerificationService = app.verificationService
	router.ResetService = app.resetService
	if checker, ok := app.mail.(mailer.Checker); ok {
		router.MailChecker = checker
	}
	if app.limiter != nil {
		router.Lockout = app.limiter
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}
