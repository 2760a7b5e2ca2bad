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

	httpapi "github.com/jobassist/jobassist/internal/api/http"
	"github.com/jobassist/jobassist/internal/api/service"
	"github.com/jobassist/jobassist/internal/api/store"
	"github.com/jobassist/jobassist/internal/api/store/drivers/postgres"
	"github.com/jobassist/jobassist/internal/api/store/drivers/sqlite"
	"github.com/jobassist/jobassist/pkg/cryptox"
	"github.com/jobassist/jobassist/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the API with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	tokens   *service.TokenIssuer
	hasher   *cryptox.PasswordHasher
	registry *prometheus.Registry
	metrics  *service.Metrics

	// Services
	sessions            *service.SessionManager
	credentials         *service.CredentialService
	federated           *service.FederatedLoginService // nil when google login is off
	cvs                 *service.CVService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: cfg.AppName,
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	pepper, err := cryptox.LoadOrCreatePepper(cfg.PepperFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load password pepper: %w", err)
	}
	app.hasher = cryptox.NewPasswordHasher(pepper)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	tokens, err := InitTokenIssuer(cfg, app.logger)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize token issuer: %w", err)
	}
	app.tokens = tokens

	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = service.NewMetrics(app.registry)

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Start housekeeping service
	app.housekeepingService.Start()

	app.logger.Info("api starting", "port", app.cfg.Port, "version", BuildVersion, "driver", app.cfg.DatabaseDriver)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			_ = app.db.Close()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down api...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the housekeeping service
	app.housekeepingService.Stop()

	// Close database connection
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("api stopped")
	return nil
}

// initDatabase opens the configured driver and applies migrations
func (app *Application) initDatabase() error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.DatabaseDriver {
	case "sqlite":
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
		db, err = sqlite.NewStore(dsn)
	case "postgres":
		if app.cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
		db, err = postgres.NewStore(context.Background(), app.cfg.DatabaseURL, postgres.Options{
			PingTimeout: app.cfg.DBTimeout,
		})
	default:
		return fmt.Errorf("unknown DATABASE_DRIVER %q (want sqlite or postgres)", app.cfg.DatabaseDriver)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

// initServices initializes all business logic services and their
// outbound collaborators
func (app *Application) initServices() error {
	notifier, err := initNotifier(app.cfg, app.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize mailer: %w", err)
	}
	provider, err := initIdentityProvider(app.cfg, app.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize google login: %w", err)
	}
	extractor, enricher := initCVAI(app.cfg, app.logger)

	app.sessions = &service.SessionManager{
		Store:     app.db,
		Tokens:    app.tokens,
		Hasher:    app.hasher,
		Metrics:   app.metrics,
		DBTimeout: app.cfg.DBTimeout,
	}
	app.credentials = &service.CredentialService{
		Store:         app.db,
		Hasher:        app.hasher,
		Notifier:      notifier,
		FrontendURL:   app.cfg.FrontendURL,
		ActivationTTL: app.cfg.ActivationTokenTTL,
		ResetTTL:      app.cfg.ResetTokenTTL,
	}
	if provider != nil {
		app.federated = &service.FederatedLoginService{
			Store:    app.db,
			Provider: provider,
			Sessions: app.sessions,
		}
	}
	app.cvs = &service.CVService{
		Store:          app.db,
		Extractor:      extractor,
		Enricher:       enricher,
		Metrics:        app.metrics,
		MaxUploadBytes: app.cfg.MaxUploadBytes,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	app.housekeepingService.Metrics = app.metrics
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.tokens.AccessVerifier(),
		BuildVersion,
		app.db,
		app.logger,
	)

	// Wire services to router
	router.Sessions = app.sessions
	router.Credentials = app.credentials
	router.Federated = app.federated
	router.CVs = app.cvs
	router.Cookies = httpapi.CookieConfig{
		Secure:     app.cfg.CookieSecure,
		Domain:     app.cfg.CookieDomain,
		RefreshTTL: app.cfg.RefreshTokenTTL,
		DeviceTTL:  app.cfg.DeviceCookieTTL,
	}
	router.Limits = app.cfg.RateLimits
	router.RequestTimeout = app.cfg.RequestTimeout
	router.MaxUploadBytes = app.cfg.MaxUploadBytes
	router.Gatherer = app.registry
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
