package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	gormSqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/frahmantamala/compliance-management/internal"
	"github.com/frahmantamala/compliance-management/internal/assessment"
	"github.com/frahmantamala/compliance-management/internal/audit"
	"github.com/frahmantamala/compliance-management/internal/auth"
	"github.com/frahmantamala/compliance-management/internal/core/events"
	"github.com/frahmantamala/compliance-management/internal/document"
	"github.com/frahmantamala/compliance-management/internal/generated"
	"github.com/frahmantamala/compliance-management/internal/license"
	"github.com/frahmantamala/compliance-management/internal/notification"
	"github.com/frahmantamala/compliance-management/internal/obs"
	"github.com/frahmantamala/compliance-management/internal/tenant"
	tenantPostgres "github.com/frahmantamala/compliance-management/internal/tenant/postgres"
	"github.com/frahmantamala/compliance-management/internal/transport/rest"
	"github.com/frahmantamala/compliance-management/internal/user"
	"github.com/frahmantamala/compliance-management/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config         *internal.Config
	DB             *sqlx.DB
	GormDB         *gorm.DB
	Router         *chi.Mux
	Logger         *slog.Logger
	LicenseService *license.Service
	Handlers       rest.Handlers
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, deps.Handlers, deps.LicenseService, deps.Logger)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	log := logger.LoggerWrapper()

	if config.Observability.Metrics.Enabled {
		obs.Init()
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	store := tenant.NewStore(tenantPostgres.NewTenantRepository(gormDB), log)
	bus := events.NewEventBus(log)

	sessions := auth.NewSessionManager(auth.SessionConfig{
		IdleTimeout:   config.Session.IdleTimeout,
		WarningWindow: config.Session.WarningWindow,
	}, log)
	tokens := auth.NewJWTTokenGenerator(config.Security.JWTSecret, config.Security.AccessTokenDuration)
	authService := auth.NewService(store, sessions, tokens, config.Security.BCryptCost, config.Security.ResetTokenDuration, log)

	userService := user.NewService(store, authService, log)
	auditService := audit.NewService(store, log)
	licenseService := license.NewService(store, log)
	documentService := document.NewService(store, bus, generated.NewTemplateProvider(), log)
	assessmentService := assessment.NewService(store, log)

	dispatcher := notification.NewDispatcher(store, &notification.LogSender{Logger: log}, log)
	dispatcher.Register(bus)

	return &Dependencies{
		Config:         config,
		DB:             db,
		GormDB:         gormDB,
		Router:         chi.NewRouter(),
		Logger:         log,
		LicenseService: licenseService,
		Handlers: rest.Handlers{
			Auth:       auth.NewHandler(authService),
			Tenant:     tenant.NewHandler(store, authService),
			User:       user.NewHandler(userService),
			Document:   document.NewHandler(documentService),
			Audit:      audit.NewHandler(auditService),
			License:    license.NewHandler(licenseService),
			Assessment: assessment.NewHandler(assessmentService),
		},
	}, nil
}

// initDB opens the plain SQL connection used by the health endpoint
// and migrations.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	driver := "pgx"
	if cfg.Driver == "sqlite" {
		driver = "sqlite3"
	}

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm opens the ORM connection backing the tenant repository.
// SQLite keeps local development and the test suite free of a server
// dependency.
func initGorm(cfg internal.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Driver {
	case "sqlite":
		return gorm.Open(gormSqlite.Open(cfg.Source), &gorm.Config{})
	default:
		return gorm.Open(gormPostgres.Open(cfg.Source), &gorm.Config{})
	}
}
