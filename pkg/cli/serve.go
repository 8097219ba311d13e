package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/reportly-app/reportly/pkg/auth"
	"github.com/reportly-app/reportly/pkg/config"
	"github.com/reportly-app/reportly/pkg/database"
	"github.com/reportly-app/reportly/pkg/handlers"
	"github.com/reportly-app/reportly/pkg/logging"
	"github.com/reportly-app/reportly/pkg/middleware"
	"github.com/reportly-app/reportly/pkg/report"
	"github.com/reportly-app/reportly/pkg/repositories"
	"github.com/reportly-app/reportly/pkg/services"
	"github.com/reportly-app/reportly/pkg/storage"
)

const (
	shutdownTimeout   = 15 * time.Second
	readHeaderTimeout = 10 * time.Second
	devSessionSecret  = "reportly-local-development-only"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	cfg, err := config.Load(opts.configPath, opts.version)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.Bool("auth_verification", !cfg.Auth.DisableVerification),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.String("storage", cfg.Storage.Backend))

	secret := cfg.SessionSecret
	if secret == "" {
		if !cfg.IsLocal() {
			return errors.New("SESSION_SECRET is required outside local development")
		}
		logger.Warn("SESSION_SECRET not set, using a development secret")
		secret = devSessionSecret
	}

	if cfg.Database.SkipMigrations {
		logger.Info("Skipping migrations")
	} else if err := openMigrationDB(cfg, logger, func(db *sql.DB, logger *zap.Logger) error {
		return database.RunMigrations(db, logger)
	}); err != nil {
		return err
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.URL(),
		MaxConnections: cfg.Database.MaxConnections,
	}, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	jwksClient, err := auth.NewJWKSClient(ctx, &auth.JWKSConfig{
		EnableVerification: !cfg.Auth.DisableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
	})
	if err != nil {
		return err
	}
	defer jwksClient.Close()

	g, gctx := errgroup.WithContext(ctx)

	var store storage.Store
	var badgerStore *storage.BadgerStore
	switch cfg.Storage.Backend {
	case "supabase":
		store = storage.NewSupabaseStore(storage.SupabaseConfig{
			URL:        cfg.Storage.SupabaseURL,
			Bucket:     cfg.Storage.Bucket,
			ServiceKey: cfg.Storage.ServiceKey,
		}, logger)
	default:
		badgerStore, err = storage.NewBadgerStore(cfg.Storage.BadgerDir, cfg.BaseURL, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := badgerStore.Close(); err != nil {
				logger.Error("Failed to close storage", zap.Error(err))
			}
		}()
		store = badgerStore
		g.Go(func() error {
			return badgerStore.RunGC(gctx, cfg.Storage.GCInterval)
		})
	}

	authService := auth.NewAuthService(jwksClient, cfg.Auth.CookieName, logger)
	sessionStore := auth.NewSessionStore(secret, cfg.Editor.SessionTTL, auth.DeriveCookieSettings(cfg.BaseURL, ""))

	mux := http.NewServeMux()
	registerRoutes(mux, routeDeps{
		cfg:            cfg,
		db:             db,
		store:          store,
		serveStorage:   badgerStore != nil,
		authMiddleware: auth.NewMiddleware(authService, logger),
		userMiddleware: database.WithUserContext(db, logger),
		cookies:        sessionStore,
		logger:         logger,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           wrapHandler(mux, cfg.MaxUploadMB<<20, logger),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	g.Go(func() error {
		logger.Info("Starting reportly",
			zap.String("addr", srv.Addr),
			zap.String("version", cfg.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// routeDeps is what registerRoutes needs beyond the repositories and
// services it builds itself.
type routeDeps struct {
	cfg            *config.Config
	db             *database.DB
	store          storage.Store
	serveStorage   bool
	authMiddleware *auth.Middleware
	userMiddleware handlers.UserMiddleware
	cookies        handlers.EditorCookies
	logger         *zap.Logger
}

func registerRoutes(mux *http.ServeMux, deps routeDeps) {
	cfg := deps.cfg
	logger := deps.logger
	pricingURL := cfg.PricingURL()

	scriptRepo := repositories.NewScriptRepository()
	templateRepo := repositories.NewDesignTemplateRepository()
	generationRepo := repositories.NewReportGenerationRepository()
	settingsRepo := repositories.NewUserSettingsRepository()

	usageService := services.NewUsageService(settingsRepo, generationRepo, scriptRepo, services.UsageLimits{
		MonthlyReports: cfg.Limits.FreeMonthlyReports,
		Scripts:        cfg.Limits.FreeScripts,
		PlanCacheTTL:   cfg.Limits.PlanCacheTTL,
	}, logger)
	scriptService := services.NewScriptService(scriptRepo, usageService, logger)
	editService := services.NewEditSessionService(scriptRepo, scriptService, cfg.Editor.SessionTTL, logger)
	templateService := services.NewDesignTemplateService(templateRepo, deps.store, logger)
	reportService := services.NewReportService(report.NewAssembler(time.Now), usageService, templateService, generationRepo, logger)
	settingsService := services.NewUserSettingsService(settingsRepo, deps.store, logger)

	handlers.NewHealthHandler(cfg, map[string]handlers.Pinger{"database": deps.db}, logger).RegisterRoutes(mux)
	handlers.NewScriptsHandler(scriptService, pricingURL, logger).
		RegisterRoutes(mux, deps.authMiddleware, deps.userMiddleware)
	handlers.NewEditSessionsHandler(editService, deps.cookies, pricingURL, logger).
		RegisterRoutes(mux, deps.authMiddleware, deps.userMiddleware)
	handlers.NewSQLHandler(logger).RegisterRoutes(mux, deps.authMiddleware)
	handlers.NewTemplatesHandler(templateService, pricingURL, logger).
		RegisterRoutes(mux, deps.authMiddleware, deps.userMiddleware)
	handlers.NewReportsHandler(reportService, pricingURL, logger).
		RegisterRoutes(mux, deps.authMiddleware, deps.userMiddleware)
	handlers.NewUsageHandler(usageService, logger).
		RegisterRoutes(mux, deps.authMiddleware, deps.userMiddleware)
	handlers.NewSettingsHandler(settingsService, logger).
		RegisterRoutes(mux, deps.authMiddleware, deps.userMiddleware)
	if deps.serveStorage {
		handlers.NewStorageHandler(deps.store, logger).RegisterRoutes(mux)
	}
}

// wrapHandler applies the process-wide middleware. Recoverer is outermost so
// a panic anywhere still produces a logged 500.
func wrapHandler(h http.Handler, maxBody int64, logger *zap.Logger) http.Handler {
	h = middleware.MaxBody(maxBody)(h)
	h = middleware.RequestLogger(logger)(h)
	return middleware.Recoverer(logger)(h)
}
