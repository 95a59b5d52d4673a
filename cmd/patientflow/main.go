package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/patientflow/internal/config"
	"github.com/ehr/patientflow/internal/domain/department"
	"github.com/ehr/patientflow/internal/domain/intake"
	"github.com/ehr/patientflow/internal/domain/laboratory"
	"github.com/ehr/patientflow/internal/domain/labtemplate"
	"github.com/ehr/patientflow/internal/domain/pharmacy"
	"github.com/ehr/patientflow/internal/domain/visit"
	"github.com/ehr/patientflow/internal/platform/backend"
	"github.com/ehr/patientflow/internal/platform/db"
	"github.com/ehr/patientflow/internal/platform/middleware"
	"github.com/ehr/patientflow/internal/platform/session"
)

const apiPrefix = "/api/v1"

func main() {
	rootCmd := &cobra.Command{
		Use:   "patientflow",
		Short: "Hospital patient flow gateway",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(templatesCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// app holds the dependencies the router is built from.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	backend  *backend.Client
	manager  *session.Manager
	history  visit.HistoryRepository
	registry *labtemplate.Registry
	limiter  *middleware.ClientRateLimiter
	checks   []db.Check
}

func newRouter(a *app) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Pre(echomw.RemoveTrailingSlash())

	// Global middleware
	e.Use(middleware.Recovery(a.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.logger))
	e.Use(middleware.SecurityHeaders(a.cfg.IsProduction()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  a.cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:  []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
		ExposeHeaders: []string{echo.HeaderContentDisposition, middleware.RequestIDHeader},
	}))
	e.Use(echomw.BodyLimit("1M"))
	e.Use(middleware.RequestTimeout(a.cfg.RequestTimeout))

	e.GET("/health", db.HealthHandler(a.checks...))

	public := e.Group(apiPrefix, middleware.RateLimit(a.limiter))
	protected := e.Group(apiPrefix,
		session.Middleware(a.manager),
		middleware.RateLimit(a.limiter),
		middleware.Audit(a.logger, apiPrefix, nil),
	)

	historySvc := visit.NewHistoryService(a.history, a.logger.With().Str("component", "visit").Logger())

	session.NewHandler(a.manager, a.logger.With().Str("component", "session").Logger()).
		RegisterRoutes(public, protected)

	intake.NewHandler(intake.NewService(a.backend, a.logger.With().Str("component", "intake").Logger())).
		RegisterRoutes(protected)

	department.NewHandler(department.NewService(a.backend, historySvc, a.registry,
		a.logger.With().Str("component", "department").Logger())).
		RegisterRoutes(protected)

	laboratory.NewHandler(laboratory.NewService(a.backend, a.registry, historySvc,
		a.logger.With().Str("component", "laboratory").Logger())).
		RegisterRoutes(protected)

	pharmacy.NewHandler(pharmacy.NewService(a.backend, a.logger.With().Str("component", "pharmacy").Logger())).
		RegisterRoutes(protected)

	visitGroup := protected.Group("", session.RequireRole(session.RoleDepartment, session.RoleLaboratory))
	visit.NewHandler(historySvc).RegisterRoutes(visitGroup)

	return e
}

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg.Env)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	signingKey, err := cfg.SessionKey()
	if err != nil {
		return fmt.Errorf("invalid session key: %w", err)
	}

	ctx := context.Background()
	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: labtemplate.DefaultRegistry(),
		backend: backend.New(backend.Config{
			BaseURL: cfg.BackendURL,
			Timeout: cfg.BackendTimeout,
		}, logger),
	}

	// Status history store
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		a.history = visit.NewHistoryRepoPG(pool)
		a.checks = append(a.checks, db.PoolCheck(pool))
		logger.Info().Msg("connected to database")
	} else {
		a.history = visit.NewHistoryRepoMem()
		logger.Warn().Msg("DATABASE_URL not set; status history is kept in memory")
	}

	// Session revocation
	var store session.RevocationStore
	if cfg.RedisURL != "" {
		client, err := session.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		store = session.NewRedisRevocationStore(client, "")
		a.checks = append(a.checks, db.Check{
			Name: "redis",
			Probe: func(ctx context.Context) (interface{}, error) {
				return nil, client.Ping(ctx).Err()
			},
		})
		logger.Info().Msg("connected to redis")
	} else {
		store = session.NewMemoryRevocationStore(time.Minute)
	}
	defer store.Close()

	a.manager = session.NewManager(session.Config{SigningKey: signingKey, TTL: cfg.SessionTTL}, a.backend, store)

	a.limiter = middleware.NewClientRateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	})
	stopCleanup := make(chan struct{})
	defer close(stopCleanup)
	go a.limiter.Run(time.Minute, stopCleanup)

	e := newRouter(a)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("backend", cfg.BackendURL).Msg("starting gateway")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down gateway")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info().Msg("gateway stopped")
	return nil
}
