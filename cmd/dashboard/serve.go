package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/subcommands"
	"github.com/rs/zerolog/log"
	"github.com/trogers1052/portfolio-dashboard/internal/api"
	"github.com/trogers1052/portfolio-dashboard/internal/config"
	"github.com/trogers1052/portfolio-dashboard/internal/database"
	"github.com/trogers1052/portfolio-dashboard/internal/logging"
	"github.com/trogers1052/portfolio-dashboard/internal/metrics"
	"github.com/trogers1052/portfolio-dashboard/internal/models"
	"github.com/trogers1052/portfolio-dashboard/internal/portfolio"
	"github.com/trogers1052/portfolio-dashboard/internal/redis"
)

type serveCmd struct {
	migrate bool
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the dashboard HTTP API with live price updates" }
func (*serveCmd) Usage() string {
	return `dashboard serve [-migrate]

  Loads the configured user's holdings from PostgreSQL, subscribes to live
  price updates and serves the recomputed portfolio over HTTP.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.migrate, "migrate", false, "Apply database migrations before starting (also DB_MIGRATE).")
}

func (c *serveCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg := config.Load()

	closer, err := logging.Init("portfolio-dashboard", cfg.Log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize logging")
		return subcommands.ExitFailure
	}
	defer closer.Close()

	m := metrics.New()

	// Connect to database
	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to database")
		return subcommands.ExitFailure
	}
	defer db.Close()
	log.Info().Msg("Connected to PostgreSQL database")

	if c.migrate || cfg.Database.Migrate {
		if err := runMigrations(cfg.Database.ConnectionString()); err != nil {
			log.Error().Err(err).Msg("Failed to run database migrations")
			return subcommands.ExitFailure
		}
	}

	recalc := portfolio.New(m)
	deps := api.Deps{
		Portfolio:    recalc,
		DB:           db,
		KafkaEnabled: cfg.Kafka.Enabled,
		Metrics:      m,
	}

	// Connect to Redis
	var cache *redis.Client
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to connect to Redis (continuing without cache)")
	} else {
		defer redisClient.Close()
		cache = redisClient
		deps.Redis = redisClient
		recalc.AddView(redis.NewPublisher(redisClient))
		log.Info().Msg("Connected to Redis cache")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloader := portfolio.NewReloader(recalc, db, cfg.Dashboard.Username)
	if err := reloader.Reload(ctx); err != nil {
		log.Error().Err(err).Str("username", cfg.Dashboard.Username).Msg("Failed to load holdings")
		return subcommands.ExitFailure
	}
	deps.Reloader = reloader

	backend := newBackendClient(cfg, m, cacheOrNil(cache))
	deps.Prices = backend
	deps.Seller = backend

	updates := make(chan models.PriceUpdateEvent, updateBuffer)
	deps.Updates = updates
	go func() {
		if err := recalc.Run(ctx, updates); err != nil {
			log.Error().Err(err).Msg("Price update loop error")
		}
	}()

	f, err := startFeeds(ctx, cfg, m, recalc, updates, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to start price feeds")
		return subcommands.ExitFailure
	}
	if f.live != nil {
		deps.Live = f.live
	}

	// Set up HTTP handler and routes
	router := api.SetupRoutes(api.NewHandler(deps))

	addr := cfg.Server.Address()
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Failed to start server")
			cancel()
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server...")

	// Cancel context to stop the feeds and the update loop
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	status := subcommands.ExitSuccess
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		status = subcommands.ExitFailure
	}
	f.Close()

	log.Info().Msg("Server stopped")
	return status
}
