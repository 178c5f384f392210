// Package main is the entrypoint for the StageWatch API server.
package main

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

	"github.com/joho/godotenv"
	"github.com/stagewatch/stagewatch/internal/api"
	"github.com/stagewatch/stagewatch/internal/api/handler"
	mw "github.com/stagewatch/stagewatch/internal/api/middleware"
	"github.com/stagewatch/stagewatch/internal/cache"
	"github.com/stagewatch/stagewatch/internal/config"
	"github.com/stagewatch/stagewatch/internal/ingest"
	"github.com/stagewatch/stagewatch/internal/scheduler"
	"github.com/stagewatch/stagewatch/internal/scraper"
	"github.com/stagewatch/stagewatch/internal/sources"
	"github.com/stagewatch/stagewatch/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// 1. Load config — fail fast on invalid config
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "sources", cfg.Scraper.Sources)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create store and ingestion pipeline
	pgStore := store.NewPostgresStore(pool)

	srcs, err := sources.Build(cfg.Scraper)
	if err != nil {
		return fmt.Errorf("build sources: %w", err)
	}
	agg := scraper.NewAggregator(srcs, cfg.Scraper.Concurrency, cfg.Scraper.SourceTimeout, logger)
	runner := ingest.NewRunner(pgStore, agg, redisCache, logger)
	sched := scheduler.New(runner.Run, logger)

	// 6. Build router with dependencies
	rateLimit := mw.NewRateLimit(redisCache, 120)

	deps := api.Dependencies{
		RateLimit: rateLimit,

		HealthHandler:        handler.NewHealthHandler(pgStore, redisCache),
		StatsHandler:         handler.NewStatsHandler(pgStore, redisCache),
		FilterOptionsHandler: handler.NewFilterOptionsHandler(pgStore),

		ListConcerts:     handler.NewListConcertsHandler(pgStore),
		UpcomingConcerts: handler.NewUpcomingConcertsHandler(pgStore),
		FeaturedConcerts: handler.NewFeaturedConcertsHandler(pgStore),
		GetConcert:       handler.NewGetConcertHandler(pgStore),
		CreateConcert:    handler.NewCreateConcertHandler(pgStore),
		DeleteConcert:    handler.NewDeleteConcertHandler(pgStore),

		ListArtists:     handler.NewListArtistsHandler(pgStore),
		TrendingArtists: handler.NewTrendingArtistsHandler(pgStore, redisCache),

		ListVenues:     handler.NewListVenuesHandler(pgStore),
		FeaturedVenues: handler.NewFeaturedVenuesHandler(pgStore, redisCache),

		TriggerScrape:  handler.NewTriggerScrapeHandler(sched),
		ScrapeStatus:   handler.NewScrapeStatusHandler(sched, pgStore),
		ListScrapeJobs: handler.NewListScrapeJobsHandler(pgStore),
		GetScrapeJob:   handler.NewGetScrapeJobHandler(pgStore, redisCache),
	}

	router := api.NewRouter(deps)

	// 7. Start the ingestion schedule: one immediate run, then recurring
	sched.Start(cfg.Scraper.Interval)

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		sched.Stop()
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Stop scheduling first so no new run starts mid-shutdown; Stop also
	// waits out an in-flight run.
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
