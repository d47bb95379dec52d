package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"go-sales-insights/internal/api"
	"go-sales-insights/internal/api/handler"
	"go-sales-insights/internal/config"
	"go-sales-insights/internal/forecast"
	"go-sales-insights/internal/pipeline"
	"go-sales-insights/internal/schema"
	"go-sales-insights/internal/session"
	"go-sales-insights/internal/store"
	"go-sales-insights/pkg/router"
	"go-sales-insights/pkg/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	cfg.SetupLogging()

	// Init DB
	if err := store.InitDB(cfg.DatabasePath); err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("failed to open database")
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache := newForecastCache(ctx, cfg)
	runner := pipeline.NewRunner(pipeline.NewForecaster(nil, cache), cfg.ForecastTimeout)
	sessions := session.NewManager(schema.NewResolver(cfg.Resolver), runner)

	outputs := utils.NewOutputManager(cfg.ExportDir)
	h := handler.New(sessions, outputs, cfg.MaxUploadMB)

	r := router.New()
	api.RegisterRoutes(r, h)

	if err := r.Start(ctx, cfg.Addr()); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// newForecastCache prefers Redis and falls back to an in-process cache when
// it is not configured or not reachable.
func newForecastCache(ctx context.Context, cfg *config.Config) forecast.Cache {
	if cfg.RedisURL == "" {
		return forecast.NewMemoryCache(0)
	}
	rc, err := forecast.NewRedisCache(cfg.RedisURL, cfg.CacheTTL)
	if err == nil {
		if err = rc.Ping(ctx); err != nil {
			rc.Close()
		}
	}
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, using in-memory forecast cache")
		return forecast.NewMemoryCache(0)
	}
	log.Info().Msg("✅ forecast cache connected to redis")
	return rc
}
