package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mbeckner/fetch-fanout/pkg/cache"
	"github.com/mbeckner/fetch-fanout/pkg/config"
	"github.com/mbeckner/fetch-fanout/pkg/fetcher"
	"github.com/mbeckner/fetch-fanout/pkg/logging"
	"github.com/mbeckner/fetch-fanout/pkg/server"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		Output: os.Stderr,
	})

	// Optional fetched-body cache.
	var cacheManager *cache.Manager
	if cfg.Cache.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.Cache.RedisAddr,
			DB:   cfg.Cache.RedisDB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			cancel()
			logger.Fatal().Err(err).Str("addr", cfg.Cache.RedisAddr).Msg("Failed to connect to Redis")
		}
		cancel()

		cacheManager = cache.NewManager(redisClient, cfg.CacheTTLDuration())
		logger.Info().Str("addr", cfg.Cache.RedisAddr).Msg("Connected to Redis")
	}

	f, err := fetcher.New(fetcher.Config{
		UserAgent:      cfg.UserAgent,
		FetchTimeout:   cfg.FetchTimeoutDuration(),
		MaxConcurrency: cfg.MaxConcurrency,
		Cache:          cacheManager,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create fetcher")
	}

	srv := server.New(f, cacheManager, cfg.BatchTimeoutDuration())

	addr := fmt.Sprintf(":%d", cfg.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv.Handler(),
	}

	go func() {
		logger.Info().
			Str("addr", addr).
			Str("user_agent", cfg.UserAgent).
			Int("max_concurrency", cfg.MaxConcurrency).
			Bool("cache", cfg.Cache.Enabled).
			Msg("Starting fan-out sidecar")

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Forced shutdown")
	}
}
