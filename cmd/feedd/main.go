package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/reelfeed/internal/api/handler"
	"github.com/hszk-dev/reelfeed/internal/api/middleware"
	"github.com/hszk-dev/reelfeed/internal/config"
	"github.com/hszk-dev/reelfeed/internal/infrastructure/cache"
	"github.com/hszk-dev/reelfeed/internal/infrastructure/player"
	"github.com/hszk-dev/reelfeed/internal/infrastructure/postgres"
	"github.com/hszk-dev/reelfeed/internal/infrastructure/queue"
	"github.com/hszk-dev/reelfeed/internal/infrastructure/storage"
	"github.com/hszk-dev/reelfeed/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Infrastructure clients
	pgClient, err := postgres.NewClient(ctx, postgres.DefaultClientConfig(cfg.Database.DSN()))
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pgClient.Close()
	logger.Info("connected to PostgreSQL")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("connected to Redis")

	storageClient, err := storage.NewClient(ctx, storage.ClientConfig{
		Endpoint:  cfg.MinIO.Endpoint,
		AccessKey: cfg.MinIO.AccessKey,
		SecretKey: cfg.MinIO.SecretKey,
		Bucket:    cfg.MinIO.Bucket,
		UseSSL:    cfg.MinIO.UseSSL,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to MinIO: %w", err)
	}
	logger.Info("connected to MinIO")

	queueClient, err := queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL()))
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer queueClient.Close()
	logger.Info("connected to RabbitMQ")

	// Feed cache assembly
	factory := player.NewFactory(storageClient, player.FactoryConfig{
		PrefetchBytes:  cfg.Prefetch.Bytes,
		PlaybackURLTTL: cfg.Prefetch.PlaybackURLTTL,
	})
	catalog := usecase.NewCatalog(cfg.Feed.CatalogCeiling)
	scheduler := usecase.NewScheduler(catalog, factory, usecase.SchedulerConfig{
		Window: usecase.WindowProfile{
			Behind: cfg.Feed.WindowBehind,
			Ahead:  cfg.Feed.WindowAhead,
		},
		PressureAhead:  cfg.Feed.PressureAhead,
		MaxControllers: cfg.Feed.MaxControllers,
		AcquireTimeout: cfg.Feed.AcquireTimeout,
		MaxRetries:     cfg.Feed.MaxRetries,
		NotifyDebounce: cfg.Feed.NotifyDebounce,
	})
	defer scheduler.Close()

	seenRepo := postgres.NewSeenRepository(pgClient.Pool())
	verdictCache := cache.NewRedisVerdictCache(redisClient)
	seenFilter := usecase.NewCachedSeenFilter(seenRepo, verdictCache, usecase.SeenFilterConfig{
		CacheTTL: cfg.Feed.SeenVerdictTTL,
	})
	ingest := usecase.NewIngestService(queueClient, seenFilter, scheduler)

	// Announcement consumer
	errCh := make(chan error, 1)
	go func() {
		logger.Info("consuming video announcements")
		if err := ingest.Run(ctx); err != nil && ctx.Err() == nil {
			errCh <- fmt.Errorf("ingest error: %w", err)
		}
	}()

	// HTTP surface
	feedHandler := handler.NewFeedHandler(scheduler, seenFilter, queueClient)
	r := setupRouter(logger, feedHandler, map[string]handler.Pinger{
		"postgres": pgClient,
		"redis":    redisPinger{client: redisClient},
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info("starting server", slog.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	// Stop consuming before the deferred scheduler.Close destroys the
	// remaining controllers.
	cancel()

	logger.Info("server stopped")
	return nil
}

func setupRouter(logger *slog.Logger, feed *handler.FeedHandler, deps map[string]handler.Pinger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	r.Get("/healthz", handler.Health)
	r.Get("/readyz", handler.Readiness(deps))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/feed", func(r chi.Router) {
			r.Get("/", feed.List)
			r.Get("/stats", feed.Stats)
			r.Post("/position", feed.ReportPosition)
			r.Post("/announcements", feed.Announce)

			r.Route("/{videoID}", func(r chi.Router) {
				r.Get("/", feed.Get)
				r.Delete("/", feed.Remove)
				r.Post("/retry", feed.Retry)
				r.Post("/reload", feed.Reload)
				r.Post("/release", feed.Release)
				r.Post("/seen", feed.MarkSeen)
				r.Post("/block", feed.Block)
			})
		})
		r.Post("/system/pressure", feed.MemoryPressure)
	})

	return r
}

// redisPinger adapts the Redis client to the readiness Pinger contract.
type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
