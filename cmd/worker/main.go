package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/ideapods/moderation/internal/audit"
	"github.com/ideapods/moderation/internal/cache"
	"github.com/ideapods/moderation/internal/config"
	"github.com/ideapods/moderation/internal/database"
	"github.com/ideapods/moderation/internal/moderation"
	"github.com/ideapods/moderation/internal/queue"
	"github.com/ideapods/moderation/internal/queue/workers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx := context.Background()

	var recorder workers.Recorder
	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Warn("database unavailable, verdicts will not be audited", "error", err)
	} else {
		defer db.Close()
		recorder = audit.NewService(db)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	metrics := moderation.NewMetrics(prometheus.DefaultRegisterer)
	orch := moderation.NewFromConfig(cfg.Moderation, cache.NewCache(rdb, "moderation"), metrics)

	srv := asynq.NewServer(
		queue.RedisOpt(cfg.Redis),
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:              cfg.Worker.MetricsAddr,
		Handler:           metricsRouter,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("serving worker metrics", "addr", cfg.Worker.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "error", err)
		}
	}()
	defer metricsSrv.Close()

	registry := queue.NewHandlersRegistry()
	registry.Register(queue.TypeModerationRun, workers.NewModerationWorker(orch, recorder))

	slog.Info("starting moderation worker", "concurrency", cfg.Worker.Concurrency, "provider_ready", orch.ProviderReady())
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
