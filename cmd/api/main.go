package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/ideapods/moderation/internal/api"
	"github.com/ideapods/moderation/internal/api/handlers"
	"github.com/ideapods/moderation/internal/audit"
	"github.com/ideapods/moderation/internal/cache"
	"github.com/ideapods/moderation/internal/config"
	"github.com/ideapods/moderation/internal/database"
	"github.com/ideapods/moderation/internal/moderation"
	"github.com/ideapods/moderation/internal/queue"
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

	// Database (optional — verdicts are not audited without it)
	var db *pgxpool.Pool
	var auditLog handlers.AuditLog
	if pool, err := database.NewPool(ctx, cfg.Database); err != nil {
		slog.Warn("database unavailable, running without audit log", "error", err)
	} else {
		db = pool
		defer db.Close()

		if err := database.RunMigrations(ctx, db, os.DirFS(cfg.Database.MigrationsPath)); err != nil {
			slog.Warn("migrations failed", "error", err)
		}
		auditLog = audit.NewService(db)
	}

	// Redis (optional — no provider cache and no async moderation without it)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	var store moderation.ResultStore
	var enqueuer handlers.Enqueuer
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, running without cache and queue", "error", err)
	} else {
		store = cache.NewCache(rdb, "moderation")
		qc := queue.NewClient(cfg.Redis)
		defer qc.Close()
		enqueuer = qc
	}

	metrics := moderation.NewMetrics(prometheus.DefaultRegisterer)
	orch := moderation.NewFromConfig(cfg.Moderation, store, metrics)

	router := api.NewRouter(api.Deps{
		DB:        db,
		Redis:     rdb,
		Config:    cfg,
		Moderator: orch,
		Audit:     auditLog,
		Queue:     enqueuer,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Moderation.Timeout + 15*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting moderation API", "addr", cfg.Addr(), "provider_ready", orch.ProviderReady())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}
