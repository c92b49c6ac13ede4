package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"namecollector/internal/config"
	"namecollector/internal/logger"
	"namecollector/internal/ratelimit"
	"namecollector/internal/server"
	"namecollector/internal/submissions"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "err", err)
	}

	cfg := config.MustLoad()

	log := logger.SetupLogger(cfg.Env)
	slog.SetDefault(log)
	slog.Info("config loaded",
		"env", cfg.Env,
		"addr", cfg.HTTPServer.Address(),
		"storage_path", cfg.Storage.Path,
		"static_dir", cfg.StaticDir,
		"rate_limit_max", cfg.RateLimit.Max,
		"rate_limit_window", cfg.RateLimit.Window,
	)
	if cfg.Admin.UsesDefaults() {
		slog.Warn("admin credentials are the built-in defaults, set ADMIN_USER and ADMIN_PASS")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store := submissions.NewFileStore(cfg.Storage.Path)
	if err := store.Ensure(); err != nil {
		slog.Error("failed to init submission log", "error", err)
		os.Exit(1)
	}

	limiter := ratelimit.NewWindowStore(cfg.RateLimit.Max, cfg.RateLimit.Window)
	limiter.StartJanitor(ctx)

	stats, closeStats, err := newStatsStore(ctx, cfg.RateLimit.Stats)
	if err != nil {
		slog.Error("failed to init rate limit stats", "error", err)
		os.Exit(1)
	}
	defer closeStats()

	svc := submissions.NewService(store)
	router := server.NewRouter(cfg, server.Deps{
		Submissions:   submissions.NewHandler(svc),
		Limiter:       limiter,
		Stats:         stats,
		RequestLogger: logger.NewRequestLogger(cfg.Env),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPServer.Address(),
		Handler:           router,
		ReadHeaderTimeout: cfg.HTTPServer.Timeout,
		ReadTimeout:       cfg.HTTPServer.Timeout,
		WriteTimeout:      cfg.HTTPServer.Timeout,
		IdleTimeout:       cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		slog.Info("starting http server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down http server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}
}

// newStatsStore uses Redis when an address is configured and falls back to
// in-process counters otherwise.
func newStatsStore(ctx context.Context, cfg config.RateStats) (ratelimit.StatsStore, func(), error) {
	if cfg.RedisAddr == "" {
		return ratelimit.NewMemoryStats(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	slog.Info("rate limit stats in redis", "addr", cfg.RedisAddr, "prefix", cfg.Prefix)

	return ratelimit.NewRedisStats(rdb, cfg.Prefix, cfg.TTL), func() { _ = rdb.Close() }, nil
}
