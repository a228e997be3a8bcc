package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"media-suite-accounts/internal/config"
	pg "media-suite-accounts/internal/infra/db/postgres"
	httpadmin "media-suite-accounts/internal/infra/http"
	"media-suite-accounts/internal/infra/logging"
	"media-suite-accounts/internal/infra/metrics"
	red "media-suite-accounts/internal/infra/redis"
	"media-suite-accounts/internal/infra/sched"
	"media-suite-accounts/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()

	// ---- Sessions ----
	// The auth and activation use cases are embedded by their consumers;
	// this process runs the sweep plus the admin surface.
	tm := pg.NewTxManager(pool)
	sessionRepo := pg.NewSessionRepo(pool)
	sessionUC := usecase.NewSessionUseCase(sessionRepo, tm, cfg.Auth.InactiveRetention, logger)

	// ---- Session sweep worker ----
	worker := sched.NewSweepWorker(cfg.Auth.SweepInterval, sessionUC, logger)
	go func() { _ = worker.Run(ctx) }()

	// ---- Admin server (/healthz /readyz /metrics) ----
	admin := httpadmin.NewServer(cfg, pool, redisClient, logger)
	go func() {
		if err := admin.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("admin server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := admin.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("admin server shutdown")
	}
	cancel()
}
