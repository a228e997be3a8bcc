package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"media-suite-accounts/internal/config"
	"media-suite-accounts/internal/domain/model"
	pg "media-suite-accounts/internal/infra/db/postgres"
	"media-suite-accounts/internal/infra/logging"
	red "media-suite-accounts/internal/infra/redis"
	"media-suite-accounts/internal/usecase"
)

// Resets the backing stores to a clean, predictable state for manual
// end-to-end testing: empty tables, empty token cache, a small distributed
// code inventory ready to redeem.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 5)
	if err != nil {
		log.Fatalf("postgres connection failed: %v", err)
	}
	defer pool.Close()

	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer redisClient.Close()

	log.Println("--- Starting E2E Environment Setup ---")

	log.Println("[1/3] Wiping Redis token cache...")
	if err := redisClient.FlushDB(ctx); err != nil {
		log.Fatalf("failed to flush redis: %v", err)
	}

	log.Println("[2/3] Wiping all existing database data...")
	if _, err := pool.Exec(ctx, `
		TRUNCATE sessions, users, activation_codes RESTART IDENTITY CASCADE;
	`); err != nil {
		log.Fatalf("failed to truncate tables: %v", err)
	}

	log.Println("[3/3] Seeding a distributed code inventory...")
	codeRepo := pg.NewActivationCodeRepo(pool)
	tm := pg.NewTxManager(pool)
	codeUC := usecase.NewActivationCodeUseCase(codeRepo, tm, cfg.Auth.GraceHours, logger)

	for name, t := range map[string]model.CodeType{
		"day": model.CodeTypeDay, "month": model.CodeTypeMonth, "year": model.CodeTypeYear,
	} {
		if _, err := codeUC.BatchInit(ctx, t, 5); err != nil {
			log.Fatalf("batch init %s: %v", name, err)
		}
		codes, err := codeUC.Distribute(ctx, t, 5)
		if err != nil {
			log.Fatalf("distribute %s: %v", name, err)
		}
		fmt.Printf("%s codes ready to redeem:\n", name)
		for _, c := range codes {
			fmt.Printf("  %s\n", c)
		}
	}

	log.Println("--- E2E Environment Setup Complete ---")
}
