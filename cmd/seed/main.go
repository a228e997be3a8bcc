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
	"media-suite-accounts/internal/usecase"
)

var typeNames = map[string]model.CodeType{
	"day":       model.CodeTypeDay,
	"month":     model.CodeTypeMonth,
	"year":      model.CodeTypeYear,
	"permanent": model.CodeTypePermanent,
}

// Administrative CLI: mint activation code batches and hand them out.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	typeName := flag.String("type", "month", "code type: day|month|year|permanent")
	count := flag.Int("count", 10, "number of codes to create")
	distribute := flag.Bool("distribute", false, "also mark the batch as distributed and print the codes")
	flag.Parse()

	codeType, ok := typeNames[*typeName]
	if !ok {
		log.Fatalf("unknown code type %q", *typeName)
	}

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log, false)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	codeRepo := pg.NewActivationCodeRepo(pool)
	tm := pg.NewTxManager(pool)
	codeUC := usecase.NewActivationCodeUseCase(codeRepo, tm, cfg.Auth.GraceHours, logger)

	created, err := codeUC.BatchInit(ctx, codeType, *count)
	if err != nil {
		log.Fatalf("batch init: %v", err)
	}
	fmt.Printf("created %d %s codes\n", len(created), codeType.Desc())

	if *distribute {
		codes, err := codeUC.Distribute(ctx, codeType, *count)
		if err != nil {
			log.Fatalf("distribute: %v", err)
		}
		for _, c := range codes {
			fmt.Println(c)
		}
	}

	remaining, err := codeUC.CountUnused(ctx, codeType)
	if err != nil {
		log.Fatalf("count unused: %v", err)
	}
	fmt.Printf("unused %s inventory: %d\n", codeType.Desc(), remaining)
}
