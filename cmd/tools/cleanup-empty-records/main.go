// cmd/tools/cleanup-empty-records/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"childcare-registration/internal/common/config"
	"childcare-registration/internal/common/database"
	"childcare-registration/internal/common/logger"
	"childcare-registration/internal/repository"
	builddashboard "childcare-registration/internal/workers/dashboard/build-dashboard"
	cleanupemptyrecords "childcare-registration/internal/workers/maintenance/cleanup-empty-records"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "Count empty records without deleting them")
	configPath := flag.String("config", "", "Path to a config file (default: configs/config.yaml and environment)")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, "console")
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("postgres open failed", zap.Error(err))
	}
	defer pg.Close()

	ctx := context.Background()
	if err := pg.Ping(ctx); err != nil {
		zapLog.Fatal("postgres unreachable", zap.Error(err))
	}

	var invalidator cleanupemptyrecords.Invalidator
	if cfg.Database.Redis.Enabled {
		rc, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			zapLog.Fatal("redis open failed", zap.Error(err))
		}
		defer rc.Close()
		invalidator = builddashboard.NewCache(rc.Client, cfg.Dashboard.CacheKey, cfg.Dashboard.GetCacheTTL())
	}

	store := repository.NewPostgresStore(pg.DB, clockwork.NewRealClock())
	handler := cleanupemptyrecords.NewHandler(cleanupemptyrecords.LoadConfig(), store, invalidator, log)

	out, err := handler.Execute(ctx, &cleanupemptyrecords.Input{DryRun: *dryRun})
	if err != nil {
		zapLog.Fatal("cleanup failed", zap.Error(err))
	}

	verb := "Deleted"
	if out.DryRun {
		verb = "Would delete"
	}
	tables := make([]string, 0, len(out.ByTable))
	for table := range out.ByTable {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	for _, table := range tables {
		fmt.Printf("%s %d empty rows from %s\n", verb, out.ByTable[table], table)
	}
	fmt.Printf("%s %d empty rows in total\n", verb, out.Total)
}
