package main

import (
	"context"

	"go.uber.org/zap"

	"stroomtracker/internal/migration"
	"stroomtracker/pkg/config"
	"stroomtracker/pkg/database"
	"stroomtracker/pkg/logger"
)

// One-shot migration from the legacy single-user schema to the multi-tenant
// schema. Take a database snapshot before running; on any error the run
// aborts and the snapshot is the rollback path.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting legacy data migration", zap.String("db_name", cfg.DB.DBName))

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	runner := migration.NewRunner(migration.NewGormStore(db), log)
	summary, err := runner.Run(context.Background())
	if err != nil {
		log.Fatal("Migration failed, restore the pre-migration snapshot", zap.Error(err))
	}

	log.Info("Migration complete",
		zap.Int("tenants_created", summary.TenantsCreated),
		zap.Int64("vouchers_backfilled", summary.VouchersBackfilled),
		zap.Int64("readings_backfilled", summary.ReadingsBackfilled))
}
