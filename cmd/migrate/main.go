package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/flexprice/debitsync/internal/clickhouse"
	"github.com/flexprice/debitsync/internal/config"
	"github.com/flexprice/debitsync/internal/logger"
	"github.com/flexprice/debitsync/internal/migrations"
	"github.com/flexprice/debitsync/internal/postgres"
	pgrepo "github.com/flexprice/debitsync/internal/repository/postgres"
	"github.com/flexprice/debitsync/internal/types"
)

func main() {
	direction := flag.String("direction", string(migrations.Up), "Migration direction for postgres: up or down")
	withClickHouse := flag.Bool("clickhouse", false, "Also apply the ClickHouse usage_debits DDL")
	dryRun := flag.Bool("dry-run", false, "Print the ClickHouse DDL without executing anything")
	seedFile := flag.String("seed", "", "JSON file of customers to link to their processor accounts after migrating up")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	if *dryRun {
		statements, err := migrations.ClickHouseStatements()
		if err != nil {
			logger.Fatalw("Failed to read clickhouse migrations", "error", err)
		}
		for _, stmt := range statements {
			fmt.Println(stmt + "\n")
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	logger.Infow("Connecting to database", "host", cfg.Postgres.Host)
	db, err := postgres.Connect(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatalw("Failed to connect to postgres", "error", err)
	}
	defer db.Close()

	logger.Infow("Running database migrations...", "direction", *direction)
	if err := migrations.RunPostgres(db.DB.DB, migrations.Direction(*direction), logger); err != nil {
		logger.Fatalw("Failed to migrate postgres", "error", err)
	}

	if *withClickHouse || cfg.Ledger.DebitStore == types.DebitStoreClickHouse {
		store, err := clickhouse.Connect(ctx, cfg, nil, logger)
		if err != nil {
			logger.Fatalw("Failed to connect to clickhouse", "error", err)
		}
		defer store.Close()

		if err := migrations.RunClickHouse(ctx, store.GetConn(), logger); err != nil {
			logger.Fatalw("Failed to migrate clickhouse", "error", err)
		}
	}

	if *seedFile != "" && migrations.Direction(*direction) == migrations.Up {
		f, err := os.Open(*seedFile)
		if err != nil {
			logger.Fatalw("Failed to open seed file", "file", *seedFile, "error", err)
		}
		defer f.Close()

		repo := pgrepo.NewCustomerRepository(db, logger, nil)
		result, err := migrations.SeedCustomers(ctx, repo, f, logger)
		if err != nil {
			logger.Fatalw("Failed to seed customers", "file", *seedFile, "error", err)
		}
		logger.Infow("Seeded customers", "created", result.Created, "skipped", result.Skipped)
	}

	logger.Info("Migration completed successfully")
}
