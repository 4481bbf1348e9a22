// Command seed imports a season definition file into MongoDB. It is meant
// for standing up a new pool or restoring one from a backup export:
//
//	go run ./cmd/seed -file seasons/season48.yaml
//
// The import is idempotent; contestants and entries are upserted, so
// re-running against an existing season refreshes it in place.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/benson/survivor/config"
	"github.com/benson/survivor/database"
	"github.com/benson/survivor/logging"
	"github.com/benson/survivor/services"
)

func main() {
	var (
		file    = flag.String("file", "", "path to the season seed file (YAML)")
		timeout = flag.Duration("timeout", 2*time.Minute, "overall import timeout")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Failed to load configuration: %v", err)
	}
	logging.Configure(cfg.ToLoggingConfig())
	logger := logging.WithPrefix("Seed")

	path := *file
	if path == "" {
		path = cfg.App.SeedFile
	}
	if path == "" {
		logger.Fatal("No seed file given; pass -file or set SEED_FILE")
	}

	seed, err := services.LoadFile(path)
	if err != nil {
		logger.Fatalf("Failed to load seed file: %v", err)
	}

	db, err := database.NewMongoConnection(cfg.ToDatabaseConfig())
	if err != nil {
		logger.Fatalf("Database connection failed: %v", err)
	}
	defer db.Close()

	seasonRepo := database.NewMongoSeasonRepository(db)
	contestantRepo := database.NewMongoContestantRepository(db)
	entryRepo := database.NewMongoEntryRepository(db)
	userRepo := database.NewMongoUserRepository(db)

	engine := services.NewScoringService()
	standings := services.NewStandingsService(seasonRepo, contestantRepo, entryRepo, engine)
	seasons := services.NewSeasonService(seasonRepo, contestantRepo, entryRepo, standings)
	seeder := services.NewSeedService(seasons, contestantRepo, contestantRepo, entryRepo, userRepo, standings)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	summary, err := seeder.Apply(ctx, seed)
	if err != nil {
		logger.Fatalf("Import failed: %v", err)
	}

	logger.Infof("Imported season %s from %s", seed.Season.ID, path)
	logger.Infof("  contestants: %d", summary.Contestants)
	logger.Infof("  entries:     %d (skipped %d)", summary.Entries, summary.Skipped)
	logger.Infof("  admins:      %d", summary.Admins)
}
