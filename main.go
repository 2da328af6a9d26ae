package main

import (
	"context"
	"log"

	"epifam/adapters/fitcache"
	"epifam/adapters/glmm"
	"epifam/adapters/mcmc"
	"epifam/adapters/postgres"
	"epifam/adapters/tabular"
	"epifam/app"
	"epifam/domain/core"
	"epifam/internal"
	"epifam/internal/config"
	"epifam/ui"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	logger := internal.NewDefaultLogger()

	ctx := context.Background()

	reader := tabular.NewSubjectReader(cfg.Data.SubjectFile)
	subjects, err := reader.ReadSubjects(ctx)
	if err != nil {
		logger.Error("failed to read subject table: %v", err)
		log.Fatal(err)
	}
	logger.Info("loaded %d subjects from %s", len(subjects), cfg.Data.SubjectFile)

	cache, err := fitcache.Open(cfg.Run.CacheDir)
	if err != nil {
		logger.Error("failed to open fit cache: %v", err)
		log.Fatal(err)
	}
	defer cache.Close()

	frequentist := app.NewFrequentistFitter(glmm.NewSolver())
	bayesian := app.NewBayesianFitter(mcmc.NewSampler(), cache, cfg.Run.Refresh, cfg.Run.Seed)
	orchestrator := app.NewOrchestrator(frequentist, bayesian, logger)

	req := app.DefaultRunRequest()
	req.Workers = cfg.Run.Workers
	req.CellTimeout = cfg.Run.CellTimeout

	runID := core.NewRunID()
	logger.Info("starting analysis run %s (%d workers)", runID, req.Workers)
	results, err := orchestrator.Run(ctx, runID, subjects, req)
	if err != nil {
		logger.Error("analysis run failed: %v", err)
		log.Fatal(err)
	}
	logger.Info("analysis run %s finished with %d cells", runID, len(results))

	// Result persistence is optional: skipped when no database is configured.
	if cfg.Database.URL != "" {
		db, err := sqlx.Connect("postgres", cfg.Database.URL)
		if err != nil {
			logger.Error("failed to connect to database: %v", err)
			log.Fatal(err)
		}
		defer db.Close()
		repo := postgres.NewResultRepository(db)
		if err := repo.SaveResults(ctx, runID, results); err != nil {
			logger.Error("failed to persist results: %v", err)
			log.Fatal(err)
		}
		logger.Info("persisted run %s", runID)
	} else {
		logger.Warn("DATABASE_URL not set, skipping result persistence")
	}

	server := ui.NewServer(cfg.Server.GinMode)
	server.SetResults(results)
	logger.Info("serving results on port %s", cfg.Server.Port)
	if err := server.Run(cfg.Server.Port); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
