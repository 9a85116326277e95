package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/serenqa/serentrace/internal/alignment"
	"github.com/serenqa/serentrace/internal/config"
	"github.com/serenqa/serentrace/internal/leaderboard"
	"github.com/serenqa/serentrace/internal/memory"
	"github.com/serenqa/serentrace/internal/server"
	"github.com/serenqa/serentrace/internal/storage"
	"github.com/serenqa/serentrace/internal/storage/sqlite"
	"github.com/serenqa/serentrace/internal/telemetry"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv("SEREN_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize OpenTelemetry
	shutdown, err := telemetry.InitTracer("serentrace", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	var store storage.Store
	if cfg.Storage.Type == "sqlite" {
		s, err := sqlite.New(cfg.Storage.SQLite.Path)
		if err != nil {
			log.Fatalf("Failed to open storage: %v", err)
		}
		defer s.Close()
		store = s
		logger.Info("storage enabled", slog.String("path", cfg.Storage.SQLite.Path))
	}

	aligner, err := alignment.NewEngine()
	if err != nil {
		log.Fatalf("Failed to create alignment engine: %v", err)
	}
	folder := memory.NewFolder(aligner,
		memory.WithConfidenceThreshold(cfg.Fold.ConfidenceThreshold),
		memory.WithWindowSize(cfg.Fold.Window),
	)
	board := leaderboard.New()
	registry := server.NewRegistry(store, cfg.Trace.EnforceStageOrder)

	ctx := context.Background()
	if err := registry.LoadFromStore(ctx); err != nil {
		log.Fatalf("Failed to load traces: %v", err)
	}
	if store != nil {
		contributors, err := store.ListContributors(ctx)
		if err != nil {
			log.Fatalf("Failed to load contributors: %v", err)
		}
		for _, stats := range contributors {
			board.AddContributor(stats)
		}
	}

	srv := server.New(cfg.Server.Port, logger, registry, aligner, folder, board, store)
	if err := srv.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
