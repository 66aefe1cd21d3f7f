package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/groundupcareers/resume-enhancer/internal/auth"
	"github.com/groundupcareers/resume-enhancer/internal/config"
	"github.com/groundupcareers/resume-enhancer/internal/crypto"
	"github.com/groundupcareers/resume-enhancer/internal/enhance"
	"github.com/groundupcareers/resume-enhancer/internal/provider"
	"github.com/groundupcareers/resume-enhancer/internal/server"
	"github.com/groundupcareers/resume-enhancer/internal/storage"
	"github.com/groundupcareers/resume-enhancer/internal/storage/memory"
	"github.com/groundupcareers/resume-enhancer/internal/storage/sqlite"
	"github.com/groundupcareers/resume-enhancer/internal/telemetry"
	"github.com/groundupcareers/resume-enhancer/internal/tokens"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	shutdownTracer, err := telemetry.InitTracer("resume-enhancer", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	var store storage.Store
	switch cfg.Storage.Type {
	case "memory":
		store = memory.New()
	default:
		store, err = sqlite.New(cfg.Storage.SQLite.Path)
		if err != nil {
			log.Fatalf("Failed to open storage: %v", err)
		}
	}
	defer store.Close()

	codec, err := crypto.NewCodec(cfg.Crypto.Secret)
	if err != nil {
		log.Fatalf("Failed to initialize crypto: %v", err)
	}

	if cfg.Fallback.APIKey == "" {
		logger.Warn("no fallback provider key configured, users without credentials cannot enhance")
	}

	var abacusOpts []provider.AbacusOption
	if cfg.Fallback.BaseURL != "" {
		abacusOpts = append(abacusOpts, provider.WithAbacusBaseURL(cfg.Fallback.BaseURL))
	}
	registry := provider.NewRegistry(
		provider.NewOpenAI(),
		provider.NewAnthropic(),
		provider.NewGoogle(),
		provider.NewAbacus(cfg.Fallback.APIKey, abacusOpts...),
	)

	client := provider.NewStreamClient()

	orchestrator := enhance.New(store, registry, client, codec, logger,
		enhance.WithStreamTimeout(cfg.Enhance.StreamTimeout),
		enhance.WithTokenEstimator(tokens.NewEstimator()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := enhance.NewSweeper(store, logger, cfg.Enhance.SweepInterval, cfg.Enhance.SweepAge)
	go sweeper.Run(ctx)

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret)
	srv := server.New(cfg.Server.Port, logger, store, orchestrator, verifier, codec)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	case <-sigChan:
		logger.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
