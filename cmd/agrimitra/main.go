package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/agrimitra/agrimitra/internal/config"
	"github.com/agrimitra/agrimitra/internal/database"
	"github.com/agrimitra/agrimitra/internal/observability"
	"github.com/agrimitra/agrimitra/internal/server"
)

func main() {
	_ = godotenv.Load()

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.RunMigrations(ctx, cfg.Database.URL); err != nil {
		logger.Fatal().Err(err).Msg("migrations")
	}

	nrApp := observability.NewApplication(cfg.Observability, logger)

	pool, err := database.NewPool(ctx, cfg.Database, nrApp, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("database pool")
	}
	defer pool.Close()

	srv := server.New(cfg, pool, nrApp, logger)
	logger.Info().Str("port", cfg.Server.Port).Msg("agrimitra API listening")
	if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
}
