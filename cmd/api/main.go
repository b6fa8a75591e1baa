package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"base-api/internal/infrastructure/config"
	"base-api/internal/infrastructure/db"
	httpapi "base-api/internal/interface/http"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		logger.Fatal().Err(err).Msg("load config failed")
	}
	logger.Info().Str("addr", cfg.Addr()).Msg("configuration loaded")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}
	defer pool.Close()
	logger.Info().Msg("database connected")

	if err := db.Migrate(ctx, pool, db.Migrations); err != nil {
		logger.Fatal().Err(err).Msg("run migrations failed")
	}

	apiServer := httpapi.NewServer(cfg, pool, logger)
	logger.Info().Str("addr", cfg.Addr()).Msg("starting HTTP server")
	if err := http.ListenAndServe(cfg.Addr(), apiServer.Handler()); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
