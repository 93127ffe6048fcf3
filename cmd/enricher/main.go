package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/channel-enricher/internal/app"
	"github.com/lueurxax/channel-enricher/internal/platform/config"
	db "github.com/lueurxax/channel-enricher/internal/storage"
)

func main() {
	once := flag.Bool("once", false, "Process one tagging and one embedding batch, then exit")
	migrateOnly := flag.Bool("migrate-only", false, "Apply migrations and exit")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poolOpts := db.PoolOptions{
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: cfg.DBMaxConnLifetime,
		ConnectRetries:  cfg.DBConnectRetries,
		RetryDelay:      cfg.DBConnectRetryDelay,
		MaxAttempts:     cfg.MaxItemAttempts,
	}

	database, err := db.NewWithOptions(ctx, cfg.PostgresDSN, poolOpts, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	if *migrateOnly {
		logger.Info().Msg("migrations applied")
		return
	}

	application := app.New(cfg, database, &logger)

	if *once {
		if err := application.RunOnce(ctx); err != nil {
			logger.Fatal().Err(err).Msg("single pass failed")
		}

		return
	}

	go func() {
		if err := application.StartHealthServer(ctx); err != nil {
			logger.Error().Err(err).Msg("health check server error")
		}
	}()

	if err := application.RunWorker(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("application stopped")
			return
		}

		logger.Fatal().Err(err).Msg("application error")
	}

	logger.Info().Msg("application stopped")
}

func newLogger(appEnv, level string) zerolog.Logger {
	var logger zerolog.Logger

	if appEnv == "local" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	if lvl, err := zerolog.ParseLevel(level); err == nil && level != "" {
		logger = logger.Level(lvl)
	}

	return logger
}
