package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/app"
	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/config"
	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/database"
	"github.com/RubachokBoss/plagiarism-checker/urkund-service/pkg/logger"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			direction := "up"
			if len(os.Args) > 2 {
				direction = os.Args[2]
			}
			runMigrations(direction, os.Args[3:])
			return
		case "worker":
			run(false)
			return
		}
	}

	run(true)
}

func loadConfig() (*config.Config, zerolog.Logger) {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	return cfg, logger.NewWithConfig(cfg.Logging.Level, cfg.Logging.Pretty, cfg.Logging.NoColor)
}

func run(serveHTTP bool) {
	cfg, log := loadConfig()

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	log.Info().Msg("Database connection established")

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	application, err := app.New(ctx, cfg, log, db, serveHTTP)
	if err != nil {
		db.Close()
		log.Fatal().Err(err).Msg("Failed to create application")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- application.Run(ctx)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("Application stopped with error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown gracefully")
	}
}

func runMigrations(direction string, args []string) {
	cfg, log := loadConfig()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create migrator")
	}
	defer migrator.Close()

	switch direction {
	case "up":
		err = migrator.Up()
	case "down":
		err = migrator.Down()
	case "force":
		if len(args) == 0 {
			log.Fatal().Msg("Usage: migrate force <version>")
		}
		version, convErr := strconv.Atoi(args[0])
		if convErr != nil {
			log.Fatal().Err(convErr).Msg("Invalid migration version")
		}
		err = migrator.Force(version)
	default:
		log.Fatal().Msg("Invalid migration direction. Use 'up', 'down' or 'force <version>'")
	}
	if err != nil {
		log.Fatal().Err(err).Str("direction", direction).Msg("Migration failed")
	}

	log.Info().Str("direction", direction).Msg("Migrations applied successfully")
}
