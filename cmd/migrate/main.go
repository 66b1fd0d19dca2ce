// Command migrate applies or inspects the database schema.
//
//	migrate [up|down|status|reset]
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dom/vidshare-backend/internal/logging"
	"github.com/dom/vidshare-backend/internal/repository/postgres"
	"gorm.io/gorm/logger"
)

func main() {
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL environment variable is required")
		os.Exit(1)
	}

	log := logging.New(os.Getenv("ENVIRONMENT"), os.Getenv("LOG_LEVEL"))

	db, err := postgres.NewConnection(databaseURL, logger.Warn)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := postgres.RunMigrationCommand(context.Background(), db, command); err != nil {
		log.Fatal().Err(err).Str("command", command).Msg("migration failed")
	}
	log.Info().Str("command", command).Msg("migration finished")
}
