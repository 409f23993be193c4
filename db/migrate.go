package db

import (
	"fmt"
	"go-ledger-engine/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations applies any pending schema migrations from the given file
// source (e.g. "file://db/migrations").
func RunMigrations(sourceURL string) error {
	mig, err := migrate.New(sourceURL, ConnectionURL())
	if err != nil {
		return fmt.Errorf("cannot create migrate instance: %w", err)
	}

	if err := mig.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrate up: %w", err)
	}

	logger.Log.Info("Database schema is up to date")
	return nil
}
