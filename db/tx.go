package db

import (
	"context"
	"database/sql"
	"fmt"
	"go-ledger-engine/logger"
)

// WithTx runs fn inside a database transaction. The transaction is committed
// when fn returns nil and rolled back otherwise. Row locks taken by fn are held
// until the commit/rollback boundary; the pooled connection is released on
// every exit path.
func WithTx(ctx context.Context, database *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			logger.Log.WithError(rbErr).Error("Failed to roll back transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}
