package repository

import (
	"database/sql"
	"go-ledger-engine/logger"
	"go-ledger-engine/model"

	"github.com/sirupsen/logrus"
)

// ITransferRepository defines the contract for transfer database operations.
// Insert and failure writes are conflict-tolerant: the primary key on the
// transfer ID is the idempotency barrier, and a terminal row is never
// overwritten.
type ITransferRepository interface {
	GetTransferStatus(transferID string) (model.TransferStatus, bool, error)
	GetTransferStatusTx(tx *sql.Tx, transferID string) (model.TransferStatus, bool, error)
	InsertPendingTransfer(tx *sql.Tx, transfer *model.Transfer) (bool, error)
	MarkTransferCompleted(tx *sql.Tx, transferID string) error
	RecordTransferFailure(transfer *model.Transfer, reason string) error
	GetTransferByID(transferID string) (*model.Transfer, error)
}

type TransferRepository struct {
	DB *sql.DB
}

func NewTransferRepository(db *sql.DB) *TransferRepository {
	return &TransferRepository{DB: db}
}

// GetTransferStatus returns the status of an existing transfer row, with a
// found flag. Used by the idempotency guard before any lock is taken.
func (r *TransferRepository) GetTransferStatus(transferID string) (model.TransferStatus, bool, error) {
	query := `SELECT status FROM transfers WHERE id = $1`

	var status model.TransferStatus
	err := r.DB.QueryRow(query, transferID).Scan(&status)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		logger.Log.WithField("transfer_id", transferID).WithError(err).Error("Failed to query transfer status")
		return "", false, err
	}
	return status, true, nil
}

// GetTransferStatusTx is the in-transaction variant, used after an insert
// conflict to re-read the row a racing duplicate has committed.
func (r *TransferRepository) GetTransferStatusTx(tx *sql.Tx, transferID string) (model.TransferStatus, bool, error) {
	query := `SELECT status FROM transfers WHERE id = $1`

	var status model.TransferStatus
	err := tx.QueryRow(query, transferID).Scan(&status)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		logger.Log.WithField("transfer_id", transferID).WithError(err).Error("Failed to query transfer status in transaction")
		return "", false, err
	}
	return status, true, nil
}

// InsertPendingTransfer inserts the PENDING row for a transfer. It reports
// whether this writer won the insert: on a primary-key conflict no row is
// written and false is returned, so the caller can fall back to re-reading
// the existing row instead of mutating anything.
func (r *TransferRepository) InsertPendingTransfer(tx *sql.Tx, transfer *model.Transfer) (bool, error) {
	log := logger.Log.WithFields(logrus.Fields{
		"transfer_id":  transfer.ID,
		"from_account": transfer.FromAccount,
		"to_account":   transfer.ToAccount,
		"amount":       transfer.Amount.String(),
	})
	log.Info("Executing query to insert pending transfer")

	query := `INSERT INTO transfers (id, from_account, to_account, amount, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`

	res, err := tx.Exec(query, transfer.ID, transfer.FromAccount, transfer.ToAccount, transfer.Amount, model.StatusPending)
	if err != nil {
		log.WithError(err).Error("Failed to execute insert pending transfer query")
		return false, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *TransferRepository) MarkTransferCompleted(tx *sql.Tx, transferID string) error {
	log := logger.Log.WithField("transfer_id", transferID)
	log.Info("Executing query to mark transfer completed")

	query := `UPDATE transfers SET status = $1 WHERE id = $2`
	_, err := tx.Exec(query, model.StatusCompleted, transferID)
	if err != nil {
		log.WithError(err).Error("Failed to execute mark transfer completed query")
		return err
	}
	return nil
}

// RecordTransferFailure writes the terminal FAILED row outside the rolled-back
// transaction. First terminal write wins: the upsert only touches a row that
// is still PENDING, so a transfer that already reached COMPLETED or FAILED is
// left untouched.
func (r *TransferRepository) RecordTransferFailure(transfer *model.Transfer, reason string) error {
	log := logger.Log.WithFields(logrus.Fields{
		"transfer_id": transfer.ID,
		"reason":      reason,
	})
	log.Info("Executing query to record transfer failure")

	query := `INSERT INTO transfers (id, from_account, to_account, amount, status, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, reason = EXCLUDED.reason
		WHERE transfers.status = $7`

	_, err := r.DB.Exec(query, transfer.ID, transfer.FromAccount, transfer.ToAccount,
		transfer.Amount, model.StatusFailed, reason, model.StatusPending)
	if err != nil {
		log.WithError(err).Error("Failed to execute record transfer failure query")
		return err
	}
	return nil
}

// GetTransferByID retrieves a full transfer row. This is the primary-key read
// collaborators use to poll transfer status.
func (r *TransferRepository) GetTransferByID(transferID string) (*model.Transfer, error) {
	log := logger.Log.WithField("transfer_id", transferID)
	log.Info("Executing query to get transfer by ID")

	transfer := &model.Transfer{}
	query := `SELECT id, from_account, to_account, amount, status, reason, created_at
		FROM transfers WHERE id = $1`
	err := r.DB.QueryRow(query, transferID).Scan(
		&transfer.ID,
		&transfer.FromAccount,
		&transfer.ToAccount,
		&transfer.Amount,
		&transfer.Status,
		&transfer.Reason,
		&transfer.CreatedAt,
	)
	if err != nil {
		if err != sql.ErrNoRows {
			log.WithError(err).Error("Failed to execute get transfer by ID query")
		}
		return nil, err
	}
	return transfer, nil
}
