package repository

import (
	"database/sql"
	"go-ledger-engine/logger"
	"go-ledger-engine/model"

	"github.com/sirupsen/logrus"
)

// ILedgerEntryRepository defines the contract for ledger entry database
// operations. Entries are append-only.
type ILedgerEntryRepository interface {
	AppendEntry(tx *sql.Tx, entry *model.LedgerEntry) error
	GetEntriesByTransferID(transferID string) ([]*model.LedgerEntry, error)
	GetEntriesByAccountID(accountID string) ([]*model.LedgerEntry, error)
}

type LedgerEntryRepository struct {
	DB *sql.DB
}

func NewLedgerEntryRepository(db *sql.DB) *LedgerEntryRepository {
	return &LedgerEntryRepository{DB: db}
}

func (r *LedgerEntryRepository) AppendEntry(tx *sql.Tx, entry *model.LedgerEntry) error {
	log := logger.Log.WithFields(logrus.Fields{
		"transfer_id":   entry.TransferID,
		"account_id":    entry.AccountID,
		"delta":         entry.Delta.String(),
		"balance_after": entry.BalanceAfter.String(),
	})
	log.Info("Executing query to append ledger entry")

	query := `INSERT INTO ledger_entries (transfer_id, account_id, delta, balance_after)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	err := tx.QueryRow(query, entry.TransferID, entry.AccountID, entry.Delta, entry.BalanceAfter).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute append ledger entry query")
		return err
	}
	return nil
}

// GetEntriesByTransferID retrieves the entry pair recorded for a transfer.
func (r *LedgerEntryRepository) GetEntriesByTransferID(transferID string) ([]*model.LedgerEntry, error) {
	log := logger.Log.WithField("transfer_id", transferID)
	log.Info("Executing query to get ledger entries by transfer ID")

	query := `SELECT id, transfer_id, account_id, delta, balance_after, created_at
		FROM ledger_entries WHERE transfer_id = $1 ORDER BY id`
	return r.queryEntries(query, transferID, log)
}

// GetEntriesByAccountID retrieves the full ledger history of an account.
func (r *LedgerEntryRepository) GetEntriesByAccountID(accountID string) ([]*model.LedgerEntry, error) {
	log := logger.Log.WithField("account_id", accountID)
	log.Info("Executing query to get ledger entries by account ID")

	query := `SELECT id, transfer_id, account_id, delta, balance_after, created_at
		FROM ledger_entries WHERE account_id = $1 ORDER BY id`
	return r.queryEntries(query, accountID, log)
}

func (r *LedgerEntryRepository) queryEntries(query, arg string, log *logrus.Entry) ([]*model.LedgerEntry, error) {
	rows, err := r.DB.Query(query, arg)
	if err != nil {
		log.WithError(err).Error("Failed to execute ledger entries query")
		return nil, err
	}
	defer rows.Close()

	var entries []*model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		if err := rows.Scan(&e.ID, &e.TransferID, &e.AccountID, &e.Delta, &e.BalanceAfter, &e.CreatedAt); err != nil {
			log.WithError(err).Error("Failed to scan ledger entry row")
			return nil, err
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
