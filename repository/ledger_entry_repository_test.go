// repository/ledger_entry_repository_test.go
package repository

import (
	"go-ledger-engine/model"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerEntryRepository_AppendEntry(t *testing.T) {
	database, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	repo := NewLedgerEntryRepository(database)
	entry := &model.LedgerEntry{
		TransferID:   "cccccccc-0000-4000-8000-000000000003",
		AccountID:    "aaaaaaaa-0000-4000-8000-000000000001",
		Delta:        decimal.RequireFromString("-30.00"),
		BalanceAfter: decimal.RequireFromString("70.00"),
	}

	dbMock.ExpectBegin()
	dbMock.ExpectQuery(`INSERT INTO ledger_entries \(transfer_id, account_id, delta, balance_after\)`).
		WithArgs(entry.TransferID, entry.AccountID, entry.Delta, entry.BalanceAfter).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), time.Now()))

	tx, err := database.Begin()
	require.NoError(t, err)

	assert.NoError(t, repo.AppendEntry(tx, entry))
	assert.Equal(t, int64(7), entry.ID)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestLedgerEntryRepository_GetEntriesByTransferID(t *testing.T) {
	database, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	repo := NewLedgerEntryRepository(database)
	transferID := "cccccccc-0000-4000-8000-000000000003"
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "transfer_id", "account_id", "delta", "balance_after", "created_at"}).
		AddRow(int64(1), transferID, "aaaaaaaa-0000-4000-8000-000000000001", "-30.00", "70.00", now).
		AddRow(int64(2), transferID, "bbbbbbbb-0000-4000-8000-000000000002", "30.00", "80.00", now)

	dbMock.ExpectQuery(`SELECT id, transfer_id, account_id, delta, balance_after, created_at\s+FROM ledger_entries WHERE transfer_id = \$1 ORDER BY id`).
		WithArgs(transferID).
		WillReturnRows(rows)

	entries, err := repo.GetEntriesByTransferID(transferID)

	assert.NoError(t, err)
	require.Len(t, entries, 2)
	// Double-entry: the pair's deltas sum to zero.
	assert.True(t, entries[0].Delta.Add(entries[1].Delta).IsZero())
	assert.NoError(t, dbMock.ExpectationsWereMet())
}
