package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry is one half of a double-entry record. Entries are append-only;
// a COMPLETED transfer yields exactly two whose deltas sum to zero.
type LedgerEntry struct {
	ID           int64           `json:"id"`
	TransferID   string          `json:"transfer_id"`
	AccountID    string          `json:"account_id"`
	Delta        decimal.Decimal `json:"delta"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	CreatedAt    time.Time       `json:"created_at"`
}
