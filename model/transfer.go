package model

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type TransferStatus string

const (
	StatusPending   TransferStatus = "PENDING"
	StatusCompleted TransferStatus = "COMPLETED"
	StatusFailed    TransferStatus = "FAILED"
)

// IsTerminal reports whether no further mutation of the transfer is permitted.
func (s TransferStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Transfer records the intent and outcome of moving funds between two
// accounts. Its ID doubles as the idempotency key: a transfer row is created
// at most once per ID, and once COMPLETED or FAILED it never changes again.
type Transfer struct {
	ID          string          `json:"id"`
	FromAccount string          `json:"from_account"`
	ToAccount   string          `json:"to_account"`
	Amount      decimal.Decimal `json:"amount"`
	Status      TransferStatus  `json:"status"`
	Reason      sql.NullString  `json:"reason,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
