// file: model/message.go

package model

import "github.com/shopspring/decimal"

// TransferCommand is the inbound payload on the command topic, keyed by
// TransferID. It includes validation tags so malformed messages are rejected
// as a distinct parse-failure outcome at the ingest boundary.
type TransferCommand struct {
	TransferID    string          `json:"transferId" validate:"required,uuid4"`
	FromAccountID string          `json:"fromAccountId" validate:"required,uuid4"`
	ToAccountID   string          `json:"toAccountId" validate:"required,uuid4"`
	Amount        decimal.Decimal `json:"amount" validate:"-"`
}

// TransferEvent is the outbound payload on the event topic, published once
// per terminal transfer state with at-least-once delivery.
type TransferEvent struct {
	TransferID string `json:"transferId"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
}
