// common/validator_test.go
package common

import (
	"go-ledger-engine/model"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDecodeAndValidate_TransferCommand(t *testing.T) {
	transferID := uuid.NewString()
	fromID := uuid.NewString()
	toID := uuid.NewString()

	t.Run("valid command", func(t *testing.T) {
		payload := []byte(`{"transferId":"` + transferID + `","fromAccountId":"` + fromID + `","toAccountId":"` + toID + `","amount":30.50}`)

		var cmd model.TransferCommand
		err := DecodeAndValidate(payload, &cmd)

		assert.NoError(t, err)
		assert.Equal(t, transferID, cmd.TransferID)
		assert.True(t, cmd.Amount.Equal(decimal.RequireFromString("30.50")))
	})

	t.Run("invalid json", func(t *testing.T) {
		var cmd model.TransferCommand
		err := DecodeAndValidate([]byte(`{not json`), &cmd)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid message body")
	})

	t.Run("non-numeric amount", func(t *testing.T) {
		var cmd model.TransferCommand
		err := DecodeAndValidate([]byte(`{"transferId":"`+transferID+`","fromAccountId":"`+fromID+`","toAccountId":"`+toID+`","amount":"lots"}`), &cmd)

		assert.Error(t, err)
	})

	t.Run("missing fields", func(t *testing.T) {
		var cmd model.TransferCommand
		err := DecodeAndValidate([]byte(`{"transferId":"`+transferID+`"}`), &cmd)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed validation")
	})

	t.Run("non-uuid ids", func(t *testing.T) {
		var cmd model.TransferCommand
		err := DecodeAndValidate([]byte(`{"transferId":"abc","fromAccountId":"def","toAccountId":"ghi","amount":1}`), &cmd)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed validation")
	})
}
