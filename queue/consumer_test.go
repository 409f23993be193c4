// queue/consumer_test.go
package queue

import (
	"context"
	"errors"
	"go-ledger-engine/logger"
	"go-ledger-engine/model"
	"go-ledger-engine/service"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// TestMain runs setup before any tests in this package are executed.
func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

// fakeReader feeds a fixed sequence of messages and records commits.
type fakeReader struct {
	messages  []kafka.Message
	committed []kafka.Message
	cancel    context.CancelFunc
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.messages) == 0 {
		// Sequence exhausted; stop the consumer the way a shutdown would.
		f.cancel()
		return kafka.Message{}, context.Canceled
	}
	msg := f.messages[0]
	f.messages = f.messages[1:]
	return msg, nil
}

func (f *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error { return nil }

// MockProcessor is a mock for TransferProcessor.
type MockProcessor struct{ mock.Mock }

func (m *MockProcessor) ProcessTransfer(ctx context.Context, cmd model.TransferCommand) (service.Outcome, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(service.Outcome), args.Error(1)
}

func runConsumer(t *testing.T, messages []kafka.Message, processor TransferProcessor) *fakeReader {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{messages: messages, cancel: cancel}
	c := &Consumer{reader: reader, processor: processor, retryDelay: 0}

	assert.NoError(t, c.Run(ctx))
	return reader
}

func TestConsumer_DeliversCommand(t *testing.T) {
	transferID := uuid.NewString()
	fromID := uuid.NewString()
	toID := uuid.NewString()

	payload := []byte(`{"transferId":"` + transferID + `","fromAccountId":"` + fromID + `","toAccountId":"` + toID + `","amount":30.5}`)

	processor := new(MockProcessor)
	processor.On("ProcessTransfer", mock.Anything, mock.MatchedBy(func(cmd model.TransferCommand) bool {
		return cmd.TransferID == transferID &&
			cmd.FromAccountID == fromID &&
			cmd.ToAccountID == toID &&
			cmd.Amount.Equal(decimal.RequireFromString("30.5"))
	})).Return(service.Outcome{TransferID: transferID, Status: model.StatusCompleted}, nil).Once()

	reader := runConsumer(t, []kafka.Message{{Key: []byte(transferID), Value: payload}}, processor)

	processor.AssertExpectations(t)
	assert.Len(t, reader.committed, 1)
}

func TestConsumer_SkipsMalformedMessages(t *testing.T) {
	transferID := uuid.NewString()
	fromID := uuid.NewString()
	toID := uuid.NewString()

	valid := []byte(`{"transferId":"` + transferID + `","fromAccountId":"` + fromID + `","toAccountId":"` + toID + `","amount":10}`)

	messages := []kafka.Message{
		{Key: []byte("junk"), Value: []byte(`{not json`)},
		{Key: []byte("bad-ids"), Value: []byte(`{"transferId":"nope","fromAccountId":"x","toAccountId":"y","amount":1}`)},
		{Key: []byte(transferID), Value: valid},
	}

	processor := new(MockProcessor)
	processor.On("ProcessTransfer", mock.Anything, mock.Anything).
		Return(service.Outcome{TransferID: transferID, Status: model.StatusCompleted}, nil).Once()

	reader := runConsumer(t, messages, processor)

	// Malformed messages are committed (skipped), not retried, and the
	// consumer keeps going.
	processor.AssertNumberOfCalls(t, "ProcessTransfer", 1)
	assert.Len(t, reader.committed, 3)
}

func TestConsumer_RetriesOnProcessingError(t *testing.T) {
	transferID := uuid.NewString()
	fromID := uuid.NewString()
	toID := uuid.NewString()

	payload := []byte(`{"transferId":"` + transferID + `","fromAccountId":"` + fromID + `","toAccountId":"` + toID + `","amount":5}`)

	processor := new(MockProcessor)
	processor.On("ProcessTransfer", mock.Anything, mock.Anything).
		Return(service.Outcome{}, errors.New("database unavailable")).Twice()
	processor.On("ProcessTransfer", mock.Anything, mock.Anything).
		Return(service.Outcome{TransferID: transferID, Status: model.StatusFailed}, nil).Once()

	reader := runConsumer(t, []kafka.Message{{Key: []byte(transferID), Value: payload}}, processor)

	processor.AssertNumberOfCalls(t, "ProcessTransfer", 3)
	assert.Len(t, reader.committed, 1)
}
