package queue

import (
	"context"
	"errors"
	"go-ledger-engine/common"
	"go-ledger-engine/logger"
	"go-ledger-engine/model"
	"go-ledger-engine/service"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// TransferProcessor resolves one command to a terminal outcome.
type TransferProcessor interface {
	ProcessTransfer(ctx context.Context, cmd model.TransferCommand) (service.Outcome, error)
}

// messageReader is the slice of *kafka.Reader the consumer needs.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer delivers transfer commands from the command topic to the
// processor. Delivery is at-least-once: an offset is committed only after the
// command reached a terminal state or was rejected as malformed.
type Consumer struct {
	reader     messageReader
	processor  TransferProcessor
	retryDelay time.Duration
}

func NewConsumer(brokers []string, groupID, topic string, processor TransferProcessor) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			GroupID:  groupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		processor:  processor,
		retryDelay: time.Second,
	}
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	logger.Log.Info("Command consumer started")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				logger.Log.Info("Command consumer stopping")
				return nil
			}
			return err
		}

		if !c.handleMessage(ctx, msg) {
			// Terminal state not reached; leave the offset uncommitted so
			// the command is redelivered.
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			logger.Log.WithError(err).Error("Failed to commit message offset")
		}
	}
}

// handleMessage decodes and processes one command. It reports whether the
// message is done (terminal outcome reached, or malformed and skipped) and
// may therefore be committed. Infrastructure errors are retried in place so
// a transient storage outage does not drop commands.
func (c *Consumer) handleMessage(ctx context.Context, msg kafka.Message) bool {
	log := logger.Log.WithFields(logrus.Fields{
		"partition": msg.Partition,
		"offset":    msg.Offset,
		"key":       string(msg.Key),
	})

	var cmd model.TransferCommand
	if err := common.DecodeAndValidate(msg.Value, &cmd); err != nil {
		log.WithError(err).Warn("Skipping malformed transfer command")
		return true
	}

	for {
		outcome, err := c.processor.ProcessTransfer(ctx, cmd)
		if err == nil {
			log.WithFields(logrus.Fields{
				"status":    outcome.Status,
				"duplicate": outcome.Duplicate,
			}).Info("Transfer command resolved")
			return true
		}

		log.WithError(err).Error("Transfer processing failed, retrying")

		select {
		case <-ctx.Done():
			return false
		case <-time.After(c.retryDelay):
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
