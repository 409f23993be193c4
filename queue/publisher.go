package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"go-ledger-engine/model"

	"github.com/segmentio/kafka-go"
)

// messageWriter is the slice of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher emits terminal transfer outcomes, keyed by transfer ID so all
// events for one transfer land on the same partition.
type Publisher struct {
	writer messageWriter
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

func (p *Publisher) PublishOutcome(ctx context.Context, event model.TransferEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("could not marshal transfer event: %w", err)
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.TransferID),
		Value: data,
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
