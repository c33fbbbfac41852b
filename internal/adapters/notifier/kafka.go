package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/DanielPopoola/parking-reservation/internal/core/domain"
	"github.com/DanielPopoola/parking-reservation/internal/core/ports"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the notifier needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes notices to a topic, keyed by booking id so a booking's notices stay ordered.
type KafkaNotifier struct {
	writer MessageWriter
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 10 * time.Second,
	}
}

func NewKafkaNotifier(writer MessageWriter) *KafkaNotifier {
	return &KafkaNotifier{writer: writer}
}

func (n *KafkaNotifier) Notify(ctx context.Context, msg domain.Notification) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	err = n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(msg.BookingID, 10)),
		Value: body,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(msg.Kind)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish notification to kafka: %w", err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

var _ ports.Notifier = (*KafkaNotifier)(nil)
