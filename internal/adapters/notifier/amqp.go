package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/DanielPopoola/parking-reservation/internal/core/domain"
	"github.com/DanielPopoola/parking-reservation/internal/core/ports"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher is the subset of *amqp.Channel the notifier needs.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPNotifier publishes notices to a topic exchange. The routing key is suffixed with the notice kind.
type AMQPNotifier struct {
	ch         Publisher
	exchange   string
	routingKey string
	closers    []func() error
}

// DialAMQP connects, opens a channel and declares a durable topic exchange.
func DialAMQP(url, exchange, routingKey string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	n := NewAMQPNotifier(ch, exchange, routingKey)
	n.closers = []func() error{ch.Close, conn.Close}
	return n, nil
}

func NewAMQPNotifier(ch Publisher, exchange, routingKey string) *AMQPNotifier {
	return &AMQPNotifier{ch: ch, exchange: exchange, routingKey: routingKey}
}

func (n *AMQPNotifier) Notify(ctx context.Context, msg domain.Notification) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	err = n.ch.PublishWithContext(ctx, n.exchange, n.routingKey+"."+string(msg.Kind), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    strconv.FormatInt(msg.BookingID, 10) + ":" + string(msg.Kind),
		Timestamp:    msg.CreatedAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish notification to rabbitmq: %w", err)
	}
	return nil
}

func (n *AMQPNotifier) Close() error {
	var first error
	for _, c := range n.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var _ ports.Notifier = (*AMQPNotifier)(nil)
