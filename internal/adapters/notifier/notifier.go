package notifier

import (
	"fmt"
	"log/slog"

	"github.com/DanielPopoola/parking-reservation/internal/config"
	"github.com/DanielPopoola/parking-reservation/internal/core/ports"
)

// New builds the notifier selected by cfg.Driver. Broker-backed drivers also log every notice.
// The returned close func releases broker connections.
func New(cfg config.NotifierConfig, logger *slog.Logger) (ports.Notifier, func() error, error) {
	logNotifier := NewLogNotifier(logger)
	noop := func() error { return nil }

	switch cfg.Driver {
	case "", "log":
		return logNotifier, noop, nil
	case "kafka":
		if len(cfg.Brokers) == 0 {
			return nil, nil, fmt.Errorf("kafka notifier requires at least one broker")
		}
		kn := NewKafkaNotifier(NewKafkaWriter(cfg.Brokers, cfg.Topic))
		return NewFanout(logger, kn, logNotifier), kn.Close, nil
	case "amqp":
		an, err := DialAMQP(cfg.AMQPURL, cfg.Exchange, cfg.RoutingKey)
		if err != nil {
			return nil, nil, err
		}
		return NewFanout(logger, an, logNotifier), an.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown notifier driver %q", cfg.Driver)
	}
}
