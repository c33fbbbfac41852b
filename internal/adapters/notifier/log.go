package notifier

import (
	"context"
	"log/slog"

	"github.com/DanielPopoola/parking-reservation/internal/core/domain"
	"github.com/DanielPopoola/parking-reservation/internal/core/ports"
)

// LogNotifier writes notices to the log. It is the default driver and never fails.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, msg domain.Notification) error {
	n.logger.InfoContext(ctx, "notification",
		"kind", msg.Kind,
		"booking_id", msg.BookingID,
		"recipient", msg.Recipient,
		"subject", msg.Subject,
	)
	return nil
}

var _ ports.Notifier = (*LogNotifier)(nil)
