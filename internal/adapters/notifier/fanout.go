package notifier

import (
	"context"
	"errors"
	"log/slog"

	"github.com/DanielPopoola/parking-reservation/internal/core/domain"
	"github.com/DanielPopoola/parking-reservation/internal/core/ports"
)

// Fanout delivers to every notifier. It fails only when all of them fail, so one broken
// transport does not stop the booking's marker from being stamped.
type Fanout struct {
	notifiers []ports.Notifier
	logger    *slog.Logger
}

func NewFanout(logger *slog.Logger, notifiers ...ports.Notifier) *Fanout {
	return &Fanout{notifiers: notifiers, logger: logger}
}

func (f *Fanout) Notify(ctx context.Context, msg domain.Notification) error {
	var errs []error
	for _, n := range f.notifiers {
		if err := n.Notify(ctx, msg); err != nil {
			f.logger.WarnContext(ctx, "notifier failed",
				"booking_id", msg.BookingID,
				"kind", msg.Kind,
				"error", err,
			)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 && len(errs) == len(f.notifiers) {
		return errors.Join(errs...)
	}
	return nil
}

var _ ports.Notifier = (*Fanout)(nil)
