package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/DanielPopoola/parking-reservation/internal/core/domain"
	"github.com/DanielPopoola/parking-reservation/internal/core/ports"
)

// dispatcher renders and sends notices. Callers decide whether a failure matters.
type dispatcher struct {
	repo     ports.BookingRepository
	notifier ports.Notifier
	logger   *slog.Logger
}

func (d dispatcher) send(ctx context.Context, kind domain.NoticeKind, b *domain.Booking, now time.Time) error {
	label := ""
	if spot, err := d.repo.FindSpot(ctx, b.SpotID); err == nil {
		label = spot.Label
	}
	return d.notifier.Notify(ctx, domain.BuildNotification(kind, b, label, now))
}

// bestEffort sends a notice after a committed transition. Delivery failure is logged, never returned.
func (d dispatcher) bestEffort(ctx context.Context, kind domain.NoticeKind, b *domain.Booking, now time.Time) {
	if err := d.send(ctx, kind, b, now); err != nil {
		d.logger.WarnContext(ctx, "failed to deliver notification",
			"booking_id", b.ID,
			"kind", kind,
			"error", err,
		)
	}
}
