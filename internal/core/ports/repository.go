package ports

import (
	"context"
	"time"

	"github.com/DanielPopoola/parking-reservation/internal/core/domain"
	"github.com/google/uuid"
)

// BookingRepository is the transactional store behind the booking engine.
type BookingRepository interface {
	CreateBooking(ctx context.Context, b *domain.Booking) error
	FindByID(ctx context.Context, id int64) (*domain.Booking, error)
	FindByIDForUpdate(ctx context.Context, id int64) (*domain.Booking, error)
	FindByPublicToken(ctx context.Context, token uuid.UUID) (*domain.Booking, error)
	UpdateBooking(ctx context.Context, b *domain.Booking) error

	// FindSpotBookings returns bookings on spotID that could occupy [start, end) at now.
	FindSpotBookings(ctx context.Context, spotID int64, start, end, now time.Time) ([]*domain.Booking, error)
	// FindFloorBookings is FindSpotBookings for every spot on a floor.
	FindFloorBookings(ctx context.Context, floor int, start, end, now time.Time) ([]*domain.Booking, error)
	FindStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*domain.Booking, error)
	// FindNoticeDue lists active bookings owed a time-based notice at now, earliest end first.
	FindNoticeDue(ctx context.Context, now time.Time, reminderLead, overstayEvery time.Duration, limit int) ([]*domain.Booking, error)
	MarkNoticeSent(ctx context.Context, id int64, kind domain.NoticeKind, at time.Time) error

	FindSpot(ctx context.Context, id int64) (*domain.Spot, error)
	// FindSpotForUpdate locks the spot row, serializing reservations for that spot.
	FindSpotForUpdate(ctx context.Context, id int64) (*domain.Spot, error)
	FindSpotsByFloor(ctx context.Context, floor int) ([]*domain.Spot, error)

	FindPromoForUpdate(ctx context.Context, code string) (*domain.Promo, error)
	IncrementPromoUse(ctx context.Context, code string) error

	AppendAudit(ctx context.Context, e *domain.AuditEntry) error
	FindAudit(ctx context.Context, bookingID int64) ([]*domain.AuditEntry, error)

	// WithTx executes a function within a database transaction.
	WithTx(ctx context.Context, fn func(BookingRepository) error) error
}

// SettingsStore is the read-only key/value business configuration.
type SettingsStore interface {
	LoadSettings(ctx context.Context) (map[string]string, error)
}
