package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/DanielPopoola/parking-reservation/internal/core/domain"
	"github.com/google/uuid"
)

// CreateBooking inserts b and fills in its generated id.
func (r *BookingRepository) CreateBooking(ctx context.Context, b *domain.Booking) error {
	query := `INSERT INTO bookings (
				public_token, user_id, contact_email, contact_name, spot_id, vehicle_plate,
				start_time, end_time, status, payment_status, promo_code,
				base_amount_cents, discount_amount_cents, final_amount_cents,
				refund_status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			RETURNING id`

	err := r.q.QueryRow(ctx, query,
		b.PublicToken,
		b.UserID,
		b.ContactEmail,
		b.ContactName,
		b.SpotID,
		b.VehiclePlate,
		b.StartTime,
		b.EndTime,
		b.Status,
		b.PaymentStatus,
		b.PromoCode,
		b.BaseAmountCents,
		b.DiscountAmountCents,
		b.FinalAmountCents,
		b.RefundStatus,
		b.CreatedAt,
		b.UpdatedAt,
	).Scan(&b.ID)
	if err != nil {
		if IsExclusionViolation(err) {
			return domain.NewSpotUnavailableError()
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *BookingRepository) FindByID(ctx context.Context, id int64) (*domain.Booking, error) {
	query := `SELECT` + bookingColumns + ` FROM bookings b WHERE b.id = $1`
	return findOneBooking(r.q.QueryRow(ctx, query, id), idKey(id))
}

// FindByIDForUpdate retrieves a booking and locks its row until the transaction ends.
func (r *BookingRepository) FindByIDForUpdate(ctx context.Context, id int64) (*domain.Booking, error) {
	query := `SELECT` + bookingColumns + ` FROM bookings b WHERE b.id = $1 FOR UPDATE`
	return findOneBooking(r.q.QueryRow(ctx, query, id), idKey(id))
}

func (r *BookingRepository) FindByPublicToken(ctx context.Context, token uuid.UUID) (*domain.Booking, error) {
	query := `SELECT` + bookingColumns + ` FROM bookings b WHERE b.public_token = $1`
	return findOneBooking(r.q.QueryRow(ctx, query, token), token.String())
}

func (r *BookingRepository) UpdateBooking(ctx context.Context, b *domain.Booking) error {
	query := `
			UPDATE bookings SET status = $1, payment_status = $2,
				excess_fee_cents = $3, refund_status = $4, refund_amount_cents = $5, refund_reason = $6,
				cancelled_at = $7, cancellation_reason = $8, closed_at = $9,
				latest_order_id = $10, transaction_ref = $11, updated_at = $12
			WHERE id = $13`

	cmdTag, err := r.q.Exec(ctx, query,
		b.Status,
		b.PaymentStatus,
		b.ExcessFeeCents,
		b.RefundStatus,
		b.RefundAmountCents,
		b.RefundReason,
		b.CancelledAt,
		b.CancellationReason,
		b.ClosedAt,
		b.LatestOrderID,
		b.TransactionRef,
		b.UpdatedAt,
		b.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking record: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.NewBookingNotFoundError(idKey(b.ID))
	}
	return nil
}

// Occupancy filter: overlapping pending/active bookings plus any active booking already past its end.
const occupyingFilter = `
	b.status IN ('pending', 'active')
	AND ((b.start_time < $3 AND b.end_time > $2) OR (b.status = 'active' AND b.end_time < $4))`

func (r *BookingRepository) FindSpotBookings(ctx context.Context, spotID int64, start, end, now time.Time) ([]*domain.Booking, error) {
	query := `SELECT` + bookingColumns + `
			FROM bookings b
			WHERE b.spot_id = $1 AND` + occupyingFilter + `
			ORDER BY b.start_time`

	return collectBookings(r.q.Query(ctx, query, spotID, start, end, now))
}

func (r *BookingRepository) FindFloorBookings(ctx context.Context, floor int, start, end, now time.Time) ([]*domain.Booking, error) {
	query := `SELECT` + bookingColumns + `
			FROM bookings b
			JOIN spots s ON s.id = b.spot_id
			WHERE s.floor = $1 AND` + occupyingFilter + `
			ORDER BY b.spot_id, b.start_time`

	return collectBookings(r.q.Query(ctx, query, floor, start, end, now))
}

// FindStalePending lists pending bookings created before the cutoff, oldest first.
func (r *BookingRepository) FindStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*domain.Booking, error) {
	query := `SELECT` + bookingColumns + `
			FROM bookings b
			WHERE b.status = 'pending' AND b.created_at < $1
			ORDER BY b.created_at
			LIMIT $2`

	return collectBookings(r.q.Query(ctx, query, createdBefore, limit))
}

// FindNoticeDue mirrors domain.DueNotice in SQL so bookings with nothing due never take a batch slot.
func (r *BookingRepository) FindNoticeDue(ctx context.Context, now time.Time, reminderLead, overstayEvery time.Duration, limit int) ([]*domain.Booking, error) {
	query := `SELECT` + bookingColumns + `
			FROM bookings b
			WHERE b.status = 'active'
			AND (
				(b.end_time > $1 AND b.end_time <= $2 AND b.reminder_sent_at IS NULL)
				OR (b.end_time <= $1 AND b.expiry_notice_sent_at IS NULL)
				OR (b.end_time <= $1 AND COALESCE(b.overstay_notice_sent_at, b.expiry_notice_sent_at) <= $3)
			)
			ORDER BY b.end_time, b.id
			LIMIT $4`

	return collectBookings(r.q.Query(ctx, query, now, now.Add(reminderLead), now.Add(-overstayEvery), limit))
}

// MarkNoticeSent stamps one notification marker without touching the rest of the row.
func (r *BookingRepository) MarkNoticeSent(ctx context.Context, id int64, kind domain.NoticeKind, at time.Time) error {
	var column string
	switch kind {
	case domain.NoticeReminder:
		column = "reminder_sent_at"
	case domain.NoticeEndOfBooking:
		column = "expiry_notice_sent_at"
	case domain.NoticeOverstay:
		column = "overstay_notice_sent_at"
	default:
		return fmt.Errorf("notice kind %q has no marker", kind)
	}

	cmdTag, err := r.q.Exec(ctx, `UPDATE bookings SET `+column+` = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("failed to mark %s notice: %w", kind, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.NewBookingNotFoundError(idKey(id))
	}
	return nil
}
