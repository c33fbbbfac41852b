package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/DanielPopoola/parking-reservation/internal/core/domain"
	"github.com/DanielPopoola/parking-reservation/internal/core/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BookingRepository stores bookings together with the spots, promo codes and audit
// entries that must change in the same transaction.
type BookingRepository struct {
	pool *pgxpool.Pool
	q    Executor
}

func NewBookingRepository(db *DB) ports.BookingRepository {
	return &BookingRepository{
		pool: db.Pool,
		q:    db.Pool,
	}
}

// WithTx executes a function within a database transaction
func (r *BookingRepository) WithTx(ctx context.Context, fn func(ports.BookingRepository) error) error {
	if _, inTx := r.q.(pgx.Tx); inTx {
		return fn(r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Defer rollback in case of panic or error (if commit isn't reached)
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	repoWithTx := &BookingRepository{
		pool: r.pool,
		q:    tx,
	}

	if err := fn(repoWithTx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

const bookingColumns = `
	b.id, b.public_token, b.user_id, b.contact_email, b.contact_name, b.spot_id, b.vehicle_plate,
	b.start_time, b.end_time, b.status, b.payment_status, b.promo_code,
	b.base_amount_cents, b.discount_amount_cents, b.final_amount_cents, b.excess_fee_cents,
	b.refund_status, b.refund_amount_cents, b.refund_reason, b.cancelled_at, b.cancellation_reason, b.closed_at,
	b.latest_order_id, b.transaction_ref,
	b.reminder_sent_at, b.expiry_notice_sent_at, b.overstay_notice_sent_at,
	b.created_at, b.updated_at`

// scanBooking scans one row selected with bookingColumns.
func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(
		&b.ID,
		&b.PublicToken,
		&b.UserID,
		&b.ContactEmail,
		&b.ContactName,
		&b.SpotID,
		&b.VehiclePlate,
		&b.StartTime,
		&b.EndTime,
		&b.Status,
		&b.PaymentStatus,
		&b.PromoCode,
		&b.BaseAmountCents,
		&b.DiscountAmountCents,
		&b.FinalAmountCents,
		&b.ExcessFeeCents,
		&b.RefundStatus,
		&b.RefundAmountCents,
		&b.RefundReason,
		&b.CancelledAt,
		&b.CancellationReason,
		&b.ClosedAt,
		&b.LatestOrderID,
		&b.TransactionRef,
		&b.ReminderSentAt,
		&b.ExpiryNoticeSentAt,
		&b.OverstayNoticeSentAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.StartTime = b.StartTime.UTC()
	b.EndTime = b.EndTime.UTC()
	return &b, nil
}

func findOneBooking(row pgx.Row, key string) (*domain.Booking, error) {
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewBookingNotFoundError(key)
		}
		return nil, fmt.Errorf("failed to scan booking: %w", err)
	}
	return b, nil
}

func collectBookings(rows pgx.Rows, err error) ([]*domain.Booking, error) {
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Booking, error) {
		return scanBooking(row)
	})
	if err != nil {
		return nil, fmt.Errorf("error occurred while scanning rows: %w", err)
	}
	return results, nil
}

func idKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
