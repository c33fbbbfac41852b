// Package domain holds the reservation entities and the pure rules that act on them.
package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BookingStatus represents the lifecycle state of a reservation
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusActive    BookingStatus = "active"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
	StatusExpired   BookingStatus = "expired"
)

// PaymentStatus tracks what the gateway last told us, independent of the lifecycle.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

type RefundStatus string

const (
	RefundNone      RefundStatus = "none"
	RefundPending   RefundStatus = "pending"
	RefundCompleted RefundStatus = "completed"
)

// Booking is a reservation of one spot for a half-open interval [StartTime, EndTime).
type Booking struct {
	ID           int64
	PublicToken  uuid.UUID
	UserID       string
	ContactEmail string
	ContactName  string
	SpotID       int64
	VehiclePlate string
	StartTime    time.Time
	EndTime      time.Time

	Status        BookingStatus
	PaymentStatus PaymentStatus
	PromoCode     *string

	BaseAmountCents     int64
	DiscountAmountCents int64
	FinalAmountCents    int64
	ExcessFeeCents      int64

	RefundStatus       RefundStatus
	RefundAmountCents  int64
	RefundReason       *string
	CancelledAt        *time.Time
	CancellationReason *string
	ClosedAt           *time.Time

	LatestOrderID  *string
	TransactionRef *string

	ReminderSentAt       *time.Time
	ExpiryNoticeSentAt   *time.Time
	OverstayNoticeSentAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBooking builds a pending booking from an already priced quote.
func NewBooking(userID, email, name string, spotID int64, plate string, start, end time.Time, quote Quote, now time.Time) *Booking {
	b := &Booking{
		PublicToken:         uuid.New(),
		UserID:              userID,
		ContactEmail:        email,
		ContactName:         name,
		SpotID:              spotID,
		VehiclePlate:        strings.ToUpper(strings.TrimSpace(plate)),
		StartTime:           start.UTC(),
		EndTime:             end.UTC(),
		Status:              StatusPending,
		PaymentStatus:       PaymentUnpaid,
		BaseAmountCents:     quote.BaseCents,
		DiscountAmountCents: quote.DiscountCents,
		FinalAmountCents:    quote.FinalCents,
		RefundStatus:        RefundNone,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if quote.PromoApplied {
		code := quote.PromoCode
		b.PromoCode = &code
	}
	return b
}

// ValidateInterval rejects empty, inverted, or materially past intervals.
// grace absorbs clock skew between the client and us.
func ValidateInterval(start, end, now time.Time, grace time.Duration) error {
	if start.IsZero() {
		return NewMissingRequiredFieldError("start_time")
	}
	if end.IsZero() {
		return NewMissingRequiredFieldError("end_time")
	}
	if !end.After(start) {
		return NewInvalidIntervalError(start, end)
	}
	if start.Before(now.Add(-grace)) {
		return NewStartInPastError(start)
	}
	return nil
}

// Confirm moves a pending booking to active on a verified successful payment.
// It reports whether anything changed so replays can be detected.
func (b *Booking) Confirm(transactionRef string, now time.Time) (bool, error) {
	if b.Status == StatusActive && b.PaymentStatus == PaymentPaid {
		return false, nil
	}
	if err := b.transition(StatusActive); err != nil {
		return false, err
	}
	b.PaymentStatus = PaymentPaid
	if transactionRef != "" {
		b.TransactionRef = &transactionRef
	}
	b.UpdatedAt = now
	return true, nil
}

// RecordLatePayment notes a verified success that arrived after the booking left pending.
// The lifecycle is untouched; the captured money is queued as a pending refund for an operator.
func (b *Booking) RecordLatePayment(transactionRef string, refund Refund, now time.Time) bool {
	if b.PaymentStatus == PaymentPaid {
		return false
	}
	b.PaymentStatus = PaymentPaid
	if transactionRef != "" {
		b.TransactionRef = &transactionRef
	}
	b.RefundAmountCents = refund.AmountCents
	b.RefundReason = &refund.Reason
	if refund.AmountCents > 0 {
		b.RefundStatus = RefundPending
	}
	b.UpdatedAt = now
	return true
}

// MarkPaymentProcessing records an in-flight gateway charge. A settled payment is never downgraded.
func (b *Booking) MarkPaymentProcessing(now time.Time) bool {
	if b.PaymentStatus == PaymentPaid || b.PaymentStatus == PaymentPending {
		return false
	}
	b.PaymentStatus = PaymentPending
	b.UpdatedAt = now
	return true
}

// MarkPaymentFailed records a declined attempt without touching the lifecycle state.
func (b *Booking) MarkPaymentFailed(now time.Time) bool {
	if b.PaymentStatus == PaymentPaid || b.PaymentStatus == PaymentFailed {
		return false
	}
	b.PaymentStatus = PaymentFailed
	b.UpdatedAt = now
	return true
}

// StartPaymentAttempt binds a new gateway order id to the booking.
func (b *Booking) StartPaymentAttempt(orderID string, now time.Time) error {
	if b.Status != StatusPending {
		return NewInvalidTransitionError(b.Status, StatusActive)
	}
	if b.PaymentStatus == PaymentPaid {
		return NewAlreadyPaidError(b.ID)
	}
	b.LatestOrderID = &orderID
	b.PaymentStatus = PaymentPending
	b.UpdatedAt = now
	return nil
}

// Expire ends a booking whose payment never arrived within the grace window.
func (b *Booking) Expire(now time.Time) error {
	if err := b.transition(StatusExpired); err != nil {
		return err
	}
	b.UpdatedAt = now
	return nil
}

// Cancel stamps cancellation details. Start-time checks happen before the refund is quoted.
func (b *Booking) Cancel(refund Refund, reason string, now time.Time) error {
	if !now.Before(b.StartTime) {
		if b.IsTerminal() {
			return NewInvalidTransitionError(b.Status, StatusCancelled)
		}
		return NewAlreadyStartedError()
	}
	if err := b.transition(StatusCancelled); err != nil {
		return err
	}
	b.CancelledAt = &now
	if reason != "" {
		b.CancellationReason = &reason
	}
	b.RefundAmountCents = refund.AmountCents
	b.RefundReason = &refund.Reason
	if refund.AmountCents > 0 {
		b.RefundStatus = RefundPending
	}
	b.UpdatedAt = now
	return nil
}

// Complete closes out an active booking with its overstay fee.
func (b *Booking) Complete(excessFeeCents int64, now time.Time) error {
	if err := b.transition(StatusCompleted); err != nil {
		return err
	}
	b.ExcessFeeCents = excessFeeCents
	b.ClosedAt = &now
	b.UpdatedAt = now
	return nil
}

// SettleRefund marks a pending refund as paid out by an operator.
func (b *Booking) SettleRefund(now time.Time) error {
	if b.RefundStatus != RefundPending {
		return NewNoPendingRefundError(b.ID)
	}
	b.RefundStatus = RefundCompleted
	b.UpdatedAt = now
	return nil
}

// FinalTotalCents is what the customer owes after close-out.
func (b *Booking) FinalTotalCents() int64 {
	return b.FinalAmountCents + b.ExcessFeeCents
}

func (b *Booking) DurationHours() float64 {
	return b.EndTime.Sub(b.StartTime).Hours()
}

func (b *Booking) IsTerminal() bool {
	switch b.Status {
	case StatusCompleted, StatusCancelled, StatusExpired:
		return true
	default:
		return false
	}
}

// OwnedBy reports whether userID created this booking.
func (b *Booking) OwnedBy(userID string) bool {
	return b.UserID != "" && b.UserID == userID
}

func (b *Booking) transition(target BookingStatus) error {
	if err := b.canTransitionTo(target); err != nil {
		return err
	}
	b.Status = target
	return nil
}

// Valid transitions:
//   - pending → active, expired, cancelled
//   - active → completed, cancelled
//
// completed, cancelled and expired are terminal.
func (b *Booking) canTransitionTo(target BookingStatus) error {
	switch b.Status {
	case StatusPending:
		return b.allow(target, StatusActive, StatusExpired, StatusCancelled)
	case StatusActive:
		return b.allow(target, StatusCompleted, StatusCancelled)
	}
	return NewInvalidTransitionError(b.Status, target)
}

func (b *Booking) allow(target BookingStatus, allowed ...BookingStatus) error {
	if slices.Contains(allowed, target) {
		return nil
	}
	return NewInvalidTransitionError(b.Status, target)
}
