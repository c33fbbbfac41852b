package domain

import "time"

// Audit action tags.
const (
	ActionCreated           = "booking_created"
	ActionPaymentInitiated  = "payment_initiated"
	ActionPaymentConfirmed  = "payment_confirmed"
	ActionPaymentProcessing = "payment_processing"
	ActionPaymentFailed     = "payment_failed"
	ActionLatePayment       = "payment_after_terminal"
	ActionCancelled         = "booking_cancelled"
	ActionExpired           = "booking_expired"
	ActionCompleted         = "booking_completed"
	ActionRefundSettled     = "refund_settled"
)

// ActorSystem is recorded for transitions driven by the sweeper or the gateway.
const ActorSystem = "system"

// AuditEntry is an append-only record of one meaningful transition.
type AuditEntry struct {
	ID        int64
	BookingID int64
	Actor     string
	Action    string
	OldStatus string
	NewStatus string
	Details   string
	CreatedAt time.Time
}

func NewAuditEntry(bookingID int64, actor, action, oldStatus, newStatus, details string, at time.Time) *AuditEntry {
	return &AuditEntry{
		BookingID: bookingID,
		Actor:     actor,
		Action:    action,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Details:   details,
		CreatedAt: at,
	}
}
