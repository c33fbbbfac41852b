package domain

import (
	"fmt"
	"time"
)

type NoticeKind string

const (
	NoticeReminder         NoticeKind = "reminder"
	NoticeEndOfBooking     NoticeKind = "end_of_booking"
	NoticeOverstay         NoticeKind = "overstay"
	NoticePaymentConfirmed NoticeKind = "payment_confirmed"
	NoticeCancelled        NoticeKind = "cancelled"
	NoticeExpired          NoticeKind = "expired"
)

// Notification is handed to an external notifier. Delivery is best effort.
type Notification struct {
	Kind      NoticeKind `json:"kind"`
	BookingID int64      `json:"booking_id"`
	Recipient string     `json:"recipient"`
	Subject   string     `json:"subject"`
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"created_at"`
}

// DueNotice picks the time-based notice an active booking should receive at now, if any.
// Each kind is gated by its own last-sent marker; overstay reminders repeat every overstayEvery.
func DueNotice(b *Booking, now time.Time, reminderLead, overstayEvery time.Duration) (NoticeKind, bool) {
	if b.Status != StatusActive {
		return "", false
	}

	if now.Before(b.EndTime) {
		if b.ReminderSentAt == nil && !now.Before(b.EndTime.Add(-reminderLead)) {
			return NoticeReminder, true
		}
		return "", false
	}

	if b.ExpiryNoticeSentAt == nil {
		return NoticeEndOfBooking, true
	}

	last := *b.ExpiryNoticeSentAt
	if b.OverstayNoticeSentAt != nil {
		last = *b.OverstayNoticeSentAt
	}
	if now.Sub(last) >= overstayEvery {
		return NoticeOverstay, true
	}
	return "", false
}

// MarkNoticeSent stamps the last-sent marker for kind.
func (b *Booking) MarkNoticeSent(kind NoticeKind, at time.Time) {
	switch kind {
	case NoticeReminder:
		b.ReminderSentAt = &at
	case NoticeEndOfBooking:
		b.ExpiryNoticeSentAt = &at
	case NoticeOverstay:
		b.OverstayNoticeSentAt = &at
	}
}

// BuildNotification renders the message for kind.
func BuildNotification(kind NoticeKind, b *Booking, spotLabel string, now time.Time) Notification {
	n := Notification{
		Kind:      kind,
		BookingID: b.ID,
		Recipient: b.ContactEmail,
		CreatedAt: now,
	}
	window := fmt.Sprintf("%s to %s", b.StartTime.Format("2006-01-02 15:04"), b.EndTime.Format("2006-01-02 15:04"))

	switch kind {
	case NoticeReminder:
		n.Subject = fmt.Sprintf("Booking #%d ends soon", b.ID)
		n.Body = fmt.Sprintf("Your parking at %s (%s) ends at %s UTC.", spotLabel, b.VehiclePlate, b.EndTime.Format("15:04"))
	case NoticeEndOfBooking:
		n.Subject = fmt.Sprintf("Booking #%d has ended", b.ID)
		n.Body = fmt.Sprintf("Your parking at %s for %s has ended. Further time is billed per started hour.", spotLabel, window)
	case NoticeOverstay:
		over := now.Sub(b.EndTime).Truncate(time.Minute)
		n.Subject = fmt.Sprintf("Booking #%d is overstaying", b.ID)
		n.Body = fmt.Sprintf("Vehicle %s is still at %s, %s past the booked end time.", b.VehiclePlate, spotLabel, over)
	case NoticePaymentConfirmed:
		n.Subject = fmt.Sprintf("Booking #%d confirmed", b.ID)
		n.Body = fmt.Sprintf("Payment of %s received. Spot %s is reserved for %s.", FormatAmount(b.FinalAmountCents), spotLabel, window)
	case NoticeCancelled:
		n.Subject = fmt.Sprintf("Booking #%d cancelled", b.ID)
		n.Body = fmt.Sprintf("Your booking for %s was cancelled. Refund: %s.", window, FormatAmount(b.RefundAmountCents))
	case NoticeExpired:
		n.Subject = fmt.Sprintf("Booking #%d expired", b.ID)
		n.Body = fmt.Sprintf("No payment was received for spot %s (%s); the reservation has been released.", spotLabel, window)
	}
	return n
}
