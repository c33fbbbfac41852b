package domain

import (
	"fmt"
	"math"
	"time"
)

// Refund is the outcome of the cancellation policy.
type Refund struct {
	AmountCents int64
	Percent     float64
	Reason      string
}

// CancellationRefund decides how much of finalCents goes back to the customer when
// cancelling at now for a booking starting at start.
func CancellationRefund(finalCents int64, start, now time.Time, rules Rules) Refund {
	lead := start.Sub(now)
	hours := lead.Hours()

	switch {
	case lead >= rules.FullRefundWindow:
		return Refund{
			AmountCents: finalCents,
			Percent:     100,
			Reason:      fmt.Sprintf("full refund: cancelled %.1fh before start (>= %s)", hours, formatHours(rules.FullRefundWindow)),
		}
	case lead >= rules.PartialRefundWindow:
		return Refund{
			AmountCents: roundCents(float64(finalCents) * rules.PartialRefundPct / 100),
			Percent:     rules.PartialRefundPct,
			Reason: fmt.Sprintf("partial refund %.0f%%: cancelled %.1fh before start (>= %s)",
				rules.PartialRefundPct, hours, formatHours(rules.PartialRefundWindow)),
		}
	default:
		return Refund{
			Reason: fmt.Sprintf("no refund: cancelled %.1fh before start (< %s)", hours, formatHours(rules.PartialRefundWindow)),
		}
	}
}

// LatePaymentRefund is what goes back when money is captured for a booking that already left pending.
// A cancelled booking gets the tier that applied when it was cancelled; anything else gets everything back.
func LatePaymentRefund(b *Booking, rules Rules) Refund {
	if b.Status == StatusCancelled && b.CancelledAt != nil {
		return CancellationRefund(b.FinalAmountCents, b.StartTime, *b.CancelledAt, rules)
	}
	return Refund{
		AmountCents: b.FinalAmountCents,
		Percent:     100,
		Reason:      fmt.Sprintf("full refund: payment captured after booking was %s", b.Status),
	}
}

// Overstay is the outcome of the exit fee calculation.
type Overstay struct {
	HoursOver int64
	FeeCents  int64
}

// OverstayFee bills every started hour past end. Closing on or before end costs nothing.
func OverstayFee(end, now time.Time, spotType SpotType, rules Rules) Overstay {
	if !now.After(end) {
		return Overstay{}
	}
	hours := int64(math.Ceil(now.Sub(end).Hours()))
	perHour := rules.HourlyRate * rules.Multiplier(spotType) * 100
	return Overstay{
		HoursOver: hours,
		FeeCents:  roundCents(float64(hours) * perHour),
	}
}

func formatHours(d time.Duration) string {
	return fmt.Sprintf("%gh", d.Hours())
}
