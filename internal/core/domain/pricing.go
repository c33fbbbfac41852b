package domain

import (
	"fmt"
	"math"
	"time"
)

// Quote is the priced outcome of a booking request.
type Quote struct {
	BaseCents     int64
	DiscountCents int64
	FinalCents    int64

	PromoCode    string
	PromoApplied bool
	// PromoMessage explains why a supplied code was not honored.
	PromoMessage string
}

// BaseAmountCents prices a duration before discounts.
func BaseAmountCents(hours float64, spotType SpotType, rules Rules) int64 {
	return roundCents(hours * rules.HourlyRate * rules.Multiplier(spotType) * 100)
}

// PriceQuote prices the interval and applies promo when it is usable at now.
// A missing or unusable promo yields zero discount rather than an error.
func PriceQuote(hours float64, spotType SpotType, rules Rules, code string, promo *Promo, now time.Time) Quote {
	base := BaseAmountCents(hours, spotType, rules)
	q := Quote{
		BaseCents:  base,
		FinalCents: base,
		PromoCode:  NormalizePromoCode(code),
	}
	if q.PromoCode == "" {
		return q
	}
	if promo == nil {
		q.PromoMessage = fmt.Sprintf("promo code %s not found", q.PromoCode)
		return q
	}
	if ok, reason := promo.Usable(now); !ok {
		q.PromoMessage = reason
		return q
	}

	q.DiscountCents = promo.DiscountCents(base)
	q.FinalCents = base - q.DiscountCents
	q.PromoApplied = true
	return q
}

// FormatAmount renders cents the way the gateway expects, always with two decimals.
func FormatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func roundCents(v float64) int64 {
	return int64(math.Round(v))
}
