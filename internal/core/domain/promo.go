package domain

import (
	"strings"
	"time"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Promo is a discount code. Value is a percent for percentage codes and a currency amount for fixed ones.
type Promo struct {
	Code        string
	Type        DiscountType
	Value       float64
	ExpiresAt   time.Time
	UsageLimit  int
	CurrentUses int
	IsActive    bool
}

// NormalizePromoCode makes codes case-insensitive.
func NormalizePromoCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Usable reports whether the promo may be applied at now, with a reason when it may not.
func (p *Promo) Usable(now time.Time) (bool, string) {
	switch {
	case !p.IsActive:
		return false, "promo code is inactive"
	case !now.Before(p.ExpiresAt):
		return false, "promo code has expired"
	case p.CurrentUses >= p.UsageLimit:
		return false, "promo code usage limit reached"
	}
	return true, ""
}

// DiscountCents computes the discount on baseCents, capped so the price never goes negative.
func (p *Promo) DiscountCents(baseCents int64) int64 {
	var discount int64
	switch p.Type {
	case DiscountPercentage:
		discount = roundCents(float64(baseCents) * p.Value / 100)
	case DiscountFixed:
		discount = roundCents(p.Value * 100)
	}
	if discount < 0 {
		return 0
	}
	if discount > baseCents {
		return baseCents
	}
	return discount
}
