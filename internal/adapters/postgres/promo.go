package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/DanielPopoola/parking-reservation/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// FindPromoForUpdate locks the promo row so the usage check and increment are atomic with the booking insert.
func (r *BookingRepository) FindPromoForUpdate(ctx context.Context, code string) (*domain.Promo, error) {
	query := `
			SELECT code, discount_type, discount_value::float8, expires_at, usage_limit, current_uses, is_active
			FROM promo_codes
			WHERE code = $1
			FOR UPDATE`

	var p domain.Promo
	err := r.q.QueryRow(ctx, query, code).Scan(
		&p.Code,
		&p.Type,
		&p.Value,
		&p.ExpiresAt,
		&p.UsageLimit,
		&p.CurrentUses,
		&p.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewPromoNotFoundError(code)
		}
		return nil, fmt.Errorf("failed to scan promo code: %w", err)
	}
	return &p, nil
}

func (r *BookingRepository) IncrementPromoUse(ctx context.Context, code string) error {
	cmdTag, err := r.q.Exec(ctx,
		`UPDATE promo_codes SET current_uses = current_uses + 1 WHERE code = $1 AND current_uses < usage_limit`,
		code,
	)
	if err != nil {
		return fmt.Errorf("failed to increment promo usage: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.NewPromoNotFoundError(code)
	}
	return nil
}
