package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/DanielPopoola/parking-reservation/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

const spotColumns = `id, floor, row_index, col_index, label, spot_type, is_blocked`

func (r *BookingRepository) FindSpot(ctx context.Context, id int64) (*domain.Spot, error) {
	query := `SELECT ` + spotColumns + ` FROM spots WHERE id = $1`
	return findOneSpot(r.q.QueryRow(ctx, query, id), id)
}

// FindSpotForUpdate locks the spot row. Every reservation for the spot queues behind it,
// so the overlap check and the insert see the same set of bookings.
func (r *BookingRepository) FindSpotForUpdate(ctx context.Context, id int64) (*domain.Spot, error) {
	query := `SELECT ` + spotColumns + ` FROM spots WHERE id = $1 FOR UPDATE`
	return findOneSpot(r.q.QueryRow(ctx, query, id), id)
}

func (r *BookingRepository) FindSpotsByFloor(ctx context.Context, floor int) ([]*domain.Spot, error) {
	query := `SELECT ` + spotColumns + ` FROM spots WHERE floor = $1 ORDER BY row_index, col_index`

	rows, err := r.q.Query(ctx, query, floor)
	if err != nil {
		return nil, fmt.Errorf("query spots by floor: %w", err)
	}
	spots, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Spot, error) {
		return scanSpot(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan spots: %w", err)
	}
	return spots, nil
}

func scanSpot(row pgx.Row) (*domain.Spot, error) {
	var s domain.Spot
	err := row.Scan(&s.ID, &s.Floor, &s.Row, &s.Col, &s.Label, &s.Type, &s.IsBlocked)
	return &s, err
}

func findOneSpot(row pgx.Row, id int64) (*domain.Spot, error) {
	s, err := scanSpot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewSpotNotFoundError(id)
		}
		return nil, fmt.Errorf("failed to scan spot: %w", err)
	}
	return s, nil
}
