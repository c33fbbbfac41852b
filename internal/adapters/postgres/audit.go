package postgres

import (
	"context"
	"fmt"

	"github.com/DanielPopoola/parking-reservation/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

func (r *BookingRepository) AppendAudit(ctx context.Context, e *domain.AuditEntry) error {
	query := `INSERT INTO booking_audit_log (booking_id, actor, action, old_status, new_status, details, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING id`

	err := r.q.QueryRow(ctx, query,
		e.BookingID,
		e.Actor,
		e.Action,
		e.OldStatus,
		e.NewStatus,
		e.Details,
		e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// FindAudit returns a booking's trail in the order it was written.
func (r *BookingRepository) FindAudit(ctx context.Context, bookingID int64) ([]*domain.AuditEntry, error) {
	query := `SELECT id, booking_id, actor, action, old_status, new_status, details, created_at
			  FROM booking_audit_log
			  WHERE booking_id = $1
			  ORDER BY id`

	rows, err := r.q.Query(ctx, query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.AuditEntry, error) {
		var e domain.AuditEntry
		err := row.Scan(&e.ID, &e.BookingID, &e.Actor, &e.Action, &e.OldStatus, &e.NewStatus, &e.Details, &e.CreatedAt)
		return &e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan audit log: %w", err)
	}
	return entries, nil
}
