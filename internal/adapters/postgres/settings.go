package postgres

import (
	"context"
	"fmt"

	"github.com/DanielPopoola/parking-reservation/internal/core/ports"
	"github.com/jackc/pgx/v5"
)

// SettingsRepository reads the system_config key/value table.
type SettingsRepository struct {
	q Executor
}

func NewSettingsRepository(db *DB) ports.SettingsStore {
	return &SettingsRepository{q: db.Pool}
}

func (r *SettingsRepository) LoadSettings(ctx context.Context) (map[string]string, error) {
	rows, err := r.q.Query(ctx, `SELECT key, value FROM system_config`)
	if err != nil {
		return nil, fmt.Errorf("query system config: %w", err)
	}

	type kv struct{ key, value string }
	pairs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (kv, error) {
		var p kv
		err := row.Scan(&p.key, &p.value)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan system config: %w", err)
	}

	settings := make(map[string]string, len(pairs))
	for _, p := range pairs {
		settings[p.key] = p.value
	}
	return settings, nil
}
