package testhelpers

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/DanielPopoola/parking-reservation/internal/adapters/postgres"
	"github.com/DanielPopoola/parking-reservation/internal/config"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type TestDatabase struct {
	Container testcontainers.Container
	DB        *postgres.DB
	Config    *config.DatabaseConfig
}

// SetupTestDatabase starts Postgres 16 in a container and applies the embedded migrations.
func SetupTestDatabase(t *testing.T) *TestDatabase {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dbConfig := &config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            "testuser",
		Password:        "testpass",
		Name:            "testdb",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 1 * time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	require.NoError(t, postgres.Migrate(dbConfig, logger))

	db, err := postgres.Connect(ctx, dbConfig, logger)
	require.NoError(t, err)

	return &TestDatabase{
		Container: container,
		DB:        db,
		Config:    dbConfig,
	}
}

func (td *TestDatabase) Cleanup(t *testing.T) {
	ctx := context.Background()
	td.DB.Close()
	require.NoError(t, td.Container.Terminate(ctx))
}

// CleanTables empties everything except the seeded spots and settings.
func (td *TestDatabase) CleanTables(t *testing.T) {
	ctx := context.Background()

	_, err := td.DB.Pool.Exec(ctx, "TRUNCATE TABLE booking_audit_log, bookings, promo_codes RESTART IDENTITY CASCADE;")
	require.NoError(t, err)

	_, err = td.DB.Pool.Exec(ctx, "UPDATE spots SET is_blocked = FALSE;")
	require.NoError(t, err)
}

// InsertPromo adds a promo code row directly.
func (td *TestDatabase) InsertPromo(t *testing.T, code, kind string, value float64, expiresAt time.Time, limit, uses int) {
	_, err := td.DB.Pool.Exec(context.Background(),
		`INSERT INTO promo_codes (code, discount_type, discount_value, expires_at, usage_limit, current_uses, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, TRUE)`,
		code, kind, value, expiresAt, limit, uses,
	)
	require.NoError(t, err)
}

// BlockSpot flags a seeded spot as blocked.
func (td *TestDatabase) BlockSpot(t *testing.T, id int64) {
	_, err := td.DB.Pool.Exec(context.Background(), `UPDATE spots SET is_blocked = TRUE WHERE id = $1`, id)
	require.NoError(t, err)
}
