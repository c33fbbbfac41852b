package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	env := map[string]string{
		"PARKING_DATABASE__HOST":            "localhost",
		"PARKING_DATABASE__PORT":            "5432",
		"PARKING_DATABASE__USER":            "parking",
		"PARKING_DATABASE__PASSWORD":        "secret",
		"PARKING_DATABASE__NAME":            "parking",
		"PARKING_GATEWAY__APP_ID":           "RPA1000",
		"PARKING_GATEWAY__REQUEST_KEY":      "req-key",
		"PARKING_GATEWAY__RESPONSE_KEY":     "resp-key",
		"PARKING_GATEWAY__PAYMENT_URL":      "https://pay.example.com/payment",
		"PARKING_GATEWAY__ENQUIRY_URL":      "https://pay.example.com/transactionenquiry",
		"PARKING_GATEWAY__RETURN_URL":       "https://api.example.com/payments/return",
		"PARKING_GATEWAY__FRONTEND_URL":     "https://app.example.com",
		"PARKING_BOOKING__RECEIPT_BASE_URL": "https://app.example.com/receipts",
		"PARKING_AUTH__JWT_SECRET":          "0123456789abcdef0123",
	}
	for k, v := range env {
		t.Setenv(k, v)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.Worker.Interval)
	assert.Equal(t, 15*time.Minute, cfg.Worker.PendingGrace)
	assert.Equal(t, 6*time.Hour, cfg.Worker.OverstayEvery)
	assert.Equal(t, "MYR", cfg.Gateway.Currency)
	assert.Equal(t, "RP", cfg.Gateway.OrderPrefix)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "log", cfg.Notifier.Driver)
}

func TestLoadConfig_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PARKING_WORKER__INTERVAL", "1m")
	t.Setenv("PARKING_NOTIFIER__DRIVER", "kafka")
	t.Setenv("PARKING_NOTIFIER__BROKERS", "k1:9092,k2:9092")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cfg.Worker.Interval)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Notifier.Brokers)
}

func TestLoadConfig_MissingSecret(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PARKING_GATEWAY__RESPONSE_KEY", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_OrderPrefixWithDash(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PARKING_GATEWAY__ORDER_PREFIX", "RP-PARK")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestDatabaseConfig_ConnString(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p@ss", Name: "parking", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p%40ss@db:5433/parking?sslmode=disable", c.ConnString())
}

func TestLoggerConfig_Level(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LoggerConfig{Level: "debug"}.level())
	assert.Equal(t, slog.LevelWarn, LoggerConfig{Level: "WARN"}.level())
	assert.Equal(t, slog.LevelInfo, LoggerConfig{Level: "nonsense"}.level())
}
