package config

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ConnString renders the settings as a postgres URL.
func (c *DatabaseConfig) ConnString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.Name,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

// PgxConfig creates and returns a pgxpool.Config with the database connection settings from the DatabaseConfig.
func (c *DatabaseConfig) PgxConfig(ctx context.Context) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(c.ConnString())
	if err != nil {
		return nil, err
	}

	cfg.MaxConns = int32(c.MaxOpenConns)
	cfg.MinConns = int32(c.MaxIdleConns)
	cfg.MaxConnLifetime = c.ConnMaxLifetime
	cfg.MaxConnIdleTime = c.ConnMaxIdleTime
	cfg.HealthCheckPeriod = 30 * time.Second

	return cfg, nil
}

// MigrateURL is ConnString with the scheme golang-migrate's pgx/v5 driver registers.
func (c *DatabaseConfig) MigrateURL() string {
	u, _ := url.Parse(c.ConnString())
	u.Scheme = "pgx5"
	return u.String()
}
