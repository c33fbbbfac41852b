package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
)

const envPrefix = "PARKING_"

type Config struct {
	Primary  Primary        `koanf:"primary"`
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Gateway  GatewayConfig  `koanf:"gateway"`
	Retry    RetryConfig    `koanf:"retry"`
	Logger   LoggerConfig   `koanf:"logger"`
	Worker   WorkerConfig   `koanf:"worker"`
	Booking  BookingConfig  `koanf:"booking"`
	Auth     AuthConfig     `koanf:"auth"`
	Redis    RedisConfig    `koanf:"redis"`
	Notifier NotifierConfig `koanf:"notifier"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" validate:"required"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// GatewayConfig holds the hosted payment page credentials. Request and response keys are distinct secrets.
type GatewayConfig struct {
	AppID       string        `koanf:"app_id" validate:"required"`
	RequestKey  string        `koanf:"request_key" validate:"required"`
	ResponseKey string        `koanf:"response_key" validate:"required"`
	Currency    string        `koanf:"currency" validate:"required,len=3"`
	PaymentURL  string        `koanf:"payment_url" validate:"required,url"`
	EnquiryURL  string        `koanf:"enquiry_url" validate:"required,url"`
	ReturnURL   string        `koanf:"return_url" validate:"required,url"`
	FrontendURL string        `koanf:"frontend_url" validate:"required,url"`
	OrderPrefix string        `koanf:"order_prefix" validate:"required,alphanum,excludes=-"`
	Timeout     time.Duration `koanf:"timeout" validate:"required"`
}

type RetryConfig struct {
	BaseDelay  time.Duration `koanf:"base_delay"`
	MaxRetries int           `koanf:"max_retries"`
}

type LoggerConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type WorkerConfig struct {
	Interval      time.Duration `koanf:"interval" validate:"required"`
	BatchSize     int           `koanf:"batch_size" validate:"required"`
	PendingGrace  time.Duration `koanf:"pending_grace" validate:"required"`
	ReminderLead  time.Duration `koanf:"reminder_lead" validate:"required"`
	OverstayEvery time.Duration `koanf:"overstay_every" validate:"required"`
	LeaseTTL      time.Duration `koanf:"lease_ttl" validate:"required"`
}

type BookingConfig struct {
	StartSkew      time.Duration `koanf:"start_skew" validate:"required"`
	ReceiptBaseURL string        `koanf:"receipt_base_url" validate:"required,url"`
}

type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret" validate:"required,min=16"`
}

// RedisConfig is optional; an empty address disables the distributed sweep lease.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type NotifierConfig struct {
	Driver     string   `koanf:"driver" validate:"oneof=log kafka amqp"`
	Brokers    []string `koanf:"brokers"`
	Topic      string   `koanf:"topic"`
	AMQPURL    string   `koanf:"amqp_url"`
	Exchange   string   `koanf:"exchange"`
	RoutingKey string   `koanf:"routing_key"`
}

// defaults are loaded before the environment so only secrets and endpoints must be set.
var defaults = map[string]any{
	"primary.env":                 "production",
	"server.port":                 "8080",
	"server.read_timeout":         "15s",
	"server.write_timeout":        "15s",
	"server.idle_timeout":         "60s",
	"database.ssl_mode":           "disable",
	"database.max_open_conns":     10,
	"database.max_idle_conns":     2,
	"database.conn_max_lifetime":  "1h",
	"database.conn_max_idle_time": "30m",
	"gateway.currency":            "MYR",
	"gateway.order_prefix":        "RP",
	"gateway.timeout":             "10s",
	"retry.base_delay":            "500ms",
	"retry.max_retries":           3,
	"logger.level":                "info",
	"logger.format":               "json",
	"worker.interval":             "5m",
	"worker.batch_size":           100,
	"worker.pending_grace":        "15m",
	"worker.reminder_lead":        "30m",
	"worker.overstay_every":       "6h",
	"worker.lease_ttl":            "4m",
	"booking.start_skew":          "5m",
	"notifier.driver":             "log",
	"notifier.topic":              "booking-notifications",
	"notifier.exchange":           "parking.events",
	"notifier.routing_key":        "booking.notification",
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		logger.Error("failed to load config defaults", "error", err)
		return nil, err
	}

	err := k.Load(env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, any) {
		key = strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(key, envPrefix)),
			"__",
			".",
		)
		if key == "notifier.brokers" {
			return key, strings.Split(value, ",")
		}
		return key, value
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}
