package config

import (
	"fmt"
	"strings"
	"time"

	pkgconfig "github.com/s1037989/stripepayment/pkg/config"
	"github.com/s1037989/stripepayment/pkg/validator"
)

// DefaultBaseURL is the provider's API root.
const DefaultBaseURL = "https://api.stripe.com/v1"

// Config holds all configuration for the payment process.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort           int      `env:"HTTP_PORT" envDefault:"8080"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	// Payment provider
	Secret       string        `env:"STRIPE_SECRET" validate:"required_unless=Mocked true"`
	PubKey       string        `env:"STRIPE_PUB_KEY"`
	BaseURL      string        `env:"STRIPE_BASE_URL" envDefault:"https://api.stripe.com/v1" validate:"required,url"`
	CurrencyCode string        `env:"STRIPE_CURRENCY_CODE" envDefault:"USD" validate:"len=3"`
	AutoCapture  bool          `env:"STRIPE_AUTO_CAPTURE" envDefault:"true"`
	Mocked       bool          `env:"STRIPE_MOCKED" envDefault:"false"`
	Timeout      time.Duration `env:"STRIPE_TIMEOUT" envDefault:"30s"`

	// PostgreSQL (charge records). Empty host disables persistence.
	PostgresHost string `env:"POSTGRES_HOST"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"payments"`
	PostgresPass string `env:"POSTGRES_PASSWORD"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"payments"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	DBMaxConns           int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	DBSlowQueryThreshold time.Duration `env:"DB_SLOW_QUERY_THRESHOLD" envDefault:"200ms"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Redis (checkout idempotency keys). Empty host keeps keys in memory.
	RedisHost      string        `env:"REDIS_HOST"`
	RedisPort      int           `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword  string        `env:"REDIS_PASSWORD"`
	RedisDB        int           `env:"REDIS_DB" envDefault:"0"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	// Tracing
	OTelEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTelSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Stripe is the read-only provider configuration handed to the client.
// It is a value: copies cannot change what the client sees.
type Stripe struct {
	Secret       string
	PubKey       string
	BaseURL      string
	CurrencyCode string
	AutoCapture  bool
	Mocked       bool
	Timeout      time.Duration
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load payment config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the provider settings.
func (c *Config) Validate() error {
	if err := validator.Validate(c); err != nil {
		return fmt.Errorf("validate payment config: %w", err)
	}
	return nil
}

// Stripe returns the provider configuration. Trailing slashes are trimmed
// from the base URL so resource paths can be appended directly.
func (c *Config) Stripe() Stripe {
	return Stripe{
		Secret:       c.Secret,
		PubKey:       c.PubKey,
		BaseURL:      strings.TrimRight(c.BaseURL, "/"),
		CurrencyCode: c.CurrencyCode,
		AutoCapture:  c.AutoCapture,
		Mocked:       c.Mocked,
		Timeout:      c.Timeout,
	}
}

// DefaultStripe returns the provider defaults used when a field is not configured.
func DefaultStripe() Stripe {
	return Stripe{
		BaseURL:      DefaultBaseURL,
		CurrencyCode: "USD",
		AutoCapture:  true,
		Timeout:      30 * time.Second,
	}
}

// PostgresEnabled reports whether charge records should be persisted.
func (c *Config) PostgresEnabled() bool {
	return c.PostgresHost != ""
}

// RedisEnabled reports whether idempotency keys should live in Redis.
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}
