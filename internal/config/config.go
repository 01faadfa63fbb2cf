package config

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Issuers with dedicated validators.
const (
	IssuerWeb = "boardkit-web"
	IssuerSSO = "boardkit-sso"
)

const minHS256SecretBytes = 32

// Config holds all application configuration
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Redis
	RedisURL string `env:"REDIS_URL,required"`

	// JWT
	JWTHS256Secret      string `env:"JWT_HS256_SECRET,required"` // base64-encoded HMAC secret
	JWTAllowedIssuers   string `env:"JWT_ALLOWED_ISSUERS" envDefault:"boardkit-web"`
	JWTAudience         string `env:"JWT_AUDIENCE,required"`
	JWTClockSkewSeconds int    `env:"JWT_CLOCK_SKEW_SECONDS" envDefault:"60"`
	JWTPublicKeyRS256   string `env:"JWT_PUBLIC_KEY_RS256"` // PEM, enables the boardkit-sso issuer

	// Service-to-service token for the web frontend
	S2STokenWeb string `env:"S2S_TOKEN_WEB"`

	// OpenTelemetry
	OTELEnabled          bool    `env:"OTEL_ENABLED" envDefault:"true"`
	OTELExporterEndpoint string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTELServiceName      string  `env:"OTEL_SERVICE_NAME" envDefault:"boardkit-api"`
	OTELSamplingRatio    float64 `env:"OTEL_SAMPLING_RATIO" envDefault:"0.1"`

	// Server
	Port     string `env:"PORT" envDefault:"3002"`
	AppEnv   string `env:"APP_ENV" envDefault:"production"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	RateLimitPerUserPerMin int    `env:"RATE_LIMIT_PER_USER_PER_MIN" envDefault:"120"`
	MetricsToken           string `env:"METRICS_TOKEN"`

	// Invitations
	InvitationWebhookURL    string `env:"INVITATION_WEBHOOK_URL"`
	InvitationRetentionDays int    `env:"INVITATION_RETENTION_DAYS" envDefault:"30"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate performs cross-field checks env tags cannot express.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	secret, err := c.HS256Secret()
	if err != nil {
		return err
	}
	if len(secret) < minHS256SecretBytes {
		return fmt.Errorf("JWT_HS256_SECRET must decode to at least %d bytes", minHS256SecretBytes)
	}

	if len(c.GetAllowedIssuers()) == 0 {
		return fmt.Errorf("JWT_ALLOWED_ISSUERS must contain at least one valid issuer")
	}
	if c.JWTAudience == "" {
		return fmt.Errorf("JWT_AUDIENCE is required")
	}
	if c.JWTClockSkewSeconds < 0 {
		return fmt.Errorf("JWT_CLOCK_SKEW_SECONDS must be non-negative")
	}

	if c.OTELSamplingRatio < 0 || c.OTELSamplingRatio > 1 {
		return fmt.Errorf("OTEL_SAMPLING_RATIO must be between 0 and 1")
	}

	if c.RateLimitPerUserPerMin <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_USER_PER_MIN must be positive")
	}
	if c.InvitationRetentionDays <= 0 {
		return fmt.Errorf("INVITATION_RETENTION_DAYS must be positive")
	}

	switch c.AppEnv {
	case "dev", "staging", "production":
	default:
		return fmt.Errorf("APP_ENV must be one of dev, staging, production")
	}

	return nil
}

// HS256Secret decodes JWT_HS256_SECRET.
func (c *Config) HS256Secret() ([]byte, error) {
	if c.JWTHS256Secret == "" {
		return nil, fmt.Errorf("JWT_HS256_SECRET is required")
	}
	secret, err := base64.StdEncoding.DecodeString(strings.TrimSpace(c.JWTHS256Secret))
	if err != nil {
		return nil, fmt.Errorf("JWT_HS256_SECRET must be valid base64: %w", err)
	}
	return secret, nil
}

// GetAllowedIssuers returns the list of allowed JWT issuers
func (c *Config) GetAllowedIssuers() []string {
	issuers := strings.Split(c.JWTAllowedIssuers, ",")
	result := make([]string, 0, len(issuers))
	for _, issuer := range issuers {
		trimmed := strings.TrimSpace(issuer)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func (c *Config) ClockSkew() time.Duration {
	return time.Duration(c.JWTClockSkewSeconds) * time.Second
}

func (c *Config) IsDev() bool {
	return c.AppEnv == "dev"
}

// InvitationRetention is how long answered or expired invitations are kept
// before cleanup purges them.
func (c *Config) InvitationRetention() time.Duration {
	return time.Duration(c.InvitationRetentionDays) * 24 * time.Hour
}

// TelemetryEnabled reports whether OTLP exporters should be started.
func (c *Config) TelemetryEnabled() bool {
	return c.OTELEnabled && c.OTELExporterEndpoint != ""
}
