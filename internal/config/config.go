package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/medapp/medapp/internal/platform/notification"
)

// E-mail providers selectable with EMAIL_PROVIDER.
const (
	ProviderSMTP     = "smtp"
	ProviderSES      = "ses"
	ProviderSendGrid = "sendgrid"
	ProviderLog      = "log"
)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32         `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	RedisURL       string        `mapstructure:"REDIS_URL"`
	LookupCacheTTL time.Duration `mapstructure:"LOOKUP_CACHE_TTL"`

	EmailProvider    string        `mapstructure:"EMAIL_PROVIDER"`
	EmailFromName    string        `mapstructure:"EMAIL_FROM_NAME"`
	EmailFromAddress string        `mapstructure:"EMAIL_FROM_ADDRESS"`
	SMTPHost         string        `mapstructure:"SMTP_HOST"`
	SMTPPort         int           `mapstructure:"SMTP_PORT"`
	SMTPUsername     string        `mapstructure:"SMTP_USERNAME"`
	SMTPPassword     string        `mapstructure:"SMTP_PASSWORD"`
	SMTPSecurity     string        `mapstructure:"SMTP_SECURITY"`
	SMTPTimeout      time.Duration `mapstructure:"SMTP_TIMEOUT"`
	AWSRegion        string        `mapstructure:"AWS_REGION"`
	SendGridAPIKey   string        `mapstructure:"SENDGRID_API_KEY"`
}

var defaults = map[string]any{
	"PORT":               "8000",
	"ENV":                "development",
	"LOG_LEVEL":          "info",
	"DB_MAX_CONNS":       20,
	"DB_MIN_CONNS":       2,
	"CORS_ORIGINS":       "http://localhost:3000",
	"RATE_LIMIT_RPS":     100,
	"RATE_LIMIT_BURST":   200,
	"REQUEST_TIMEOUT":    "30s",
	"LOOKUP_CACHE_TTL":   "5m",
	"EMAIL_PROVIDER":     ProviderSMTP,
	"EMAIL_FROM_NAME":    "MedApp",
	"SMTP_HOST":          "localhost",
	"SMTP_PORT":          25,
	"SMTP_SECURITY":      string(notification.SecurityNone),
	"SMTP_TIMEOUT":       "30s",
	"AWS_REGION":         "us-east-1",
	"DATABASE_URL":       "",
	"REDIS_URL":          "",
	"EMAIL_FROM_ADDRESS": "",
	"SMTP_USERNAME":      "",
	"SMTP_PASSWORD":      "",
	"SENDGRID_API_KEY":   "",
}

// Load reads the environment, then an optional .env file in the working
// directory, and validates the result.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	for key, val := range defaults {
		v.SetDefault(key, val)
		// Bind env vars explicitly so Unmarshal picks them up
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	cfg.EmailProvider = strings.ToLower(strings.TrimSpace(cfg.EmailProvider))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks cross-field rules.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}

	switch c.EmailProvider {
	case ProviderLog:
		return nil
	case ProviderSMTP:
		if c.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required when EMAIL_PROVIDER is %q", ProviderSMTP)
		}
		if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
			return fmt.Errorf("SMTP_PORT must be between 1 and 65535, got %d", c.SMTPPort)
		}
		if _, err := notification.ParseSecurity(c.SMTPSecurity); err != nil {
			return fmt.Errorf("SMTP_SECURITY: %w", err)
		}
	case ProviderSES:
		if c.AWSRegion == "" {
			return fmt.Errorf("AWS_REGION is required when EMAIL_PROVIDER is %q", ProviderSES)
		}
	case ProviderSendGrid:
		if c.SendGridAPIKey == "" {
			return fmt.Errorf("SENDGRID_API_KEY is required when EMAIL_PROVIDER is %q", ProviderSendGrid)
		}
	default:
		return fmt.Errorf("EMAIL_PROVIDER must be one of smtp, ses, sendgrid, log; got %q", c.EmailProvider)
	}

	if c.EmailFromAddress == "" {
		return fmt.Errorf("EMAIL_FROM_ADDRESS is required when EMAIL_PROVIDER is %q", c.EmailProvider)
	}
	return nil
}

// Sender is the From identity for outgoing e-mail.
func (c *Config) Sender() notification.Sender {
	return notification.Sender{Name: c.EmailFromName, Address: c.EmailFromAddress}
}

// SMTP builds the relay settings. Call after Validate.
func (c *Config) SMTP() notification.SMTPConfig {
	sec, _ := notification.ParseSecurity(c.SMTPSecurity)
	return notification.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUsername,
		Password: c.SMTPPassword,
		Security: sec,
		Timeout:  c.SMTPTimeout,
		From:     c.Sender(),
	}
}
