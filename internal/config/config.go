// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string
	ClientsDir  string

	SessionTTL    time.Duration
	SweepInterval time.Duration

	Oracle    OracleConfig
	SMTP      SMTPConfig
	Dispatch  DispatchConfig
	Lead      LeadConfig
	RateLimit RateLimitConfig
}

// OracleConfig controls the language-model oracle call.
type OracleConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// SMTPConfig holds the outbound notification transport settings.
type SMTPConfig struct {
	Host     string
	Port     string
	Sender   string
	Password string
}

// DispatchConfig bounds notification retry behavior.
type DispatchConfig struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxElapsed     time.Duration
	SendTimeout    time.Duration
}

// LeadConfig holds field-validation policy knobs.
type LeadConfig struct {
	PhoneMinDigits int
	PhoneMaxDigits int
	HistoryLimit   int
}

// RateLimitConfig throttles chat requests per visitor.
type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		FrontendURL:   getEnv("FRONTEND_URL", ""),
		DBPath:        getEnv("DB_PATH", "./data/frontdesk.db"),
		ClientsDir:    getEnv("CLIENTS_DIR", "./clients"),
		SessionTTL:    getEnvDuration("SESSION_TTL", 30*time.Minute),
		SweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", time.Minute),
		Oracle: OracleConfig{
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			Model:   getEnv("OPENAI_MODEL", "gpt-4.1-mini"),
			Timeout: getEnvDuration("ORACLE_TIMEOUT", 20*time.Second),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:     getEnv("SMTP_PORT", "587"),
			Sender:   getEnv("SENDER_EMAIL", ""),
			Password: getEnv("APP_PASSWORD", ""),
		},
		Dispatch: DispatchConfig{
			InitialBackoff: getEnvDuration("DISPATCH_INITIAL_BACKOFF", 500*time.Millisecond),
			MaxBackoff:     getEnvDuration("DISPATCH_MAX_BACKOFF", 10*time.Second),
			MaxElapsed:     getEnvDuration("DISPATCH_MAX_ELAPSED", 45*time.Second),
			SendTimeout:    getEnvDuration("DISPATCH_SEND_TIMEOUT", 15*time.Second),
		},
		Lead: LeadConfig{
			PhoneMinDigits: getEnvInt("LEAD_PHONE_MIN_DIGITS", 7),
			PhoneMaxDigits: getEnvInt("LEAD_PHONE_MAX_DIGITS", 15),
			HistoryLimit:   getEnvInt("LEAD_HISTORY_LIMIT", 20),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 20),
			Burst:             getEnvInt("RATE_LIMIT_BURST", 5),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.ClientsDir == "" {
		return fmt.Errorf("CLIENTS_DIR cannot be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.Lead.PhoneMinDigits <= 0 || c.Lead.PhoneMinDigits > c.Lead.PhoneMaxDigits {
		return fmt.Errorf("LEAD_PHONE_MIN_DIGITS must be > 0 and <= LEAD_PHONE_MAX_DIGITS")
	}
	if c.Dispatch.MaxElapsed <= 0 {
		return fmt.Errorf("DISPATCH_MAX_ELAPSED must be > 0")
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// SMTPConfigured reports whether outbound email delivery is usable.
func (c *Config) SMTPConfigured() bool {
	return c.SMTP.Host != "" && c.SMTP.Sender != "" && c.SMTP.Password != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
