// Package config provides application configuration loaded from the
// environment. This is part of the platform layer and contains no business
// logic.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DatabaseConfig exposes database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig exposes HTTP server settings.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// EmailConfig exposes outbound transport settings.
type EmailConfig interface {
	GetEmailProvider() string
	GetSendGridAPIKey() string
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetReplyToAddress() string
	GetMessageIDDomain() string
	GetSendTimeout() time.Duration
}

// AIConfig exposes AI completion boundary settings.
type AIConfig interface {
	GetAIAPIKey() string
	GetAIBaseURL() string
	GetAIDefaultModel() string
	GetAITimeout() time.Duration
}

// SchedulerConfig exposes the asynq/redis settings for the campaign queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// PipelineConfig exposes inbound pipeline behavior toggles.
type PipelineConfig interface {
	GetAutoCreateClients() bool
	GetHistoryWindow() int
	GetDedupTTL() time.Duration
}

// Config is the concrete configuration loaded at startup.
type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL string

	CORSAllowAll bool
	CORSOrigins  []string

	EmailProvider   string // "sendgrid", "smtp" or "noop"
	SendGridAPIKey  string
	SMTPHost        string
	SMTPPort        int
	SMTPUsername    string
	SMTPPassword    string
	ReplyToAddress  string
	MessageIDDomain string
	SendTimeout     time.Duration

	AIAPIKey       string
	AIBaseURL      string
	AIDefaultModel string
	AITimeout      time.Duration

	RedisURL         string
	AsynqQueueName   string
	AsynqConcurrency int

	AutoCreateClients bool
	HistoryWindow     int
	DedupTTL          time.Duration

	CampaignRatePerSecond float64
	CampaignBatchLimit    int
}

// Load reads the environment (optionally from a .env file) and validates
// the required settings.
func Load() (*Config, error) {
	_ = godotenv.Load()

	provider := strings.ToLower(getEnv("EMAIL_PROVIDER", "sendgrid"))

	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		CORSAllowAll: strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true"),
		CORSOrigins:  splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000")),

		EmailProvider:   provider,
		SendGridAPIKey:  getEnv("SENDGRID_API_KEY", ""),
		SMTPHost:        getEnv("SMTP_HOST", ""),
		SMTPPort:        getEnvInt("SMTP_PORT", 587),
		SMTPUsername:    getEnv("SMTP_USERNAME", ""),
		SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
		ReplyToAddress:  getEnv("REPLY_TO_EMAIL", ""),
		MessageIDDomain: getEnv("MESSAGE_ID_DOMAIN", "localhost"),
		SendTimeout:     mustDuration(getEnv("SEND_TIMEOUT", "15s")),

		AIAPIKey:       getEnv("AI_API_KEY", ""),
		AIBaseURL:      getEnv("AI_BASE_URL", "https://api.openai.com/v1"),
		AIDefaultModel: getEnv("AI_MODEL", "gpt-4o-mini"),
		AITimeout:      mustDuration(getEnv("AI_TIMEOUT", "45s")),

		RedisURL:         getEnv("REDIS_URL", ""),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "outreach"),
		AsynqConcurrency: getEnvInt("ASYNQ_CONCURRENCY", 10),

		AutoCreateClients: strings.EqualFold(getEnv("AUTO_CREATE_CLIENTS", "false"), "true"),
		HistoryWindow:     getEnvInt("HISTORY_WINDOW", 30),
		DedupTTL:          mustDuration(getEnv("INBOUND_DEDUP_TTL", "24h")),

		CampaignRatePerSecond: getEnvFloat("CAMPAIGN_RATE_PER_SECOND", 2),
		CampaignBatchLimit:    getEnvInt("CAMPAIGN_BATCH_LIMIT", 500),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	switch cfg.EmailProvider {
	case "sendgrid":
		if cfg.SendGridAPIKey == "" {
			return nil, fmt.Errorf("SENDGRID_API_KEY is required when EMAIL_PROVIDER is sendgrid")
		}
	case "smtp":
		if cfg.SMTPHost == "" {
			return nil, fmt.Errorf("SMTP_HOST is required when EMAIL_PROVIDER is smtp")
		}
	case "noop":
	default:
		return nil, fmt.Errorf("unknown EMAIL_PROVIDER %q", cfg.EmailProvider)
	}
	if cfg.HistoryWindow < 1 {
		return nil, fmt.Errorf("HISTORY_WINDOW must be at least 1")
	}

	return cfg, nil
}

// Database accessors.
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// HTTP accessors.
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

// Email accessors.
func (c *Config) GetEmailProvider() string      { return c.EmailProvider }
func (c *Config) GetSendGridAPIKey() string     { return c.SendGridAPIKey }
func (c *Config) GetSMTPHost() string           { return c.SMTPHost }
func (c *Config) GetSMTPPort() int              { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string       { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string       { return c.SMTPPassword }
func (c *Config) GetReplyToAddress() string     { return c.ReplyToAddress }
func (c *Config) GetMessageIDDomain() string    { return c.MessageIDDomain }
func (c *Config) GetSendTimeout() time.Duration { return c.SendTimeout }

// AI accessors.
func (c *Config) GetAIAPIKey() string         { return c.AIAPIKey }
func (c *Config) GetAIBaseURL() string        { return c.AIBaseURL }
func (c *Config) GetAIDefaultModel() string   { return c.AIDefaultModel }
func (c *Config) GetAITimeout() time.Duration { return c.AITimeout }

// Scheduler accessors.
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// Pipeline accessors.
func (c *Config) GetAutoCreateClients() bool { return c.AutoCreateClients }
func (c *Config) GetHistoryWindow() int      { return c.HistoryWindow }
func (c *Config) GetDedupTTL() time.Duration { return c.DedupTTL }

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var n int
	if _, err := fmt.Sscanf(val, "%d", &n); err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var f float64
	if _, err := fmt.Sscanf(val, "%g", &f); err != nil {
		return fallback
	}
	return f
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}
