// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
	GetDatabaseMaxConns() int
	GetStatementTimeout() time.Duration
	GetServiceName() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
	GetPublicRateLimitPerMinute() int
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// NotificationConfig provides settings for the notification module.
type NotificationConfig interface {
	GetAppBaseURL() string
}

// SchedulerConfig provides settings for the asynq reminder scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetReminderLeadTime() time.Duration
}

// AppointmentsConfig provides the tunables of the appointment engine.
type AppointmentsConfig interface {
	GetDuplicateRequestWindow() time.Duration
	GetAppointmentLockTimeout() time.Duration
	GetViewablePropertyStatuses() []string
	GetAppointmentLocation() *time.Location
}

// AbuseConfig provides anti-abuse scoring settings for public submissions.
type AbuseConfig interface {
	IsAbuseScoringEnabled() bool
	GetAbuseScoreThreshold() float64
	GetRecaptchaSecret() string
	GetRecaptchaVerifyURL() string
}

// KafkaConfig provides settings for the lifecycle event relay.
type KafkaConfig interface {
	GetKafkaBrokers() []string
	GetKafkaTopic() string
	IsKafkaEnabled() bool
}

// TracingConfig provides OpenTelemetry exporter settings.
type TracingConfig interface {
	IsTracingEnabled() bool
	GetOTLPEndpoint() string
	GetTracingSampleRatio() float64
	GetServiceName() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                      string
	ServiceName              string
	HTTPAddr                 string
	DatabaseURL              string
	DatabaseMaxConns         int
	StatementTimeout         time.Duration
	JWTAccessSecret          string
	CORSAllowAll             bool
	CORSOrigins              []string
	CORSAllowCreds           bool
	PublicRateLimitPerMinute int
	AppBaseURL               string
	EmailEnabled             bool
	SMTPHost                 string
	SMTPPort                 int
	SMTPUsername             string
	SMTPPassword             string
	EmailFromName            string
	EmailFromAddress         string
	RedisURL                 string
	RedisTLSInsecure         bool
	AsynqQueueName           string
	AsynqConcurrency         int
	ReminderLeadTime         time.Duration
	DuplicateRequestWindow   time.Duration
	AppointmentLockTimeout   time.Duration
	ViewablePropertyStatuses []string
	AppointmentLocation      *time.Location
	AbuseScoringEnabled      bool
	AbuseScoreThreshold      float64
	RecaptchaSecret          string
	RecaptchaVerifyURL       string
	KafkaBrokers             []string
	KafkaTopic               string
	TracingEnabled           bool
	OTLPEndpoint             string
	TracingSampleRatio       float64
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string             { return c.DatabaseURL }
func (c *Config) GetDatabaseMaxConns() int           { return c.DatabaseMaxConns }
func (c *Config) GetStatementTimeout() time.Duration { return c.StatementTimeout }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string              { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool            { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string         { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool          { return c.CORSAllowCreds }
func (c *Config) GetPublicRateLimitPerMinute() int { return c.PublicRateLimitPerMinute }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// NotificationConfig implementation
func (c *Config) GetAppBaseURL() string { return c.AppBaseURL }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string                { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool          { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string          { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int           { return c.AsynqConcurrency }
func (c *Config) GetReminderLeadTime() time.Duration { return c.ReminderLeadTime }

// AppointmentsConfig implementation
func (c *Config) GetDuplicateRequestWindow() time.Duration { return c.DuplicateRequestWindow }
func (c *Config) GetAppointmentLockTimeout() time.Duration { return c.AppointmentLockTimeout }
func (c *Config) GetViewablePropertyStatuses() []string   { return c.ViewablePropertyStatuses }
func (c *Config) GetAppointmentLocation() *time.Location  { return c.AppointmentLocation }

// AbuseConfig implementation
func (c *Config) IsAbuseScoringEnabled() bool     { return c.AbuseScoringEnabled }
func (c *Config) GetAbuseScoreThreshold() float64 { return c.AbuseScoreThreshold }
func (c *Config) GetRecaptchaSecret() string      { return c.RecaptchaSecret }
func (c *Config) GetRecaptchaVerifyURL() string   { return c.RecaptchaVerifyURL }

// KafkaConfig implementation
func (c *Config) GetKafkaBrokers() []string { return c.KafkaBrokers }
func (c *Config) GetKafkaTopic() string     { return c.KafkaTopic }
func (c *Config) IsKafkaEnabled() bool      { return len(c.KafkaBrokers) > 0 }

// TracingConfig implementation
func (c *Config) IsTracingEnabled() bool          { return c.TracingEnabled }
func (c *Config) GetOTLPEndpoint() string         { return c.OTLPEndpoint }
func (c *Config) GetTracingSampleRatio() float64 { return c.TracingSampleRatio }
func (c *Config) GetServiceName() string          { return c.ServiceName }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	location, err := time.LoadLocation(getEnv("APPOINTMENT_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("APPOINTMENT_TIMEZONE: %w", err)
	}

	cfg := &Config{
		Env:                      getEnv("APP_ENV", "development"),
		ServiceName:              getEnv("SERVICE_NAME", "estate-portal-api"),
		HTTPAddr:                 getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:              getEnv("DATABASE_URL", ""),
		DatabaseMaxConns:         mustInt(getEnv("DB_MAX_CONNS", "25")),
		StatementTimeout:         mustDuration(getEnv("DB_STATEMENT_TIMEOUT", "5s")),
		JWTAccessSecret:          getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:             corsAllowAll,
		CORSOrigins:              corsOrigins,
		CORSAllowCreds:           strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		PublicRateLimitPerMinute: mustInt(getEnv("PUBLIC_RATE_LIMIT_PER_MINUTE", "10")),
		AppBaseURL:               getEnv("APP_BASE_URL", "http://localhost:4200"),
		EmailEnabled:             emailEnabled && smtpHost != "",
		SMTPHost:                 smtpHost,
		SMTPPort:                 mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:             getEnv("SMTP_USERNAME", ""),
		SMTPPassword:             getEnv("SMTP_PASSWORD", ""),
		EmailFromName:            getEnv("EMAIL_FROM_NAME", "Estate Portal"),
		EmailFromAddress:         getEnv("EMAIL_FROM_ADDRESS", ""),
		RedisURL:                 getEnv("REDIS_URL", ""),
		RedisTLSInsecure:         strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:           getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:         mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		ReminderLeadTime:         mustDuration(getEnv("REMINDER_LEAD_TIME", "24h")),
		DuplicateRequestWindow:   mustDuration(getEnv("DUPLICATE_REQUEST_WINDOW", "24h")),
		AppointmentLockTimeout:   mustDuration(getEnv("APPOINTMENT_LOCK_TIMEOUT", "3s")),
		ViewablePropertyStatuses: splitCSV(getEnv("PROPERTY_VIEWABLE_STATUSES", "available")),
		AppointmentLocation:      location,
		AbuseScoringEnabled:      strings.EqualFold(getEnv("ABUSE_SCORING_ENABLED", "false"), "true"),
		AbuseScoreThreshold:      mustFloat(getEnv("ABUSE_SCORE_THRESHOLD", "0.3")),
		RecaptchaSecret:          getEnv("RECAPTCHA_SECRET", ""),
		RecaptchaVerifyURL:       getEnv("RECAPTCHA_VERIFY_URL", "https://www.google.com/recaptcha/api/siteverify"),
		KafkaBrokers:             splitCSV(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:               getEnv("KAFKA_TOPIC", "appointments.lifecycle"),
		TracingEnabled:           strings.EqualFold(getEnv("OTEL_ENABLED", "false"), "true"),
		OTLPEndpoint:             getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRatio:       mustFloat(getEnv("OTEL_SAMPLING_RATIO", "1")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.AbuseScoringEnabled && cfg.RecaptchaSecret == "" {
		return nil, fmt.Errorf("RECAPTCHA_SECRET is required when ABUSE_SCORING_ENABLED is true")
	}
	if cfg.DuplicateRequestWindow <= 0 {
		return nil, fmt.Errorf("DUPLICATE_REQUEST_WINDOW must be a positive duration")
	}
	if len(cfg.ViewablePropertyStatuses) == 0 {
		return nil, fmt.Errorf("PROPERTY_VIEWABLE_STATUSES must list at least one status")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
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

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
