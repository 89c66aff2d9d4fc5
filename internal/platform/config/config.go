package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr                    string
	AppBaseURL              string
	DatabaseURL             string
	JWTSecret               string
	DataEncryptionKey       string
	Environment             string
	SeedTenantName          string
	SeedAdminEmail          string
	SeedAdminPassword       string
	SeedSystemAdminEmail    string
	SeedSystemAdminPassword string
	SeedDemoData            bool
	EmailFrom               string
	EmailEnabled            bool
	SMTPHost                string
	SMTPPort                int
	SMTPUser                string
	SMTPPassword            string
	SMTPUseTLS              bool
	RunMigrations           bool
	RunSeed                 bool
	MaxBodyBytes            int64
	RateLimitPerMinute      int
	TaskRunnerCron          string
	TaskRunnerBatch         int
	SessionTTL              time.Duration
	MetricsEnabled          bool
}

func Load() Config {
	// Best-effort .env load; real environment variables win.
	_ = godotenv.Load()

	return Config{
		Addr:                    envString("APP_ADDR", ":8080"),
		AppBaseURL:              envString("APP_BASE_URL", ""),
		DatabaseURL:             envString("DATABASE_URL", ""),
		JWTSecret:               envString("JWT_SECRET", ""),
		DataEncryptionKey:       envString("DATA_ENCRYPTION_KEY", ""),
		Environment:             envString("APP_ENV", "development"),
		SeedTenantName:          envString("SEED_TENANT_NAME", "Default Tenant"),
		SeedAdminEmail:          envString("SEED_ADMIN_EMAIL", ""),
		SeedAdminPassword:       envString("SEED_ADMIN_PASSWORD", ""),
		SeedSystemAdminEmail:    envString("SEED_SYSTEM_ADMIN_EMAIL", ""),
		SeedSystemAdminPassword: envString("SEED_SYSTEM_ADMIN_PASSWORD", ""),
		SeedDemoData:            envParse("SEED_DEMO_DATA", false, strconv.ParseBool),
		EmailFrom:               envString("EMAIL_FROM", "no-reply@example.com"),
		EmailEnabled:            envParse("EMAIL_ENABLED", false, strconv.ParseBool),
		SMTPHost:                envString("SMTP_HOST", ""),
		SMTPPort:                envParse("SMTP_PORT", 587, strconv.Atoi),
		SMTPUser:                envString("SMTP_USER", ""),
		SMTPPassword:            envString("SMTP_PASSWORD", ""),
		SMTPUseTLS:              envParse("SMTP_USE_TLS", true, strconv.ParseBool),
		RunMigrations:           envParse("RUN_MIGRATIONS", true, strconv.ParseBool),
		RunSeed:                 envParse("RUN_SEED", true, strconv.ParseBool),
		MaxBodyBytes:            envParse("MAX_BODY_BYTES", int64(1048576), parseInt64),
		RateLimitPerMinute:      envParse("RATE_LIMIT_PER_MINUTE", 60, strconv.Atoi),
		TaskRunnerCron:          envString("TASK_RUNNER_CRON", "*/5 * * * *"),
		TaskRunnerBatch:         envParse("TASK_RUNNER_BATCH", 50, strconv.Atoi),
		SessionTTL:              envParse("SESSION_TTL", 12*time.Hour, time.ParseDuration),
		MetricsEnabled:          envParse("METRICS_ENABLED", true, strconv.ParseBool),
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// envParse reads the variable and runs it through parse, keeping the
// fallback on absence or a malformed value.
func envParse[T any](key string, fallback T, parse func(string) (T, error)) T {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := parse(raw)
	if err != nil {
		return fallback
	}
	return value
}

func parseInt64(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Environment == "production" {
		if err := c.validateProduction(); err != nil {
			return err
		}
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.TaskRunnerBatch <= 0 {
		return fmt.Errorf("TASK_RUNNER_BATCH must be positive")
	}
	if strings.TrimSpace(c.TaskRunnerCron) == "" {
		return fmt.Errorf("TASK_RUNNER_CRON is required")
	}
	if c.SessionTTL < time.Minute {
		return fmt.Errorf("SESSION_TTL must be at least one minute")
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	return nil
}

// validateProduction holds the checks that only block a production boot;
// development keeps working with weak defaults.
func (c Config) validateProduction() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
	}
	if strings.TrimSpace(c.DataEncryptionKey) == "" {
		return fmt.Errorf("DATA_ENCRYPTION_KEY must be set in production for encryption at rest")
	}
	if c.RunSeed && strings.TrimSpace(c.SeedAdminPassword) == "" {
		return fmt.Errorf("SEED_ADMIN_PASSWORD must be changed or RUN_SEED disabled in production")
	}
	return nil
}
