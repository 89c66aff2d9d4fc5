package config

import (
	"strconv"
	"testing"
	"time"
)

func TestEnvParseFallbacks(t *testing.T) {
	t.Setenv("TEST_CONFIG_INT", "42")
	if got := envParse("TEST_CONFIG_INT", 7, strconv.Atoi); got != 42 {
		t.Fatalf("expected parsed value, got %d", got)
	}
	if got := envParse("TEST_CONFIG_MISSING", 7, strconv.Atoi); got != 7 {
		t.Fatalf("expected fallback for missing var, got %d", got)
	}
	t.Setenv("TEST_CONFIG_BAD", "not-a-number")
	if got := envParse("TEST_CONFIG_BAD", 7, strconv.Atoi); got != 7 {
		t.Fatalf("expected fallback for malformed var, got %d", got)
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		DatabaseURL:        "postgres://localhost/app",
		MaxBodyBytes:       1 << 20,
		RateLimitPerMinute: 60,
		TaskRunnerCron:     "*/5 * * * *",
		TaskRunnerBatch:    50,
		SessionTTL:         12 * time.Hour,
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected base config to validate, got %v", err)
	}

	noDB := base
	noDB.DatabaseURL = " "
	if err := noDB.Validate(); err == nil {
		t.Fatal("expected missing DATABASE_URL to fail")
	}

	prod := base
	prod.Environment = "production"
	if err := prod.Validate(); err == nil {
		t.Fatal("expected production without JWT_SECRET to fail")
	}
	prod.JWTSecret = "secret"
	prod.DataEncryptionKey = "key"
	prod.RunSeed = false
	if err := prod.Validate(); err != nil {
		t.Fatalf("expected hardened production config to validate, got %v", err)
	}

	mail := base
	mail.EmailEnabled = true
	if err := mail.Validate(); err == nil {
		t.Fatal("expected EMAIL_ENABLED without SMTP_HOST to fail")
	}

	shortTTL := base
	shortTTL.SessionTTL = time.Second
	if err := shortTTL.Validate(); err == nil {
		t.Fatal("expected sub-minute SESSION_TTL to fail")
	}
}
