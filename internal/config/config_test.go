package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_TYPE", "")
	t.Setenv("SESSION_DURATION", "")
	t.Setenv("SUBFAMILY_STALE_POLICY", "")

	cfg := Load()

	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.DatabaseType != "sqlite" {
		t.Errorf("DatabaseType = %q, want sqlite", cfg.DatabaseType)
	}
	if cfg.SessionDuration != 24*time.Hour {
		t.Errorf("SessionDuration = %v, want 24h", cfg.SessionDuration)
	}
	if cfg.SubFamilyStalePolicy != "keep" {
		t.Errorf("SubFamilyStalePolicy = %q, want keep", cfg.SubFamilyStalePolicy)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_TYPE", "postgres")
	t.Setenv("SESSION_DURATION", "2h")
	t.Setenv("LOGIN_RATE_LIMIT", "3")
	t.Setenv("EMAIL_DEBUG", "true")

	cfg := Load()

	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q, want 9090", cfg.ServerPort)
	}
	if cfg.DatabaseType != "postgres" {
		t.Errorf("DatabaseType = %q, want postgres", cfg.DatabaseType)
	}
	if cfg.SessionDuration != 2*time.Hour {
		t.Errorf("SessionDuration = %v, want 2h", cfg.SessionDuration)
	}
	if cfg.LoginRateLimit != 3 {
		t.Errorf("LoginRateLimit = %d, want 3", cfg.LoginRateLimit)
	}
	if !cfg.EmailDebug {
		t.Error("EmailDebug should be true")
	}
}

func TestLoadIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("LOGIN_RATE_LIMIT", "lots")
	t.Setenv("SESSION_DURATION", "-5m")

	cfg := Load()

	if cfg.LoginRateLimit != 10 {
		t.Errorf("LoginRateLimit = %d, want default 10", cfg.LoginRateLimit)
	}
	if cfg.SessionDuration != 24*time.Hour {
		t.Errorf("SessionDuration = %v, want default 24h", cfg.SessionDuration)
	}
}
