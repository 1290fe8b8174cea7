package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSecretKeysAreRedacted(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := NewFromCore(core)

	log.Info("login", "email", "ada@example.com", "password", "hunter22", "session_token", "abc")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["email"] != "ada@example.com" {
		t.Errorf("email = %v, want it untouched", fields["email"])
	}
	if fields["password"] != "[REDACTED]" {
		t.Errorf("password = %v, want [REDACTED]", fields["password"])
	}
	if fields["session_token"] != "[REDACTED]" {
		t.Errorf("session_token = %v, want [REDACTED]", fields["session_token"])
	}
}

func TestWithKeepsFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := NewFromCore(core).With("component", "resolver")

	log.Debug("done")

	if got := logs.All()[0].ContextMap()["component"]; got != "resolver" {
		t.Errorf("component = %v, want resolver", got)
	}
}
