package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("expected default TTL 30m, got %v", cfg.SessionTTL)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("expected default addr :8080, got %q", cfg.Addr)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("AGENTUI_SESSION_TTL", "90s")
	t.Setenv("AGENTUI_SUBSCRIBER_BUFFER", "128")
	t.Setenv("AGENTUI_ADDR", ":9000")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.SessionTTL != 90*time.Second {
		t.Errorf("expected TTL 90s, got %v", cfg.SessionTTL)
	}
	if cfg.SubscriberBuffer != 128 {
		t.Errorf("expected buffer 128, got %d", cfg.SubscriberBuffer)
	}
	if cfg.Addr != ":9000" {
		t.Errorf("expected addr :9000, got %q", cfg.Addr)
	}
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	t.Setenv("AGENTUI_SESSION_TTL", "not-a-duration")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for bad duration")
	}
}
