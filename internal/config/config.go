// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds everything the server binary needs at startup.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// SessionTTL is the maximum session age before the sweep reclaims it.
	SessionTTL time.Duration
	// CleanupInterval is how often the sweep runs.
	CleanupInterval time.Duration
	// SubscriberBuffer is the per-subscriber event buffer size.
	SubscriberBuffer int

	// ActionRPS rate-limits inbound actions per session (burst is twice
	// the rate).
	ActionRPS float64

	// LogFormat is "text" or "json"; LogLevel one of debug/info/warn/error.
	LogFormat string
	LogLevel  string

	// OpenAIKey / GeminiKey select the LLM backend; when both are empty
	// the scripted fallback producer is used.
	OpenAIKey string
	GeminiKey string
	// Model overrides the backend's default model name.
	Model string
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Addr:             ":8080",
		SessionTTL:       30 * time.Minute,
		CleanupInterval:  time.Minute,
		SubscriberBuffer: 64,
		ActionRPS:        5,
		LogFormat:        "text",
		LogLevel:         "info",
	}
}

// FromEnv overlays AGENTUI_* environment variables onto the defaults.
func FromEnv() (Config, error) {
	cfg := Default()

	if v := os.Getenv("AGENTUI_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("AGENTUI_SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("AGENTUI_SESSION_TTL: %w", err)
		}
		cfg.SessionTTL = d
	}
	if v := os.Getenv("AGENTUI_CLEANUP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("AGENTUI_CLEANUP_INTERVAL: %w", err)
		}
		cfg.CleanupInterval = d
	}
	if v := os.Getenv("AGENTUI_SUBSCRIBER_BUFFER"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("AGENTUI_SUBSCRIBER_BUFFER: must be a positive integer, got %q", v)
		}
		cfg.SubscriberBuffer = n
	}
	if v := os.Getenv("AGENTUI_ACTION_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return cfg, fmt.Errorf("AGENTUI_ACTION_RPS: must be a positive number, got %q", v)
		}
		cfg.ActionRPS = f
	}
	if v := os.Getenv("AGENTUI_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("AGENTUI_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	cfg.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	cfg.GeminiKey = os.Getenv("GEMINI_API_KEY")
	cfg.Model = os.Getenv("AGENTUI_MODEL")

	return cfg, nil
}
