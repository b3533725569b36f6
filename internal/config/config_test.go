package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear any existing env vars
	os.Unsetenv("PORT")
	os.Unsetenv("LOG_LEVEL")
	os.Unsetenv("ENV")
	os.Unsetenv("REALTIME_URL")
	os.Unsetenv("PING_INTERVAL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Port)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.LogLevel)
	}

	if cfg.Env != "development" {
		t.Errorf("expected env 'development', got %s", cfg.Env)
	}

	if cfg.RealtimeURL != "ws://localhost:8080/ws/notifications" {
		t.Errorf("unexpected realtime url %s", cfg.RealtimeURL)
	}

	if cfg.PingInterval != 30*time.Second {
		t.Errorf("expected ping interval 30s, got %v", cfg.PingInterval)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Setenv("PORT", "9000")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("ENV", "production")
	os.Setenv("FPRAX_TOKEN", "aaa.bbb.ccc")
	os.Setenv("FPRAX_USER_ID", "user-1")
	os.Setenv("PING_INTERVAL", "45s")
	defer func() {
		os.Unsetenv("PORT")
		os.Unsetenv("LOG_LEVEL")
		os.Unsetenv("ENV")
		os.Unsetenv("FPRAX_TOKEN")
		os.Unsetenv("FPRAX_USER_ID")
		os.Unsetenv("PING_INTERVAL")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.LogLevel)
	}

	if cfg.Token != "aaa.bbb.ccc" || cfg.UserID != "user-1" {
		t.Errorf("credential not loaded: token=%q user=%q", cfg.Token, cfg.UserID)
	}

	if cfg.PingInterval != 45*time.Second {
		t.Errorf("expected ping interval 45s, got %v", cfg.PingInterval)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":          "not-a-number",
		"REDIS_PORT":    "abc",
		"DB_PORT":       "abc",
		"PING_INTERVAL": "soon",
	}

	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			os.Setenv(key, value)
			defer os.Unsetenv(key)

			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%q", key, value)
			}
		})
	}
}
