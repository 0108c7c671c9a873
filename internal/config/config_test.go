package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// setRequiredEnv sets the minimum environment for Load to succeed.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MUSICSTATS_DATABASE_URL", "postgres://localhost/musicstats")
	t.Setenv("MUSICSTATS_SPOTIFY_CLIENT_ID", "client-id")
	t.Setenv("MUSICSTATS_SPOTIFY_CLIENT_SECRET", "client-secret")
	t.Setenv("MUSICSTATS_SPOTIFY_REDIRECT_URL", "http://127.0.0.1:8080/api/v1/auth/callback")
	t.Setenv("MUSICSTATS_SESSION_SECRET", "session-secret")
	// Avoid picking up a config.yaml from the working directory.
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:8080" {
		t.Errorf("Server.Addr = %q, want default", cfg.Server.Addr)
	}
	if cfg.Session.TTL != 24*time.Hour {
		t.Errorf("Session.TTL = %v, want 24h", cfg.Session.TTL)
	}
	if cfg.Sync.Schedule != "@every 1h" {
		t.Errorf("Sync.Schedule = %q, want default", cfg.Sync.Schedule)
	}
	if cfg.Database.URL != "postgres://localhost/musicstats" {
		t.Errorf("Database.URL = %q, want env value", cfg.Database.URL)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MUSICSTATS_SERVER_ADDR", "0.0.0.0:9090")
	t.Setenv("MUSICSTATS_SESSION_TTL", "2h")
	t.Setenv("MUSICSTATS_LOGGING_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr != "0.0.0.0:9090" {
		t.Errorf("Server.Addr = %q, want env override", cfg.Server.Addr)
	}
	if cfg.Session.TTL != 2*time.Hour {
		t.Errorf("Session.TTL = %v, want 2h", cfg.Session.TTL)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MUSICSTATS_DATABASE_URL", "")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() error = nil, want missing-config error")
	}
	if !strings.Contains(err.Error(), "database.url") {
		t.Errorf("error %q does not name the missing key", err)
	}
}

func TestEnvToKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"MUSICSTATS_DATABASE_URL", "database.url"},
		{"MUSICSTATS_SPOTIFY_CLIENT_ID", "spotify.client_id"},
		{"MUSICSTATS_SERVER_FRONTEND_URL", "server.frontend_url"},
		{"MUSICSTATS_LOGGING_PRETTY", "logging.pretty"},
	}

	for _, tt := range tests {
		if got := envToKey(tt.in); got != tt.want {
			t.Errorf("envToKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
