// Package config loads layered service configuration: defaults, an
// optional YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces the service's environment variables, e.g.
// MUSICSTATS_DATABASE_URL.
const envPrefix = "MUSICSTATS_"

// Config is the full service configuration.
type Config struct {
	Server   Server   `koanf:"server"`
	Database Database `koanf:"database"`
	Spotify  Spotify  `koanf:"spotify"`
	Session  Session  `koanf:"session"`
	Sync     Sync     `koanf:"sync"`
	Logging  Logging  `koanf:"logging"`
}

// Server configures the HTTP listener.
type Server struct {
	Addr        string `koanf:"addr"`
	FrontendURL string `koanf:"frontend_url"`
}

// Database configures PostgreSQL access.
type Database struct {
	URL string `koanf:"url"`
}

// Spotify holds the OAuth application credentials.
type Spotify struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	RedirectURL  string `koanf:"redirect_url"`
}

// Session configures browser session tokens.
type Session struct {
	Secret string        `koanf:"secret"`
	TTL    time.Duration `koanf:"ttl"`
}

// Sync configures the background sync scheduler.
type Sync struct {
	Schedule string        `koanf:"schedule"`
	Cooldown time.Duration `koanf:"cooldown"`
}

// Logging configures log output.
type Logging struct {
	Level  string `koanf:"level"`
	Pretty bool   `koanf:"pretty"`
}

func defaults() Config {
	return Config{
		Server: Server{
			Addr:        "127.0.0.1:8080",
			FrontendURL: "http://localhost:3000",
		},
		Session: Session{
			TTL: 24 * time.Hour,
		},
		Sync: Sync{
			Schedule: "@every 1h",
			Cooldown: 15 * time.Minute,
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// Load builds the configuration. The file layer reads the path in
// CONFIG_PATH, falling back to config.yaml when present; a missing file is
// not an error. Environment variables override everything.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envToKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envToKey maps MUSICSTATS_SPOTIFY_CLIENT_ID to spotify.client_id: the
// first underscore separates the section, the rest stays a field name.
func envToKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.Replace(s, "_", ".", 1)
}

// Validate checks that required settings are present.
func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "database.url")
	}
	if c.Spotify.ClientID == "" {
		missing = append(missing, "spotify.client_id")
	}
	if c.Spotify.ClientSecret == "" {
		missing = append(missing, "spotify.client_secret")
	}
	if c.Spotify.RedirectURL == "" {
		missing = append(missing, "spotify.redirect_url")
	}
	if c.Session.Secret == "" {
		missing = append(missing, "session.secret")
	}
	if len(missing) > 0 {
		return errors.New("missing required config: " + strings.Join(missing, ", "))
	}
	return nil
}
