// Command music-stats runs the listening analytics API server.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	spotifyauth "github.com/zmb3/spotify/v2/auth"

	"github.com/ewagner/music-stats/internal/config"
	"github.com/ewagner/music-stats/internal/db"
	"github.com/ewagner/music-stats/internal/insights"
	datasync "github.com/ewagner/music-stats/internal/sync"
	"github.com/ewagner/music-stats/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	database, err := db.New(ctx, cfg.Database.URL)
	cancel()
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	err = database.Migrate(ctx)
	cancel()
	if err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.Spotify.ClientID),
		spotifyauth.WithClientSecret(cfg.Spotify.ClientSecret),
		spotifyauth.WithRedirectURL(cfg.Spotify.RedirectURL),
		spotifyauth.WithScopes(
			spotifyauth.ScopeUserReadPrivate,
			spotifyauth.ScopeUserReadEmail,
			spotifyauth.ScopeUserReadRecentlyPlayed,
			spotifyauth.ScopeUserTopRead,
		),
	)

	syncer := datasync.New(database, auth, log, datasync.WithCooldown(cfg.Sync.Cooldown))
	generator := insights.New(database.Insights())

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := web.NewMetrics(registry)

	sessions := web.NewJWTSessions(cfg.Session.Secret, cfg.Session.TTL)
	handlers := web.NewHandlers(auth, database, generator, syncer, sessions, metrics, log, cfg.Server.FrontendURL)
	server := web.NewServer(web.Config{
		Addr:        cfg.Server.Addr,
		FrontendURL: cfg.Server.FrontendURL,
	}, handlers, sessions, metrics, log)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Sync.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		syncer.SyncAll(ctx)
	}); err != nil {
		return fmt.Errorf("scheduling sync (%q): %w", cfg.Sync.Schedule, err)
	}
	scheduler.Start()
	defer scheduler.Stop()
	log.Info().Str("schedule", cfg.Sync.Schedule).Msg("sync scheduler started")

	return server.Run()
}

// newLogger builds the process logger from config.
func newLogger(cfg config.Logging) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	var log zerolog.Logger
	if cfg.Pretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Logger(), nil
}
