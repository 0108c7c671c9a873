// Package sync provides services for syncing listening data from Spotify
// to PostgreSQL.
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	zspotify "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/ewagner/music-stats/internal/db"
	"github.com/ewagner/music-stats/internal/spotify"
)

// Common errors.
var (
	// ErrSyncTooRecent is returned when sync is attempted within the cooldown period.
	ErrSyncTooRecent = errors.New("sync attempted too recently")

	// ErrNoCredentials is returned when a user has no stored refresh token.
	ErrNoCredentials = errors.New("user has no stored credentials")
)

// DefaultCooldown is the default minimum time between syncs per user.
const DefaultCooldown = 15 * time.Minute

// Service pulls a user's listening data from Spotify into the database.
type Service struct {
	db       *db.DB
	auth     *spotifyauth.Authenticator
	log      zerolog.Logger
	cooldown time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithCooldown sets the minimum time between syncs.
func WithCooldown(d time.Duration) Option {
	return func(s *Service) {
		s.cooldown = d
	}
}

// New creates a new sync service.
func New(database *db.DB, auth *spotifyauth.Authenticator, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		db:       database,
		auth:     auth,
		log:      log.With().Str("component", "sync").Logger(),
		cooldown: DefaultCooldown,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result contains the outcome of one sync run.
type Result struct {
	NewPlays       int
	FeaturesStored int
	SyncedAt       time.Time
}

// CanSync checks if enough time has passed since the user's last sync.
// Returns whether sync is allowed and, when it is not, the time at which
// the next sync becomes available.
func (s *Service) CanSync(ctx context.Context, userID string) (bool, time.Time, error) {
	user, err := s.db.Users().Get(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return true, time.Time{}, nil
	}
	if err != nil {
		return false, time.Time{}, fmt.Errorf("getting user: %w", err)
	}

	if user.LastSyncAt == nil {
		return true, time.Time{}, nil
	}

	nextSyncTime := user.LastSyncAt.Add(s.cooldown)
	if time.Now().Before(nextSyncTime) {
		return false, nextSyncTime, nil
	}
	return true, time.Time{}, nil
}

// SyncUser pulls recently played tracks, their popularity and audio
// features, and the user's top items, persisting everything. Set force=true
// to bypass the cooldown check (for first sync right after login).
// Returns ErrSyncTooRecent when called within the cooldown period.
func (s *Service) SyncUser(ctx context.Context, client *spotify.Client, userID string, force bool) (*Result, error) {
	if !force {
		canSync, nextTime, err := s.CanSync(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !canSync {
			return nil, fmt.Errorf("%w: next sync available at %s", ErrSyncTooRecent, nextTime.Format(time.RFC3339))
		}
	}

	result := &Result{}

	inserted, trackIDs, err := s.syncHistory(ctx, client, userID)
	if err != nil {
		return nil, err
	}
	result.NewPlays = inserted

	stored, err := s.syncFeatures(ctx, client, trackIDs)
	if err != nil {
		return nil, err
	}
	result.FeaturesStored = stored

	if err := s.syncTopItems(ctx, client, userID); err != nil {
		return nil, err
	}

	// The oauth2 transport may have refreshed the token during the run.
	if err := s.persistToken(ctx, client, userID); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("could not persist refreshed token")
	}

	result.SyncedAt = time.Now()
	if err := s.db.Users().UpdateLastSync(ctx, userID, result.SyncedAt); err != nil {
		return nil, fmt.Errorf("updating last sync: %w", err)
	}

	s.log.Info().
		Str("user_id", userID).
		Int("new_plays", result.NewPlays).
		Int("features_stored", result.FeaturesStored).
		Msg("sync completed")
	return result, nil
}

// syncHistory fetches plays newer than the stored cursor and inserts them.
// Returns the inserted count and the distinct track IDs seen in this batch.
func (s *Service) syncHistory(ctx context.Context, client *spotify.Client, userID string) (int, []string, error) {
	cursor, err := s.db.History().LatestPlayedAt(ctx, userID)
	if err != nil {
		return 0, nil, err
	}

	plays, err := client.RecentlyPlayed(ctx, cursor)
	if err != nil {
		return 0, nil, fmt.Errorf("fetching recently played: %w", err)
	}
	if len(plays) == 0 {
		return 0, nil, nil
	}

	trackIDs := distinctIDs(plays)

	popularities, err := client.TrackPopularities(ctx, trackIDs)
	if err != nil {
		return 0, nil, fmt.Errorf("fetching track popularity: %w", err)
	}

	events := make([]db.PlayEvent, len(plays))
	for i, p := range plays {
		event := db.PlayEvent{
			UserID:     userID,
			TrackID:    p.TrackID,
			TrackName:  p.TrackName,
			ArtistID:   p.ArtistID,
			ArtistName: p.ArtistName,
			AlbumID:    p.AlbumID,
			AlbumName:  p.AlbumName,
			DurationMs: p.DurationMs,
			PlayedAt:   p.PlayedAt,
		}
		if pop, ok := popularities[p.TrackID]; ok {
			event.Popularity = &pop
		}
		events[i] = event
	}

	inserted, err := s.db.History().InsertBatch(ctx, events)
	if err != nil {
		return 0, nil, fmt.Errorf("inserting plays: %w", err)
	}
	return inserted, trackIDs, nil
}

// syncFeatures fetches and stores audio features for tracks that have none
// stored yet.
func (s *Service) syncFeatures(ctx context.Context, client *spotify.Client, trackIDs []string) (int, error) {
	missing, err := s.db.Features().MissingForTracks(ctx, trackIDs)
	if err != nil {
		return 0, err
	}
	if len(missing) == 0 {
		return 0, nil
	}

	features, err := client.AudioFeatures(ctx, missing)
	if err != nil {
		return 0, fmt.Errorf("fetching audio features: %w", err)
	}

	rows := make([]db.AudioFeatures, len(features))
	for i, f := range features {
		rows[i] = convertFeatures(f)
	}
	if err := s.db.Features().UpsertBatch(ctx, rows); err != nil {
		return 0, fmt.Errorf("storing audio features: %w", err)
	}
	return len(rows), nil
}

// syncTopItems refreshes the user's top-artist and top-track snapshots for
// every aggregation window, then backfills features for top tracks so mood
// analysis covers them too.
func (s *Service) syncTopItems(ctx context.Context, client *spotify.Client, userID string) error {
	for _, term := range spotify.Terms {
		artists, err := client.TopArtists(ctx, term)
		if err != nil {
			return fmt.Errorf("fetching top artists (%s): %w", term, err)
		}
		topArtists := make([]db.TopArtist, len(artists))
		for i, a := range artists {
			pop := a.Popularity
			topArtists[i] = db.TopArtist{
				UserID:     userID,
				Term:       string(term),
				Rank:       i + 1,
				ArtistID:   a.ArtistID,
				Name:       a.Name,
				Genres:     a.Genres,
				Popularity: &pop,
			}
		}
		if err := s.db.TopItems().ReplaceTopArtists(ctx, userID, string(term), topArtists); err != nil {
			return fmt.Errorf("storing top artists (%s): %w", term, err)
		}

		tracks, err := client.TopTracks(ctx, term)
		if err != nil {
			return fmt.Errorf("fetching top tracks (%s): %w", term, err)
		}
		topTracks := make([]db.TopTrack, len(tracks))
		trackIDs := make([]string, len(tracks))
		for i, t := range tracks {
			pop := t.Popularity
			topTracks[i] = db.TopTrack{
				UserID:     userID,
				Term:       string(term),
				Rank:       i + 1,
				TrackID:    t.TrackID,
				Name:       t.Name,
				ArtistID:   t.ArtistID,
				ArtistName: t.ArtistName,
				Popularity: &pop,
			}
			trackIDs[i] = t.TrackID
		}
		if err := s.db.TopItems().ReplaceTopTracks(ctx, userID, string(term), topTracks); err != nil {
			return fmt.Errorf("storing top tracks (%s): %w", term, err)
		}

		if _, err := s.syncFeatures(ctx, client, trackIDs); err != nil {
			return err
		}
	}
	return nil
}

// SyncUserByID builds a Spotify client from a user's stored credentials and
// runs a sync. Used by the scheduler, so the cooldown always applies.
func (s *Service) SyncUserByID(ctx context.Context, userID string) (*Result, error) {
	user, err := s.db.Users().Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	if user.RefreshToken == "" {
		return nil, ErrNoCredentials
	}

	token := &oauth2.Token{
		AccessToken:  user.AccessToken,
		RefreshToken: user.RefreshToken,
		TokenType:    "Bearer",
	}
	if user.TokenExpiry != nil {
		token.Expiry = *user.TokenExpiry
	}

	client := spotify.New(zspotify.New(s.auth.Client(ctx, token)))
	return s.SyncUser(ctx, client, userID, false)
}

// SyncAll syncs every user holding credentials, logging and skipping
// failures so one broken account cannot stall the rest.
func (s *Service) SyncAll(ctx context.Context) {
	users, err := s.db.Users().ListSyncable(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("listing syncable users")
		return
	}

	for _, user := range users {
		if _, err := s.SyncUserByID(ctx, user.ID); err != nil {
			if errors.Is(err, ErrSyncTooRecent) {
				continue
			}
			s.log.Error().Err(err).Str("user_id", user.ID).Msg("scheduled sync failed")
		}
	}
}

// persistToken stores the client's current OAuth token for the user.
func (s *Service) persistToken(ctx context.Context, client *spotify.Client, userID string) error {
	token, err := client.Token()
	if err != nil {
		return err
	}
	return s.db.Users().UpdateTokens(ctx, userID, token.AccessToken, token.RefreshToken, token.Expiry)
}

// distinctIDs returns the distinct track IDs of a play batch, first-seen
// order preserved.
func distinctIDs(plays []spotify.PlayedTrack) []string {
	seen := make(map[string]bool, len(plays))
	ids := make([]string, 0, len(plays))
	for _, p := range plays {
		if seen[p.TrackID] {
			continue
		}
		seen[p.TrackID] = true
		ids = append(ids, p.TrackID)
	}
	return ids
}

// convertFeatures maps fetched audio features to a database row. Every
// descriptor Spotify returned is stored; absent analysis never reaches
// here because tracks without features produce no row upstream.
func convertFeatures(f spotify.TrackAudioFeatures) db.AudioFeatures {
	danceability := f.Danceability
	energy := f.Energy
	speechiness := f.Speechiness
	acousticness := f.Acousticness
	instrumentalness := f.Instrumentalness
	liveness := f.Liveness
	valence := f.Valence
	tempo := f.Tempo
	loudness := f.Loudness
	duration := f.DurationMs

	return db.AudioFeatures{
		TrackID:          f.TrackID,
		Danceability:     &danceability,
		Energy:           &energy,
		Speechiness:      &speechiness,
		Acousticness:     &acousticness,
		Instrumentalness: &instrumentalness,
		Liveness:         &liveness,
		Valence:          &valence,
		Tempo:            &tempo,
		Loudness:         &loudness,
		DurationMs:       &duration,
	}
}
