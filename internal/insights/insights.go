// Package insights derives listening statistics from a user's stored
// listening history and audio features. All grouping, bucketing, and
// averaging happens here, in memory, so ordering is deterministic and the
// computations are testable against any Store implementation.
package insights

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// Common errors.
var (
	// ErrUserNotFound is returned when the user id does not resolve to a
	// known user. Distinct from a known user with no history, which yields
	// a zero-valued payload.
	ErrUserNotFound = errors.New("user not found")
)

const (
	topArtistsLimit      = 10
	topTracksLimit       = 10
	recentFavoritesLimit = 5

	// recentFavoritesWindow is the trailing window for recent favorites.
	// A play at exactly the window boundary is included.
	recentFavoritesWindow = 30 * 24 * time.Hour

	// defaultPlayDurationMs is charged for plays with no provider-reported
	// duration when summing listening time.
	defaultPlayDurationMs = 210_000

	// popularityThreshold splits distinct tracks on Spotify's 0-100
	// popularity scale: >= threshold is popular. Tracks with no recorded
	// popularity count as obscure.
	popularityThreshold = 50

	// unknownGenre labels plays whose artist carries no genre metadata.
	unknownGenre = "unknown"
)

// Play is one listening event as read from the store.
type Play struct {
	TrackID    string
	TrackName  string
	ArtistID   string
	ArtistName string
	PlayedAt   time.Time
	DurationMs *int
	Popularity *int
}

// TrackFeatures holds the audio descriptors recorded for one track.
// Absent descriptors are nil and are excluded from averages, never
// treated as zero.
type TrackFeatures struct {
	TrackID          string
	Danceability     *float64
	Energy           *float64
	Speechiness      *float64
	Acousticness     *float64
	Instrumentalness *float64
	Liveness         *float64
	Valence          *float64
}

// Store is the read contract the generator computes over. Implementations
// must scope every read to the given user; the generator never mutates
// the store.
type Store interface {
	// UserExists reports whether the user id resolves to a known user.
	UserExists(ctx context.Context, userID string) (bool, error)

	// PlaysForUser returns every listening event for the user.
	PlaysForUser(ctx context.Context, userID string) ([]Play, error)

	// FeaturesForTracks returns the feature rows that exist for the given
	// track ids. Tracks without a row are omitted from the result.
	FeaturesForTracks(ctx context.Context, trackIDs []string) ([]TrackFeatures, error)

	// GenresForArtists returns genre labels keyed by artist id for the
	// artists that have genre metadata.
	GenresForArtists(ctx context.Context, artistIDs []string) (map[string][]string, error)
}

// Generator computes insight payloads from a Store.
type Generator struct {
	store Store
}

// New creates a Generator over the given store.
func New(store Store) *Generator {
	return &Generator{store: store}
}

func (g *Generator) requireUser(ctx context.Context, userID string) error {
	exists, err := g.store.UserExists(ctx, userID)
	if err != nil {
		return fmt.Errorf("checking user: %w", err)
	}
	if !exists {
		return ErrUserNotFound
	}
	return nil
}

// distinctTrackIDs returns the distinct track ids across plays, in first-seen
// order.
func distinctTrackIDs(plays []Play) []string {
	seen := make(map[string]struct{}, len(plays))
	var ids []string
	for _, p := range plays {
		if _, ok := seen[p.TrackID]; ok {
			continue
		}
		seen[p.TrackID] = struct{}{}
		ids = append(ids, p.TrackID)
	}
	return ids
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
