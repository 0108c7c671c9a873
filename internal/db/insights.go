package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ewagner/music-stats/internal/insights"
)

// InsightsStore exposes the read queries the insights generator computes
// over. It satisfies insights.Store.
type InsightsStore struct {
	pool *pgxpool.Pool
}

var _ insights.Store = (*InsightsStore)(nil)

// UserExists reports whether a user row exists.
func (s *InsightsStore) UserExists(ctx context.Context, userID string) (bool, error) {
	var found bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("checking user existence: %w", err)
	}
	return found, nil
}

// PlaysForUser retrieves a user's full listening history in play order.
func (s *InsightsStore) PlaysForUser(ctx context.Context, userID string) ([]insights.Play, error) {
	query := `
		SELECT track_id, track_name, artist_id, artist_name, duration_ms, popularity, played_at
		FROM listening_history
		WHERE user_id = $1
		ORDER BY played_at
	`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying plays: %w", err)
	}
	defer rows.Close()

	var plays []insights.Play
	for rows.Next() {
		var p insights.Play
		if err := rows.Scan(&p.TrackID, &p.TrackName, &p.ArtistID, &p.ArtistName, &p.DurationMs, &p.Popularity, &p.PlayedAt); err != nil {
			return nil, fmt.Errorf("scanning play: %w", err)
		}
		plays = append(plays, p)
	}
	return plays, rows.Err()
}

// FeaturesForTracks retrieves stored audio features for the given tracks.
// Tracks with no stored features produce no row.
func (s *InsightsStore) FeaturesForTracks(ctx context.Context, trackIDs []string) ([]insights.TrackFeatures, error) {
	if len(trackIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT track_id, danceability, energy, speechiness, acousticness, instrumentalness, liveness, valence
		FROM audio_features
		WHERE track_id = ANY($1)
	`
	rows, err := s.pool.Query(ctx, query, trackIDs)
	if err != nil {
		return nil, fmt.Errorf("querying audio features: %w", err)
	}
	defer rows.Close()

	var features []insights.TrackFeatures
	for rows.Next() {
		var f insights.TrackFeatures
		if err := rows.Scan(&f.TrackID, &f.Danceability, &f.Energy, &f.Speechiness, &f.Acousticness, &f.Instrumentalness, &f.Liveness, &f.Valence); err != nil {
			return nil, fmt.Errorf("scanning audio features: %w", err)
		}
		features = append(features, f)
	}
	return features, rows.Err()
}

// GenresForArtists retrieves known genres per artist, unioned across the
// stored top-artist snapshots. Artists with no known genres are absent.
func (s *InsightsStore) GenresForArtists(ctx context.Context, artistIDs []string) (map[string][]string, error) {
	if len(artistIDs) == 0 {
		return map[string][]string{}, nil
	}

	query := `
		SELECT artist_id, array_agg(DISTINCT genre ORDER BY genre)
		FROM top_artists, unnest(genres) AS genre
		WHERE artist_id = ANY($1)
		GROUP BY artist_id
	`
	rows, err := s.pool.Query(ctx, query, artistIDs)
	if err != nil {
		return nil, fmt.Errorf("querying artist genres: %w", err)
	}
	defer rows.Close()

	genres := make(map[string][]string)
	for rows.Next() {
		var artistID string
		var gs []string
		if err := rows.Scan(&artistID, &gs); err != nil {
			return nil, fmt.Errorf("scanning artist genres: %w", err)
		}
		genres[artistID] = gs
	}
	return genres, rows.Err()
}
