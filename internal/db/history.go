package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// HistoryRepository handles listening history database operations.
type HistoryRepository struct {
	pool *pgxpool.Pool
}

// InsertBatch inserts play events, skipping any (user, track, played_at)
// combination already recorded. Returns the number of rows inserted.
func (r *HistoryRepository) InsertBatch(ctx context.Context, plays []PlayEvent) (int, error) {
	if len(plays) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO listening_history
			(user_id, track_id, track_name, artist_id, artist_name, album_id, album_name, duration_ms, popularity, played_at)
		SELECT * FROM unnest(
			$1::text[], $2::text[], $3::text[], $4::text[], $5::text[],
			$6::text[], $7::text[], $8::int[], $9::int[], $10::timestamptz[])
		ON CONFLICT (user_id, track_id, played_at) DO NOTHING
	`

	userIDs := make([]string, len(plays))
	trackIDs := make([]string, len(plays))
	trackNames := make([]string, len(plays))
	artistIDs := make([]string, len(plays))
	artistNames := make([]string, len(plays))
	albumIDs := make([]*string, len(plays))
	albumNames := make([]*string, len(plays))
	durations := make([]*int, len(plays))
	popularities := make([]*int, len(plays))
	playedAts := make([]time.Time, len(plays))

	for i, p := range plays {
		userIDs[i] = p.UserID
		trackIDs[i] = p.TrackID
		trackNames[i] = p.TrackName
		artistIDs[i] = p.ArtistID
		artistNames[i] = p.ArtistName
		albumIDs[i] = p.AlbumID
		albumNames[i] = p.AlbumName
		durations[i] = p.DurationMs
		popularities[i] = p.Popularity
		playedAts[i] = p.PlayedAt
	}

	result, err := r.pool.Exec(ctx, query,
		userIDs, trackIDs, trackNames, artistIDs, artistNames,
		albumIDs, albumNames, durations, popularities, playedAts,
	)
	if err != nil {
		return 0, fmt.Errorf("batch inserting plays: %w", err)
	}
	return int(result.RowsAffected()), nil
}

// LatestPlayedAt returns the most recent recorded play time for a user, or
// nil when the user has no history yet.
func (r *HistoryRepository) LatestPlayedAt(ctx context.Context, userID string) (*time.Time, error) {
	query := `SELECT MAX(played_at) FROM listening_history WHERE user_id = $1`
	var latest *time.Time
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&latest); err != nil {
		return nil, fmt.Errorf("querying latest play: %w", err)
	}
	return latest, nil
}

// CountForUser returns the number of recorded plays for a user.
func (r *HistoryRepository) CountForUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM listening_history WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting plays: %w", err)
	}
	return count, nil
}

// Count returns the total number of recorded plays across all users.
func (r *HistoryRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM listening_history`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting plays: %w", err)
	}
	return count, nil
}
