package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TopItemRepository handles ranked top-artist and top-track snapshots.
type TopItemRepository struct {
	pool *pgxpool.Pool
}

// ReplaceTopArtists swaps the stored top-artist list for one (user, term),
// deleting the previous snapshot and inserting the new ranking atomically.
func (r *TopItemRepository) ReplaceTopArtists(ctx context.Context, userID, term string, artists []TopArtist) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM top_artists WHERE user_id = $1 AND term = $2`, userID, term); err != nil {
		return fmt.Errorf("clearing top artists: %w", err)
	}

	// genres is text[], which unnest would flatten, so insert per row.
	// Rankings are at most 50 rows per term.
	insert := `
		INSERT INTO top_artists (user_id, term, rank, artist_id, name, genres, popularity, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`
	for _, a := range artists {
		if _, err := tx.Exec(ctx, insert, userID, term, a.Rank, a.ArtistID, a.Name, a.Genres, a.Popularity); err != nil {
			return fmt.Errorf("inserting top artist: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ReplaceTopTracks swaps the stored top-track list for one (user, term).
func (r *TopItemRepository) ReplaceTopTracks(ctx context.Context, userID, term string, tracks []TopTrack) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM top_tracks WHERE user_id = $1 AND term = $2`, userID, term); err != nil {
		return fmt.Errorf("clearing top tracks: %w", err)
	}

	if len(tracks) > 0 {
		query := `
			INSERT INTO top_tracks (user_id, term, rank, track_id, name, artist_id, artist_name, popularity, fetched_at)
			SELECT $1, $2, rank, track_id, name, artist_id, artist_name, popularity, $9
			FROM unnest($3::int[], $4::text[], $5::text[], $6::text[], $7::text[], $8::int[])
				AS t(rank, track_id, name, artist_id, artist_name, popularity)
		`
		ranks := make([]int, len(tracks))
		trackIDs := make([]string, len(tracks))
		names := make([]string, len(tracks))
		artistIDs := make([]string, len(tracks))
		artistNames := make([]string, len(tracks))
		popularities := make([]*int, len(tracks))

		for i, t := range tracks {
			ranks[i] = t.Rank
			trackIDs[i] = t.TrackID
			names[i] = t.Name
			artistIDs[i] = t.ArtistID
			artistNames[i] = t.ArtistName
			popularities[i] = t.Popularity
		}

		_, err := tx.Exec(ctx, query, userID, term, ranks, trackIDs, names, artistIDs, artistNames, popularities, time.Now())
		if err != nil {
			return fmt.Errorf("inserting top tracks: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// TopArtistsForTerm retrieves the stored top-artist ranking for a term.
func (r *TopItemRepository) TopArtistsForTerm(ctx context.Context, userID, term string) ([]TopArtist, error) {
	query := `
		SELECT user_id, term, rank, artist_id, name, genres, popularity, fetched_at
		FROM top_artists
		WHERE user_id = $1 AND term = $2
		ORDER BY rank
	`
	rows, err := r.pool.Query(ctx, query, userID, term)
	if err != nil {
		return nil, fmt.Errorf("querying top artists: %w", err)
	}
	defer rows.Close()

	var artists []TopArtist
	for rows.Next() {
		var a TopArtist
		if err := rows.Scan(&a.UserID, &a.Term, &a.Rank, &a.ArtistID, &a.Name, &a.Genres, &a.Popularity, &a.FetchedAt); err != nil {
			return nil, fmt.Errorf("scanning top artist: %w", err)
		}
		artists = append(artists, a)
	}
	return artists, rows.Err()
}

// TopTracksForTerm retrieves the stored top-track ranking for a term.
func (r *TopItemRepository) TopTracksForTerm(ctx context.Context, userID, term string) ([]TopTrack, error) {
	query := `
		SELECT user_id, term, rank, track_id, name, artist_id, artist_name, popularity, fetched_at
		FROM top_tracks
		WHERE user_id = $1 AND term = $2
		ORDER BY rank
	`
	rows, err := r.pool.Query(ctx, query, userID, term)
	if err != nil {
		return nil, fmt.Errorf("querying top tracks: %w", err)
	}
	defer rows.Close()

	var tracks []TopTrack
	for rows.Next() {
		var t TopTrack
		if err := rows.Scan(&t.UserID, &t.Term, &t.Rank, &t.TrackID, &t.Name, &t.ArtistID, &t.ArtistName, &t.Popularity, &t.FetchedAt); err != nil {
			return nil, fmt.Errorf("scanning top track: %w", err)
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}
