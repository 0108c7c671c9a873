package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// FeatureRepository handles audio feature database operations.
type FeatureRepository struct {
	pool *pgxpool.Pool
}

// UpsertBatch inserts or updates audio features for multiple tracks.
func (r *FeatureRepository) UpsertBatch(ctx context.Context, features []AudioFeatures) error {
	if len(features) == 0 {
		return nil
	}

	query := `
		INSERT INTO audio_features
			(track_id, danceability, energy, speechiness, acousticness, instrumentalness,
			 liveness, valence, tempo, loudness, duration_ms, fetched_at)
		SELECT * FROM unnest(
			$1::text[], $2::float8[], $3::float8[], $4::float8[], $5::float8[], $6::float8[],
			$7::float8[], $8::float8[], $9::float8[], $10::float8[], $11::int[], $12::timestamptz[])
		ON CONFLICT (track_id) DO UPDATE SET
			danceability = EXCLUDED.danceability,
			energy = EXCLUDED.energy,
			speechiness = EXCLUDED.speechiness,
			acousticness = EXCLUDED.acousticness,
			instrumentalness = EXCLUDED.instrumentalness,
			liveness = EXCLUDED.liveness,
			valence = EXCLUDED.valence,
			tempo = EXCLUDED.tempo,
			loudness = EXCLUDED.loudness,
			duration_ms = EXCLUDED.duration_ms,
			fetched_at = EXCLUDED.fetched_at
	`

	trackIDs := make([]string, len(features))
	danceabilities := make([]*float64, len(features))
	energies := make([]*float64, len(features))
	speechinesses := make([]*float64, len(features))
	acousticnesses := make([]*float64, len(features))
	instrumentalnesses := make([]*float64, len(features))
	livenesses := make([]*float64, len(features))
	valences := make([]*float64, len(features))
	tempos := make([]*float64, len(features))
	loudnesses := make([]*float64, len(features))
	durations := make([]*int, len(features))
	fetchedAts := make([]time.Time, len(features))

	now := time.Now()
	for i, f := range features {
		trackIDs[i] = f.TrackID
		danceabilities[i] = f.Danceability
		energies[i] = f.Energy
		speechinesses[i] = f.Speechiness
		acousticnesses[i] = f.Acousticness
		instrumentalnesses[i] = f.Instrumentalness
		livenesses[i] = f.Liveness
		valences[i] = f.Valence
		tempos[i] = f.Tempo
		loudnesses[i] = f.Loudness
		durations[i] = f.DurationMs
		fetchedAts[i] = now
	}

	_, err := r.pool.Exec(ctx, query,
		trackIDs, danceabilities, energies, speechinesses, acousticnesses, instrumentalnesses,
		livenesses, valences, tempos, loudnesses, durations, fetchedAts,
	)
	if err != nil {
		return fmt.Errorf("batch upserting audio features: %w", err)
	}
	return nil
}

// MissingForTracks returns the subset of trackIDs with no stored features.
func (r *FeatureRepository) MissingForTracks(ctx context.Context, trackIDs []string) ([]string, error) {
	if len(trackIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT t.id
		FROM unnest($1::text[]) AS t(id)
		WHERE NOT EXISTS (SELECT 1 FROM audio_features af WHERE af.track_id = t.id)
	`
	rows, err := r.pool.Query(ctx, query, trackIDs)
	if err != nil {
		return nil, fmt.Errorf("querying missing features: %w", err)
	}
	defer rows.Close()

	var missing []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning track id: %w", err)
		}
		missing = append(missing, id)
	}
	return missing, rows.Err()
}
