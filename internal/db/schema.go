package db

// schemaStatements are applied in order by Migrate. Each statement is
// idempotent; pgx's extended protocol allows one statement per Exec.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		display_name  TEXT NOT NULL DEFAULT '',
		email         TEXT NOT NULL DEFAULT '',
		access_token  TEXT NOT NULL DEFAULT '',
		refresh_token TEXT NOT NULL DEFAULT '',
		token_expiry  TIMESTAMPTZ,
		last_sync_at  TIMESTAMPTZ,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS listening_history (
		id          BIGSERIAL PRIMARY KEY,
		user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		track_id    TEXT NOT NULL,
		track_name  TEXT NOT NULL,
		artist_id   TEXT NOT NULL,
		artist_name TEXT NOT NULL,
		album_id    TEXT,
		album_name  TEXT,
		duration_ms INT,
		popularity  INT,
		played_at   TIMESTAMPTZ NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, track_id, played_at)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_listening_history_user_played
		ON listening_history (user_id, played_at DESC)`,

	`CREATE TABLE IF NOT EXISTS audio_features (
		track_id         TEXT PRIMARY KEY,
		danceability     DOUBLE PRECISION,
		energy           DOUBLE PRECISION,
		speechiness      DOUBLE PRECISION,
		acousticness     DOUBLE PRECISION,
		instrumentalness DOUBLE PRECISION,
		liveness         DOUBLE PRECISION,
		valence          DOUBLE PRECISION,
		tempo            DOUBLE PRECISION,
		loudness         DOUBLE PRECISION,
		duration_ms      INT,
		fetched_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS top_artists (
		user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		term       TEXT NOT NULL,
		rank       INT NOT NULL,
		artist_id  TEXT NOT NULL,
		name       TEXT NOT NULL,
		genres     TEXT[] NOT NULL DEFAULT '{}',
		popularity INT,
		fetched_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, term, rank)
	)`,

	`CREATE TABLE IF NOT EXISTS top_tracks (
		user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		term        TEXT NOT NULL,
		rank        INT NOT NULL,
		track_id    TEXT NOT NULL,
		name        TEXT NOT NULL,
		artist_id   TEXT NOT NULL,
		artist_name TEXT NOT NULL,
		popularity  INT,
		fetched_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, term, rank)
	)`,
}
