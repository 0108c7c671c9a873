package db

import "time"

// User represents a Spotify user profile with stored OAuth credentials.
type User struct {
	ID           string
	DisplayName  string
	Email        string
	AccessToken  string
	RefreshToken string
	TokenExpiry  *time.Time // nullable
	LastSyncAt   *time.Time // nullable
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PlayEvent is one entry of a user's listening history.
type PlayEvent struct {
	UserID     string
	TrackID    string
	TrackName  string
	ArtistID   string
	ArtistName string
	AlbumID    *string // nullable
	AlbumName  *string // nullable
	DurationMs *int    // nullable
	Popularity *int    // nullable
	PlayedAt   time.Time
}

// AudioFeatures holds Spotify audio descriptors for a track. Descriptor
// fields are nullable: the features endpoint can omit any of them.
type AudioFeatures struct {
	TrackID          string
	Danceability     *float64
	Energy           *float64
	Speechiness      *float64
	Acousticness     *float64
	Instrumentalness *float64
	Liveness         *float64
	Valence          *float64
	Tempo            *float64
	Loudness         *float64
	DurationMs       *int
	FetchedAt        time.Time
}

// TopArtist is one entry of a user's ranked top-artist list for a term.
type TopArtist struct {
	UserID     string
	Term       string
	Rank       int
	ArtistID   string
	Name       string
	Genres     []string
	Popularity *int // nullable
	FetchedAt  time.Time
}

// TopTrack is one entry of a user's ranked top-track list for a term.
type TopTrack struct {
	UserID     string
	Term       string
	Rank       int
	TrackID    string
	Name       string
	ArtistID   string
	ArtistName string
	Popularity *int // nullable
	FetchedAt  time.Time
}
