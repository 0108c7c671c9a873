package spotify

import (
	"context"
	"fmt"
	"time"

	"github.com/zmb3/spotify/v2"
)

// PlayedTrack is one recently-played entry with the metadata the sync
// pipeline stores.
type PlayedTrack struct {
	TrackID    string
	TrackName  string
	ArtistID   string
	ArtistName string
	AlbumID    *string
	AlbumName  *string
	DurationMs *int
	PlayedAt   time.Time
}

// RecentlyPlayed retrieves the user's recently played tracks, newest batch
// Spotify still holds. When after is non-nil only plays strictly newer than
// it are returned, letting callers resume from a sync cursor.
func (c *Client) RecentlyPlayed(ctx context.Context, after *time.Time) ([]PlayedTrack, error) {
	opts := &spotify.RecentlyPlayedOptions{Limit: pageLimit}
	if after != nil {
		opts.AfterEpochMs = after.UnixMilli()
	}

	var items []spotify.RecentlyPlayedItem
	err := c.call(ctx, func() error {
		var err error
		items, err = c.api.PlayerRecentlyPlayedOpt(ctx, opts)
		if err != nil {
			return fmt.Errorf("fetching recently played: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	plays := make([]PlayedTrack, 0, len(items))
	for _, item := range items {
		plays = append(plays, convertPlayed(item))
	}
	return plays, nil
}

// convertPlayed maps a Spotify recently-played item to a PlayedTrack.
// The primary artist is the first listed; Spotify occasionally returns
// tracks with empty album or artist metadata, which stays nil/empty.
func convertPlayed(item spotify.RecentlyPlayedItem) PlayedTrack {
	p := PlayedTrack{
		TrackID:   item.Track.ID.String(),
		TrackName: item.Track.Name,
		PlayedAt:  item.PlayedAt,
	}

	if len(item.Track.Artists) > 0 {
		p.ArtistID = item.Track.Artists[0].ID.String()
		p.ArtistName = item.Track.Artists[0].Name
	}

	if item.Track.Album.ID != "" {
		albumID := item.Track.Album.ID.String()
		albumName := item.Track.Album.Name
		p.AlbumID = &albumID
		p.AlbumName = &albumName
	}

	if item.Track.Duration > 0 {
		duration := int(item.Track.Duration)
		p.DurationMs = &duration
	}

	return p
}

// TrackPopularities retrieves the current popularity score per track,
// batching lookups per Spotify API limits.
func (c *Client) TrackPopularities(ctx context.Context, trackIDs []string) (map[string]int, error) {
	popularities := make(map[string]int, len(trackIDs))

	for i := 0; i < len(trackIDs); i += maxTracksPerRequest {
		end := min(i+maxTracksPerRequest, len(trackIDs))

		batch := make([]spotify.ID, 0, end-i)
		for _, id := range trackIDs[i:end] {
			batch = append(batch, spotify.ID(id))
		}

		var tracks []*spotify.FullTrack
		err := c.call(ctx, func() error {
			var err error
			tracks, err = c.api.GetTracks(ctx, batch)
			if err != nil {
				return fmt.Errorf("fetching tracks (batch %d-%d): %w", i+1, end, err)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}

		for _, t := range tracks {
			if t == nil {
				continue // unknown or removed track
			}
			popularities[t.ID.String()] = int(t.Popularity)
		}
	}
	return popularities, nil
}
