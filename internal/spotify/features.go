package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
)

// TrackAudioFeatures holds the audio descriptors Spotify reports for a
// track.
type TrackAudioFeatures struct {
	TrackID          string
	Danceability     float64
	Energy           float64
	Speechiness      float64
	Acousticness     float64
	Instrumentalness float64
	Liveness         float64
	Valence          float64
	Tempo            float64
	Loudness         float64
	DurationMs       int
}

// AudioFeatures retrieves audio features for the given tracks, batching
// requests per Spotify API limits. Tracks Spotify has no analysis for are
// absent from the result.
func (c *Client) AudioFeatures(ctx context.Context, trackIDs []string) ([]TrackAudioFeatures, error) {
	var features []TrackAudioFeatures

	for i := 0; i < len(trackIDs); i += maxFeaturesPerRequest {
		end := min(i+maxFeaturesPerRequest, len(trackIDs))

		batch := make([]spotify.ID, 0, end-i)
		for _, id := range trackIDs[i:end] {
			batch = append(batch, spotify.ID(id))
		}

		var rows []*spotify.AudioFeatures
		err := c.call(ctx, func() error {
			var err error
			rows, err = c.api.GetAudioFeatures(ctx, batch...)
			if err != nil {
				return fmt.Errorf("fetching audio features (batch %d-%d): %w", i+1, end, err)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}

		for _, f := range rows {
			if f == nil {
				continue // track has no audio features
			}
			features = append(features, convertAudioFeatures(f))
		}
	}
	return features, nil
}

// convertAudioFeatures maps a Spotify audio-features row to our type.
func convertAudioFeatures(f *spotify.AudioFeatures) TrackAudioFeatures {
	return TrackAudioFeatures{
		TrackID:          f.ID.String(),
		Danceability:     float64(f.Danceability),
		Energy:           float64(f.Energy),
		Speechiness:      float64(f.Speechiness),
		Acousticness:     float64(f.Acousticness),
		Instrumentalness: float64(f.Instrumentalness),
		Liveness:         float64(f.Liveness),
		Valence:          float64(f.Valence),
		Tempo:            float64(f.Tempo),
		Loudness:         float64(f.Loudness),
		DurationMs:       int(f.Duration),
	}
}
