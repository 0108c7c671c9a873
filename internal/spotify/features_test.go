package spotify

import (
	"errors"
	"net/http"
	"testing"

	"github.com/zmb3/spotify/v2"
)

func TestConvertAudioFeatures(t *testing.T) {
	f := &spotify.AudioFeatures{
		ID:               "track789",
		Acousticness:     0.5,
		Danceability:     0.7,
		Energy:           0.8,
		Instrumentalness: 0.1,
		Liveness:         0.2,
		Loudness:         -5.0,
		Speechiness:      0.05,
		Tempo:            120.0,
		Valence:          0.6,
		Duration:         200000,
	}

	got := convertAudioFeatures(f)

	tests := []struct {
		name     string
		got      float64
		expected float64
	}{
		{"Acousticness", got.Acousticness, 0.5},
		{"Danceability", got.Danceability, 0.7},
		{"Energy", got.Energy, 0.8},
		{"Instrumentalness", got.Instrumentalness, 0.1},
		{"Liveness", got.Liveness, 0.2},
		{"Loudness", got.Loudness, -5.0},
		{"Speechiness", got.Speechiness, 0.05},
		{"Tempo", got.Tempo, 120.0},
		{"Valence", got.Valence, 0.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// float32 source values are exactly representable here
			if float32(tt.got) != float32(tt.expected) {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.expected)
			}
		})
	}

	if got.TrackID != "track789" {
		t.Errorf("TrackID = %q, want track789", got.TrackID)
	}
	if got.DurationMs != 200000 {
		t.Errorf("DurationMs = %d, want 200000", got.DurationMs)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"server error", spotify.Error{Status: http.StatusInternalServerError}, true},
		{"bad gateway", spotify.Error{Status: http.StatusBadGateway}, true},
		{"rate limited", spotify.Error{Status: http.StatusTooManyRequests}, true},
		{"unauthorized", spotify.Error{Status: http.StatusUnauthorized}, false},
		{"not found", spotify.Error{Status: http.StatusNotFound}, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTransient(tt.err); got != tt.want {
				t.Errorf("isTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestTermToRange(t *testing.T) {
	tests := []struct {
		term Term
		want spotify.Range
	}{
		{TermShort, spotify.ShortTermRange},
		{TermMedium, spotify.MediumTermRange},
		{TermLong, spotify.LongTermRange},
	}

	for _, tt := range tests {
		if got := tt.term.toRange(); got != tt.want {
			t.Errorf("%s.toRange() = %v, want %v", tt.term, got, tt.want)
		}
	}
}
