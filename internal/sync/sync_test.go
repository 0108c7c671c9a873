package sync

import (
	"testing"
	"time"

	"github.com/ewagner/music-stats/internal/spotify"
)

func TestDistinctIDs(t *testing.T) {
	now := time.Now()
	plays := []spotify.PlayedTrack{
		{TrackID: "a", PlayedAt: now},
		{TrackID: "b", PlayedAt: now},
		{TrackID: "a", PlayedAt: now},
		{TrackID: "c", PlayedAt: now},
		{TrackID: "b", PlayedAt: now},
	}

	got := distinctIDs(plays)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("distinctIDs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("distinctIDs()[%d] = %q, want %q (first-seen order)", i, got[i], want[i])
		}
	}
}

func TestConvertFeatures(t *testing.T) {
	f := spotify.TrackAudioFeatures{
		TrackID:      "t1",
		Danceability: 0.7,
		Energy:       0.8,
		Valence:      0.6,
		Tempo:        121.5,
		Loudness:     -4.2,
		DurationMs:   200000,
	}

	got := convertFeatures(f)

	if got.TrackID != "t1" {
		t.Errorf("TrackID = %q, want t1", got.TrackID)
	}
	if got.Danceability == nil || *got.Danceability != 0.7 {
		t.Errorf("Danceability = %v, want 0.7", got.Danceability)
	}
	if got.Energy == nil || *got.Energy != 0.8 {
		t.Errorf("Energy = %v, want 0.8", got.Energy)
	}
	if got.Tempo == nil || *got.Tempo != 121.5 {
		t.Errorf("Tempo = %v, want 121.5", got.Tempo)
	}
	if got.DurationMs == nil || *got.DurationMs != 200000 {
		t.Errorf("DurationMs = %v, want 200000", got.DurationMs)
	}
	// Descriptors the source left at zero still get stored as zero, not nil.
	if got.Speechiness == nil || *got.Speechiness != 0 {
		t.Errorf("Speechiness = %v, want 0", got.Speechiness)
	}
}
