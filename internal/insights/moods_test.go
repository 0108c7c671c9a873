package insights

import (
	"context"
	"testing"
	"time"
)

func fullFeatures(trackID string, energy, valence, danceability, acousticness float64) TrackFeatures {
	return TrackFeatures{
		TrackID:      trackID,
		Energy:       f64p(energy),
		Valence:      f64p(valence),
		Danceability: f64p(danceability),
		Acousticness: f64p(acousticness),
	}
}

func TestMoodClustersTooFewTracks(t *testing.T) {
	store := newMemStore()
	store.users["u1"] = true
	at := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	store.plays["u1"] = []Play{
		play("t1", "T1", "a1", "Artist", at),
		play("t2", "T2", "a1", "Artist", at),
		play("t3", "T3", "a1", "Artist", at),
	}
	store.features["t1"] = fullFeatures("t1", 0.8, 0.8, 0.5, 0.1)
	store.features["t2"] = fullFeatures("t2", 0.2, 0.3, 0.4, 0.9)
	// t3 has no features row: only two clusterable tracks.

	got, err := New(store).MoodClusters(context.Background(), "u1")
	if err != nil {
		t.Fatalf("MoodClusters() error = %v", err)
	}
	if got.Clusters == nil || len(got.Clusters) != 0 {
		t.Errorf("Clusters = %v, want empty non-nil slice with fewer tracks than clusters", got.Clusters)
	}
	if got.TracksWithoutFeatures != 1 {
		t.Errorf("TracksWithoutFeatures = %d, want 1", got.TracksWithoutFeatures)
	}
}

func TestMoodClustersPartition(t *testing.T) {
	store := newMemStore()
	store.users["u1"] = true
	at := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)

	// Nine tracks in three well-separated groups.
	groups := []struct{ energy, valence float64 }{
		{0.9, 0.9},
		{0.9, 0.1},
		{0.1, 0.9},
	}
	n := 0
	for _, grp := range groups {
		for i := 0; i < 3; i++ {
			n++
			id := string(rune('a' + n))
			store.plays["u1"] = append(store.plays["u1"], play(id, "T-"+id, "a1", "Artist", at))
			jitter := float64(i) * 0.01
			store.features[id] = fullFeatures(id, grp.energy+jitter, grp.valence+jitter, 0.5, 0.1)
		}
	}

	got, err := New(store).MoodClusters(context.Background(), "u1")
	if err != nil {
		t.Fatalf("MoodClusters() error = %v", err)
	}
	if len(got.Clusters) != moodClusterCount {
		t.Fatalf("len(Clusters) = %d, want %d", len(got.Clusters), moodClusterCount)
	}

	total := 0
	for _, c := range got.Clusters {
		total += c.TrackCount
		if c.Name == "" {
			t.Error("cluster has empty name")
		}
		for _, feature := range clusterFeatures {
			if _, ok := c.Centroid[feature]; !ok {
				t.Errorf("centroid missing %q", feature)
			}
		}
	}
	if total != 9 {
		t.Errorf("cluster track counts sum to %d, want 9 (every clusterable track assigned)", total)
	}
	for i := 1; i < len(got.Clusters); i++ {
		prev, cur := got.Clusters[i-1], got.Clusters[i]
		if prev.TrackCount < cur.TrackCount {
			t.Errorf("clusters not sorted by track count: %d before %d", prev.TrackCount, cur.TrackCount)
		}
	}
}

func TestMoodClusterName(t *testing.T) {
	tests := []struct {
		name     string
		centroid map[string]float64
		want     string
	}{
		{"high energy high valence", map[string]float64{"energy": 0.8, "valence": 0.8, "acousticness": 0.1}, "Upbeat Party"},
		{"high energy low valence", map[string]float64{"energy": 0.8, "valence": 0.2, "acousticness": 0.1}, "Intense & Dark"},
		{"low energy high valence", map[string]float64{"energy": 0.3, "valence": 0.8, "acousticness": 0.1}, "Chill & Happy"},
		{"low energy low valence", map[string]float64{"energy": 0.3, "valence": 0.2, "acousticness": 0.1}, "Reflective & Melancholy"},
		{"acoustic modifier", map[string]float64{"energy": 0.3, "valence": 0.8, "acousticness": 0.9}, "Chill & Happy (Acoustic)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := moodClusterName(tt.centroid); got != tt.want {
				t.Errorf("moodClusterName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClusterCoordinates(t *testing.T) {
	if _, ok := clusterCoordinates(TrackFeatures{TrackID: "t", Energy: f64p(0.5)}); ok {
		t.Error("clusterCoordinates() ok = true for track missing descriptors")
	}

	coords, ok := clusterCoordinates(fullFeatures("t", 0.1, 0.2, 0.3, 0.4))
	if !ok {
		t.Fatal("clusterCoordinates() ok = false for fully featured track")
	}
	want := []float64{0.1, 0.2, 0.3, 0.4}
	for i, v := range want {
		if coords[i] != v {
			t.Errorf("coords[%d] = %v, want %v", i, coords[i], v)
		}
	}
}
