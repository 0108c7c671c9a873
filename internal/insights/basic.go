package insights

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// BasicInsights is the payload for the basic insights operation. List
// fields are empty slices (never null) when the user has no history, and
// averages are 0 rather than null.
type BasicInsights struct {
	TotalTracksListened   int             `json:"total_tracks_listened"`
	TopArtists            []ArtistListens `json:"top_artists"`
	TopTracks             []TrackListens  `json:"top_tracks"`
	ListeningTimeStats    ListeningTime   `json:"listening_time_stats"`
	ListeningByTimeOfDay  TimeOfDayCounts `json:"listening_by_time_of_day"`
	RecentFavorites       []TrackListens  `json:"recent_favorites"`
	AudioFeaturesAverages FeatureAverages `json:"audio_features_averages"`
}

// ArtistListens pairs an artist with its play count.
type ArtistListens struct {
	ArtistID    string `json:"artist_id"`
	ArtistName  string `json:"artist_name"`
	ListenCount int    `json:"listen_count"`
}

// TrackListens pairs a track with its play count.
type TrackListens struct {
	TrackID     string `json:"track_id"`
	TrackName   string `json:"track_name"`
	ArtistName  string `json:"artist_name"`
	ListenCount int    `json:"listen_count"`
}

// ListeningTime summarizes total listening time. AverageMinutesPerDay
// divides by the number of distinct calendar days (UTC) with at least one
// play; with no history both values are 0.
type ListeningTime struct {
	TotalMinutes         float64 `json:"total_minutes"`
	AverageMinutesPerDay float64 `json:"average_minutes_per_day"`
	DistinctDays         int     `json:"distinct_days"`
}

// TimeOfDayCounts buckets plays by the UTC hour of day: morning [05,12),
// afternoon [12,17), evening [17,21), night [21,05).
type TimeOfDayCounts struct {
	Morning   int `json:"morning"`
	Afternoon int `json:"afternoon"`
	Evening   int `json:"evening"`
	Night     int `json:"night"`
}

// FeatureAverages holds the per-feature arithmetic means across the
// distinct tracks the user has played that have a features row. Each field
// is averaged independently over its non-null values; 0 when no track
// contributes.
type FeatureAverages struct {
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Speechiness      float64 `json:"speechiness"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Valence          float64 `json:"valence"`
}

// Basic computes the basic insights payload for a user. The reference time
// anchors the recent-favorites window. Returns ErrUserNotFound for an
// unknown user id; a known user with no history yields the zero-valued
// shape with no error.
func (g *Generator) Basic(ctx context.Context, userID string, now time.Time) (*BasicInsights, error) {
	if err := g.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	plays, err := g.store.PlaysForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading plays: %w", err)
	}

	features, err := g.store.FeaturesForTracks(ctx, distinctTrackIDs(plays))
	if err != nil {
		return nil, fmt.Errorf("loading audio features: %w", err)
	}
	averages, _ := averageFeatures(features)

	return &BasicInsights{
		TotalTracksListened:   len(plays),
		TopArtists:            topArtists(plays, topArtistsLimit),
		TopTracks:             topTracks(plays, topTracksLimit),
		ListeningTimeStats:    listeningTime(plays),
		ListeningByTimeOfDay:  timeOfDayCounts(plays),
		RecentFavorites:       recentFavorites(plays, now),
		AudioFeaturesAverages: averages,
	}, nil
}

// topArtists groups plays by artist and returns the most-played artists,
// ordered by listen count descending, then artist name ascending, then
// artist id ascending.
func topArtists(plays []Play, limit int) []ArtistListens {
	type key struct{ id, name string }
	counts := make(map[key]int)
	for _, p := range plays {
		counts[key{p.ArtistID, p.ArtistName}]++
	}

	ranked := make([]ArtistListens, 0, len(counts))
	for k, n := range counts {
		ranked = append(ranked, ArtistListens{ArtistID: k.id, ArtistName: k.name, ListenCount: n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].ListenCount != ranked[j].ListenCount {
			return ranked[i].ListenCount > ranked[j].ListenCount
		}
		if ranked[i].ArtistName != ranked[j].ArtistName {
			return ranked[i].ArtistName < ranked[j].ArtistName
		}
		return ranked[i].ArtistID < ranked[j].ArtistID
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// topTracks groups plays by track id with the same ordering rules as
// topArtists (count desc, name asc, id asc).
func topTracks(plays []Play, limit int) []TrackListens {
	counts := make(map[string]*TrackListens)
	for _, p := range plays {
		t, ok := counts[p.TrackID]
		if !ok {
			t = &TrackListens{TrackID: p.TrackID, TrackName: p.TrackName, ArtistName: p.ArtistName}
			counts[p.TrackID] = t
		}
		t.ListenCount++
	}

	ranked := make([]TrackListens, 0, len(counts))
	for _, t := range counts {
		ranked = append(ranked, *t)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].ListenCount != ranked[j].ListenCount {
			return ranked[i].ListenCount > ranked[j].ListenCount
		}
		if ranked[i].TrackName != ranked[j].TrackName {
			return ranked[i].TrackName < ranked[j].TrackName
		}
		return ranked[i].TrackID < ranked[j].TrackID
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func listeningTime(plays []Play) ListeningTime {
	if len(plays) == 0 {
		return ListeningTime{}
	}

	var totalMs int64
	days := make(map[string]struct{})
	for _, p := range plays {
		ms := defaultPlayDurationMs
		if p.DurationMs != nil {
			ms = *p.DurationMs
		}
		totalMs += int64(ms)
		days[p.PlayedAt.UTC().Format("2006-01-02")] = struct{}{}
	}

	totalMinutes := float64(totalMs) / 60_000
	return ListeningTime{
		TotalMinutes:         round2(totalMinutes),
		AverageMinutesPerDay: round2(totalMinutes / float64(len(days))),
		DistinctDays:         len(days),
	}
}

func timeOfDayCounts(plays []Play) TimeOfDayCounts {
	var out TimeOfDayCounts
	for _, p := range plays {
		switch hour := p.PlayedAt.UTC().Hour(); {
		case hour >= 5 && hour < 12:
			out.Morning++
		case hour >= 12 && hour < 17:
			out.Afternoon++
		case hour >= 17 && hour < 21:
			out.Evening++
		default:
			out.Night++
		}
	}
	return out
}

// recentFavorites ranks tracks played within the trailing window ending at
// now. The boundary is inclusive: a play at exactly now minus the window
// still counts.
func recentFavorites(plays []Play, now time.Time) []TrackListens {
	cutoff := now.Add(-recentFavoritesWindow)
	var recent []Play
	for _, p := range plays {
		if !p.PlayedAt.Before(cutoff) {
			recent = append(recent, p)
		}
	}
	return topTracks(recent, recentFavoritesLimit)
}

// featureMean accumulates an arithmetic mean over the non-null values of
// one feature column.
type featureMean struct {
	sum float64
	n   int
}

func (m *featureMean) add(v *float64) {
	if v == nil {
		return
	}
	m.sum += *v
	m.n++
}

func (m featureMean) computable() bool { return m.n > 0 }

func (m featureMean) value() float64 {
	if m.n == 0 {
		return 0
	}
	return m.sum / float64(m.n)
}

// featureMeans carries the raw means so that detailed insights can reuse
// them without re-rounding.
type featureMeans struct {
	danceability     featureMean
	energy           featureMean
	speechiness      featureMean
	acousticness     featureMean
	instrumentalness featureMean
	liveness         featureMean
	valence          featureMean
}

// averageFeatures computes the per-feature means over the given feature
// rows. Each feature is averaged independently: a row missing only one
// descriptor still contributes to every other average.
func averageFeatures(rows []TrackFeatures) (FeatureAverages, featureMeans) {
	var m featureMeans
	for _, r := range rows {
		m.danceability.add(r.Danceability)
		m.energy.add(r.Energy)
		m.speechiness.add(r.Speechiness)
		m.acousticness.add(r.Acousticness)
		m.instrumentalness.add(r.Instrumentalness)
		m.liveness.add(r.Liveness)
		m.valence.add(r.Valence)
	}

	return FeatureAverages{
		Danceability:     round3(m.danceability.value()),
		Energy:           round3(m.energy.value()),
		Speechiness:      round3(m.speechiness.value()),
		Acousticness:     round3(m.acousticness.value()),
		Instrumentalness: round3(m.instrumentalness.value()),
		Liveness:         round3(m.liveness.value()),
		Valence:          round3(m.valence.value()),
	}, m
}
