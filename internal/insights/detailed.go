package insights

import (
	"context"
	"fmt"
	"sort"
)

// DetailedInsights is the payload for the detailed insights operation.
type DetailedInsights struct {
	GenreDistribution      []GenreCount    `json:"genre_distribution"`
	ListeningTrendsByMonth map[string]int  `json:"listening_trends_by_month"`
	PopularVsObscureRatio  PopularityRatio `json:"popular_vs_obscure_ratio"`
	MoodAnalysis           MoodWeights     `json:"mood_analysis"`
}

// GenreCount pairs a genre label with the number of plays attributed to it.
type GenreCount struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

// PopularityRatio reports the fraction of distinct played tracks on either
// side of the popularity threshold. Both fractions are 0 when the user has
// no distinct tracks; otherwise they sum to 1.
type PopularityRatio struct {
	Popular float64 `json:"popular"`
	Obscure float64 `json:"obscure"`
}

// MoodWeights holds the three derived mood weights. When the valence and
// energy averages are computable the weights are normalized to sum to 1;
// otherwise all three are 0.
//
// The coefficient table is fixed:
//
//	happy     = (valence + energy) / 2
//	sad       = 1 - valence
//	energetic = energy
type MoodWeights struct {
	Happy     float64 `json:"happy"`
	Sad       float64 `json:"sad"`
	Energetic float64 `json:"energetic"`
}

// Detailed computes the detailed insights payload for a user. Returns
// ErrUserNotFound for an unknown user id; a known user with no history
// yields the zero-valued shape with no error.
func (g *Generator) Detailed(ctx context.Context, userID string) (*DetailedInsights, error) {
	if err := g.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	plays, err := g.store.PlaysForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading plays: %w", err)
	}

	genres, err := g.genreDistribution(ctx, plays)
	if err != nil {
		return nil, err
	}

	features, err := g.store.FeaturesForTracks(ctx, distinctTrackIDs(plays))
	if err != nil {
		return nil, fmt.Errorf("loading audio features: %w", err)
	}
	_, means := averageFeatures(features)

	return &DetailedInsights{
		GenreDistribution:      genres,
		ListeningTrendsByMonth: trendsByMonth(plays),
		PopularVsObscureRatio:  popularityRatio(plays),
		MoodAnalysis:           moodWeights(means),
	}, nil
}

// genreDistribution counts plays per genre label via each play's artist
// genres. A play whose artist has no genre metadata counts under the
// explicit "unknown" label rather than being dropped. Ordered by count
// descending, then genre ascending.
func (g *Generator) genreDistribution(ctx context.Context, plays []Play) ([]GenreCount, error) {
	seen := make(map[string]struct{})
	var artistIDs []string
	for _, p := range plays {
		if _, ok := seen[p.ArtistID]; ok {
			continue
		}
		seen[p.ArtistID] = struct{}{}
		artistIDs = append(artistIDs, p.ArtistID)
	}

	genresByArtist, err := g.store.GenresForArtists(ctx, artistIDs)
	if err != nil {
		return nil, fmt.Errorf("loading artist genres: %w", err)
	}

	counts := make(map[string]int)
	for _, p := range plays {
		labels := genresByArtist[p.ArtistID]
		if len(labels) == 0 {
			counts[unknownGenre]++
			continue
		}
		for _, label := range labels {
			counts[label]++
		}
	}

	out := make([]GenreCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, GenreCount{Genre: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Genre < out[j].Genre
	})
	return out, nil
}

// trendsByMonth counts plays per calendar month (UTC), keyed by YYYY-MM.
// Only months with at least one play appear; gaps are not zero-filled.
func trendsByMonth(plays []Play) map[string]int {
	out := make(map[string]int)
	for _, p := range plays {
		out[p.PlayedAt.UTC().Format("2006-01")]++
	}
	return out
}

// popularityRatio partitions distinct played tracks by the popularity
// threshold. A track's popularity is the maximum recorded across its plays;
// tracks with no recorded popularity fall on the obscure side.
func popularityRatio(plays []Play) PopularityRatio {
	maxPop := make(map[string]*int)
	for _, p := range plays {
		cur, ok := maxPop[p.TrackID]
		if !ok {
			maxPop[p.TrackID] = p.Popularity
			continue
		}
		if p.Popularity != nil && (cur == nil || *p.Popularity > *cur) {
			maxPop[p.TrackID] = p.Popularity
		}
	}

	total := len(maxPop)
	if total == 0 {
		return PopularityRatio{}
	}

	popular := 0
	for _, pop := range maxPop {
		if pop != nil && *pop >= popularityThreshold {
			popular++
		}
	}

	frac := float64(popular) / float64(total)
	return PopularityRatio{
		Popular: round3(frac),
		Obscure: round3(1 - frac),
	}
}

func moodWeights(m featureMeans) MoodWeights {
	if !m.valence.computable() || !m.energy.computable() {
		return MoodWeights{}
	}

	valence := m.valence.value()
	energy := m.energy.value()

	happy := (valence + energy) / 2
	sad := 1 - valence
	energetic := energy

	sum := happy + sad + energetic
	if sum == 0 {
		return MoodWeights{}
	}
	return MoodWeights{
		Happy:     round3(happy / sum),
		Sad:       round3(sad / sum),
		Energetic: round3(energetic / sum),
	}
}
