package insights

import (
	"context"
	"fmt"
	"sort"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

// moodClusterCount is the number of k-means clusters formed over a user's
// distinct played tracks.
const moodClusterCount = 3

// clusterFeatures are the audio descriptors used as k-means coordinates,
// in coordinate order.
var clusterFeatures = []string{"energy", "valence", "danceability", "acousticness"}

// MoodCluster is one group of a user's tracks with similar audio character.
type MoodCluster struct {
	Name       string             `json:"name"`
	TrackCount int                `json:"track_count"`
	Centroid   map[string]float64 `json:"centroid"`
}

// MoodClusterReport groups a user's distinct played tracks by audio-feature
// similarity. Tracks lacking any of the clustering descriptors are counted
// in TracksWithoutFeatures instead of being clustered.
type MoodClusterReport struct {
	Clusters              []MoodCluster `json:"clusters"`
	TracksWithoutFeatures int           `json:"tracks_without_features"`
}

// MoodClusters partitions a user's distinct played tracks into mood groups
// via k-means over (energy, valence, danceability, acousticness). With
// fewer clusterable tracks than clusters the report carries no clusters.
func (g *Generator) MoodClusters(ctx context.Context, userID string) (*MoodClusterReport, error) {
	if err := g.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	plays, err := g.store.PlaysForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading plays: %w", err)
	}

	trackIDs := distinctTrackIDs(plays)
	features, err := g.store.FeaturesForTracks(ctx, trackIDs)
	if err != nil {
		return nil, fmt.Errorf("loading audio features: %w", err)
	}

	report := &MoodClusterReport{Clusters: []MoodCluster{}}

	var obs clusters.Observations
	clusterable := 0
	for _, f := range features {
		coords, ok := clusterCoordinates(f)
		if !ok {
			continue
		}
		obs = append(obs, coords)
		clusterable++
	}
	report.TracksWithoutFeatures = len(trackIDs) - clusterable

	if clusterable < moodClusterCount {
		return report, nil
	}

	km := kmeans.New()
	result, err := km.Partition(obs, moodClusterCount)
	if err != nil {
		return nil, fmt.Errorf("clustering tracks: %w", err)
	}

	for _, c := range result {
		centroid := make(map[string]float64, len(clusterFeatures))
		for i, name := range clusterFeatures {
			centroid[name] = round3(c.Center[i])
		}
		report.Clusters = append(report.Clusters, MoodCluster{
			Name:       moodClusterName(centroid),
			TrackCount: len(c.Observations),
			Centroid:   centroid,
		})
	}

	sort.Slice(report.Clusters, func(i, j int) bool {
		if report.Clusters[i].TrackCount != report.Clusters[j].TrackCount {
			return report.Clusters[i].TrackCount > report.Clusters[j].TrackCount
		}
		return report.Clusters[i].Name < report.Clusters[j].Name
	})
	return report, nil
}

// clusterCoordinates extracts the clustering coordinate vector for a track.
// Returns false when any required descriptor is absent.
func clusterCoordinates(f TrackFeatures) (clusters.Coordinates, bool) {
	if f.Energy == nil || f.Valence == nil || f.Danceability == nil || f.Acousticness == nil {
		return nil, false
	}
	return clusters.Coordinates{*f.Energy, *f.Valence, *f.Danceability, *f.Acousticness}, true
}

// moodClusterName names a cluster from its centroid using a 2x2
// energy/valence quadrant, with an acoustic modifier when acousticness
// dominates.
func moodClusterName(centroid map[string]float64) string {
	highEnergy := centroid["energy"] > 0.6
	highValence := centroid["valence"] > 0.5

	var name string
	switch {
	case highEnergy && highValence:
		name = "Upbeat Party"
	case highEnergy && !highValence:
		name = "Intense & Dark"
	case !highEnergy && highValence:
		name = "Chill & Happy"
	default:
		name = "Reflective & Melancholy"
	}

	if centroid["acousticness"] > 0.6 {
		return name + " (Acoustic)"
	}
	return name
}
