package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
)

// Term is one of Spotify's top-item aggregation windows.
type Term string

// Aggregation windows as Spotify names them.
const (
	TermShort  Term = "short_term"  // roughly the last 4 weeks
	TermMedium Term = "medium_term" // roughly the last 6 months
	TermLong   Term = "long_term"   // several years
)

// Terms lists all aggregation windows, in ascending span order.
var Terms = []Term{TermShort, TermMedium, TermLong}

func (t Term) toRange() spotify.Range {
	switch t {
	case TermMedium:
		return spotify.MediumTermRange
	case TermLong:
		return spotify.LongTermRange
	default:
		return spotify.ShortTermRange
	}
}

// RankedArtist is one entry of the user's top-artist ranking.
type RankedArtist struct {
	ArtistID   string
	Name       string
	Genres     []string
	Popularity int
}

// RankedTrack is one entry of the user's top-track ranking.
type RankedTrack struct {
	TrackID    string
	Name       string
	ArtistID   string
	ArtistName string
	Popularity int
}

// TopArtists retrieves the user's top artists for a term, in rank order.
func (c *Client) TopArtists(ctx context.Context, term Term) ([]RankedArtist, error) {
	var page *spotify.FullArtistPage
	err := c.call(ctx, func() error {
		var err error
		page, err = c.api.CurrentUsersTopArtists(ctx, spotify.Limit(pageLimit), spotify.Timerange(term.toRange()))
		if err != nil {
			return fmt.Errorf("fetching top artists (%s): %w", term, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	artists := make([]RankedArtist, 0, len(page.Artists))
	for _, a := range page.Artists {
		artists = append(artists, RankedArtist{
			ArtistID:   a.ID.String(),
			Name:       a.Name,
			Genres:     a.Genres,
			Popularity: int(a.Popularity),
		})
	}
	return artists, nil
}

// TopTracks retrieves the user's top tracks for a term, in rank order.
func (c *Client) TopTracks(ctx context.Context, term Term) ([]RankedTrack, error) {
	var page *spotify.FullTrackPage
	err := c.call(ctx, func() error {
		var err error
		page, err = c.api.CurrentUsersTopTracks(ctx, spotify.Limit(pageLimit), spotify.Timerange(term.toRange()))
		if err != nil {
			return fmt.Errorf("fetching top tracks (%s): %w", term, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	tracks := make([]RankedTrack, 0, len(page.Tracks))
	for _, t := range page.Tracks {
		rt := RankedTrack{
			TrackID:    t.ID.String(),
			Name:       t.Name,
			Popularity: int(t.Popularity),
		}
		if len(t.Artists) > 0 {
			rt.ArtistID = t.Artists[0].ID.String()
			rt.ArtistName = t.Artists[0].Name
		}
		tracks = append(tracks, rt)
	}
	return tracks, nil
}
