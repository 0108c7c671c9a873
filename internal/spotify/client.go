// Package spotify provides a wrapper around the Spotify Web API.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	// maxTracksPerRequest is the Spotify limit for track and audio-feature
	// lookups per request (50 for tracks, 100 for features).
	maxTracksPerRequest   = 50
	maxFeaturesPerRequest = 100

	// pageLimit is the maximum page size Spotify allows on list endpoints.
	pageLimit = 50

	retryAttempts = 3
	retryDelay    = 500 * time.Millisecond
)

// Client wraps the Spotify API client with rate limiting and retries.
type Client struct {
	api     *spotify.Client
	limiter *rate.Limiter
}

// New creates a new Spotify client wrapper.
// The underlying client should already be authenticated.
func New(api *spotify.Client) *Client {
	return &Client{
		api: api,
		// Spotify tolerates short bursts; sustained traffic is kept gentle.
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
	}
}

// Token returns the current OAuth token, refreshed if it had expired.
func (c *Client) Token() (*oauth2.Token, error) {
	token, err := c.api.Token()
	if err != nil {
		return nil, fmt.Errorf("getting token: %w", err)
	}
	return token, nil
}

// Profile holds the identifying fields of the authenticated user.
type Profile struct {
	ID          string
	DisplayName string
	Email       string
}

// CurrentProfile returns the authenticated user's profile.
func (c *Client) CurrentProfile(ctx context.Context) (*Profile, error) {
	var profile *Profile
	err := c.call(ctx, func() error {
		user, err := c.api.CurrentUser(ctx)
		if err != nil {
			return fmt.Errorf("getting current user: %w", err)
		}
		profile = &Profile{
			ID:          user.ID,
			DisplayName: user.DisplayName,
			Email:       user.Email,
		}
		return nil
	})
	return profile, err
}

// call runs one API operation behind the rate limiter, retrying transient
// upstream failures.
func (c *Client) call(ctx context.Context, op func() error) error {
	return retry.Do(
		func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
			return op()
		},
		retry.Attempts(retryAttempts),
		retry.Delay(retryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
	)
}

// isTransient reports whether an API error is worth retrying: server-side
// failures and rate-limit rejections, not client mistakes.
func isTransient(err error) bool {
	var spErr spotify.Error
	if errors.As(err, &spErr) {
		return spErr.Status >= http.StatusInternalServerError || spErr.Status == http.StatusTooManyRequests
	}
	return false
}
