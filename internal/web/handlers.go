package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	zspotify "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"

	"github.com/ewagner/music-stats/internal/db"
	"github.com/ewagner/music-stats/internal/insights"
	"github.com/ewagner/music-stats/internal/spotify"
	datasync "github.com/ewagner/music-stats/internal/sync"
)

const oauthStateCookie = "oauth_state"

// InsightsGenerator computes listening insights for a user.
type InsightsGenerator interface {
	Basic(ctx context.Context, userID string, now time.Time) (*insights.BasicInsights, error)
	Detailed(ctx context.Context, userID string) (*insights.DetailedInsights, error)
	MoodClusters(ctx context.Context, userID string) (*insights.MoodClusterReport, error)
}

// Syncer pulls a user's listening data from the provider.
type Syncer interface {
	SyncUserByID(ctx context.Context, userID string) (*datasync.Result, error)
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	auth        *spotifyauth.Authenticator
	db          *db.DB
	generator   InsightsGenerator
	syncer      Syncer
	sessions    SessionManager
	metrics     *Metrics
	log         zerolog.Logger
	frontendURL string
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	auth *spotifyauth.Authenticator,
	database *db.DB,
	generator InsightsGenerator,
	syncer Syncer,
	sessions SessionManager,
	metrics *Metrics,
	log zerolog.Logger,
	frontendURL string,
) *Handlers {
	return &Handlers{
		auth:        auth,
		db:          database,
		generator:   generator,
		syncer:      syncer,
		sessions:    sessions,
		metrics:     metrics,
		log:         log.With().Str("component", "web").Logger(),
		frontendURL: frontendURL,
	}
}

// Index reports the service identity (GET /).
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "music-stats API",
		"status":  "ok",
	})
}

// Login initiates the Spotify OAuth flow (GET /api/v1/auth/login).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()

	// State round-trips via cookie for CSRF validation on callback.
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300,
	})

	http.Redirect(w, r, h.auth.AuthURL(state), http.StatusTemporaryRedirect)
}

// Callback handles the OAuth redirect from Spotify
// (GET /api/v1/auth/callback).
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing state cookie")
		return
	}

	state := r.URL.Query().Get("state")
	if state != stateCookie.Value {
		writeError(w, http.StatusBadRequest, "state mismatch")
		return
	}

	// Clear state cookie
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("authorization denied: %s", errMsg))
		return
	}

	token, err := h.auth.Token(r.Context(), state, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not exchange authorization code")
		return
	}

	client := spotify.New(zspotify.New(h.auth.Client(r.Context(), token)))
	profile, err := client.CurrentProfile(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("fetching profile after login")
		writeError(w, http.StatusBadGateway, "could not fetch user profile")
		return
	}

	user := &db.User{
		ID:           profile.ID,
		DisplayName:  profile.DisplayName,
		Email:        profile.Email,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenExpiry:  &token.Expiry,
	}
	if err := h.db.Users().Upsert(r.Context(), user); err != nil {
		h.log.Error().Err(err).Str("user_id", profile.ID).Msg("storing user")
		writeError(w, http.StatusInternalServerError, "could not store user")
		return
	}

	if err := h.sessions.Issue(w, Session{UserID: profile.ID, DisplayName: profile.DisplayName}); err != nil {
		h.log.Error().Err(err).Msg("issuing session")
		writeError(w, http.StatusInternalServerError, "could not create session")
		return
	}

	// First sync runs in the background so login stays snappy.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if _, err := h.syncer.SyncUserByID(ctx, profile.ID); err != nil {
			h.log.Warn().Err(err).Str("user_id", profile.ID).Msg("initial sync failed")
		}
	}()

	http.Redirect(w, r, h.frontendURL, http.StatusTemporaryRedirect)
}

// Logout clears the session (POST /api/v1/auth/logout).
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// profileResponse is the JSON shape of GET /api/v1/user/profile.
type profileResponse struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"display_name"`
	Email       string     `json:"email"`
	LastSyncAt  *time.Time `json:"last_sync_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Profile returns the authenticated user's stored profile
// (GET /api/v1/user/profile).
func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())

	user, err := h.db.Users().Get(r.Context(), session.UserID)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("user_id", session.UserID).Msg("loading profile")
		writeError(w, http.StatusInternalServerError, "could not load profile")
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		LastSyncAt:  user.LastSyncAt,
		CreatedAt:   user.CreatedAt,
	})
}

// syncResponse is the JSON shape of POST /api/v1/data/sync.
type syncResponse struct {
	NewPlays       int       `json:"new_plays"`
	FeaturesStored int       `json:"features_stored"`
	SyncedAt       time.Time `json:"synced_at"`
}

// TriggerSync runs a sync for the authenticated user
// (POST /api/v1/data/sync).
func (h *Handlers) TriggerSync(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())

	result, err := h.syncer.SyncUserByID(r.Context(), session.UserID)
	if errors.Is(err, datasync.ErrSyncTooRecent) {
		h.metrics.RecordSync("cooldown")
		writeError(w, http.StatusTooManyRequests, "sync attempted too recently")
		return
	}
	if errors.Is(err, datasync.ErrNoCredentials) {
		h.metrics.RecordSync("no_credentials")
		writeError(w, http.StatusConflict, "no stored credentials; log in again")
		return
	}
	if err != nil {
		h.metrics.RecordSync("error")
		h.log.Error().Err(err).Str("user_id", session.UserID).Msg("sync failed")
		writeError(w, http.StatusBadGateway, "sync failed")
		return
	}

	h.metrics.RecordSync("ok")
	writeJSON(w, http.StatusOK, syncResponse{
		NewPlays:       result.NewPlays,
		FeaturesStored: result.FeaturesStored,
		SyncedAt:       result.SyncedAt,
	})
}

// BasicInsights serves GET /api/v1/insights/basic.
func (h *Handlers) BasicInsights(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())

	report, err := h.generator.Basic(r.Context(), session.UserID, time.Now().UTC())
	if err != nil {
		h.writeInsightsError(w, err, session.UserID)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// DetailedInsights serves GET /api/v1/insights/detailed.
func (h *Handlers) DetailedInsights(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())

	report, err := h.generator.Detailed(r.Context(), session.UserID)
	if err != nil {
		h.writeInsightsError(w, err, session.UserID)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// MoodClusters serves GET /api/v1/insights/moods.
func (h *Handlers) MoodClusters(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())

	report, err := h.generator.MoodClusters(r.Context(), session.UserID)
	if err != nil {
		h.writeInsightsError(w, err, session.UserID)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handlers) writeInsightsError(w http.ResponseWriter, err error, userID string) {
	if errors.Is(err, insights.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	h.log.Error().Err(err).Str("user_id", userID).Msg("generating insights")
	writeError(w, http.StatusInternalServerError, "could not generate insights")
}

// statusResponse is the JSON shape of GET /api/v1/admin/status.
type statusResponse struct {
	Status string `json:"status"`
	Users  int    `json:"users"`
	Plays  int    `json:"plays"`
}

// AdminStatus reports store totals (GET /api/v1/admin/status).
func (h *Handlers) AdminStatus(w http.ResponseWriter, r *http.Request) {
	users, err := h.db.Users().Count(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("counting users")
		writeError(w, http.StatusInternalServerError, "could not read status")
		return
	}
	plays, err := h.db.History().Count(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("counting plays")
		writeError(w, http.StatusInternalServerError, "could not read status")
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: "ok", Users: users, Plays: plays})
}
