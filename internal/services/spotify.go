// Spotify Web API implementation of [MusicService]
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"weeklymix/internal/discovery"
	"weeklymix/internal/models"
	"weeklymix/internal/shared"
)

const (
	spotifyAccountsURL = "https://accounts.spotify.com"
	spotifyBaseURL     = "https://api.spotify.com/v1"

	trackURIPrefix = "spotify:track:"

	// trackBatchSize is the ID cap of the several-tracks endpoint.
	trackBatchSize = 50
	// addTracksBatchSize is the URI cap of the playlist-add endpoint.
	addTracksBatchSize = 100

	// PlaylistImageMaxBytes is the upload limit for playlist cover images.
	PlaylistImageMaxBytes = 256 * 1024
	// PlaylistDescriptionMax is the character limit for playlist descriptions.
	PlaylistDescriptionMax = 300

	maxRetries    = 3
	baseBackoff   = 500 * time.Millisecond
	maxRetryWait  = 2 * time.Minute
	requestEvery  = 200 * time.Millisecond
	requestBursts = 5
)

// RequiredScopes are the OAuth scopes a refresh token must carry for the full
// weekly run (reading top items, writing playlists, uploading artwork).
var RequiredScopes = []string{
	"playlist-modify-private",
	"playlist-modify-public",
	"playlist-read-private",
	"ugc-image-upload",
	"user-top-read",
}

type spotifyArtist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
	URI    string   `json:"uri"`
}

type spotifyAlbum struct {
	Name string `json:"name"`
}

type spotifyTrack struct {
	ID         string          `json:"id"`
	URI        string          `json:"uri"`
	Name       string          `json:"name"`
	Artists    []spotifyArtist `json:"artists"`
	Album      spotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	Popularity int             `json:"popularity"`
}

type spotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Country     string `json:"country"`
}

type spotifyPlaylist struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Public       bool   `json:"public"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}

// SpotifyService implements [MusicService] against the Spotify Web API using a
// long-lived refresh token. Requests go through a client-side rate limiter and
// a small retry loop that honors Retry-After on 429/5xx responses.
type SpotifyService struct {
	clientID     string
	clientSecret string
	refreshToken string
	redirectURI  string

	token       *oauth2.Token
	httpClient  *http.Client
	limiter     *rate.Limiter
	logger      *log.Logger
	accountsURL string
	baseURL     string
}

// NewSpotifyService creates a Spotify service from credentials. The HTTP
// client and logger are optional.
func NewSpotifyService(cfg shared.SpotifyConfig, client *http.Client, logger *log.Logger) (*SpotifyService, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}
	if cfg.RefreshToken == "" {
		return nil, fmt.Errorf("%w: spotify refresh_token is required", shared.ErrMissingCredentials)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &SpotifyService{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		refreshToken: cfg.RefreshToken,
		redirectURI:  cfg.RedirectURI,
		httpClient:   client,
		limiter:      rate.NewLimiter(rate.Every(requestEvery), requestBursts),
		logger:       logger,
		accountsURL:  spotifyAccountsURL,
		baseURL:      spotifyBaseURL,
	}, nil
}

func (s *SpotifyService) Name() string { return "Spotify" }

// AuthorizeURL returns the URL a user visits to grant the required scopes.
func (s *SpotifyService) AuthorizeURL() string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", s.clientID)
	q.Set("scope", strings.Join(RequiredScopes, " "))
	if s.redirectURI != "" {
		q.Set("redirect_uri", s.redirectURI)
	}
	return s.accountsURL + "/authorize?" + q.Encode()
}

// Authenticate exchanges the refresh token for an access token and verifies
// that every required scope was granted.
func (s *SpotifyService) Authenticate(ctx context.Context) error {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", s.refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.accountsURL+"/api/token", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(s.clientID, s.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%w: token endpoint returned %d: %s", shared.ErrAuthFailed, resp.StatusCode, string(body))
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return fmt.Errorf("%w: failed to decode token response: %v", shared.ErrAuthFailed, err)
	}

	granted := make(map[string]struct{})
	for _, scope := range strings.Fields(token.Scope) {
		granted[scope] = struct{}{}
	}
	var missing []string
	for _, scope := range RequiredScopes {
		if _, ok := granted[scope]; !ok {
			missing = append(missing, scope)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: %s (re-authorize at %s)", shared.ErrMissingScopes, strings.Join(missing, ", "), s.AuthorizeURL())
	}

	s.token = &oauth2.Token{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		Expiry:      time.Now().Add(time.Duration(token.ExpiresIn) * time.Second),
	}
	s.logger.Debug("spotify token refreshed", "scopes", token.Scope)
	return nil
}

// doRequest performs an authenticated JSON request with rate limiting and
// retries, decoding the response into result when non-nil.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	var payload []byte
	contentType := ""
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = data
		contentType = "application/json"
	}
	return s.doRaw(ctx, method, endpoint, payload, contentType, result)
}

func (s *SpotifyService) doRaw(ctx context.Context, method, endpoint string, payload []byte, contentType string, result any) error {
	if s.token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	apiURL := s.baseURL + endpoint

	for attempt := 0; ; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}

		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, apiURL, reqBody)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+s.token.AccessToken)
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			if attempt < maxRetries {
				s.logger.Warn("spotify request failed, retrying", "attempt", attempt+1, "err", err)
				if err := sleepWithContext(ctx, backoffFor(attempt, 0)); err != nil {
					return err
				}
				continue
			}
			return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			retryAfter := parseRetryAfter(resp)
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 2048))
			resp.Body.Close()
			if attempt < maxRetries {
				s.logger.Warn("spotify request throttled, retrying",
					"attempt", attempt+1, "status", resp.StatusCode, "retry_after", retryAfter)
				if err := sleepWithContext(ctx, backoffFor(attempt, retryAfter)); err != nil {
					return err
				}
				continue
			}
			return &APIError{StatusCode: resp.StatusCode, Endpoint: endpoint}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			resp.Body.Close()
			return &APIError{StatusCode: resp.StatusCode, Endpoint: endpoint, Body: strings.TrimSpace(string(body))}
		}

		if result != nil {
			err = json.NewDecoder(resp.Body).Decode(result)
		}
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}
}

func backoffFor(attempt int, retryAfter time.Duration) time.Duration {
	delay := baseBackoff * time.Duration(1<<attempt)
	if retryAfter > delay {
		delay = retryAfter
	}
	if delay > maxRetryWait {
		delay = maxRetryWait
	}
	return delay
}

func parseRetryAfter(resp *http.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(raw); err == nil {
		if until := time.Until(when); until > 0 {
			return until
		}
	}
	return 0
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// CurrentUser retrieves the authenticated user's profile.
func (s *SpotifyService) CurrentUser(ctx context.Context) (*models.User, error) {
	var user spotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &models.User{ID: user.ID, DisplayName: user.DisplayName, Country: user.Country}, nil
}

// TopTracks retrieves the user's top tracks for the given time range
// (short_term, medium_term or long_term).
func (s *SpotifyService) TopTracks(ctx context.Context, limit int, timeRange string) ([]models.Track, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	if timeRange == "" {
		timeRange = "short_term"
	}

	endpoint := fmt.Sprintf("/me/top/tracks?limit=%d&time_range=%s", limit, url.QueryEscape(timeRange))

	var response struct {
		Items []spotifyTrack `json:"items"`
	}
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(response.Items))
	for _, item := range response.Items {
		tracks = append(tracks, mapTrack(item))
	}
	return tracks, nil
}

// TopArtists retrieves the user's top artists for the given time range.
func (s *SpotifyService) TopArtists(ctx context.Context, limit int, timeRange string) ([]models.Artist, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	if timeRange == "" {
		timeRange = "short_term"
	}

	endpoint := fmt.Sprintf("/me/top/artists?limit=%d&time_range=%s", limit, url.QueryEscape(timeRange))

	var response struct {
		Items []spotifyArtist `json:"items"`
	}
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	artists := make([]models.Artist, 0, len(response.Items))
	for _, item := range response.Items {
		artists = append(artists, mapArtist(item))
	}
	return artists, nil
}

// SearchTracks executes a single track search and returns typed results.
// Results without a URI are dropped at this boundary so the mixer never sees
// malformed entries.
func (s *SpotifyService) SearchTracks(ctx context.Context, query string, limit int, market string) ([]discovery.SearchResult, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("type", "track")
	q.Set("limit", strconv.Itoa(limit))
	if market != "" {
		q.Set("market", market)
	}

	var response struct {
		Tracks struct {
			Items []spotifyTrack `json:"items"`
		} `json:"tracks"`
	}
	if err := s.doRequest(ctx, http.MethodGet, "/search?"+q.Encode(), nil, &response); err != nil {
		return nil, err
	}

	results := make([]discovery.SearchResult, 0, len(response.Tracks.Items))
	for _, item := range response.Tracks.Items {
		if item.URI == "" {
			continue
		}
		result := discovery.SearchResult{URI: item.URI}
		if len(item.Artists) > 0 {
			result.ArtistID = item.Artists[0].ID
			result.ArtistName = item.Artists[0].Name
		}
		results = append(results, result)
	}
	return results, nil
}

// PrimaryArtistsByURI resolves track URIs to primary artist identifiers via
// the several-tracks endpoint, batching 50 IDs per call.
//
// Input is deduplicated and malformed URIs are skipped without a request;
// empty input returns an empty map with zero calls. Authorization failures
// (401/403 [APIError]) propagate to the caller, which owns the fallback.
func (s *SpotifyService) PrimaryArtistsByURI(ctx context.Context, uris []string, market string) (map[string]string, error) {
	ids := make([]string, 0, len(uris))
	seen := make(map[string]struct{}, len(uris))
	for _, uri := range uris {
		if !strings.HasPrefix(uri, trackURIPrefix) {
			continue
		}
		id := strings.TrimPrefix(uri, trackURIPrefix)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	artistByURI := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return artistByURI, nil
	}

	for start := 0; start < len(ids); start += trackBatchSize {
		end := start + trackBatchSize
		if end > len(ids) {
			end = len(ids)
		}

		q := url.Values{}
		q.Set("ids", strings.Join(ids[start:end], ","))
		if market != "" {
			q.Set("market", market)
		}

		var response struct {
			Tracks []*spotifyTrack `json:"tracks"`
		}
		if err := s.doRequest(ctx, http.MethodGet, "/tracks?"+q.Encode(), nil, &response); err != nil {
			return nil, err
		}

		for _, track := range response.Tracks {
			if track == nil || track.URI == "" || len(track.Artists) == 0 {
				continue
			}
			artist := track.Artists[0].ID
			if artist == "" {
				artist = track.Artists[0].Name
			}
			if artist != "" {
				artistByURI[track.URI] = artist
			}
		}
	}

	return artistByURI, nil
}

// CreatePlaylist creates an empty playlist for the authenticated user.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, name, description string, public bool) (*models.Playlist, error) {
	user, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"name":        name,
		"description": shared.Truncate(description, PlaylistDescriptionMax),
		"public":      public,
	}

	var playlist spotifyPlaylist
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(user.ID))
	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &playlist); err != nil {
		return nil, err
	}

	return &models.Playlist{
		ID:          playlist.ID,
		Name:        playlist.Name,
		Description: playlist.Description,
		Public:      playlist.Public,
		URL:         playlist.ExternalURLs.Spotify,
	}, nil
}

// AddTracks appends URIs to a playlist in batches of 100.
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	if len(uris) == 0 {
		return nil
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	for start := 0; start < len(uris); start += addTracksBatchSize {
		end := start + addTracksBatchSize
		if end > len(uris) {
			end = len(uris)
		}
		body := map[string]any{"uris": uris[start:end]}
		if err := s.doRequest(ctx, http.MethodPost, endpoint, body, nil); err != nil {
			return err
		}
	}
	return nil
}

// UpdateDetails changes a playlist's name and/or description. Empty fields
// are left untouched.
func (s *SpotifyService) UpdateDetails(ctx context.Context, playlistID, name, description string) error {
	body := map[string]any{}
	if name != "" {
		body["name"] = name
	}
	if description != "" {
		body["description"] = shared.Truncate(description, PlaylistDescriptionMax)
	}
	if len(body) == 0 {
		return nil
	}

	endpoint := fmt.Sprintf("/playlists/%s", url.PathEscape(playlistID))
	return s.doRequest(ctx, http.MethodPut, endpoint, body, nil)
}

// UploadImage replaces the playlist cover with a base64-encoded JPEG. The
// decoded payload must fit Spotify's 256 KiB limit.
func (s *SpotifyService) UploadImage(ctx context.Context, playlistID, imageB64 string) error {
	if imageB64 == "" {
		return fmt.Errorf("%w: empty image payload", shared.ErrInvalidInput)
	}
	// base64 expands by 4/3; compare in encoded space to avoid decoding here.
	if len(imageB64) > PlaylistImageMaxBytes*4/3+4 {
		return shared.ErrImageTooLarge
	}

	endpoint := fmt.Sprintf("/playlists/%s/images", url.PathEscape(playlistID))
	return s.doRaw(ctx, http.MethodPut, endpoint, []byte(imageB64), "image/jpeg", nil)
}

func mapTrack(t spotifyTrack) models.Track {
	artists := make([]models.Artist, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, mapArtist(a))
	}
	return models.Track{
		URI:        t.URI,
		ID:         t.ID,
		Name:       t.Name,
		Artists:    artists,
		Album:      t.Album.Name,
		DurationMS: t.DurationMS,
		Popularity: t.Popularity,
	}
}

func mapArtist(a spotifyArtist) models.Artist {
	return models.Artist{ID: a.ID, Name: a.Name, Genres: a.Genres, URI: a.URI}
}
