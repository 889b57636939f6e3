// package services contains clients for the external APIs weeklymix talks to
package services

import (
	"context"
	"errors"
	"fmt"

	"weeklymix/internal/discovery"
	"weeklymix/internal/models"
)

// APIError represents a non-2xx response from an upstream API. Callers can
// branch on the status code, e.g. to detect missing-scope failures.
type APIError struct {
	StatusCode int
	Endpoint   string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("API error: status %d on %s: %s", e.StatusCode, e.Endpoint, e.Body)
	}
	return fmt.Sprintf("API error: status %d on %s", e.StatusCode, e.Endpoint)
}

// IsAuth reports whether the error is an authorization failure (401/403).
func (e *APIError) IsAuth() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// IsAuthError reports whether err wraps an authorization [APIError].
func IsAuthError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsAuth()
}

// MusicService is the surface of the music provider the mix engine consumes.
type MusicService interface {
	// Authenticate exchanges stored credentials for an access token.
	Authenticate(ctx context.Context) error

	// CurrentUser returns the authenticated listener's profile.
	CurrentUser(ctx context.Context) (*models.User, error)

	// TopTracks returns the listener's recent top tracks.
	TopTracks(ctx context.Context, limit int, timeRange string) ([]models.Track, error)

	// TopArtists returns the listener's recent top artists.
	TopArtists(ctx context.Context, limit int, timeRange string) ([]models.Artist, error)

	// SearchTracks executes a single track search query.
	SearchTracks(ctx context.Context, query string, limit int, market string) ([]discovery.SearchResult, error)

	// PrimaryArtistsByURI batch-resolves track URIs to primary artist IDs.
	// Malformed URIs are skipped; authorization failures propagate.
	PrimaryArtistsByURI(ctx context.Context, uris []string, market string) (map[string]string, error)

	// CreatePlaylist creates an empty playlist for the listener.
	CreatePlaylist(ctx context.Context, name, description string, public bool) (*models.Playlist, error)

	// AddTracks appends track URIs to a playlist.
	AddTracks(ctx context.Context, playlistID string, uris []string) error

	// UpdateDetails changes a playlist's name and/or description.
	UpdateDetails(ctx context.Context, playlistID, name, description string) error

	// UploadImage replaces a playlist's cover with a base64-encoded JPEG.
	UploadImage(ctx context.Context, playlistID, imageB64 string) error

	Name() string
}

// ImagePayload is the raw result of an image-generation call: either inline
// base64 data or a URL to fetch.
type ImagePayload struct {
	B64JSON string
	URL     string
}

// AIService is the surface of the AI provider: text generation in JSON mode
// and image generation.
type AIService interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt, model string, temperature float64) (string, error)
	GenerateImage(ctx context.Context, prompt, model, size, quality string) (*ImagePayload, error)
}
