// package artwork generates playlist cover images and compresses them to fit
// the music service's upload limit.
package artwork

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"strings"
	"time"

	_ "image/gif"
	_ "image/png"

	"github.com/charmbracelet/log"

	"weeklymix/internal/discovery"
	"weeklymix/internal/services"
	"weeklymix/internal/shared"
)

const (
	// JPEG quality sweep used to fit the cover under the upload limit.
	jpegQualityStart = 75
	jpegQualityFloor = 30
	jpegQualityStep  = 5

	fetchTimeout = 30 * time.Second
)

const defaultPrompt = `Abstract album cover for a weekly music discovery playlist ({target_week}). Moody, textured, no text, no faces. Inspired by the sound of {top_artists}.`

// Generator produces playlist covers from an AI image provider.
type Generator struct {
	ai         services.AIService
	prompts    shared.PromptsConfig
	httpClient *http.Client
	logger     *log.Logger
}

// NewGenerator constructs a Generator. The HTTP client and logger are optional.
func NewGenerator(ai services.AIService, prompts shared.PromptsConfig, httpClient *http.Client, logger *log.Logger) *Generator {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: fetchTimeout}
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Generator{ai: ai, prompts: prompts, httpClient: httpClient, logger: logger}
}

// Generate creates a cover image for the mix and returns it as base64 JPEG,
// ready for upload. The image is re-encoded and compressed until it fits the
// service's size limit.
func (g *Generator) Generate(ctx context.Context, in discovery.MixInput) (string, error) {
	prompt := g.coverPrompt(in)

	payload, err := g.ai.GenerateImage(ctx, prompt, services.OpenAIImageModel, services.OpenAIImageSize, services.OpenAIImageQuality)
	if err != nil {
		return "", err
	}

	raw, err := g.imageBytes(ctx, payload)
	if err != nil {
		return "", err
	}

	encoded, err := CompressJPEG(raw, services.PlaylistImageMaxBytes)
	if err != nil {
		return "", err
	}

	g.logger.Debug("generated playlist cover", "bytes", len(encoded))
	return base64.StdEncoding.EncodeToString(encoded), nil
}

func (g *Generator) coverPrompt(in discovery.MixInput) string {
	template := shared.ReadFileIfExists(g.prompts.Artwork)
	if template == "" {
		template = defaultPrompt
	}

	names := make([]string, 0, len(in.CurrentTopArtists))
	for _, a := range in.CurrentTopArtists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
		if len(names) == 5 {
			break
		}
	}
	topArtists := "eclectic independent music"
	if len(names) > 0 {
		topArtists = strings.Join(names, ", ")
	}

	replacer := strings.NewReplacer(
		"{source_week}", in.SourceWeek,
		"{target_week}", in.TargetWeek,
		"{top_artists}", topArtists,
	)
	return replacer.Replace(template)
}

// imageBytes extracts the raw image from a provider payload, preferring
// inline base64 data over a fetch.
func (g *Generator) imageBytes(ctx context.Context, payload *services.ImagePayload) ([]byte, error) {
	if payload == nil {
		return nil, shared.ErrNoImage
	}
	if payload.B64JSON != "" {
		raw, err := base64.StdEncoding.DecodeString(payload.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image data: %w", err)
		}
		return raw, nil
	}
	if payload.URL != "" {
		return g.fetch(ctx, payload.URL)
	}
	return nil, shared.ErrNoImage
}

func (g *Generator) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &services.APIError{StatusCode: resp.StatusCode, Endpoint: url}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}
	return raw, nil
}

// CompressJPEG re-encodes an image as JPEG, lowering the quality until the
// result fits maxBytes. Returns [shared.ErrImageTooLarge] when even the
// lowest quality does not fit.
func CompressJPEG(raw []byte, maxBytes int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	var buf bytes.Buffer
	for quality := jpegQualityStart; quality >= jpegQualityFloor; quality -= jpegQualityStep {
		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("failed to encode jpeg: %w", err)
		}
		if buf.Len() <= maxBytes {
			return buf.Bytes(), nil
		}
	}

	return nil, fmt.Errorf("%w: %d bytes at quality %d (limit %d)", shared.ErrImageTooLarge, buf.Len(), jpegQualityFloor, maxBytes)
}
