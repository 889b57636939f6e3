// OpenAI API implementation of [AIService]
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"

	"weeklymix/internal/shared"
)

const (
	openAIBaseURL = "https://api.openai.com/v1"

	// OpenAITextModel is used for search-query recommendations and playlist
	// descriptions.
	OpenAITextModel = "gpt-5.2"
	// OpenAIImageModel is used for playlist artwork.
	OpenAIImageModel = "chatgpt-image-latest"

	// OpenAIImageSize is the square edge in pixels.
	OpenAIImageSize = "1024"
	// OpenAIImageQuality lets the API choose a quality tier.
	OpenAIImageQuality = "auto"

	// TemperatureRecommendations keeps search queries focused;
	// TemperatureDescription lets descriptions be more playful.
	TemperatureRecommendations = 0.8
	TemperatureDescription     = 1.2
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat any           `json:"response_format,omitempty"`
	Messages       []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *openAIError `json:"error,omitempty"`
}

type imageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	Size           string `json:"size"`
	Quality        string `json:"quality"`
	ResponseFormat string `json:"response_format"`
	N              int    `json:"n"`
}

type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
		URL     string `json:"url"`
	} `json:"data"`
	Error *openAIError `json:"error,omitempty"`
}

type openAIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// OpenAIService implements [AIService] against the OpenAI HTTP API.
type OpenAIService struct {
	client *resty.Client
	logger *log.Logger
}

// NewOpenAIService creates an OpenAI service. BaseURL defaults to production.
func NewOpenAIService(cfg shared.OpenAIConfig, logger *log.Logger) (*OpenAIService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai api_key is required", shared.ErrMissingCredentials)
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(2 * time.Minute)

	return &OpenAIService{client: client, logger: logger}, nil
}

// GenerateText runs a chat completion in JSON mode and returns the first
// choice's content. JSON mode requires the word "json" to appear in the
// messages, so the system prompt is amended when it doesn't.
func (s *OpenAIService) GenerateText(ctx context.Context, systemPrompt, userPrompt, model string, temperature float64) (string, error) {
	if model == "" {
		model = OpenAITextModel
	}
	if !strings.Contains(strings.ToLower(systemPrompt), "json") {
		systemPrompt += " Respond in JSON format."
	}

	body := chatRequest{
		Model:          model,
		Temperature:    temperature,
		ResponseFormat: map[string]string{"type": "json_object"},
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}

	var parsed chatResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&parsed).
		SetError(&parsed).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("openai: chat request failed: %w", err)
	}
	if resp.IsError() {
		if parsed.Error != nil {
			return "", fmt.Errorf("openai: %s", parsed.Error.Message)
		}
		return "", &APIError{StatusCode: resp.StatusCode(), Endpoint: "/chat/completions"}
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("openai: empty completion")
	}

	return parsed.Choices[0].Message.Content, nil
}

// GenerateImage requests a square image and returns the base64 payload (or a
// URL when the endpoint ignores the requested response format).
func (s *OpenAIService) GenerateImage(ctx context.Context, prompt, model, size, quality string) (*ImagePayload, error) {
	if model == "" {
		model = OpenAIImageModel
	}
	if size == "" {
		size = OpenAIImageSize
	}
	if quality == "" {
		quality = OpenAIImageQuality
	}
	if !strings.Contains(size, "x") {
		size = size + "x" + size
	}

	body := imageRequest{
		Model:          model,
		Prompt:         prompt,
		Size:           size,
		Quality:        quality,
		ResponseFormat: "b64_json",
		N:              1,
	}

	var parsed imageResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&parsed).
		SetError(&parsed).
		Post("/images/generations")
	if err != nil {
		return nil, fmt.Errorf("openai: image request failed: %w", err)
	}
	if resp.IsError() {
		if parsed.Error != nil {
			return nil, fmt.Errorf("openai: %s", parsed.Error.Message)
		}
		return nil, &APIError{StatusCode: resp.StatusCode(), Endpoint: "/images/generations"}
	}
	if len(parsed.Data) == 0 {
		return nil, shared.ErrNoImage
	}

	payload := &ImagePayload{
		B64JSON: strings.TrimSpace(parsed.Data[0].B64JSON),
		URL:     strings.TrimSpace(parsed.Data[0].URL),
	}
	if payload.B64JSON == "" && payload.URL == "" {
		return nil, shared.ErrNoImage
	}
	return payload, nil
}
