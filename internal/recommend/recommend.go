// package recommend turns listening history into AI search queries and
// playlist descriptions.
//
// Prompts can be overridden by files configured under [prompts] in the config;
// missing files fall back to the built-in templates. The model is always asked
// for a JSON object so parsing stays strict even when the model chats.
package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"weeklymix/internal/discovery"
	"weeklymix/internal/models"
	"weeklymix/internal/services"
	"weeklymix/internal/shared"
)

const (
	// maxPromptTracks and maxPromptArtists bound how much history is inlined
	// into a prompt.
	maxPromptTracks  = 25
	maxPromptArtists = 15
)

const queriesSystemPrompt = `You are a music discovery assistant. Given a listener's recent tracks and top artists, suggest Spotify search queries that will surface music they have not heard but will probably like. Prefer adjacent genres, similar but lesser-known artists, and era/scene queries over the obvious. Return only a JSON object of the form {"queries": ["query", ...]}.`

const descriptionSystemPrompt = `You write one-sentence Spotify playlist descriptions: witty, specific to the listener's taste, no hashtags, no emoji, under 250 characters. Return only a JSON object of the form {"description": "..."}.`

// Recommender implements [discovery.QueryRecommender] on top of an AI text
// provider and also generates playlist descriptions.
type Recommender struct {
	ai      services.AIService
	prompts shared.PromptsConfig
	logger  *log.Logger
}

// NewRecommender constructs a Recommender. The logger is optional.
func NewRecommender(ai services.AIService, prompts shared.PromptsConfig, logger *log.Logger) *Recommender {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Recommender{ai: ai, prompts: prompts, logger: logger}
}

// RecommendQueries asks the model for up to maxQueries search queries seeded
// with the listener's history. The call is all-or-nothing: any failure is
// returned to the mixer, which degrades slot 1 to empty.
func (r *Recommender) RecommendQueries(ctx context.Context, in discovery.MixInput, maxQueries int) ([]string, error) {
	temperature := in.Temperature
	if temperature == 0 {
		temperature = services.TemperatureRecommendations
	}

	userPrompt := r.queriesPrompt(in, maxQueries)
	content, err := r.ai.GenerateText(ctx, queriesSystemPrompt, userPrompt, services.OpenAITextModel, temperature)
	if err != nil {
		return nil, err
	}

	queries, err := ParseQueries(content, maxQueries)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("AI suggested search queries", "count", len(queries))
	return queries, nil
}

// Description generates a playlist description for the mix, truncated to the
// service's character limit.
func (r *Recommender) Description(ctx context.Context, in discovery.MixInput) (string, error) {
	content, err := r.ai.GenerateText(ctx, descriptionSystemPrompt, r.descriptionPrompt(in), services.OpenAITextModel, services.TemperatureDescription)
	if err != nil {
		return "", err
	}

	var parsed struct {
		Description string `json:"description"`
	}
	if err := json.Unmarshal([]byte(stripCodeFences(content)), &parsed); err != nil {
		return "", fmt.Errorf("failed to parse description response: %w", err)
	}

	description := strings.TrimSpace(parsed.Description)
	if description == "" {
		return "", fmt.Errorf("%w: model returned an empty description", shared.ErrInvalidInput)
	}
	return shared.Truncate(description, services.PlaylistDescriptionMax), nil
}

func (r *Recommender) queriesPrompt(in discovery.MixInput, maxQueries int) string {
	if template := shared.ReadFileIfExists(r.prompts.Recommendations); template != "" {
		return fillPlaceholders(template, in)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Suggest up to %d Spotify search queries for the week of %s, based on the listener's week of %s.\n\n", maxQueries, in.TargetWeek, in.SourceWeek)
	b.WriteString("Top artists:\n")
	b.WriteString(artistLines(in.CurrentTopArtists))
	b.WriteString("\nRecent tracks:\n")
	b.WriteString(trackLines(in.SourceTracks))
	return b.String()
}

func (r *Recommender) descriptionPrompt(in discovery.MixInput) string {
	if template := shared.ReadFileIfExists(r.prompts.Description); template != "" {
		return fillPlaceholders(template, in)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Write a description for a discovery playlist for the week of %s.\n\n", in.TargetWeek)
	b.WriteString("The listener's top artists:\n")
	b.WriteString(artistLines(in.CurrentTopArtists))
	b.WriteString("\nTracks they had on repeat:\n")
	b.WriteString(trackLines(in.SourceTracks))
	return b.String()
}

// fillPlaceholders substitutes the supported {placeholder} tokens in a prompt
// template. Templates without placeholders are used as-is.
func fillPlaceholders(template string, in discovery.MixInput) string {
	replacer := strings.NewReplacer(
		"{source_week}", in.SourceWeek,
		"{target_week}", in.TargetWeek,
		"{top_artists}", artistNames(in.CurrentTopArtists),
		"{top_tracks}", trackLines(in.SourceTracks),
	)
	return replacer.Replace(template)
}

// ParseQueries extracts the query list from a model response, tolerating
// fenced code blocks around the JSON object.
func ParseQueries(content string, maxQueries int) ([]string, error) {
	var parsed struct {
		Queries []string `json:"queries"`
	}
	if err := json.Unmarshal([]byte(stripCodeFences(content)), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse queries response: %w", err)
	}

	queries := make([]string, 0, len(parsed.Queries))
	seen := make(map[string]struct{}, len(parsed.Queries))
	for _, q := range parsed.Queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		queries = append(queries, q)
		if maxQueries > 0 && len(queries) == maxQueries {
			break
		}
	}

	if len(queries) == 0 {
		return nil, fmt.Errorf("%w: model returned no usable queries", shared.ErrInvalidInput)
	}
	return queries, nil
}

func stripCodeFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}

func trackLines(tracks []models.Track) string {
	var b strings.Builder
	count := 0
	for _, t := range tracks {
		if t.Name == "" {
			continue
		}
		artist := ""
		if len(t.Artists) > 0 {
			artist = t.Artists[0].Name
		}
		if artist != "" {
			fmt.Fprintf(&b, "- %s by %s\n", t.Name, artist)
		} else {
			fmt.Fprintf(&b, "- %s\n", t.Name)
		}
		count++
		if count == maxPromptTracks {
			break
		}
	}
	if count == 0 {
		return "- (none)\n"
	}
	return b.String()
}

func artistLines(artists []models.Artist) string {
	var b strings.Builder
	count := 0
	for _, a := range artists {
		if a.Name == "" {
			continue
		}
		if len(a.Genres) > 0 {
			fmt.Fprintf(&b, "- %s (%s)\n", a.Name, strings.Join(a.Genres, ", "))
		} else {
			fmt.Fprintf(&b, "- %s\n", a.Name)
		}
		count++
		if count == maxPromptArtists {
			break
		}
	}
	if count == 0 {
		return "- (none)\n"
	}
	return b.String()
}

func artistNames(artists []models.Artist) string {
	var names []string
	seen := make(map[string]struct{}, len(artists))
	for _, a := range artists {
		if a.Name == "" {
			continue
		}
		if _, dup := seen[a.Name]; dup {
			continue
		}
		seen[a.Name] = struct{}{}
		names = append(names, a.Name)
	}
	if len(names) == 0 {
		return "Unknown"
	}
	return strings.Join(names, ", ")
}
