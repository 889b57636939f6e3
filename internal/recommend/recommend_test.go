package recommend

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"weeklymix/internal/discovery"
	"weeklymix/internal/models"
	"weeklymix/internal/services"
	"weeklymix/internal/shared"
)

type fakeAI struct {
	content     string
	err         error
	lastSystem  string
	lastUser    string
	lastModel   string
	lastTemp    float64
	textCalls   int
	imagePrompt string
}

func (f *fakeAI) GenerateText(_ context.Context, systemPrompt, userPrompt, model string, temperature float64) (string, error) {
	f.textCalls++
	f.lastSystem = systemPrompt
	f.lastUser = userPrompt
	f.lastModel = model
	f.lastTemp = temperature
	return f.content, f.err
}

func (f *fakeAI) GenerateImage(_ context.Context, prompt, _, _, _ string) (*services.ImagePayload, error) {
	f.imagePrompt = prompt
	return nil, errors.New("not used")
}

func newTestRecommender(ai *fakeAI, prompts shared.PromptsConfig) *Recommender {
	return NewRecommender(ai, prompts, shared.NewLogger(io.Discard))
}

func sampleInput() discovery.MixInput {
	return discovery.MixInput{
		SourceWeek: "2026-W33",
		TargetWeek: "2026-W34",
		SourceTracks: []models.Track{
			{URI: "spotify:track:T1", Name: "Cirrus", Artists: []models.Artist{{ID: "a1", Name: "Bonobo"}}},
			{URI: "spotify:track:T2", Name: "Kiara", Artists: []models.Artist{{ID: "a1", Name: "Bonobo"}}},
		},
		CurrentTopArtists: []models.Artist{
			{ID: "a1", Name: "Bonobo", Genres: []string{"downtempo", "trip hop"}},
			{ID: "a2", Name: "Tycho"},
		},
	}
}

func TestRecommendQueries(t *testing.T) {
	ctx := context.Background()

	t.Run("Parses Queries From JSON Object", func(t *testing.T) {
		ai := &fakeAI{content: `{"queries": ["genre:idm", "artist:Four Tet", "ambient electronica 2020s"]}`}
		r := newTestRecommender(ai, shared.PromptsConfig{})

		queries, err := r.RecommendQueries(ctx, sampleInput(), 30)
		if err != nil {
			t.Fatalf("RecommendQueries() error = %v", err)
		}
		if len(queries) != 3 {
			t.Fatalf("len(queries) = %d, want 3", len(queries))
		}
		if queries[1] != "artist:Four Tet" {
			t.Errorf("queries[1] = %q", queries[1])
		}
	})

	t.Run("Tolerates Code Fences", func(t *testing.T) {
		ai := &fakeAI{content: "```json\n{\"queries\": [\"genre:idm\"]}\n```"}
		r := newTestRecommender(ai, shared.PromptsConfig{})

		queries, err := r.RecommendQueries(ctx, sampleInput(), 30)
		if err != nil {
			t.Fatalf("RecommendQueries() error = %v", err)
		}
		if len(queries) != 1 || queries[0] != "genre:idm" {
			t.Errorf("queries = %v", queries)
		}
	})

	t.Run("Caps And Deduplicates Queries", func(t *testing.T) {
		ai := &fakeAI{content: `{"queries": ["a", "a", " ", "b", "c", "d"]}`}
		r := newTestRecommender(ai, shared.PromptsConfig{})

		queries, err := r.RecommendQueries(ctx, sampleInput(), 3)
		if err != nil {
			t.Fatalf("RecommendQueries() error = %v", err)
		}
		want := []string{"a", "b", "c"}
		if len(queries) != len(want) {
			t.Fatalf("queries = %v, want %v", queries, want)
		}
		for i := range want {
			if queries[i] != want[i] {
				t.Errorf("queries[%d] = %q, want %q", i, queries[i], want[i])
			}
		}
	})

	t.Run("Uses Input Temperature When Set", func(t *testing.T) {
		ai := &fakeAI{content: `{"queries": ["a"]}`}
		r := newTestRecommender(ai, shared.PromptsConfig{})

		in := sampleInput()
		in.Temperature = 0.3
		if _, err := r.RecommendQueries(ctx, in, 30); err != nil {
			t.Fatalf("RecommendQueries() error = %v", err)
		}
		if ai.lastTemp != 0.3 {
			t.Errorf("temperature = %v, want 0.3", ai.lastTemp)
		}
	})

	t.Run("Defaults Temperature", func(t *testing.T) {
		ai := &fakeAI{content: `{"queries": ["a"]}`}
		r := newTestRecommender(ai, shared.PromptsConfig{})

		if _, err := r.RecommendQueries(ctx, sampleInput(), 30); err != nil {
			t.Fatalf("RecommendQueries() error = %v", err)
		}
		if ai.lastTemp != services.TemperatureRecommendations {
			t.Errorf("temperature = %v, want %v", ai.lastTemp, services.TemperatureRecommendations)
		}
	})

	t.Run("Prompt Includes History", func(t *testing.T) {
		ai := &fakeAI{content: `{"queries": ["a"]}`}
		r := newTestRecommender(ai, shared.PromptsConfig{})

		if _, err := r.RecommendQueries(ctx, sampleInput(), 30); err != nil {
			t.Fatalf("RecommendQueries() error = %v", err)
		}
		for _, want := range []string{"Bonobo", "downtempo", "Cirrus", "2026-W34"} {
			if !strings.Contains(ai.lastUser, want) {
				t.Errorf("prompt missing %q:\n%s", want, ai.lastUser)
			}
		}
	})

	t.Run("Template File Overrides Prompt", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "recs.txt")
		template := "Week {target_week}. Artists: {top_artists}."
		if err := os.WriteFile(path, []byte(template), 0644); err != nil {
			t.Fatal(err)
		}

		ai := &fakeAI{content: `{"queries": ["a"]}`}
		r := newTestRecommender(ai, shared.PromptsConfig{Recommendations: path})

		if _, err := r.RecommendQueries(ctx, sampleInput(), 30); err != nil {
			t.Fatalf("RecommendQueries() error = %v", err)
		}
		want := "Week 2026-W34. Artists: Bonobo, Tycho."
		if ai.lastUser != want {
			t.Errorf("prompt = %q, want %q", ai.lastUser, want)
		}
	})

	t.Run("Provider Error Propagates", func(t *testing.T) {
		ai := &fakeAI{err: errors.New("boom")}
		r := newTestRecommender(ai, shared.PromptsConfig{})

		if _, err := r.RecommendQueries(ctx, sampleInput(), 30); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("Malformed JSON Is An Error", func(t *testing.T) {
		ai := &fakeAI{content: "here are some great queries!"}
		r := newTestRecommender(ai, shared.PromptsConfig{})

		if _, err := r.RecommendQueries(ctx, sampleInput(), 30); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("Empty Query List Is An Error", func(t *testing.T) {
		ai := &fakeAI{content: `{"queries": ["", "  "]}`}
		r := newTestRecommender(ai, shared.PromptsConfig{})

		_, err := r.RecommendQueries(ctx, sampleInput(), 30)
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Fatalf("error = %v, want ErrInvalidInput", err)
		}
	})
}

func TestDescription(t *testing.T) {
	ctx := context.Background()

	t.Run("Returns Parsed Description", func(t *testing.T) {
		ai := &fakeAI{content: `{"description": "Fresh finds for your week."}`}
		r := newTestRecommender(ai, shared.PromptsConfig{})

		got, err := r.Description(ctx, sampleInput())
		if err != nil {
			t.Fatalf("Description() error = %v", err)
		}
		if got != "Fresh finds for your week." {
			t.Errorf("description = %q", got)
		}
		if ai.lastTemp != services.TemperatureDescription {
			t.Errorf("temperature = %v, want %v", ai.lastTemp, services.TemperatureDescription)
		}
	})

	t.Run("Truncates Long Descriptions", func(t *testing.T) {
		long := strings.Repeat("x", services.PlaylistDescriptionMax+50)
		ai := &fakeAI{content: `{"description": "` + long + `"}`}
		r := newTestRecommender(ai, shared.PromptsConfig{})

		got, err := r.Description(ctx, sampleInput())
		if err != nil {
			t.Fatalf("Description() error = %v", err)
		}
		if n := len([]rune(got)); n > services.PlaylistDescriptionMax {
			t.Errorf("len(description) = %d, want <= %d", n, services.PlaylistDescriptionMax)
		}
	})

	t.Run("Empty Description Is An Error", func(t *testing.T) {
		ai := &fakeAI{content: `{"description": ""}`}
		r := newTestRecommender(ai, shared.PromptsConfig{})

		if _, err := r.Description(ctx, sampleInput()); err == nil {
			t.Fatal("expected error")
		}
	})
}
