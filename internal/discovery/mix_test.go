package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"weeklymix/internal/models"
	"weeklymix/internal/shared"
)

// fakeRecommender returns a fixed query list or an error.
type fakeRecommender struct {
	queries []string
	err     error
	calls   int
}

func (f *fakeRecommender) RecommendQueries(_ context.Context, _ MixInput, maxQueries int) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.queries) > maxQueries {
		return f.queries[:maxQueries], nil
	}
	return f.queries, nil
}

// fakeSearcher maps queries to canned results; unknown queries return nothing.
type fakeSearcher struct {
	results map[string][]SearchResult
	errs    map[string]error
	failAll bool
	calls   []string
}

func (f *fakeSearcher) SearchTracks(_ context.Context, query string, limit int, _ string) ([]SearchResult, error) {
	f.calls = append(f.calls, query)
	if f.failAll {
		return nil, errors.New("rate limited")
	}
	if err, ok := f.errs[query]; ok {
		return nil, err
	}
	results := f.results[query]
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// identityShuffle keeps the anchor order stable so tests are deterministic.
type identityShuffle struct{}

func (identityShuffle) Shuffle(int, func(i, j int)) {}

// reverseShuffle fully reverses the slice.
type reverseShuffle struct{}

func (reverseShuffle) Shuffle(n int, swap func(i, j int)) {
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		swap(i, j)
	}
}

func tracks(uriList ...string) []models.Track {
	out := make([]models.Track, len(uriList))
	for i, uri := range uriList {
		out[i] = models.Track{URI: uri}
	}
	return out
}

func searchResults(uriList ...string) []SearchResult {
	out := make([]SearchResult, len(uriList))
	for i, uri := range uriList {
		out[i] = SearchResult{URI: uri}
	}
	return out
}

func newTestMixer(rec QueryRecommender, search TrackSearcher, rng Shuffler) *Mixer {
	return NewMixer(rec, search, rng, shared.NewLogger(io.Discard))
}

func TestMixerBuild(t *testing.T) {
	ctx := context.Background()

	t.Run("Known Tracks Skip Slot One But Anchor", func(t *testing.T) {
		// Known tracks T1, T2; AI search returns T1, T3, T4; anchors are the
		// known tracks themselves; fallback finds T5.
		rec := &fakeRecommender{queries: []string{"q1"}}
		search := &fakeSearcher{results: map[string][]SearchResult{
			"q1":           searchResults("T1", "T3", "T4"),
			`artist:"Ann"`: searchResults("T5"),
		}}
		mixer := newTestMixer(rec, search, identityShuffle{})

		result := mixer.Build(ctx, MixInput{
			SourceTracks:  tracks("T1", "T2"),
			SourceArtists: []models.Artist{{ID: "ann", Name: "Ann"}},
		})

		want := []string{"T3", "T4", "T1", "T2", "T5"}
		if len(result.URIs) != len(want) {
			t.Fatalf("expected %v, got %v", want, result.URIs)
		}
		for i, uri := range want {
			if result.URIs[i] != uri {
				t.Errorf("position %d: expected %s, got %s (full: %v)", i, uri, result.URIs[i], result.URIs)
			}
		}

		if result.AICount != 2 || result.AnchorCount != 2 || result.SearchCount != 1 {
			t.Errorf("expected counts ai=2 anchors=2 search=1, got ai=%d anchors=%d search=%d",
				result.AICount, result.AnchorCount, result.SearchCount)
		}
	})

	t.Run("No Duplicates And Known Exclusion", func(t *testing.T) {
		rec := &fakeRecommender{queries: []string{"q1", "q2"}}
		search := &fakeSearcher{results: map[string][]SearchResult{
			"q1":           searchResults("A", "B", "known1", "A"),
			"q2":           searchResults("B", "C"),
			`genre:"rock"`: searchResults("C", "D", "known2"),
		}}
		mixer := newTestMixer(rec, search, identityShuffle{})

		result := mixer.Build(ctx, MixInput{
			SourceTracks:      tracks("known1", "known2"),
			CurrentTopArtists: []models.Artist{{ID: "x", Name: "X", Genres: []string{"rock"}}},
		})

		seen := map[string]int{}
		for _, uri := range result.URIs {
			seen[uri]++
		}
		for uri, n := range seen {
			if n > 1 {
				t.Errorf("duplicate entry %s appears %d times", uri, n)
			}
		}

		// known1/known2 only appear via the anchor slot.
		anchorStart, anchorEnd := result.AICount, result.AICount+result.AnchorCount
		for i, uri := range result.URIs {
			if uri == "known1" || uri == "known2" {
				if i < anchorStart || i >= anchorEnd {
					t.Errorf("known track %s at position %d, outside anchor slot [%d,%d)", uri, i, anchorStart, anchorEnd)
				}
			}
		}
	})

	t.Run("Slot Caps Are Cumulative", func(t *testing.T) {
		// Slot 1 saturates at 50; anchors can then only add 15 more.
		var queries []string
		results := map[string][]SearchResult{}
		for q := 0; q < 10; q++ {
			query := fmt.Sprintf("q%d", q)
			queries = append(queries, query)
			var rs []SearchResult
			for i := 0; i < 10; i++ {
				rs = append(rs, SearchResult{URI: fmt.Sprintf("ai-%d-%d", q, i)})
			}
			results[query] = rs
		}
		var anchorTracks []models.Track
		for i := 0; i < 40; i++ {
			anchorTracks = append(anchorTracks, models.Track{URI: fmt.Sprintf("anchor-%d", i)})
		}

		rec := &fakeRecommender{queries: queries}
		search := &fakeSearcher{results: results}
		mixer := newTestMixer(rec, search, identityShuffle{})

		result := mixer.Build(ctx, MixInput{SourceTracks: anchorTracks})

		if result.AICount != AISlotCap {
			t.Errorf("expected slot 1 to fill to %d, got %d", AISlotCap, result.AICount)
		}
		if result.AnchorCount != AnchorSlotCap-AISlotCap {
			t.Errorf("expected anchors to top up to %d (delta %d), got %d",
				AnchorSlotCap, AnchorSlotCap-AISlotCap, result.AnchorCount)
		}
		if result.Total() > TotalCap {
			t.Errorf("total %d exceeds cap %d", result.Total(), TotalCap)
		}

		// The AI slot stops issuing queries once full.
		if len(search.calls) > len(queries) {
			t.Errorf("expected at most %d search calls, got %d", len(queries), len(search.calls))
		}
	})

	t.Run("Total Cap", func(t *testing.T) {
		var artists []models.Artist
		results := map[string][]SearchResult{}
		for a := 0; a < 8; a++ {
			name := fmt.Sprintf("Artist%d", a)
			artists = append(artists, models.Artist{ID: fmt.Sprintf("a%d", a), Name: name, Genres: []string{fmt.Sprintf("genre%d", a)}})
			var rs []SearchResult
			for i := 0; i < 10; i++ {
				rs = append(rs, SearchResult{URI: fmt.Sprintf("t-%s-%d", name, i)})
			}
			results[fmt.Sprintf("artist:%q", name)] = rs
			results[fmt.Sprintf("genre:%q", fmt.Sprintf("genre%d", a))] = rs
		}

		rec := &fakeRecommender{err: errors.New("model unavailable")}
		search := &fakeSearcher{results: results}
		mixer := newTestMixer(rec, search, identityShuffle{})

		var anchorTracks []models.Track
		for i := 0; i < 80; i++ {
			anchorTracks = append(anchorTracks, models.Track{URI: fmt.Sprintf("anchor-%d", i)})
		}

		result := mixer.Build(ctx, MixInput{
			SourceTracks:      anchorTracks,
			SourceArtists:     artists,
			CurrentTopArtists: artists,
		})

		if result.Total() > TotalCap {
			t.Errorf("total %d exceeds cap %d", result.Total(), TotalCap)
		}
		if result.AnchorCount != AnchorSlotCap {
			t.Errorf("expected %d anchors with empty slot 1, got %d", AnchorSlotCap, result.AnchorCount)
		}
		if result.SearchCount != TotalCap-AnchorSlotCap {
			t.Errorf("expected fallback to fill to %d, got %d extra", TotalCap, result.SearchCount)
		}
	})

	t.Run("Recommender Failure Degrades To Later Slots", func(t *testing.T) {
		rec := &fakeRecommender{err: errors.New("rate limited")}
		search := &fakeSearcher{results: map[string][]SearchResult{
			`genre:"jazz"`: searchResults("F1", "F2"),
		}}
		mixer := newTestMixer(rec, search, identityShuffle{})

		result := mixer.Build(ctx, MixInput{
			SourceTracks:      tracks("A1", "A2"),
			CurrentTopArtists: []models.Artist{{ID: "j", Name: "J", Genres: []string{"jazz"}}},
		})

		if result.AICount != 0 {
			t.Errorf("expected empty AI slot, got %d", result.AICount)
		}
		if result.AnchorCount != 2 || result.SearchCount != 2 {
			t.Errorf("expected anchors=2 search=2, got anchors=%d search=%d", result.AnchorCount, result.SearchCount)
		}
	})

	t.Run("All Searches Fail Leaves Anchors", func(t *testing.T) {
		rec := &fakeRecommender{queries: []string{"q1", "q2"}}
		search := &fakeSearcher{failAll: true}
		mixer := newTestMixer(rec, search, identityShuffle{})

		result := mixer.Build(ctx, MixInput{
			SourceTracks:      tracks("A1", "A2", "A3"),
			CurrentTopArtists: []models.Artist{{ID: "x", Name: "X", Genres: []string{"rock"}}},
		})

		if result.Total() != 3 || result.AnchorCount != 3 {
			t.Errorf("expected only the 3 anchors, got total=%d anchors=%d", result.Total(), result.AnchorCount)
		}
	})

	t.Run("Single Query Failure Is Isolated", func(t *testing.T) {
		rec := &fakeRecommender{queries: []string{"bad", "good"}}
		search := &fakeSearcher{
			results: map[string][]SearchResult{"good": searchResults("G1")},
			errs:    map[string]error{"bad": errors.New("timeout")},
		}
		mixer := newTestMixer(rec, search, identityShuffle{})

		result := mixer.Build(ctx, MixInput{})

		if result.AICount != 1 || result.URIs[0] != "G1" {
			t.Errorf("expected the good query to still contribute, got %v", result.URIs)
		}
	})

	t.Run("Anchors Are Shuffled", func(t *testing.T) {
		mixer := newTestMixer(&fakeRecommender{}, &fakeSearcher{}, reverseShuffle{})

		result := mixer.Build(ctx, MixInput{SourceTracks: tracks("A1", "A2", "A3")})

		want := []string{"A3", "A2", "A1"}
		for i, uri := range want {
			if result.URIs[i] != uri {
				t.Fatalf("expected reversed anchors %v, got %v", want, result.URIs)
			}
		}
	})

	t.Run("Anchors Deduplicate Source Tracks", func(t *testing.T) {
		mixer := newTestMixer(&fakeRecommender{}, &fakeSearcher{}, identityShuffle{})

		result := mixer.Build(ctx, MixInput{SourceTracks: tracks("A1", "A1", "A2", "", "A2")})

		if result.Total() != 2 {
			t.Errorf("expected 2 unique anchors, got %v", result.URIs)
		}
	})

	t.Run("Empty Input Yields Empty Mix", func(t *testing.T) {
		mixer := newTestMixer(&fakeRecommender{}, &fakeSearcher{}, identityShuffle{})

		result := mixer.Build(ctx, MixInput{})

		if result.Total() != 0 {
			t.Errorf("expected empty mix, got %v", result.URIs)
		}
	})
}

func TestFallbackQueries(t *testing.T) {
	t.Run("Genre And Artist Pools Are Capped And Deduplicated", func(t *testing.T) {
		var current []models.Artist
		for i := 0; i < 12; i++ {
			current = append(current, models.Artist{
				ID:     fmt.Sprintf("c%d", i),
				Name:   fmt.Sprintf("Current%d", i),
				Genres: []string{fmt.Sprintf("genre%d", i), "shared-genre"},
			})
		}
		source := []models.Artist{
			{ID: "s0", Name: "Current0"}, // duplicate of a current artist
			{ID: "s1", Name: "SourceOnly"},
		}

		queries := fallbackQueries(MixInput{SourceArtists: source, CurrentTopArtists: current})

		genreCount, artistCount := 0, 0
		seen := map[string]struct{}{}
		for _, q := range queries {
			if _, dup := seen[q]; dup {
				t.Errorf("duplicate query %s", q)
			}
			seen[q] = struct{}{}
			switch {
			case len(q) > 6 && q[:6] == "genre:":
				genreCount++
			case len(q) > 7 && q[:7] == "artist:":
				artistCount++
			default:
				t.Errorf("unexpected query shape: %s", q)
			}
		}

		if genreCount != 8 {
			t.Errorf("expected 8 genre queries, got %d", genreCount)
		}
		if artistCount != 8 {
			t.Errorf("expected 8 artist queries, got %d", artistCount)
		}
	})

	t.Run("Exact Phrase Formatting", func(t *testing.T) {
		queries := fallbackQueries(MixInput{
			CurrentTopArtists: []models.Artist{{ID: "a", Name: "St. Vincent", Genres: []string{"art pop"}}},
		})

		want := []string{`genre:"art pop"`, `artist:"St. Vincent"`}
		if len(queries) != len(want) {
			t.Fatalf("expected %v, got %v", want, queries)
		}
		for i := range want {
			if queries[i] != want[i] {
				t.Errorf("expected %s, got %s", want[i], queries[i])
			}
		}
	})

	t.Run("Source Artists Come First", func(t *testing.T) {
		queries := fallbackQueries(MixInput{
			SourceArtists:     []models.Artist{{ID: "s", Name: "First"}},
			CurrentTopArtists: []models.Artist{{ID: "c", Name: "Second"}},
		})

		want := []string{`artist:"First"`, `artist:"Second"`}
		if len(queries) != 2 || queries[0] != want[0] || queries[1] != want[1] {
			t.Errorf("expected %v, got %v", want, queries)
		}
	})
}
