package discovery

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/charmbracelet/log"

	"weeklymix/internal/models"
	"weeklymix/internal/shared"
)

// Cumulative ceilings on total mix length after each slot, not per-slot budgets.
// Slot 2's ceiling includes whatever slot 1 contributed.
const (
	AISlotCap     = 50
	AnchorSlotCap = 65
	TotalCap      = 100

	// MaxAIQueries bounds how many search queries the recommender is asked for.
	MaxAIQueries = 30

	// searchLimit is the fixed per-query result limit for slot 1 and slot 3.
	searchLimit = 10

	// maxGenreQueries and maxArtistQueries bound the fallback query pool.
	maxGenreQueries  = 8
	maxArtistQueries = 8
)

// SearchResult is one track returned by a search call. ArtistID and ArtistName
// are optional annotations; URI is always set for a valid result.
type SearchResult struct {
	URI        string
	ArtistID   string
	ArtistName string
}

// TrackSearcher executes a single search query against the music service.
// An error isolates that one query; the mixer skips it and moves on.
type TrackSearcher interface {
	SearchTracks(ctx context.Context, query string, limit int, market string) ([]SearchResult, error)
}

// QueryRecommender produces free-text search queries from listening history.
// A returned error means the whole recommendation call failed; the mixer then
// lets slot 1 contribute nothing.
type QueryRecommender interface {
	RecommendQueries(ctx context.Context, in MixInput, maxQueries int) ([]string, error)
}

// Shuffler abstracts the randomness used for the anchor slot so tests can
// supply a deterministic permutation. *rand.Rand satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// MixInput carries the listening data a mix is built from.
type MixInput struct {
	SourceTracks      []models.Track  // the listener's recent tracks; also the known-track set
	SourceArtists     []models.Artist // artists from the source week
	CurrentTopArtists []models.Artist // the listener's current top artists
	SourceWeek        string
	TargetWeek        string
	Market            string
	Temperature       float64
}

// MixResult is a finished discovery mix with per-slot counts for observability.
type MixResult struct {
	URIs        []string
	AICount     int
	AnchorCount int
	SearchCount int
}

// Total returns the mix length.
func (r MixResult) Total() int { return len(r.URIs) }

// Tracks expands the ordered URI list into annotated entries, deriving each
// track's slot from the slot counts.
func (r MixResult) Tracks() []models.MixTrack {
	tracks := make([]models.MixTrack, len(r.URIs))
	for i, uri := range r.URIs {
		slot := models.SlotSearch
		switch {
		case i < r.AICount:
			slot = models.SlotAI
		case i < r.AICount+r.AnchorCount:
			slot = models.SlotAnchor
		}
		tracks[i] = models.MixTrack{Position: i + 1, URI: uri, Slot: slot}
	}
	return tracks
}

// Mixer assembles discovery mixes. All external calls are issued strictly in
// slot order, then in query order, with no parallel fan-out.
type Mixer struct {
	recommender QueryRecommender
	searcher    TrackSearcher
	rng         Shuffler
	logger      *log.Logger
}

// NewMixer constructs a Mixer. A nil rng falls back to a time-seeded source
// and a nil logger to the default stderr logger.
func NewMixer(recommender QueryRecommender, searcher TrackSearcher, rng Shuffler, logger *log.Logger) *Mixer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Mixer{
		recommender: recommender,
		searcher:    searcher,
		rng:         rng,
		logger:      logger,
	}
}

// Build assembles a mix of at most TotalCap unique track URIs.
//
// The returned list never contains duplicates and never contains a known
// source track except through the anchor slot, which includes familiar tracks
// deliberately. Build never fails: degraded upstream calls only shorten the
// result.
func (m *Mixer) Build(ctx context.Context, in MixInput) MixResult {
	known := make(map[string]struct{}, len(in.SourceTracks))
	for _, t := range in.SourceTracks {
		if t.URI != "" {
			known[t.URI] = struct{}{}
		}
	}

	var discovered []string
	seen := make(map[string]struct{})

	add := func(uri string, listCap int) {
		if uri == "" || len(discovered) >= listCap {
			return
		}
		if _, dup := seen[uri]; dup {
			return
		}
		if _, familiar := known[uri]; familiar {
			return
		}
		discovered = append(discovered, uri)
		seen[uri] = struct{}{}
	}

	// Slot 1: AI-recommended queries.
	m.logger.Info("slot 1: AI-recommended queries")
	if m.recommender == nil {
		m.logger.Warn("slot 1 skipped: no recommender configured")
	} else if queries, err := m.recommender.RecommendQueries(ctx, in, MaxAIQueries); err != nil {
		m.logger.Warn("AI recommendations failed", "err", err)
	} else {
		m.runQueries(ctx, queries, in.Market, AISlotCap, add, func() int { return len(discovered) })
	}
	aiCount := len(discovered)

	// Slot 2: familiar anchors. These bypass the known-track exclusion on
	// purpose, so they skip add() and only dedup against the list itself.
	m.logger.Info("slot 2: familiar anchors")
	for _, uri := range m.shuffledAnchors(in.SourceTracks) {
		if len(discovered) >= AnchorSlotCap {
			break
		}
		if _, dup := seen[uri]; dup {
			continue
		}
		discovered = append(discovered, uri)
		seen[uri] = struct{}{}
	}
	anchorCount := len(discovered) - aiCount

	// Slot 3: genre/artist fallback searches.
	m.logger.Info("slot 3: genre/artist fallback")
	m.runQueries(ctx, fallbackQueries(in), in.Market, TotalCap, add, func() int { return len(discovered) })
	searchCount := len(discovered) - aiCount - anchorCount

	m.logger.Info("discovery mix assembled",
		"total", len(discovered), "ai", aiCount, "anchors", anchorCount, "search", searchCount)

	return MixResult{
		URIs:        discovered,
		AICount:     aiCount,
		AnchorCount: anchorCount,
		SearchCount: searchCount,
	}
}

// runQueries executes queries in order until the cap is reached, isolating
// each query's failure to a warning.
func (m *Mixer) runQueries(ctx context.Context, queries []string, market string, listCap int, add func(string, int), size func() int) {
	if m.searcher == nil {
		m.logger.Warn("search skipped: no searcher configured")
		return
	}
	for _, query := range queries {
		if size() >= listCap {
			break
		}
		results, err := m.searcher.SearchTracks(ctx, query, searchLimit, market)
		if err != nil {
			m.logger.Warn("search failed, skipping query", "query", query, "err", err)
			continue
		}
		for _, r := range results {
			add(r.URI, listCap)
		}
	}
}

// shuffledAnchors deduplicates the source track URIs preserving first-seen
// order, then applies a full random permutation.
func (m *Mixer) shuffledAnchors(sourceTracks []models.Track) []string {
	seen := make(map[string]struct{}, len(sourceTracks))
	anchors := make([]string, 0, len(sourceTracks))
	for _, t := range sourceTracks {
		if t.URI == "" {
			continue
		}
		if _, dup := seen[t.URI]; dup {
			continue
		}
		seen[t.URI] = struct{}{}
		anchors = append(anchors, t.URI)
	}
	m.rng.Shuffle(len(anchors), func(i, j int) {
		anchors[i], anchors[j] = anchors[j], anchors[i]
	})
	return anchors
}

// fallbackQueries builds the slot 3 query pool: up to maxGenreQueries genre
// tags from the current top artists, then up to maxArtistQueries artist names
// from the union of source-week and current top artists, each as an
// exact-phrase field query.
func fallbackQueries(in MixInput) []string {
	var genres []string
	genreSeen := make(map[string]struct{})
	for _, a := range in.CurrentTopArtists {
		for _, g := range a.Genres {
			if g == "" {
				continue
			}
			if _, dup := genreSeen[g]; dup {
				continue
			}
			genreSeen[g] = struct{}{}
			genres = append(genres, g)
		}
	}
	if len(genres) > maxGenreQueries {
		genres = genres[:maxGenreQueries]
	}

	var names []string
	nameSeen := make(map[string]struct{})
	for _, pool := range [][]models.Artist{in.SourceArtists, in.CurrentTopArtists} {
		for _, a := range pool {
			if a.Name == "" {
				continue
			}
			if _, dup := nameSeen[a.Name]; dup {
				continue
			}
			nameSeen[a.Name] = struct{}{}
			names = append(names, a.Name)
		}
	}
	if len(names) > maxArtistQueries {
		names = names[:maxArtistQueries]
	}

	queries := make([]string, 0, len(genres)+len(names))
	for _, g := range genres {
		queries = append(queries, fmt.Sprintf("genre:%q", g))
	}
	for _, n := range names {
		queries = append(queries, fmt.Sprintf("artist:%q", n))
	}
	return queries
}
