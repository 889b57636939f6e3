// package tasks orchestrates the weekly mix pipeline: fetch listening
// history, assemble the discovery mix, reorder it, and publish the playlist.
//
// Operations emit progress updates via channels for non-blocking status
// reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"weeklymix/internal/discovery"
	"weeklymix/internal/models"
	"weeklymix/internal/services"
	"weeklymix/internal/shared"
)

const (
	topTracksLimit  = 50
	topArtistsLimit = 20
	historyRange    = "short_term"
)

// MixBuilder assembles a discovery mix from listening history.
// Satisfied by [discovery.Mixer].
type MixBuilder interface {
	Build(ctx context.Context, in discovery.MixInput) discovery.MixResult
}

// Describer writes a playlist description for a mix.
type Describer interface {
	Description(ctx context.Context, in discovery.MixInput) (string, error)
}

// CoverGenerator produces a base64 JPEG cover for a mix.
type CoverGenerator interface {
	Generate(ctx context.Context, in discovery.MixInput) (string, error)
}

// RunStore persists finished runs.
type RunStore interface {
	Save(ctx context.Context, summary models.MixSummary, tracks []models.MixTrack) (string, error)
}

// MixPlan is a fully assembled, ordered mix that has not been published yet.
// The preview flow shows a plan to the listener before Publish commits it.
type MixPlan struct {
	SourceWeek   string
	TargetWeek   string
	PlaylistName string
	Input        discovery.MixInput
	Result       discovery.MixResult
	Ordered      []string          // track URIs after artist spreading
	ArtistByURI  map[string]string // primary artist per URI; empty on resolver failure
	Tracks       []models.MixTrack // annotated entries in final order
	Collisions   int               // adjacent same-artist pairs in the final order
}

// MixReport contains the outcome of publishing a plan.
type MixReport struct {
	Playlist *models.Playlist
	Summary  models.MixSummary
	Tracks   []models.MixTrack
	RunID    string // empty when run history is disabled or saving failed
}

// MixEngine runs the weekly mix pipeline against a music service, an AI
// recommender, and an optional run store.
type MixEngine struct {
	music     services.MusicService
	mixer     MixBuilder
	describer Describer
	covers    CoverGenerator
	store     RunStore
	config    *shared.Config
	logger    *log.Logger
	now       func() time.Time

	temperature float64
}

// NewMixEngine creates a MixEngine. The describer, cover generator, and store
// are optional: the pipeline degrades without them.
func NewMixEngine(music services.MusicService, mixer MixBuilder, describer Describer, covers CoverGenerator, store RunStore, config *shared.Config, logger *log.Logger) *MixEngine {
	if config == nil {
		config = shared.DefaultConfig()
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &MixEngine{
		music:     music,
		mixer:     mixer,
		describer: describer,
		covers:    covers,
		store:     store,
		config:    config,
		logger:    logger,
		now:       time.Now,
	}
}

// SetTemperature overrides the sampling temperature passed to the recommender.
// Zero keeps the recommender's default.
func (e *MixEngine) SetTemperature(t float64) {
	e.temperature = t
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *MixEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// BuildPlan assembles and orders a mix without touching the listener's
// library. Artist resolution failures degrade to the mix's original order.
func (e *MixEngine) BuildPlan(ctx context.Context, progress chan<- ProgressUpdate) (*MixPlan, error) {
	if e.music == nil {
		return nil, fmt.Errorf("%w: music service not initialized", shared.ErrServiceUnavailable)
	}
	if e.mixer == nil {
		return nil, fmt.Errorf("%w: mixer not initialized", shared.ErrServiceUnavailable)
	}

	e.sendProgress(progress, authenticateUpdate(e.music.Name()))
	if err := e.music.Authenticate(ctx); err != nil {
		return nil, err
	}

	e.sendProgress(progress, fetchHistoryUpdate(1, 2, "top tracks"))
	topTracks, err := e.music.TopTracks(ctx, topTracksLimit, historyRange)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch top tracks: %v", shared.ErrAPIRequest, err)
	}

	e.sendProgress(progress, fetchHistoryUpdate(2, 2, "top artists"))
	topArtists, err := e.music.TopArtists(ctx, topArtistsLimit, historyRange)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch top artists: %v", shared.ErrAPIRequest, err)
	}

	now := e.now()
	sourceWeek := shared.WeekLabel(now)
	targetWeek := shared.WeekLabel(now.AddDate(0, 0, 7))

	in := discovery.MixInput{
		SourceTracks:      topTracks,
		SourceArtists:     artistsFromTracks(topTracks),
		CurrentTopArtists: topArtists,
		SourceWeek:        sourceWeek,
		TargetWeek:        targetWeek,
		Market:            e.config.Playlist.Market,
		Temperature:       e.temperature,
	}

	e.sendProgress(progress, buildMixUpdate(sourceWeek, targetWeek))
	result := e.mixer.Build(ctx, in)
	if result.Total() == 0 {
		return nil, fmt.Errorf("%w: no tracks survived mix assembly", shared.ErrEmptyMix)
	}

	e.sendProgress(progress, resolveArtistsUpdate(result.Total()))
	artistByURI, err := e.music.PrimaryArtistsByURI(ctx, result.URIs, e.config.Playlist.Market)
	if err != nil {
		// Artist spreading is an ordering refinement; a failed lookup
		// (commonly a missing scope) must not sink the whole run.
		if services.IsAuthError(err) {
			e.logger.Warn("artist lookup not authorized, keeping mix order", "err", err)
		} else {
			e.logger.Warn("artist lookup failed, keeping mix order", "err", err)
		}
		artistByURI = map[string]string{}
	}

	ordered := discovery.SpreadByArtist(result.URIs, artistByURI)
	collisions := discovery.AdjacentCollisions(ordered, artistByURI)
	e.sendProgress(progress, spreadTracksUpdate(collisions))

	plan := &MixPlan{
		SourceWeek:   sourceWeek,
		TargetWeek:   targetWeek,
		PlaylistName: e.config.PlaylistName(targetWeek),
		Input:        in,
		Result:       result,
		Ordered:      ordered,
		ArtistByURI:  artistByURI,
		Tracks:       annotate(ordered, result, artistByURI),
		Collisions:   collisions,
	}

	summary := plan.Summary()
	e.sendProgress(progress, mixBuiltUpdate(&summary))
	return plan, nil
}

// Publish creates the playlist for a plan, fills it, and decorates it with a
// description and cover art. Description, artwork, and history failures are
// logged and skipped; playlist creation and track insertion are fatal.
func (e *MixEngine) Publish(ctx context.Context, progress chan<- ProgressUpdate, plan *MixPlan) (*MixReport, error) {
	if plan == nil || len(plan.Ordered) == 0 {
		return nil, fmt.Errorf("%w: nothing to publish", shared.ErrEmptyMix)
	}

	description := fmt.Sprintf("Fresh picks for %s, built from your week of %s.", plan.TargetWeek, plan.SourceWeek)
	if e.describer != nil {
		e.sendProgress(progress, describeUpdate())
		generated, err := e.describer.Description(ctx, plan.Input)
		if err != nil {
			e.logger.Warn("description generation failed, using fallback", "err", err)
		} else {
			description = generated
		}
	}

	e.sendProgress(progress, createPlaylistUpdate(plan.PlaylistName))
	playlist, err := e.music.CreatePlaylist(ctx, plan.PlaylistName, description, e.config.Playlist.Public)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create playlist: %v", shared.ErrAPIRequest, err)
	}
	e.sendProgress(progress, playlistCreatedUpdate(playlist))

	e.sendProgress(progress, addTracksUpdate(len(plan.Ordered)))
	if err := e.music.AddTracks(ctx, playlist.ID, plan.Ordered); err != nil {
		return nil, fmt.Errorf("%w: failed to add tracks: %v", shared.ErrAPIRequest, err)
	}
	playlist.TrackCount = len(plan.Ordered)

	if e.covers != nil {
		e.sendProgress(progress, generateArtworkUpdate())
		if err := e.uploadCover(ctx, playlist.ID, plan.Input); err != nil {
			e.logger.Warn("cover art skipped", "err", err)
			e.sendProgress(progress, artworkSkippedUpdate(err))
		}
	}

	summary := plan.Summary()
	summary.Description = description
	summary.CreatedAt = e.now()

	report := &MixReport{
		Playlist: playlist,
		Summary:  summary,
		Tracks:   plan.Tracks,
	}

	if e.store != nil {
		e.sendProgress(progress, saveRunUpdate())
		runID, err := e.store.Save(ctx, summary, plan.Tracks)
		if err != nil {
			e.logger.Warn("failed to save run history", "err", err)
		} else {
			report.RunID = runID
		}
	}

	return report, nil
}

// Run builds a plan and publishes it in one pass.
func (e *MixEngine) Run(ctx context.Context, progress chan<- ProgressUpdate) (*MixReport, error) {
	plan, err := e.BuildPlan(ctx, progress)
	if err != nil {
		return nil, err
	}
	return e.Publish(ctx, progress, plan)
}

func (e *MixEngine) uploadCover(ctx context.Context, playlistID string, in discovery.MixInput) error {
	imageB64, err := e.covers.Generate(ctx, in)
	if err != nil {
		return err
	}
	return e.music.UploadImage(ctx, playlistID, imageB64)
}

// Summary condenses a plan into the persisted record shape.
func (p *MixPlan) Summary() models.MixSummary {
	return models.MixSummary{
		PlaylistName: p.PlaylistName,
		SourceWeek:   p.SourceWeek,
		TargetWeek:   p.TargetWeek,
		AICount:      p.Result.AICount,
		AnchorCount:  p.Result.AnchorCount,
		SearchCount:  p.Result.SearchCount,
	}
}

// annotate rebuilds the per-track slot annotations in the final order.
func annotate(ordered []string, result discovery.MixResult, artistByURI map[string]string) []models.MixTrack {
	slotByURI := make(map[string]models.SlotName, result.Total())
	for _, t := range result.Tracks() {
		slotByURI[t.URI] = t.Slot
	}

	tracks := make([]models.MixTrack, len(ordered))
	for i, uri := range ordered {
		tracks[i] = models.MixTrack{
			Position: i + 1,
			URI:      uri,
			ArtistID: artistByURI[uri],
			Slot:     slotByURI[uri],
		}
	}
	return tracks
}

// artistsFromTracks collects the distinct artists appearing on the tracks,
// preserving first-seen order.
func artistsFromTracks(tracks []models.Track) []models.Artist {
	var artists []models.Artist
	seen := make(map[string]struct{})
	for _, t := range tracks {
		for _, a := range t.Artists {
			key := a.ID
			if key == "" {
				key = a.Name
			}
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			artists = append(artists, a)
		}
	}
	return artists
}
