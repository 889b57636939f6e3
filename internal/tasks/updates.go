package tasks

import (
	"fmt"

	"weeklymix/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Authenticate Phase = iota
	FetchHistory
	BuildMix
	ResolveArtists
	SpreadTracks
	Describe
	CreatePlaylist
	AddTracks
	GenerateArtwork
	SaveRun
)

func (p Phase) String() string {
	switch p {
	case Authenticate:
		return "authenticate"
	case FetchHistory:
		return "fetch_history"
	case BuildMix:
		return "build_mix"
	case ResolveArtists:
		return "resolve_artists"
	case SpreadTracks:
		return "spread_tracks"
	case Describe:
		return "describe"
	case CreatePlaylist:
		return "create_playlist"
	case AddTracks:
		return "add_tracks"
	case GenerateArtwork:
		return "generate_artwork"
	case SaveRun:
		return "save_run"
	default:
		return ""
	}
}

func authenticateUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Authenticate,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Authenticating with %s...", name),
	}
}

func fetchHistoryUpdate(step, total int, what string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchHistory,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching %s...", what),
	}
}

func buildMixUpdate(sourceWeek, targetWeek string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BuildMix,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Building discovery mix %s -> %s...", sourceWeek, targetWeek),
	}
}

func mixBuiltUpdate(result *models.MixSummary) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BuildMix,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Mix assembled: %d tracks (%d AI, %d anchor, %d search)", result.Total(), result.AICount, result.AnchorCount, result.SearchCount),
		Data:    result,
	}
}

func resolveArtistsUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveArtists,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Resolving primary artists for %d tracks...", total),
	}
}

func spreadTracksUpdate(collisions int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SpreadTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Reordered mix (%d adjacent same-artist pairs)", collisions),
	}
}

func describeUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   Describe,
		Step:    1,
		Total:   1,
		Message: "Writing playlist description...",
	}
}

func createPlaylistUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Creating playlist %q...", name),
	}
}

func playlistCreatedUpdate(pl *models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created: %s (ID: %s)", pl.Name, pl.ID),
		Data:    pl,
	}
}

func addTracksUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Adding %d tracks...", total),
	}
}

func generateArtworkUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   GenerateArtwork,
		Step:    1,
		Total:   1,
		Message: "Generating cover art...",
	}
}

func artworkSkippedUpdate(err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   GenerateArtwork,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Skipping cover art: %v", err),
	}
}

func saveRunUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   SaveRun,
		Step:    1,
		Total:   1,
		Message: "Saving run to history...",
	}
}
