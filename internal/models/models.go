// package models defines the data model shared by the weeklymix packages
package models

import "time"

// Track represents a track as returned by the music service.
type Track struct {
	URI        string   `json:"uri"`
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []Artist `json:"artists"`
	Album      string   `json:"album,omitempty"`
	DurationMS int      `json:"duration_ms,omitempty"`
	Popularity int      `json:"popularity,omitempty"`
}

// PrimaryArtist returns the identifier of the track's first artist, falling
// back to the artist name when the service omitted the ID. Returns "" when
// the track carries no artists at all.
func (t Track) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	if t.Artists[0].ID != "" {
		return t.Artists[0].ID
	}
	return t.Artists[0].Name
}

// User represents the authenticated listener.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Country     string `json:"country,omitempty"`
}

// Artist represents an artist as returned by the music service.
type Artist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres,omitempty"`
	URI    string   `json:"uri,omitempty"`
}

// Playlist represents a playlist owned by the listener.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
	URL         string `json:"url,omitempty"`
	TrackCount  int    `json:"track_count,omitempty"`
}

// SlotName identifies which discovery slot contributed a track.
type SlotName string

const (
	SlotAI     SlotName = "ai"
	SlotAnchor SlotName = "anchor"
	SlotSearch SlotName = "search"
)

// MixTrack is one entry of a finished discovery mix, annotated for display
// and persistence.
type MixTrack struct {
	Position int      `json:"position"`
	URI      string   `json:"uri"`
	ArtistID string   `json:"artist_id,omitempty"`
	Slot     SlotName `json:"slot"`
}

// MixSummary describes a finished weekly mix.
type MixSummary struct {
	PlaylistName string    `json:"playlist_name"`
	Description  string    `json:"description,omitempty"`
	SourceWeek   string    `json:"source_week"`
	TargetWeek   string    `json:"target_week"`
	AICount      int       `json:"ai_count"`
	AnchorCount  int       `json:"anchor_count"`
	SearchCount  int       `json:"search_count"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

// Total returns the number of tracks across all slots.
func (s MixSummary) Total() int {
	return s.AICount + s.AnchorCount + s.SearchCount
}
