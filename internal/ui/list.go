package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"weeklymix/internal/models"
)

var _ list.Item = mixItem{}

// mixItem wraps [models.MixTrack] to implement [list.Item].
type mixItem struct {
	track models.MixTrack
}

func (i mixItem) FilterValue() string { return i.track.URI }

func (i mixItem) Title() string {
	return fmt.Sprintf("%d. %s", i.track.Position, i.track.URI)
}

func (i mixItem) Description() string {
	desc := slotLabel(i.track.Slot)
	if i.track.ArtistID != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.ArtistID)
	}
	return desc
}

func slotLabel(slot models.SlotName) string {
	switch slot {
	case models.SlotAI:
		return "AI pick"
	case models.SlotAnchor:
		return "anchor"
	case models.SlotSearch:
		return "search fill"
	default:
		return string(slot)
	}
}
