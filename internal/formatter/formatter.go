// package formatter exports weekly mix runs to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"weeklymix/internal/models"
)

// ExportToCSV converts a run to CSV format with columns: Position, URI, Artist, Slot
func ExportToCSV(summary models.MixSummary, tracks []models.MixTrack) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "URI", "Artist", "Slot"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range tracks {
		record := []string{
			strconv.Itoa(track.Position),
			track.URI,
			track.ArtistID,
			string(track.Slot),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a run to Markdown format with a slot breakdown table
func ExportToMarkdown(summary models.MixSummary, tracks []models.MixTrack) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", summary.PlaylistName))

	if summary.Description != "" {
		buf.WriteString(fmt.Sprintf("**Description**: %s\n\n", summary.Description))
	}

	buf.WriteString(fmt.Sprintf("**Week**: %s (from %s)\n", summary.TargetWeek, summary.SourceWeek))
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n\n", summary.Total()))

	buf.WriteString("| Slot | Tracks |\n|------|--------|\n")
	buf.WriteString(fmt.Sprintf("| AI picks | %d |\n", summary.AICount))
	buf.WriteString(fmt.Sprintf("| Anchors | %d |\n", summary.AnchorCount))
	buf.WriteString(fmt.Sprintf("| Search fills | %d |\n\n", summary.SearchCount))

	buf.WriteString("## Tracks\n\n")
	for _, track := range tracks {
		artistPart := ""
		if track.ArtistID != "" {
			artistPart = fmt.Sprintf(" (%s)", track.ArtistID)
		}
		buf.WriteString(fmt.Sprintf("%d. %s%s [%s]\n", track.Position, track.URI, artistPart, track.Slot))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a run to plain text format
func ExportToText(summary models.MixSummary, tracks []models.MixTrack) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", summary.PlaylistName))
	if summary.Description != "" {
		buf.WriteString(fmt.Sprintf("Description: %s\n", summary.Description))
	}
	buf.WriteString(fmt.Sprintf("Week: %s (from %s)\n", summary.TargetWeek, summary.SourceWeek))
	buf.WriteString(fmt.Sprintf("Tracks: %d (%d AI, %d anchor, %d search)\n\n", summary.Total(), summary.AICount, summary.AnchorCount, summary.SearchCount))

	for _, track := range tracks {
		buf.WriteString(fmt.Sprintf("%d. %s [%s]\n", track.Position, track.URI, track.Slot))
	}

	return buf.Bytes(), nil
}

// Export renders a run in the named format ("csv", "md", "txt").
func Export(format string, summary models.MixSummary, tracks []models.MixTrack) ([]byte, error) {
	switch strings.ToLower(format) {
	case "csv":
		return ExportToCSV(summary, tracks)
	case "md", "markdown":
		return ExportToMarkdown(summary, tracks)
	case "txt", "text":
		return ExportToText(summary, tracks)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// WriteFile writes exported data to a path, creating parent directories.
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}
