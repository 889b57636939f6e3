// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for previewing a weekly mix before it
// is published:
//  1. [BuildView] : Watch the mix being assembled with live progress
//  2. [TrackListView] : Browse the ordered mix
//  3. [ConfirmView] : Confirm publishing
//  4. [PublishView] : Monitor publish progress
//  5. [ResultView] : Display the created playlist
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel from the MixEngine, providing non-blocking status reporting.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
