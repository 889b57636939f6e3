package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"weeklymix/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	BuildView ViewState = iota
	TrackListView
	ConfirmView
	PublishView
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	engine       *tasks.MixEngine
	width        int
	height       int
	trackList    list.Model
	plan         *tasks.MixPlan
	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	report       *tasks.MixReport
	err          error
	help         help.Model
	keys         keyMap
}

// keyMap defines the key bindings for the TUI.
type keyMap struct {
	up    key.Binding
	down  key.Binding
	enter key.Binding
	back  key.Binding
	yes   key.Binding
	no    key.Binding
	quit  key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "publish"),
		),
		back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		yes: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "yes"),
		),
		no: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "no"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter},
		{k.back, k.yes, k.no, k.quit},
	}
}

type planReadyMsg struct {
	plan *tasks.MixPlan
	err  error
}

type progressUpdateMsg tasks.ProgressUpdate

type publishCompleteMsg struct {
	report *tasks.MixReport
	err    error
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, engine *tasks.MixEngine) *Model {
	return &Model{
		ctx:    ctx,
		view:   BuildView,
		engine: engine,
		help:   help.New(),
		keys:   newKeyMap(),
	}
}

// Init kicks off mix assembly.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.startBuild(), m.waitForProgress())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.trackList.Width() == 0 {
			m.trackList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case TrackListView:
			return m.handleTrackListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		default:
			if msg.String() == "q" || msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
		}

	case planReadyMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.plan = msg.plan
		items := make([]list.Item, len(msg.plan.Tracks))
		for i, track := range msg.plan.Tracks {
			items[i] = mixItem{track: track}
		}
		m.trackList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.trackList.Title = fmt.Sprintf("%s (%d tracks)", msg.plan.PlaylistName, len(msg.plan.Tracks))
		m.trackList.SetSize(m.width-4, m.height-8)
		m.view = TrackListView
		return m, nil

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case publishCompleteMsg:
		m.report = msg.report
		m.err = msg.err
		m.view = ResultView
		if m.progressChan != nil {
			close(m.progressChan)
			m.progressChan = nil
		}
		return m, nil
	}

	if m.view == TrackListView {
		var cmd tea.Cmd
		m.trackList, cmd = m.trackList.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case BuildView:
		return m.renderBuild()
	case TrackListView:
		return m.renderTrackList()
	case ConfirmView:
		return m.renderConfirm()
	case PublishView:
		return m.renderPublish()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

// Err returns the terminal error, if any, for the CLI to report after the
// program exits.
func (m *Model) Err() error { return m.err }

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "enter":
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "n", "esc":
		m.view = TrackListView
		return m, nil
	case "y":
		m.view = PublishView
		return m, tea.Batch(m.startPublish(), m.waitForProgress())
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "enter", "esc":
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) startBuild() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)

	return func() tea.Msg {
		plan, err := m.engine.BuildPlan(m.ctx, m.progressChan)
		return planReadyMsg{plan: plan, err: err}
	}
}

func (m *Model) startPublish() tea.Cmd {
	return func() tea.Msg {
		report, err := m.engine.Publish(m.ctx, m.progressChan, m.plan)
		return publishCompleteMsg{report: report, err: err}
	}
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.progressChan == nil {
			return nil
		}
		update, ok := <-m.progressChan
		if !ok {
			return nil
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderBuild() string {
	title := styles.title.Render("Building Weekly Mix")
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.progress.Message, styles.help.Render("q to quit"))
}

func (m *Model) renderTrackList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.trackList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Publish '%s' to Spotify?", m.plan.PlaylistName))
	info := fmt.Sprintf(
		"\nTracks: %d (%d AI, %d anchor, %d search)\nWeek: %s\n",
		len(m.plan.Tracks),
		m.plan.Result.AICount,
		m.plan.Result.AnchorCount,
		m.plan.Result.SearchCount,
		m.plan.TargetWeek,
	)

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderPublish() string {
	title := styles.title.Render("Publishing Playlist")

	var phase string
	switch m.progress.Phase {
	case tasks.Describe:
		phase = "Writing description..."
	case tasks.CreatePlaylist:
		phase = "Creating playlist..."
	case tasks.AddTracks:
		phase = "Adding tracks..."
	case tasks.GenerateArtwork:
		phase = "Generating cover art..."
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Publish failed: %v\n\nPress q to quit", m.err))
	}

	if m.report == nil || m.report.Playlist == nil {
		return styles.err.Render("No result available\n\nPress q to quit")
	}

	title := styles.ok.Render("✓ Playlist Published!")
	info := fmt.Sprintf(
		"\nName: %s\nTracks: %d\nWeek: %s",
		m.report.Playlist.Name,
		m.report.Summary.Total(),
		m.report.Summary.TargetWeek,
	)
	if m.report.Playlist.URL != "" {
		info += fmt.Sprintf("\nURL: %s", m.report.Playlist.URL)
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}
