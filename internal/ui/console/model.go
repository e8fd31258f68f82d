// Package console provides the interactive soundboard view.
package console

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/soundcheck/internal/diag"
	"github.com/zjrosen/soundcheck/internal/pubsub"
	"github.com/zjrosen/soundcheck/internal/soundboard"
	"github.com/zjrosen/soundcheck/internal/ui/styles"
)

// volumeStep is the change applied by one volume key press.
const volumeStep = 0.1

// minLogRows is the smallest log section drawn on short terminals.
const minLogRows = 3

// Board is the subset of soundboard.Orchestrator the console drives.
type Board interface {
	Snapshot() []soundboard.AssetView
	Logs(query string) []diag.Entry
	LoadAll() error
	ReloadAll() error
	Reload(key string) error
	Play(key string) error
	Stop(key string) error
	StopAll() error
	SetVolume(key string, volume float64) error
	ClearLogs()
	Subscribe(ctx context.Context) <-chan pubsub.Event[soundboard.Event]
}

// eventMsg carries one soundboard event into the update loop.
type eventMsg struct {
	event soundboard.Event
}

// eventsClosedMsg is sent once the event stream ends.
type eventsClosedMsg struct{}

// Model holds the console view state.
type Model struct {
	board  Board
	events <-chan pubsub.Event[soundboard.Event]

	keys   keyMap
	help   help.Model
	filter textinput.Model

	assets []soundboard.AssetView
	logs   []diag.Entry
	cursor int
	notice string

	width  int
	height int
}

// New creates a console for board. events should come from board.Subscribe
// with a context that outlives the program.
func New(board Board, events <-chan pubsub.Event[soundboard.Event]) Model {
	filter := textinput.New()
	filter.Prompt = "/ "
	filter.Placeholder = "filter logs"
	filter.CharLimit = 64

	m := Model{
		board:  board,
		events: events,
		keys:   defaultKeys(),
		help:   help.New(),
		filter: filter,
	}
	return m.refresh()
}

// Init starts listening for soundboard events.
func (m Model) Init() tea.Cmd {
	return m.waitForEvent()
}

func (m Model) waitForEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	events := m.events
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg{event: ev.Payload}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case eventMsg:
		if msg.event.Kind == soundboard.PlaybackFailed {
			m.notice = msg.event.Message
		}
		return m.refresh(), m.waitForEvent()

	case eventsClosedMsg:
		m.events = nil
		return m, nil

	case tea.KeyMsg:
		if m.filter.Focused() {
			return m.updateFilter(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "enter":
		m.filter.Blur()
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	return m.refresh(), cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.assets)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Play):
		m = m.onSelected(m.board.Play)

	case key.Matches(msg, m.keys.Stop):
		m = m.onSelected(m.board.Stop)

	case key.Matches(msg, m.keys.StopAll):
		m = m.report(m.board.StopAll())

	case key.Matches(msg, m.keys.VolumeUp):
		m = m.nudgeVolume(volumeStep)

	case key.Matches(msg, m.keys.VolumeDown):
		m = m.nudgeVolume(-volumeStep)

	case key.Matches(msg, m.keys.Reload):
		m = m.onSelected(m.board.Reload)

	case key.Matches(msg, m.keys.ReloadAll):
		m = m.report(m.board.ReloadAll())

	case key.Matches(msg, m.keys.LoadAll):
		m = m.report(m.board.LoadAll())

	case key.Matches(msg, m.keys.ClearLogs):
		m.board.ClearLogs()

	case key.Matches(msg, m.keys.Filter):
		return m, m.filter.Focus()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case msg.String() == "esc":
		m.notice = ""
		if m.filter.Value() != "" {
			m.filter.SetValue("")
		}
	}
	return m.refresh(), nil
}

// Selected returns the asset under the cursor.
func (m Model) Selected() (soundboard.AssetView, bool) {
	if m.cursor < 0 || m.cursor >= len(m.assets) {
		return soundboard.AssetView{}, false
	}
	return m.assets[m.cursor], true
}

func (m Model) onSelected(fn func(key string) error) Model {
	a, ok := m.Selected()
	if !ok {
		return m
	}
	return m.report(fn(a.Descriptor.Key))
}

func (m Model) report(err error) Model {
	if err != nil {
		m.notice = err.Error()
	} else {
		m.notice = ""
	}
	return m
}

func (m Model) nudgeVolume(delta float64) Model {
	a, ok := m.Selected()
	if !ok || a.LoadState != soundboard.Loaded {
		return m
	}
	v := math.Round((a.Playback.Volume+delta)*10) / 10
	v = min(max(v, 0), 1)
	return m.onSelected(func(key string) error { return m.board.SetVolume(key, v) })
}

func (m Model) refresh() Model {
	m.assets = m.board.Snapshot()
	m.logs = m.board.Logs(m.filter.Value())
	if m.cursor >= len(m.assets) {
		m.cursor = max(len(m.assets)-1, 0)
	}
	return m
}

// View renders the console.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	sounds := m.renderSounds()
	footer := m.renderFooter()

	logRows := m.height - lipgloss.Height(sounds) - lipgloss.Height(footer) - 2
	logs := m.renderLogs(max(logRows, minLogRows))

	return lipgloss.JoinVertical(lipgloss.Left, sounds, logs, footer)
}

func (m Model) renderSounds() string {
	keyWidth := 0
	loaded := 0
	for _, a := range m.assets {
		keyWidth = max(keyWidth, lipgloss.Width(a.Descriptor.Key))
		if a.LoadState == soundboard.Loaded {
			loaded++
		}
	}

	rows := make([]string, 0, len(m.assets))
	for i, a := range m.assets {
		marker := "  "
		if i == m.cursor {
			marker = styles.PlayingStyle.Render("> ")
		}
		rows = append(rows, marker+styles.RenderAssetRow(a, keyWidth)+styles.MutedStyle.Render("  "+a.Descriptor.DisplayName))
	}

	summary := fmt.Sprintf("%d/%d loaded", loaded, len(m.assets))
	return styles.RenderSection(strings.Join(rows, "\n"), "Sounds", summary, m.width, styles.TitleColor)
}

func (m Model) renderLogs(rows int) string {
	var lines []string
	for _, e := range m.logs {
		if len(lines) == rows {
			break
		}
		lines = append(lines, styles.RenderEntry(e))
	}
	if len(lines) == 0 {
		lines = append(lines, styles.MutedStyle.Render("No log entries"))
	}

	summary := ""
	if q := m.filter.Value(); q != "" {
		summary = fmt.Sprintf("%s (%d)", q, len(m.logs))
	}
	return styles.RenderSection(strings.Join(lines, "\n"), "Logs", summary, m.width, styles.TitleColor)
}

func (m Model) renderFooter() string {
	var parts []string
	if m.filter.Focused() || m.filter.Value() != "" {
		parts = append(parts, m.filter.View())
	}
	if m.notice != "" {
		parts = append(parts, styles.ErrorStyle.Render(m.notice))
	}
	parts = append(parts, m.help.View(m.keys))
	return strings.Join(parts, "\n")
}

// SetSize updates the view dimensions.
func (m Model) SetSize(width, height int) Model {
	m.width = width
	m.height = height
	m.help.Width = width
	return m
}
