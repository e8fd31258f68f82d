package console

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/soundcheck/internal/backend/backendtest"
	"github.com/zjrosen/soundcheck/internal/catalog"
	"github.com/zjrosen/soundcheck/internal/pubsub"
	"github.com/zjrosen/soundcheck/internal/soundboard"
)

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func newTestBoard(t *testing.T) (*soundboard.Orchestrator, *backendtest.Fake) {
	t.Helper()
	cat, err := catalog.New(
		catalog.AssetDescriptor{Key: "menu", ResourceName: "menu.wav", DisplayName: "Menu Music", Category: catalog.Music},
		catalog.AssetDescriptor{Key: "click", ResourceName: "click.wav", DisplayName: "Click", Category: catalog.Effect},
	)
	require.NoError(t, err)

	fake := backendtest.New()
	board, err := soundboard.New(soundboard.Config{Catalog: cat, Backend: fake})
	require.NoError(t, err)
	t.Cleanup(func() { _ = board.Shutdown() })
	return board, fake
}

func settle(t *testing.T, board *soundboard.Orchestrator) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, board.AwaitSettled(ctx))
}

// press sends keys in order and returns the refreshed model.
func press(t *testing.T, m Model, keys ...tea.KeyMsg) Model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(k)
		m = next.(Model)
	}
	return m
}

func loadedModel(t *testing.T) (Model, *soundboard.Orchestrator, *backendtest.Fake) {
	t.Helper()
	board, fake := newTestBoard(t)
	m := New(board, nil).SetSize(100, 30)
	m = press(t, m, runeKey('l'))
	settle(t, board)
	return m.refresh(), board, fake
}

func TestConsole_ViewEmptyBeforeSize(t *testing.T) {
	board, _ := newTestBoard(t)
	assert.Equal(t, "", New(board, nil).View())
}

func TestConsole_InitialView(t *testing.T) {
	board, _ := newTestBoard(t)
	view := ansi.Strip(New(board, nil).SetSize(100, 30).View())

	assert.Contains(t, view, "Sounds")
	assert.Contains(t, view, "0/2 loaded")
	assert.Contains(t, view, "⭕ Not loaded")
	assert.Contains(t, view, "Menu Music")
	assert.Contains(t, view, "No log entries")
}

func TestConsole_LoadAllKey(t *testing.T) {
	m, _, _ := loadedModel(t)
	view := ansi.Strip(m.View())

	assert.Contains(t, view, "2/2 loaded")
	assert.Contains(t, view, "✓ Ready")
	assert.Contains(t, view, "Loading all sound files...")
	assert.Contains(t, view, "Successfully loaded menu.wav")
}

func TestConsole_CursorMovement(t *testing.T) {
	m, _, _ := loadedModel(t)

	a, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "menu", a.Descriptor.Key)

	m = press(t, m, runeKey('j'))
	a, _ = m.Selected()
	assert.Equal(t, "click", a.Descriptor.Key)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	a, _ = m.Selected()
	assert.Equal(t, "click", a.Descriptor.Key, "cursor stops at the last row")

	m = press(t, m, runeKey('k'), runeKey('k'))
	a, _ = m.Selected()
	assert.Equal(t, "menu", a.Descriptor.Key, "cursor stops at the first row")
}

func TestConsole_PlayAndStop(t *testing.T) {
	m, board, fake := loadedModel(t)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, fake.IsPlaying("menu.wav"))
	assert.Contains(t, ansi.Strip(m.View()), "▶ playing")

	m = press(t, m, runeKey('s'))
	assert.False(t, fake.IsPlaying("menu.wav"))
	v, _ := board.Asset("menu")
	assert.False(t, v.Playback.Playing)
	assert.Empty(t, m.notice)
}

func TestConsole_StopAll(t *testing.T) {
	m, _, fake := loadedModel(t)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter}, runeKey('j'), tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, fake.IsPlaying("menu.wav"))
	require.True(t, fake.IsPlaying("click.wav"))

	m = press(t, m, runeKey('S'))
	assert.False(t, fake.IsPlaying("menu.wav"))
	assert.False(t, fake.IsPlaying("click.wav"))
	assert.Contains(t, ansi.Strip(m.View()), "Stopped all sounds")
}

func TestConsole_PlayNotLoadedShowsNotice(t *testing.T) {
	board, fake := newTestBoard(t)
	m := New(board, nil).SetSize(100, 30)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, 0, fake.CallCount(backendtest.OpPlay, ""))
	assert.Equal(t, "sound not loaded: menu", m.notice)

	view := ansi.Strip(m.View())
	assert.Contains(t, view, "sound not loaded: menu")
	assert.Contains(t, view, "Cannot play Menu Music: Sound not loaded")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Empty(t, m.notice)
}

func TestConsole_VolumeKeys(t *testing.T) {
	m, board, fake := loadedModel(t)

	m = press(t, m, runeKey('-'), runeKey('-'))
	v, _ := board.Asset("menu")
	assert.InDelta(t, 0.8, v.Playback.Volume, 1e-9)
	got, ok := fake.Volume("menu.wav")
	require.True(t, ok)
	assert.InDelta(t, 0.8, got, 1e-9)
	assert.Contains(t, ansi.Strip(m.View()), "vol 80%")

	m = press(t, m, runeKey('+'), runeKey('+'), runeKey('+'), runeKey('+'))
	v, _ = board.Asset("menu")
	assert.InDelta(t, 1.0, v.Playback.Volume, 1e-9, "volume clamps at 100%")
	assert.Empty(t, m.notice)

	for range 12 {
		m = press(t, m, runeKey('-'))
	}
	v, _ = board.Asset("menu")
	assert.InDelta(t, 0.0, v.Playback.Volume, 1e-9, "volume clamps at 0%")
}

func TestConsole_VolumeIgnoredWhenNotLoaded(t *testing.T) {
	board, fake := newTestBoard(t)
	m := New(board, nil).SetSize(100, 30)

	m = press(t, m, runeKey('-'))
	assert.Equal(t, 0, fake.CallCount(backendtest.OpVolume, ""))
	assert.Empty(t, m.notice)
}

func TestConsole_ReloadSelected(t *testing.T) {
	m, board, fake := loadedModel(t)

	m = press(t, m, runeKey('r'))
	settle(t, board)
	m = m.refresh()

	assert.Equal(t, 2, fake.CallCount(backendtest.OpLoad, "menu.wav"))
	assert.Equal(t, 1, fake.CallCount(backendtest.OpLoad, "click.wav"))
	assert.Contains(t, ansi.Strip(m.View()), "2/2 loaded")
}

func TestConsole_ReloadAll(t *testing.T) {
	m, board, fake := loadedModel(t)

	m = press(t, m, runeKey('R'))
	settle(t, board)
	m = m.refresh()

	assert.Equal(t, 2, fake.CallCount(backendtest.OpLoad, "menu.wav"))
	assert.Equal(t, 2, fake.CallCount(backendtest.OpLoad, "click.wav"))
	assert.Contains(t, ansi.Strip(m.View()), "Reloading all sounds...")
}

func TestConsole_FilterLogs(t *testing.T) {
	m, _, _ := loadedModel(t)
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	m = press(t, m, runeKey('/'))
	require.True(t, m.filter.Focused())

	// Keys go to the filter while it has focus.
	for _, r := range "PLAYING" {
		m = press(t, m, runeKey(r))
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.False(t, m.filter.Focused())
	assert.Equal(t, "PLAYING", m.filter.Value())

	require.NotEmpty(t, m.logs)
	for _, e := range m.logs {
		assert.Contains(t, strings.ToLower(e.Message), "playing")
	}
	view := ansi.Strip(m.View())
	assert.Contains(t, view, "Playing Menu Music...")
	assert.NotContains(t, view, "Successfully loaded")

	// esc outside the filter clears it.
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Empty(t, m.filter.Value())
	assert.Contains(t, ansi.Strip(m.View()), "Successfully loaded")
}

func TestConsole_ClearLogs(t *testing.T) {
	m, board, _ := loadedModel(t)

	m = press(t, m, runeKey('c'))
	require.Len(t, board.Logs(""), 1)
	require.Len(t, m.logs, 1)
	assert.Equal(t, "Logs cleared", m.logs[0].Message)
}

func TestConsole_PlaybackFailedEvent(t *testing.T) {
	board, _ := newTestBoard(t)
	m := New(board, nil).SetSize(100, 30)

	next, _ := m.Update(eventMsg{event: soundboard.Event{
		Kind:    soundboard.PlaybackFailed,
		Key:     "click",
		Message: "Failed to play Click",
	}})
	m = next.(Model)
	assert.Equal(t, "Failed to play Click", m.notice)
	assert.Contains(t, ansi.Strip(m.View()), "Failed to play Click")
}

func TestConsole_EventsClosed(t *testing.T) {
	board, _ := newTestBoard(t)
	events := make(chan pubsub.Event[soundboard.Event])
	close(events)

	m := New(board, events)
	msg := m.Init()()
	_, ok := msg.(eventsClosedMsg)
	require.True(t, ok)

	next, cmd := m.Update(msg)
	assert.Nil(t, cmd)
	assert.Nil(t, next.(Model).Init(), "no listener after the stream ends")
}

func TestConsole_HelpToggle(t *testing.T) {
	board, _ := newTestBoard(t)
	m := New(board, nil).SetSize(120, 30)

	assert.NotContains(t, ansi.Strip(m.View()), "reload all")
	m = press(t, m, runeKey('?'))
	assert.Contains(t, ansi.Strip(m.View()), "reload all")
}

func TestConsole_QuitKeys(t *testing.T) {
	tests := []struct {
		name string
		key  tea.KeyMsg
	}{
		{"q key", runeKey('q')},
		{"ctrl+c", tea.KeyMsg{Type: tea.KeyCtrlC}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			board, _ := newTestBoard(t)
			_, cmd := New(board, nil).SetSize(80, 24).Update(tt.key)
			require.NotNil(t, cmd, "expected quit command")
			_, isQuit := cmd().(tea.QuitMsg)
			assert.True(t, isQuit, "expected tea.QuitMsg")
		})
	}
}

func TestConsole_Program(t *testing.T) {
	board, _ := newTestBoard(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tm := teatest.NewTestModel(t, New(board, board.Subscribe(ctx)), teatest.WithInitialTermSize(100, 30))

	tm.Send(runeKey('l'))
	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(ansi.Strip(string(out)), "2/2 loaded")
	}, teatest.WithDuration(3*time.Second))

	tm.Send(runeKey('q'))
	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))
}
