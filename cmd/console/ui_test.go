package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/dialogue-engine/pkg/dialogue"
	"github.com/jwebster45206/dialogue-engine/pkg/playback"
)

func testRegistry() dialogue.Registry {
	return dialogue.Registry{
		{Name: "Alice", ScriptPrefix: "alice", Format: "say <Alice> %s"},
		{Name: "Bob", ScriptPrefix: "bob", Format: "say <Bob> %s"},
	}
}

func newTestUI(t *testing.T, baseURL string) (ConsoleUI, *playback.ManualScheduler) {
	t.Helper()
	registry := testRegistry()
	alice, _ := registry.ByName("Alice")
	bob, _ := registry.ByName("Bob")

	commands := []dialogue.Command{
		dialogue.NewCommand(alice, 2, "Hello"),
		dialogue.NewCustomCommand("give @p bread"),
		dialogue.NewCommand(bob, 3, "Hi Alice"),
	}

	cfg := &ConsoleConfig{
		APIBaseURL: baseURL,
		Settings:   dialogue.ScriptSettings{Name: "meet", InitialSpan: 1, CharacterMultiplier: 4, MinimalSpan: 20, Increment: 1},
		Unit:       10 * time.Millisecond,
	}
	sched := playback.NewManualScheduler()
	player := playback.NewPlayer(playback.WithScheduler(sched), playback.WithUnit(cfg.Unit))

	ui := NewConsoleUI(cfg, http.DefaultClient, player, commands, nil)
	model, _ := ui.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return model.(ConsoleUI), sched
}

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(ui ConsoleUI, s string) (ConsoleUI, tea.Cmd) {
	model, cmd := ui.Update(key(s))
	return model.(ConsoleUI), cmd
}

// drain feeds every queued playback signal to the model.
func drain(ui ConsoleUI) ConsoleUI {
	for {
		select {
		case msg := <-ui.events:
			model, _ := ui.Update(msg)
			ui = model.(ConsoleUI)
		default:
			return ui
		}
	}
}

func TestConsole_PlayAll(t *testing.T) {
	ui, sched := newTestUI(t, "")

	ui, done := press(ui, "p")
	require.NotNil(t, done)
	ui = drain(ui)
	assert.True(t, ui.playing)
	assert.True(t, ui.visible)
	assert.Equal(t, -1, ui.current)

	sched.Advance(10 * time.Millisecond)
	ui = drain(ui)
	assert.Equal(t, 0, ui.current)
	assert.Equal(t, "Hello", ui.content)
	assert.Equal(t, 0, ui.playingIndex())
	assert.Contains(t, ui.renderPreview(), "Hello")

	sched.Advance(20 * time.Millisecond)
	ui = drain(ui)
	assert.Equal(t, 1, ui.current)
	assert.Equal(t, 2, ui.playingIndex(), "custom commands are skipped")

	sched.RunAll()
	ui = drain(ui)
	assert.False(t, ui.visible)

	model, _ := ui.Update(done())
	ui = model.(ConsoleUI)
	assert.False(t, ui.playing)
	assert.Equal(t, "Finished", ui.status)
}

func TestConsole_PlayFromSelected(t *testing.T) {
	ui, sched := newTestUI(t, "")

	ui, _ = press(ui, "down")
	assert.Equal(t, 1, ui.selected)
	ui, _ = press(ui, "enter")
	ui = drain(ui)

	// selection is a custom command, so playback resumes at the next line
	// without the initial wait
	sched.Advance(0)
	ui = drain(ui)
	assert.Equal(t, 1, ui.current)
	assert.Equal(t, "Hi Alice", ui.content)
	assert.Equal(t, 2, ui.playingIndex())
}

func TestConsole_StopAndRestart(t *testing.T) {
	ui, sched := newTestUI(t, "")

	ui, first := press(ui, "p")
	ui = drain(ui)
	oldSession := ui.sessionID

	ui, second := press(ui, "p")
	ui = drain(ui)
	assert.NotEqual(t, oldSession, ui.sessionID)

	// the first session's outcome no longer affects the model
	model, _ := ui.Update(first())
	ui = model.(ConsoleUI)
	assert.True(t, ui.playing)

	ui, _ = press(ui, "s")
	assert.Equal(t, 0, sched.Pending())
	model, _ = ui.Update(second())
	ui = model.(ConsoleUI)
	assert.False(t, ui.playing)
	assert.Equal(t, "Stopped", ui.status)
}

func TestConsole_CopyArtifact(t *testing.T) {
	ui, _ := newTestUI(t, "")

	var copied string
	ui.copyToClipboard = func(s string) error {
		copied = s
		return nil
	}
	ui, _ = press(ui, "c")
	require.NoError(t, ui.err)
	assert.True(t, strings.HasPrefix(copied, "scoreboard players add @s meet 1\n"))
	assert.Contains(t, copied, "give @p bread\n")

	ui.copyToClipboard = func(string) error { return errors.New("no clipboard") }
	ui, _ = press(ui, "c")
	assert.EqualError(t, ui.err, "no clipboard")

	ui.config.Settings.Name = ""
	ui, _ = press(ui, "c")
	assert.ErrorContains(t, ui.err, "cannot build artifact")
}

func TestConsole_SaveArtifact(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RequestURI()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("scoreboard players add @s meet 1\n"))
	}))
	t.Cleanup(server.Close)

	ui, _ := newTestUI(t, server.URL)
	ui, cmd := press(ui, "u")
	require.NotNil(t, cmd)

	model, _ := ui.Update(cmd())
	ui = model.(ConsoleUI)
	require.NoError(t, ui.err)
	assert.Equal(t, "/v1/artifacts/build?save=true", gotPath)
	assert.Contains(t, ui.status, "Artifact saved")
}

func TestConsole_QuitModal(t *testing.T) {
	ui, _ := newTestUI(t, "")

	ui, _ = press(ui, "q")
	assert.True(t, ui.showQuitModal)
	assert.Contains(t, ui.View(), "Quit?")

	ui, _ = press(ui, "n")
	assert.False(t, ui.showQuitModal)

	ui, _ = press(ui, "q")
	_, cmd := press(ui, "y")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
