package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/dialogue-engine/pkg/artifact"
	"github.com/jwebster45206/dialogue-engine/pkg/dialogue"
	"github.com/jwebster45206/dialogue-engine/pkg/playback"
)

// ConsoleUI is the BubbleTea model that previews a dialogue script.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config *ConsoleConfig
	client *http.Client
	player *playback.Player
	events chan tea.Msg

	commands []dialogue.Command
	diags    []dialogue.Diagnostic
	playable []int // index into commands of each playable command

	listViewport    viewport.Model
	previewViewport viewport.Model
	selected        int

	// Playback state, driven by messages of the current session only
	sessionID uuid.UUID
	playing   bool
	visible   bool
	current   int
	content   string

	status string
	err    error

	ready         bool
	width         int
	height        int
	showQuitModal bool

	copyToClipboard func(string) error
}

type visibilityMsg struct {
	session uuid.UUID
	visible bool
}

type indexMsg struct {
	session uuid.UUID
	index   int
}

type contentMsg struct {
	session uuid.UUID
	content string
}

type finishedMsg struct {
	session   uuid.UUID
	cancelled bool
}

type savedMsg struct {
	err error
}

var (
	listPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingLeft(2).
			PaddingRight(1)

	previewPanelStyle = lipgloss.NewStyle().
				PaddingTop(1).
				PaddingLeft(1).
				PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	customStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	playingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	selectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client, player *playback.Player, commands []dialogue.Command, diags []dialogue.Diagnostic) ConsoleUI {
	var playable []int
	for i, c := range commands {
		if !c.IsCustom {
			playable = append(playable, i)
		}
	}

	listVp := viewport.New(50, 20)
	listVp.MouseWheelEnabled = true

	return ConsoleUI{
		config:          cfg,
		client:          client,
		player:          player,
		events:          make(chan tea.Msg, 64),
		commands:        commands,
		diags:           diags,
		playable:        playable,
		listViewport:    listVp,
		previewViewport: viewport.New(30, 20),
		current:         -1,
		copyToClipboard: clipboard.WriteAll,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return waitForEvent(m.events)
}

// waitForEvent delivers the next playback signal to Update.
func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.ready = true
		m.refresh()
		return m, nil

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.listViewport, cmd = m.listViewport.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)

	case visibilityMsg:
		if msg.session == m.sessionID {
			m.visible = msg.visible
			m.refresh()
		}
		return m, waitForEvent(m.events)

	case indexMsg:
		if msg.session == m.sessionID {
			m.current = msg.index
			m.refresh()
		}
		return m, waitForEvent(m.events)

	case contentMsg:
		if msg.session == m.sessionID {
			m.content = msg.content
			m.refresh()
		}
		return m, waitForEvent(m.events)

	case finishedMsg:
		if msg.session == m.sessionID {
			m.playing = false
			if msg.cancelled {
				m.visible = false
				m.status = "Stopped"
			} else {
				m.status = "Finished"
			}
			m.refresh()
		}
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.status = "Artifact saved to " + m.config.APIBaseURL
		}
		m.refresh()
		return m, nil
	}

	return m, nil
}

func (m ConsoleUI) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc", "q":
		m.showQuitModal = true
		return m, nil
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.commands)-1 {
			m.selected++
		}
	case "p":
		return m.play(-1)
	case "r", "enter":
		return m.play(m.selected)
	case "s":
		m.player.Stop()
	case "c":
		text, err := m.buildArtifact()
		if err == nil {
			err = m.copyToClipboard(text)
		}
		if err != nil {
			m.err = err
		} else {
			m.err = nil
			m.status = "Artifact copied to clipboard"
		}
	case "u":
		if err := m.config.Settings.Validate(); err != nil {
			m.err = err
			break
		}
		m.status = "Saving artifact..."
		m.refresh()
		return m, m.saveArtifact()
	}

	m.refresh()
	return m, nil
}

// play starts a preview at the command index from, or at the start when from
// is negative. A custom command starts the range at the next playable one.
func (m ConsoleUI) play(from int) (tea.Model, tea.Cmd) {
	id := uuid.New()
	events := m.events
	cb := playback.Callbacks{
		OnVisibilityChange: func(v bool) { events <- visibilityMsg{id, v} },
		OnIndexChange:      func(i int) { events <- indexMsg{id, i} },
		OnContentChange:    func(c string) { events <- contentMsg{id, c} },
	}

	opts := []playback.Option{playback.WithSessionID(id)}
	if from >= 0 {
		for _, i := range m.playable {
			if i >= from {
				opts = append(opts, playback.WithRange(m.commands[i].ID, uuid.Nil))
				break
			}
		}
	}

	m.sessionID = id
	m.playing = true
	m.current = -1
	m.content = ""
	m.status = "Playing"
	m.err = nil

	session := m.player.Play(m.commands, m.config.Settings.InitialSpan, cb, opts...)
	m.refresh()

	return m, func() tea.Msg {
		<-session.Done()
		return finishedMsg{session: id, cancelled: session.Cancelled()}
	}
}

func (m ConsoleUI) buildArtifact() (string, error) {
	if err := m.config.Settings.Validate(); err != nil {
		return "", fmt.Errorf("cannot build artifact: %w", err)
	}
	return artifact.Build(m.commands, m.config.Settings), nil
}

func (m ConsoleUI) saveArtifact() tea.Cmd {
	return func() tea.Msg {
		_, err := saveArtifact(m.client, m.config.APIBaseURL, m.commands, m.config.Settings)
		return savedMsg{err}
	}
}

func (m *ConsoleUI) resize() {
	listWidth := int(float64(m.width)*0.6) - 3
	previewWidth := m.width - listWidth - 6

	m.listViewport.Width = listWidth
	m.listViewport.Height = m.height - 5
	m.previewViewport.Width = previewWidth
	m.previewViewport.Height = m.height - 3
}

// refresh rebuilds both panels from the model state.
func (m *ConsoleUI) refresh() {
	m.listViewport.SetContent(m.renderList())
	m.previewViewport.SetContent(m.renderPreview())

	// keep the selection on screen
	if m.selected < m.listViewport.YOffset {
		m.listViewport.SetYOffset(m.selected)
	} else if h := m.listViewport.Height; h > 0 && m.selected >= m.listViewport.YOffset+h {
		m.listViewport.SetYOffset(m.selected - h + 1)
	}
}

// playingIndex returns the commands index of the command on screen, or -1.
func (m ConsoleUI) playingIndex() int {
	if !m.playing || m.current < 0 || m.current >= len(m.playable) {
		return -1
	}
	return m.playable[m.current]
}

func (m ConsoleUI) renderList() string {
	if len(m.commands) == 0 {
		return promptStyle.Render("No commands. Check the script and speakers.")
	}

	width := m.listViewport.Width
	playing := m.playingIndex()

	var b strings.Builder
	for i, c := range m.commands {
		marker := "  "
		if i == playing {
			marker = "▶ "
		}

		var who string
		if c.IsCustom {
			who = "custom"
		} else {
			who = c.UserName
		}
		first, _, _ := strings.Cut(c.Content, "\n")
		line := fmt.Sprintf("%s%3d %-10s %4d  %s", marker, i+1, who, c.Span, first)
		if width > 0 {
			line = truncate.StringWithTail(line, uint(width), "…")
		}

		switch {
		case i == m.selected:
			line = selectedItemStyle.Render(line)
		case i == playing:
			line = playingStyle.Render(line)
		case c.IsCustom:
			line = customStyle.Render(line)
		}
		b.WriteString(line)
		if i < len(m.commands)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m ConsoleUI) renderPreview() string {
	width := m.previewViewport.Width
	if width < 10 {
		width = 10
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("PREVIEW") + "\n\n")

	switch {
	case m.playing && m.current >= 0:
		c := m.commands[m.playable[m.current]]
		b.WriteString(fmt.Sprintf("Line %d/%d\n\n", m.current+1, len(m.playable)))
		if c.User != nil {
			b.WriteString(speakerStyle.Render(c.User.Name+":") + "\n")
		}
		b.WriteString(wordwrap.String(m.content, width) + "\n\n")
	case m.playing && m.visible:
		b.WriteString(loadingStyle.Render("Waiting for the first line...") + "\n\n")
	default:
		b.WriteString(promptStyle.Render("Hidden") + "\n\n")
	}

	b.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")

	settings := m.config.Settings
	name := settings.Name
	if name == "" {
		name = "(unnamed)"
	}
	ticks := settings.InitialSpan + artifact.Duration(m.commands)
	b.WriteString(fmt.Sprintf("Script: %s\n", name))
	b.WriteString(fmt.Sprintf("Commands: %d (%d playable)\n", len(m.commands), len(m.playable)))
	b.WriteString(fmt.Sprintf("Duration: %d ticks (%s)\n\n", ticks, (time.Duration(ticks) * m.config.Unit).Round(time.Millisecond)))

	if len(m.diags) > 0 {
		b.WriteString(titleStyle.Render("Diagnostics") + "\n")
		for _, d := range m.diags {
			b.WriteString(errorStyle.Render(wordwrap.String(fmt.Sprintf("• line %d: %s", d.Line, d.Text), width)) + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Commands:\n")
	b.WriteString("• ↑/↓: Select\n")
	b.WriteString("• p: Play all\n")
	b.WriteString("• r/Enter: Play from selected\n")
	b.WriteString("• s: Stop\n")
	b.WriteString("• c: Copy artifact\n")
	b.WriteString("• u: Save artifact to API\n")
	b.WriteString("• q: Quit\n")

	return b.String()
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			m.player.Stop()
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y", "q":
				m.player.Stop()
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
			}
		}

	case visibilityMsg, indexMsg, contentMsg:
		// keep draining playback signals behind the modal
		m.showQuitModal = false
		model, cmd := m.Update(msg)
		ui := model.(ConsoleUI)
		ui.showQuitModal = true
		return ui, cmd

	case finishedMsg, savedMsg:
		m.showQuitModal = false
		model, cmd := m.Update(msg)
		ui := model.(ConsoleUI)
		ui.showQuitModal = true
		return ui, cmd
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to quit the preview?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	// Create the modal
	modal := modalStyle.Width(50).Render(content.String())

	// Center the modal
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	listWidth := m.listViewport.Width
	previewWidth := m.previewViewport.Width

	var status string
	switch {
	case m.err != nil:
		status = errorStyle.Render("Error: " + m.err.Error())
	case m.status != "":
		status = promptStyle.Render(m.status)
	}

	listPanel := listPanelStyle.Width(listWidth + 3).Height(m.height - 1).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("DIALOGUE ENGINE"),
			separatorStyle.Render(strings.Repeat("─", listWidth)),
			m.listViewport.View(),
			status,
		),
	)

	previewPanel := previewPanelStyle.Width(previewWidth + 3).Height(m.height - 1).Render(
		m.previewViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, listPanel, previewPanel)
}
