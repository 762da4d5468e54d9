package ui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/soundscout/soundscout/api"
	"github.com/soundscout/soundscout/internal/session"
	"github.com/soundscout/soundscout/pkg/events"
)

// inputMode selects what the prompt line means
type inputMode int

const (
	modeSearch inputMode = iota // line is a search query
	modeBrowse                  // line is a browse command
)

// Model is the main bubbletea model
type Model struct {
	// Dimensions
	width  int
	height int

	// Prompt
	mode  inputMode
	input string

	// Components
	controller *session.Controller
	events     <-chan api.Event

	// State
	ctx      context.Context
	cancel   context.CancelFunc
	page     *api.ResultPage
	playback api.PlaybackState
	detail   *api.SoundSummary
	message  string
	err      error
	busy     bool

	// Settings
	seekStep     time.Duration
	defaultQuery string

	// Styles
	promptStyle lipgloss.Style
	helpStyle   lipgloss.Style
}

// TickMsg is sent periodically to update the UI
type TickMsg time.Time

// StateUpdateMsg is sent when playback state changes
type StateUpdateMsg struct {
	State api.PlaybackState
}

// dispatchMsg carries the outcome of a controller command back to Update.
type dispatchMsg struct {
	cmd  api.Command
	snap api.Snapshot
	err  error
}

// NewModel creates a new application model
func NewModel(controller *session.Controller, bus *events.Bus, seekStep time.Duration, defaultQuery string) Model {
	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		width:        80,
		height:       24,
		mode:         modeSearch,
		controller:   controller,
		events:       bus.SubscribeAll(),
		ctx:          ctx,
		cancel:       cancel,
		playback:     controller.PlayerState(),
		seekStep:     seekStep,
		defaultQuery: defaultQuery,
		promptStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		helpStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.listenForEvents(),
	)
}

// tickCmd returns a command that ticks every 500ms
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// listenForEvents returns a command that listens for engine events
func (m Model) listenForEvents() tea.Cmd {
	return func() tea.Msg {
		select {
		case _, ok := <-m.events:
			if !ok {
				return nil
			}
			return StateUpdateMsg{State: m.controller.PlayerState()}
		case <-m.ctx.Done():
			return nil
		}
	}
}

// dispatchCmd runs one controller command off the UI goroutine, so a slow
// search or download never freezes the prompt.
func (m Model) dispatchCmd(cmd api.Command) tea.Cmd {
	ctx := m.ctx
	controller := m.controller
	return func() tea.Msg {
		snap, err := controller.Dispatch(ctx, cmd)
		return dispatchMsg{cmd: cmd, snap: snap, err: err}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case TickMsg:
		m.playback = m.controller.PlayerState()
		cmds = append(cmds, tickCmd())

	case StateUpdateMsg:
		m.playback = msg.State
		cmds = append(cmds, m.listenForEvents())

	case dispatchMsg:
		m.busy = false
		m.page = msg.snap.Page
		m.playback = msg.snap.Playback

		if msg.err != nil {
			m.err = msg.err
			return m, tea.Batch(cmds...)
		}
		m.err = nil
		m.message = msg.snap.Message

		if msg.snap.Detail != nil {
			m.detail = msg.snap.Detail
		}
		if msg.snap.Quit {
			m.cancel()
			return m, tea.Quit
		}
		if msg.snap.ClearScreen {
			m.detail = nil
			m.message = ""
			cmds = append(cmds, tea.ClearScreen)
		}

		switch msg.cmd.Kind {
		case api.CmdSearch:
			m.mode = modeBrowse
			m.detail = nil
		case api.CmdRestart:
			m.mode = modeSearch
			m.detail = nil
		case api.CmdPageForward, api.CmdPageBackward, api.CmdGoToPage:
			m.detail = nil
		}

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.cancel()
			return m, tea.Quit

		case tea.KeyEnter:
			if m.busy {
				break
			}
			line := strings.TrimSpace(m.input)
			m.input = ""
			cmd, ok := m.commandFor(line)
			if !ok {
				break
			}
			m.busy = true
			cmds = append(cmds, m.dispatchCmd(cmd))

		case tea.KeyBackspace:
			if len(m.input) > 0 {
				runes := []rune(m.input)
				m.input = string(runes[:len(runes)-1])
			}

		case tea.KeySpace:
			m.input += " "

		case tea.KeyRunes:
			m.input += string(msg.Runes)
		}
	}

	return m, tea.Batch(cmds...)
}

// commandFor turns the committed prompt line into a Command, honoring the
// current mode. A parse error is surfaced without leaving the prompt.
func (m *Model) commandFor(line string) (api.Command, bool) {
	if m.mode == modeSearch {
		if line == "" {
			line = m.defaultQuery
		}
		return api.Command{Kind: api.CmdSearch, Query: line}, true
	}

	cmd, err := ParseCommand(line, m.seekStep)
	if err != nil {
		m.err = err
		return api.Command{}, false
	}
	return cmd, true
}

// View renders the UI
func (m Model) View() string {
	var sb strings.Builder

	selected := 0
	if _, idx, ok := m.controller.Session().Selected(); ok {
		selected = idx
	}

	sb.WriteString(renderResults(m.page, selected))
	sb.WriteString("\n")

	if m.detail != nil {
		sb.WriteString(renderDetail(m.detail))
		sb.WriteString("\n")
	}

	sb.WriteString(renderPlayback(m.playback, m.width))
	sb.WriteString("\n")

	if m.err != nil {
		sb.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		sb.WriteString("\n")
	} else if m.message != "" {
		sb.WriteString(messageStyle.Render(m.message))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(m.renderPrompt())
	sb.WriteString("\n")
	sb.WriteString(m.helpStyle.Render(m.helpLine()))

	return sb.String()
}

// renderPrompt draws the input line with a block cursor
func (m Model) renderPrompt() string {
	label := "search> "
	if m.mode == modeBrowse {
		label = "> "
	}
	if m.busy {
		return m.promptStyle.Render(label) + m.input + m.helpStyle.Render(" …")
	}
	cursor := lipgloss.NewStyle().Background(lipgloss.Color("212")).Render(" ")
	return m.promptStyle.Render(label) + m.input + cursor
}

func (m Model) helpLine() string {
	if m.mode == modeSearch {
		if m.defaultQuery != "" {
			return "Type a query and press Enter (empty for \"" + m.defaultQuery + "\")  [Ctrl+C] quit"
		}
		return "Type a query and press Enter  [Ctrl+C] quit"
	}
	return "[y N] play  [i N] inspect  [d N] download  [n/b] page  [g N] goto  " +
		"[s] stop  [p] pause  [0-9] seek  [+/-] step  [v N] volume  [r] restart  [q] quit"
}

// Run starts the bubbletea program
func Run(controller *session.Controller, bus *events.Bus, seekStep time.Duration, defaultQuery string) error {
	model := NewModel(controller, bus, seekStep, defaultQuery)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
