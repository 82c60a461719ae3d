// Package tui is the terminal rendition of the courtroom: a transcript
// viewport above a text area, driven by the same courtroom service as the
// web page. Transcript updates arrive as events through a channel-backed
// subscriber, so the terminal sees exactly what a websocket client would.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/latestcomment/lexarena/internal/models"
	"github.com/latestcomment/lexarena/internal/services"
	"github.com/latestcomment/lexarena/internal/theme"
)

// eventBuffer must hold at least a fresh transcript replay.
const eventBuffer = 64

// inputHeight is the number of text rows in the argument box.
const inputHeight = 3

type eventMsg models.Event

type trialMsg struct{ exhausted bool }

type turnDoneMsg struct{ err error }

// channelSink adapts the subscriber interface to a Go channel.
type channelSink struct {
	events chan<- models.Event
}

func (s channelSink) WriteJSON(v interface{}) error {
	ev, ok := v.(models.Event)
	if !ok {
		return fmt.Errorf("unexpected frame %T", v)
	}
	s.events <- ev
	return nil
}

type Model struct {
	service *services.CourtroomService
	room    *models.Courtroom
	events  chan models.Event
	palette theme.Terminal

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	messages []models.Message
	loading  bool
	alert    string
	ready    bool
}

// NewModel opens a courtroom on service and subscribes the terminal to it.
func NewModel(service *services.CourtroomService, palette theme.Terminal) (Model, error) {
	room := service.OpenCourtroom()
	events := make(chan models.Event, eventBuffer)
	sub := &models.Subscriber{Id: uuid.New(), Sink: channelSink{events: events}}
	if err := service.Attach(room, sub); err != nil {
		return Model{}, err
	}

	input := textarea.New()
	input.Placeholder = "Address the judge's concern or respond to opposing counsel..."
	input.ShowLineNumbers = false
	input.SetHeight(inputHeight)
	input.CharLimit = 0
	// Enter submits; alt+enter or ctrl+j breaks the line.
	input.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(palette.Faint)

	return Model{
		service:  service,
		room:     room,
		events:   events,
		palette:  palette,
		viewport: viewport.New(0, 0),
		input:    input,
		spinner:  spin,
	}, nil
}

// TrialEnded reports whether the session closed because the free trial is
// spent.
func (m Model) TrialEnded() bool {
	return m.alert != ""
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.checkTrial(),
		m.waitForEvent(),
		textarea.Blink,
		m.spinner.Tick,
	)
}

func (m Model) checkTrial() tea.Cmd {
	service := m.service
	return func() tea.Msg {
		return trialMsg{exhausted: service.TrialExhausted(context.Background())}
	}
}

func (m Model) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		return eventMsg(<-events)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case trialMsg:
		if msg.exhausted {
			m.alert = models.TrialEndedText
		}
		return m, nil

	case eventMsg:
		m.apply(models.Event(msg))
		return m, m.waitForEvent()

	case turnDoneMsg:
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.alert != "" {
			return m, tea.Quit
		}
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			return m.submit()
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the argument unless it is blank or a turn is in flight; in
// those cases nothing changes and no command is returned.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if m.loading || strings.TrimSpace(text) == "" {
		return m, nil
	}
	m.input.Reset()

	service, room := m.service, m.room
	return m, func() tea.Msg {
		return turnDoneMsg{err: service.SendTurn(context.Background(), room, text)}
	}
}

func (m *Model) apply(ev models.Event) {
	switch ev.Type {
	case models.EventMessage:
		if ev.Message != nil {
			m.messages = append(m.messages, *ev.Message)
		}
	case models.EventLoading:
		m.loading = ev.Loading
	}
	m.refreshTranscript()
}

func (m *Model) resize(width, height int) {
	m.input.SetWidth(width - 2)
	// header (2) + status line (1) + input box (inputHeight + 2) + help (1)
	m.viewport.Width = width
	m.viewport.Height = max(height-inputHeight-6, 1)
	m.ready = true
	m.refreshTranscript()
}

func (m *Model) refreshTranscript() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	width := max(m.viewport.Width, 20)
	body := lipgloss.NewStyle().Width(width - 2).Foreground(m.palette.Text)
	system := body.Foreground(m.palette.RoleSystem).Italic(true)

	var b strings.Builder
	for i, msg := range m.messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		role := lipgloss.NewStyle().Bold(true).Foreground(m.palette.RoleColor(msg.Role)).Render(string(msg.Role) + ":")
		style := body
		if msg.Role == models.RoleSystem {
			style = system
		}
		b.WriteString(style.Render(role + " " + msg.Content))
	}
	return b.String()
}

func (m Model) View() string {
	if m.alert != "" {
		return lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(m.palette.RoleJudge).
			Padding(1, 2).
			Render(m.alert+"\n\n"+lipgloss.NewStyle().Foreground(m.palette.Faint).Render("Press any key to leave the courtroom."))
	}
	if !m.ready {
		return "Loading..."
	}

	title := lipgloss.NewStyle().Bold(true).Foreground(m.palette.Header).Render("LexArena Courtroom")
	subtitle := lipgloss.NewStyle().Foreground(m.palette.Faint).Render("Simulated hearing • Your role: Lead Counsel")

	status := ""
	if m.loading {
		status = m.spinner.View() + lipgloss.NewStyle().Foreground(m.palette.Faint).Render("AI is deliberating...")
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.palette.Border).
		Render(m.input.View())

	help := "enter send • alt+enter newline • pgup/pgdown scroll • esc end session"
	if m.loading {
		help = "Processing... • esc end session"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		subtitle,
		m.viewport.View(),
		status,
		box,
		lipgloss.NewStyle().Foreground(m.palette.Faint).Render(help),
	)
}
