// Package tui is the interactive terminal chat session.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragchat/internal/domain"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	sourceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	inputBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Chatter is the TUI-facing subset of the application coordinator.
type Chatter interface {
	ProcessChatMessage(ctx context.Context, text string) *domain.QueryResult
	ResetConversation()
}

type resultMsg struct {
	result *domain.QueryResult
}

// Model is the Bubble Tea model for the chat session.
type Model struct {
	app      Chatter
	input    textinput.Model
	viewport viewport.Model
	lines    []string
	status   string
	waiting  bool
	ready    bool
}

// New creates a chat session over the coordinator.
func New(app Chatter) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about your documents"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		app:      app,
		input:    ti,
		viewport: vp,
		status:   "Ready. Enter sends, ctrl+r resets, ctrl+c quits.",
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window, and chat-result events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + ih + 1 // title, spacer, input frame, status
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = msg.Width
		m.viewport.Height = vh
		m.viewport.SetContent(strings.Join(m.lines, "\n"))
		return m, nil

	case resultMsg:
		m.waiting = false
		res := msg.result
		if res.Failed() {
			m.lines = append(m.lines, errorStyle.Render("error: "+res.Error))
			m.status = "Request failed."
		} else {
			m.lines = append(m.lines, assistantStyle.Render("Assistant: ")+res.Answer)
			m.lines = append(m.lines, renderSources(res.Sources)...)
			m.status = fmt.Sprintf("Answered in %.2fs.", res.ProcessingTime)
		}
		m.lines = append(m.lines, "")
		m.viewport.SetContent(strings.Join(m.lines, "\n"))
		m.viewport.GotoBottom()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyCtrlR:
			m.app.ResetConversation()
			m.lines = nil
			m.status = "Conversation reset."
			m.viewport.SetContent("")
			return m, nil
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.waiting {
				return m, nil
			}
			m.input.Reset()
			m.waiting = true
			m.status = "Thinking..."
			m.lines = append(m.lines, userStyle.Render("You: ")+text)
			m.viewport.SetContent(strings.Join(m.lines, "\n"))
			m.viewport.GotoBottom()
			return m, m.send(text)
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// send runs the chat call off the update loop.
func (m Model) send(text string) tea.Cmd {
	return func() tea.Msg {
		return resultMsg{result: m.app.ProcessChatMessage(context.Background(), text)}
	}
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	title := titleStyle.Render("ragchat")
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return title + "\n" + m.viewport.View() + "\n" + input + "\n" + status
}

func renderSources(sources []domain.Source) []string {
	if len(sources) == 0 {
		return nil
	}
	lines := make([]string, 0, len(sources))
	for i, src := range sources {
		name, _ := src.Metadata["file_name"].(string)
		if name == "" {
			name = "unknown"
		}
		lines = append(lines, sourceStyle.Render(fmt.Sprintf("  [%d] %s", i+1, name)))
	}
	return lines
}
