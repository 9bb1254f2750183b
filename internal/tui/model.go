// Package tui implements the interactive chat interface for the assistant.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rapmendoza/ai-side-panel/internal/assistant"
	"github.com/rapmendoza/ai-side-panel/internal/model"
)

// State represents the current state of the chat session.
type State int

const (
	StateIdle State = iota
	StateWaiting
	StateClarifying
)

// chatLine is one rendered line of transcript history.
type chatLine struct {
	role model.MessageRole
	text string
}

// turnResultMsg carries the assistant's reply back into the update loop.
type turnResultMsg struct {
	result *assistant.TurnResult
}

// turnErrorMsg reports a failed turn.
type turnErrorMsg struct {
	err error
}

// Config holds configuration for the chat interface.
type Config struct {
	Assistant *assistant.Assistant
	OwnerID   string
	Width     int
	Height    int
}

// Model holds the chat TUI state.
type Model struct {
	assistant      *assistant.Assistant
	ownerID        string
	conversationID string
	lastError      error
	input          textinput.Model
	viewport       viewport.Model
	spinner        spinner.Model
	lines          []chatLine
	height         int
	width          int
	state          State
	ready          bool
	quitting       bool
}

// newModel creates a new chat model with the given configuration.
func newModel(cfg Config) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask me about your payees and categories..."
	ti.CharLimit = 500
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		assistant: cfg.Assistant,
		ownerID:   cfg.OwnerID,
		input:     ti,
		spinner:   sp,
		state:     StateIdle,
		width:     cfg.Width,
		height:    cfg.Height,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			if m.state == StateWaiting {
				return m, nil
			}
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			m.appendLine(chatLine{role: model.RoleUser, text: text})
			m.input.Reset()
			m.lastError = nil
			m.state = StateWaiting
			return m, tea.Batch(m.spinner.Tick, m.sendMessage(text))
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.handleResize()
		m.ready = true

	case turnResultMsg:
		m.handleTurnResult(msg.result)

	case turnErrorMsg:
		m.lastError = msg.err
		m.state = StateIdle

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleTurnResult folds the assistant's reply into the transcript.
func (m *Model) handleTurnResult(result *assistant.TurnResult) {
	m.conversationID = result.ConversationID
	m.appendLine(chatLine{role: model.RoleAssistant, text: result.Message})

	for _, op := range result.ExecutedActions {
		m.appendLine(chatLine{role: model.RoleAssistant, text: renderOperation(op)})
	}

	if result.NeedsClarification {
		m.state = StateClarifying
	} else {
		m.state = StateIdle
	}

	if result.RequiresConfirmation && len(result.SuggestedActions) > 0 {
		var sb strings.Builder
		sb.WriteString("I can do the following, but need your go-ahead:\n")
		for _, action := range result.SuggestedActions {
			fmt.Fprintf(&sb, "  • %s\n", action.Description)
		}
		m.appendLine(chatLine{role: model.RoleAssistant, text: strings.TrimRight(sb.String(), "\n")})
	}
}

func (m *Model) appendLine(line chatLine) {
	m.lines = append(m.lines, line)
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

// handleResize adjusts component sizes when the terminal resizes.
func (m *Model) handleResize() {
	vpHeight := m.height - 6
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport = viewport.New(m.width-2, vpHeight)
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
	m.input.Width = m.width - 6
}

// sendMessage drives one assistant turn off the update loop.
func (m Model) sendMessage(text string) tea.Cmd {
	asst := m.assistant
	owner := m.ownerID
	convID := m.conversationID
	clarifying := m.state == StateClarifying

	return func() tea.Msg {
		ctx := context.Background()

		var (
			result *assistant.TurnResult
			err    error
		)
		if clarifying {
			result, err = asst.ProcessClarification(ctx, owner, convID, text)
		} else {
			result, err = asst.ProcessMessage(ctx, owner, convID, text)
		}
		if err != nil {
			return turnErrorMsg{err: err}
		}
		return turnResultMsg{result: result}
	}
}

// renderOperation summarizes an executed action for the transcript.
func renderOperation(op model.ExecutedOperation) string {
	if !op.Success {
		return fmt.Sprintf("  ✗ %s %s failed: %s", op.Type, op.Entity, op.Error)
	}

	switch {
	case op.Payee != nil:
		return fmt.Sprintf("  ✓ %s payee %q (#%d)", op.Type, op.Payee.Name, op.Payee.ID)
	case op.Category != nil:
		return fmt.Sprintf("  ✓ %s category %q (#%d)", op.Type, op.Category.Name, op.Category.ID)
	case op.Type == model.ActionRead:
		return fmt.Sprintf("  ✓ found %d %s record(s)", op.Count, op.Entity)
	default:
		return fmt.Sprintf("  ✓ %s %s done", op.Type, op.Entity)
	}
}
