package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rapmendoza/ai-side-panel/internal/model"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Padding(0, 1)

	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	statusStyle = lipgloss.NewStyle().
			Faint(true)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

// View renders the chat interface.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	if !m.ready {
		return statusStyle.Render("Loading...")
	}

	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Side Panel Assistant"))
	sb.WriteString("\n\n")
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")
	sb.WriteString(m.renderStatus())
	sb.WriteString("\n")
	sb.WriteString(inputBoxStyle.Width(m.width - 4).Render(m.input.View()))

	return sb.String()
}

// renderTranscript formats the chat history for the viewport.
func (m Model) renderTranscript() string {
	if len(m.lines) == 0 {
		return statusStyle.Render("Say hello, or ask me to add a payee or category.")
	}

	var sb strings.Builder
	for _, line := range m.lines {
		switch line.role {
		case model.RoleUser:
			sb.WriteString(userStyle.Render("you: "))
		case model.RoleAssistant:
			sb.WriteString(assistantStyle.Render("assistant: "))
		}
		sb.WriteString(line.text)
		sb.WriteString("\n")
	}
	return sb.String()
}

// renderStatus draws the one-line status bar above the input box.
func (m Model) renderStatus() string {
	if m.lastError != nil {
		return errorStyle.Render("error: " + m.lastError.Error())
	}

	switch m.state {
	case StateWaiting:
		return statusStyle.Render(m.spinner.View() + " thinking...")
	case StateClarifying:
		return statusStyle.Render("answering a clarification · esc to quit")
	default:
		return statusStyle.Render("enter to send · esc to quit")
	}
}
