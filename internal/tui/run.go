package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the interactive chat session and blocks until the user quits.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Assistant == nil {
		return fmt.Errorf("assistant is required")
	}
	if cfg.OwnerID == "" {
		cfg.OwnerID = "default"
	}

	program := tea.NewProgram(
		newModel(cfg),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("chat session failed: %w", err)
	}

	return nil
}
