package main

import (
	"log/slog"

	"github.com/rapmendoza/ai-side-panel/internal/tui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant in the terminal",
		Long: `Opens an interactive chat session. The assistant understands requests
like "add Acme Corp as a payee" or "show me my expense categories" and
asks follow-up questions when something is missing.`,
		RunE: runChat,
	}

	cmd.Flags().String("owner", "default", "owner id to scope records to")
	_ = viper.BindPFlag("chat.owner", cmd.Flags().Lookup("owner"))

	return cmd
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	application, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := application.Close(); closeErr != nil {
			slog.Error("failed to close application", "error", closeErr)
		}
	}()

	return tui.Run(ctx, tui.Config{
		Assistant: application.assistant,
		OwnerID:   viper.GetString("chat.owner"),
	})
}
