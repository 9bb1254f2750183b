package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/rapmendoza/ai-side-panel/internal/model"
	"github.com/rapmendoza/ai-side-panel/internal/service"
	"github.com/rapmendoza/ai-side-panel/internal/storage"
	"github.com/spf13/cobra"
)

func payeesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payees",
		Short: "Manage payees",
		Long:  `List, add, and delete payees directly, without going through the assistant.`,
	}

	cmd.PersistentFlags().String("owner", "default", "owner id to scope records to")

	cmd.AddCommand(listPayeesCmd())
	cmd.AddCommand(addPayeeCmd())
	cmd.AddCommand(deletePayeeCmd())

	return cmd
}

// openStorage opens and migrates the database for direct CRUD commands.
func openStorage(cmd *cobra.Command) (*storage.SQLiteStorage, error) {
	dbPath, err := databasePath()
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(cmd.Context()); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func closeStorage(store *storage.SQLiteStorage) {
	if err := store.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}
}

func ownerFlag(cmd *cobra.Command) string {
	owner, _ := cmd.Flags().GetString("owner")
	if owner == "" {
		return "default"
	}
	return owner
}

func listPayeesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all payees",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStorage(cmd)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			search, _ := cmd.Flags().GetString("search")
			payees, err := store.GetPayees(cmd.Context(), ownerFlag(cmd), service.PayeeFilter{Search: search})
			if err != nil {
				return fmt.Errorf("failed to get payees: %w", err)
			}

			if len(payees) == 0 {
				fmt.Println("No payees found. Use 'sidepanel payees add' to create one.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintln(w, "ID\tName\tCategory\tEmail")
			for _, p := range payees {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.ID, p.Name, p.Category, p.Email)
			}

			return nil
		},
	}

	cmd.Flags().String("search", "", "substring match on name or description")

	return cmd
}

func addPayeeCmd() *cobra.Command {
	var (
		email       string
		phone       string
		address     string
		category    string
		description string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new payee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStorage(cmd)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			created, err := store.CreatePayee(cmd.Context(), &model.Payee{
				OwnerID:     ownerFlag(cmd),
				Name:        args[0],
				Email:       email,
				Phone:       phone,
				Address:     address,
				Category:    category,
				Description: description,
			})
			if err != nil {
				return fmt.Errorf("failed to create payee: %w", err)
			}

			fmt.Printf("Created payee %q (#%d)\n", created.Name, created.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "contact email")
	cmd.Flags().StringVar(&phone, "phone", "", "contact phone")
	cmd.Flags().StringVar(&address, "address", "", "mailing address")
	cmd.Flags().StringVar(&category, "category", "", "default category")
	cmd.Flags().StringVar(&description, "description", "", "free-form notes")

	return cmd
}

func deletePayeeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a payee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid payee id %q", args[0])
			}

			store, err := openStorage(cmd)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			if err := store.DeletePayee(cmd.Context(), ownerFlag(cmd), id); err != nil {
				return fmt.Errorf("failed to delete payee: %w", err)
			}

			fmt.Printf("Deleted payee #%d\n", id)
			return nil
		},
	}
}
