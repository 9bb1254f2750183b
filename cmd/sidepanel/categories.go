package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/rapmendoza/ai-side-panel/internal/model"
	"github.com/rapmendoza/ai-side-panel/internal/service"
	"github.com/spf13/cobra"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage categories",
		Long:  `List, add, and delete income/expense categories directly.`,
	}

	cmd.PersistentFlags().String("owner", "default", "owner id to scope records to")

	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(addCategoryCmd())
	cmd.AddCommand(deleteCategoryCmd())

	return cmd
}

func listCategoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all active categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStorage(cmd)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			kind, _ := cmd.Flags().GetString("type")
			categories, err := store.GetCategories(cmd.Context(), ownerFlag(cmd), service.CategoryFilter{
				Type: model.CategoryType(kind),
			})
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}

			if len(categories) == 0 {
				fmt.Println("No categories found. Use 'sidepanel categories add' to create one.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintln(w, "ID\tName\tType\tDescription")
			for _, cat := range categories {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", cat.ID, cat.Name, cat.Type, cat.Description)
			}

			return nil
		},
	}

	cmd.Flags().String("type", "", "filter by type (income, expense)")

	return cmd
}

func addCategoryCmd() *cobra.Command {
	var (
		kind        string
		description string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStorage(cmd)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			created, err := store.CreateCategory(cmd.Context(), &model.Category{
				OwnerID:     ownerFlag(cmd),
				Name:        args[0],
				Type:        model.CategoryType(kind),
				Description: description,
			})
			if err != nil {
				return fmt.Errorf("failed to create category: %w", err)
			}

			fmt.Printf("Created category %q (#%d, %s)\n", created.Name, created.ID, created.Type)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "type", "expense", "category type (income, expense)")
	cmd.Flags().StringVar(&description, "description", "", "free-form notes")

	return cmd
}

func deleteCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete (deactivate) a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid category id %q", args[0])
			}

			store, err := openStorage(cmd)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			if err := store.DeleteCategory(cmd.Context(), ownerFlag(cmd), id); err != nil {
				return fmt.Errorf("failed to delete category: %w", err)
			}

			fmt.Printf("Deleted category #%d\n", id)
			return nil
		},
	}
}
