package main

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"tributary/internal/category"
	"tributary/internal/cli"
	"tributary/internal/common"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage the category tree",
		Long: `View and edit the hierarchical category taxonomy.

Transactions are assigned to leaf categories; parents roll up the sums of
their whole subtree in reports.`,
	}

	cmd.AddCommand(categoriesShowCmd())
	cmd.AddCommand(categoriesAddCmd())
	cmd.AddCommand(categoriesRemoveCmd())
	cmd.AddCommand(categoriesSetCmd())
	cmd.AddCommand(categoriesAssignCmd())

	return cmd
}

func categoriesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the category tree",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			tree, err := store.GetCategoryTree(cmd.Context())
			if err != nil {
				return err
			}

			var sb strings.Builder
			renderTree(&sb, tree.Roots, "")
			fmt.Println(cli.RenderBox("Categories", strings.TrimRight(sb.String(), "\n")))
			return nil
		},
	}
}

func renderTree(sb *strings.Builder, nodes []*category.Node, indent string) {
	for _, n := range nodes {
		if n.IsLeaf() {
			sb.WriteString(indent + n.Name + "\n")
			continue
		}
		sb.WriteString(indent + cli.TitleStyle.UnsetMargins().Render(n.Name) + "\n")
		renderTree(sb, n.Children, indent+"  ")
	}
}

func categoriesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category, optionally under a parent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parent, _ := cmd.Flags().GetString("parent")

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			tree, err := store.GetCategoryTree(cmd.Context())
			if err != nil {
				return err
			}

			updated, err := category.AddCategory(tree, parent, args[0])
			if err != nil {
				return err
			}
			if err := store.SaveCategoryTree(cmd.Context(), updated); err != nil {
				return err
			}

			slog.Info(cli.FormatSuccess(fmt.Sprintf("Added category %q", args[0])))
			return nil
		},
	}
	cmd.Flags().StringP("parent", "p", "", "Parent category (empty adds at the top level)")
	return cmd
}

func categoriesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a category and its subtree",
		Long: `Remove a category. Transactions assigned to any leaf in the removed
subtree are set back to uncategorized.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			tree, err := store.GetCategoryTree(cmd.Context())
			if err != nil {
				return err
			}

			updated, err := category.RemoveCategory(tree, args[0])
			if err != nil {
				return err
			}
			cleared, err := store.ReplaceCategoryTree(cmd.Context(), updated)
			if err != nil {
				return err
			}

			slog.Info(cli.FormatSuccess(fmt.Sprintf("Removed category %q (%d transactions uncategorized)", args[0], cleared)))
			return nil
		},
	}
}

func categoriesSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <tree.json>",
		Short: "Replace the whole category tree from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0]) // #nosec G304 -- user-supplied path
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			tree, err := category.Parse(data)
			if err != nil {
				return common.NewUserError("the tree file is not a valid category tree", err)
			}

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			cleared, err := store.ReplaceCategoryTree(cmd.Context(), tree)
			if err != nil {
				return err
			}

			slog.Info(cli.FormatSuccess(fmt.Sprintf("Replaced category tree (%d transactions uncategorized)", cleared)))
			return nil
		},
	}
}

func categoriesAssignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assign <transaction-id> <category>",
		Short: "Assign a leaf category to a transaction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, name := args[0], args[1]
			allMerchant, _ := cmd.Flags().GetBool("merchant")

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			tree, err := store.GetCategoryTree(cmd.Context())
			if err != nil {
				return err
			}

			// Only leaves are valid assignment targets.
			if name != "" && !slices.Contains(category.Leaves(tree), name) {
				return fmt.Errorf("%w: %s", common.ErrInvalidCategory, name)
			}

			if allMerchant {
				count, updateErr := store.UpdateMerchantCategory(cmd.Context(), id, name)
				if updateErr != nil {
					return updateErr
				}
				slog.Info(cli.FormatSuccess(fmt.Sprintf("Assigned %q to %d transactions", name, count)))
				return nil
			}

			if err := store.UpdateTransactionCategory(cmd.Context(), id, name); err != nil {
				return err
			}
			slog.Info(cli.FormatSuccess(fmt.Sprintf("Assigned %q to transaction %s", name, id)))
			return nil
		},
	}
	cmd.Flags().BoolP("merchant", "m", false, "Assign to every transaction with the same merchant")
	return cmd
}
