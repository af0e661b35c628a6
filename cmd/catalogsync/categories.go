package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List categories and subcategories",
	Args:  cobra.NoArgs,
	RunE:  runCategories,
}

func runCategories(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	categories, err := a.catalog.Categories(ctx)
	if err != nil {
		return err
	}
	subcategories, err := a.catalog.Subcategories(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"categories":    categories,
			"subcategories": subcategories,
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Categories:")
	for _, c := range categories {
		fmt.Fprintf(out, "  %s\n", c)
	}
	fmt.Fprintln(out, "Subcategories:")
	for _, s := range subcategories {
		fmt.Fprintf(out, "  %s\n", s)
	}
	return nil
}
