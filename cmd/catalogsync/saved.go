package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var savedCmd = &cobra.Command{
	Use:   "saved",
	Short: "List saved products",
	Args:  cobra.NoArgs,
	RunE:  runSaved,
}

var toggleSavedCmd = &cobra.Command{
	Use:   "toggle-saved <item-code>",
	Short: "Save or unsave a product",
	Args:  cobra.ExactArgs(1),
	RunE:  runToggleSaved,
}

func runSaved(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	products, err := a.catalog.SavedProducts(context.Background())
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"products": products,
			"total":    len(products),
		})
	}
	if len(products) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No saved products.")
		return nil
	}
	printProducts(cmd.OutOrStdout(), products)
	return nil
}

func runToggleSaved(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	itemCode := args[0]
	saved, err := a.catalog.ToggleSaved(context.Background(), itemCode)
	if err != nil {
		return fmt.Errorf("toggle %s: %w", itemCode, err)
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{"itemCode": itemCode, "isSaved": saved})
	}
	if saved {
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s.\n", itemCode)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Unsaved %s.\n", itemCode)
	}
	return nil
}
