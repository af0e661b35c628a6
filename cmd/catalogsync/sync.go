package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Replace the local catalog with a fresh copy from the server",
	Args:  cobra.NoArgs,
	RunE:  runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.catalog.Sync(context.Background())
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), result)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Synced %d products (%d saved kept) in %s.\n",
		result.ProductCount, result.SavedKept, result.Duration.Round(1e6))
	return nil
}
