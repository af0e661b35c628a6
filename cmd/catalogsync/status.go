package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statusHistory int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show last sync, catalog size and recent sync runs",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusHistory, "history", 5, "Number of recent sync runs to show")
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	meta, err := a.catalog.Metadata(ctx)
	if err != nil {
		return err
	}
	runs, err := a.catalog.SyncHistory(ctx, statusHistory)
	if err != nil {
		return err
	}
	cached, err := a.stores.PageCache.Count(ctx)
	if err != nil {
		return fmt.Errorf("count cached pages: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"lastSyncTime": meta.LastSyncTime,
			"totalCount":   meta.TotalCount,
			"cachedPages":  cached,
			"history":      runs,
		})
	}

	out := cmd.OutOrStdout()
	if meta.LastSyncTime == nil {
		fmt.Fprintln(out, "Last sync:     never")
	} else {
		fmt.Fprintf(out, "Last sync:     %s\n", meta.LastSyncTime.Local().Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(out, "Products:      %d\n", meta.TotalCount)
	fmt.Fprintf(out, "Cached pages:  %d\n", cached)

	if len(runs) == 0 {
		return nil
	}
	fmt.Fprintln(out)
	w := newTabWriter(out)
	fmt.Fprintln(w, "ID\tSTATE\tPRODUCTS\tSTARTED\tERROR")
	for _, r := range runs {
		errText := r.Error
		if errText == "" {
			errText = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			r.ID,
			r.State,
			r.ProductCount,
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			errText,
		)
	}
	w.Flush()
	return nil
}
