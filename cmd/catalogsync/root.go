package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"text/tabwriter"

	"github.com/MohamedIjlal27/SFA-sub000/internal/catalog"
	"github.com/MohamedIjlal27/SFA-sub000/internal/config"
	"github.com/MohamedIjlal27/SFA-sub000/internal/remote"
	"github.com/MohamedIjlal27/SFA-sub000/internal/store"
	"github.com/MohamedIjlal27/SFA-sub000/internal/types"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags: -ldflags "-X main.Version=1.0.0"
var Version = "dev"

var (
	configPath   string
	forceOffline bool
	jsonOutput   bool
)

var rootCmd = &cobra.Command{
	Use:           "catalogsync",
	Short:         "Offline-first product catalog for field sales",
	Long:          "Keeps an on-device copy of the product catalog in sync with the server and serves it when the network is gone.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file path (overrides CATALOG_CONFIG_PATH)")
	rootCmd.PersistentFlags().BoolVar(&forceOffline, "offline", false,
		"Never contact the catalog server")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output in JSON format")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(productsCmd)
	rootCmd.AddCommand(savedCmd)
	rootCmd.AddCommand(toggleSavedCmd)
	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cacheCmd)
}

// loadConfig loads configuration from --config when given, otherwise from
// CATALOG_CONFIG_PATH and the environment.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// setupLogger installs the process-wide slog logger.
func setupLogger(w io.Writer, cfg config.LogConfig) {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// app holds the wired catalog service and the stores it owns.
type app struct {
	cfg     *config.Config
	stores  *store.Stores
	catalog *catalog.Service
}

func (a *app) Close() error {
	return a.stores.Close()
}

// openApp loads configuration, sets up logging on logOut and wires the
// catalog service.
func openApp(logOut io.Writer) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	setupLogger(logOut, cfg.Log)

	stores, err := store.Open(cfg.Database.CatalogPath, cfg.Database.PageCachePath)
	if err != nil {
		return nil, err
	}

	client, err := remote.New(remote.Config{
		BaseURL:         cfg.Remote.BaseURL,
		PageTimeout:     cfg.Remote.PageTimeout.Std(),
		BatchTimeout:    cfg.Remote.BatchTimeout.Std(),
		BatchSize:       cfg.Remote.BatchSize,
		BreakerFailures: cfg.Remote.BreakerFailures,
		BreakerCooldown: cfg.Remote.BreakerCooldown.Std(),
	}, remote.StaticToken(cfg.Remote.Token))
	if err != nil {
		stores.Close()
		return nil, err
	}

	var conn catalog.Connectivity = remote.NewProbe(cfg.Remote.BaseURL, cfg.Remote.ProbeTimeout.Std())
	if forceOffline {
		conn = catalog.Offline
	}

	svc := catalog.NewService(client, stores.Products, stores.PageCache, conn, catalog.Options{
		MaxConcurrentReads: cfg.Catalog.MaxConcurrentReads,
		OnStateChange: func(from, to types.SyncState) {
			slog.Debug("sync state changed",
				"component", "catalog",
				"from", from,
				"to", to,
			)
		},
	})

	return &app{cfg: cfg, stores: stores, catalog: svc}, nil
}

// startWorker launches a background worker goroutine that respects context cancellation.
// Workers are tracked via WaitGroup for graceful shutdown.
func startWorker(ctx context.Context, wg *sync.WaitGroup, name string, fn func(ctx context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("worker started", "worker", name)
		fn(ctx)
		slog.Info("worker stopped", "worker", name)
	}()
}

// printJSON marshals v to JSON and writes to the given writer.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newTabWriter returns a configured tabwriter for aligned columns.
func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// printProducts renders products as a table.
func printProducts(w io.Writer, products []types.Product) {
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "ITEM\tDESCRIPTION\tCATEGORY\tPRICE\tQTY\tSAVED")
	for _, p := range products {
		saved := ""
		if p.IsSaved {
			saved = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			p.ItemCode,
			p.Description,
			p.Category,
			p.Price.StringFixed(2),
			p.Quantity,
			saved,
		)
	}
	tw.Flush()
}
