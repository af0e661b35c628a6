package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/MohamedIjlal27/SFA-sub000/internal/api"
	"github.com/MohamedIjlal27/SFA-sub000/internal/worker"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the local catalog API and sync in the background",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	a, err := openApp(os.Stdout)
	if err != nil {
		return err
	}
	cfg := a.cfg
	slog.Info("stores initialized",
		"catalog_path", cfg.Database.CatalogPath,
		"page_cache_path", cfg.Database.PageCachePath,
	)

	handler := api.NewHandler(a.catalog, cfg.Server.APIKey, Version, cfg.Catalog.DefaultPageSize)
	router := api.NewRouter(handler)
	slog.Info("router initialized", "auth", cfg.Server.APIKey != "")

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
	}

	var wg sync.WaitGroup
	if interval := cfg.Worker.SyncInterval.Std(); interval > 0 && !forceOffline {
		syncWorker := worker.NewSyncWorker(a.catalog, interval, cfg.Worker.SyncOnStart)
		startWorker(ctx, &wg, "catalog-sync", syncWorker.Run)
	}

	go func() {
		slog.Info("server starting", "address", cfg.Server.Address)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			cancel() // Trigger shutdown on server failure
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown initiated")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer shutdownCancel()

	// Stop HTTP server (drains in-flight requests)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	wg.Wait()

	if err := a.Close(); err != nil {
		slog.Error("store close error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
