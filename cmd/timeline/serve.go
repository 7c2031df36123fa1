package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/rpattn/placement-timeline/internal/api"
	"github.com/rpattn/placement-timeline/internal/export"
	"github.com/rpattn/placement-timeline/internal/ingestion"
	"github.com/rpattn/placement-timeline/internal/merge"

	"github.com/spf13/cobra"
)

type serveOptions struct {
	addr      string
	dataset   string
	store     bool
	fromStore bool
}

func newServeCmd(a *app) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the merged dataset over HTTP and accept event batch uploads",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().StringVar(&opts.dataset, "dataset", "", "Dataset to serve (default files.updated, then files.merged)")
	cmd.Flags().BoolVar(&opts.store, "store", false, "Also store applied batches and the run log in Postgres")
	cmd.Flags().BoolVar(&opts.fromStore, "from-store", false, "Load the dataset from Postgres instead of a file (implies --store)")
	return cmd
}

func (a *app) serve(ctx context.Context, opts serveOptions) error {
	service, closeStore, err := a.mergeService(ctx, opts.store || opts.fromStore)
	if err != nil {
		return err
	}
	defer closeStore()

	source, dataset, err := a.loadDataset(ctx, service, opts)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	router := api.NewRouter(api.Dependencies{
		Dataset:        dataset,
		Runs:           service,
		Ingest:         ingestion.NewService(a.logger),
		Metrics:        a.recorder,
		JSON:           export.JSONOptions{Indent: a.cfg.Output.Indent},
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		Logger:         a.logger,
	})

	server := &http.Server{
		Addr:         pick(opts.addr, a.cfg.Server.Addr),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("Serving %s on %s", source, server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	a.logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	a.logger.Info("Server exited")
	return nil
}

// loadDataset picks the dataset to serve: the store with --from-store, else --dataset,
// else files.updated falling back to files.merged.
func (a *app) loadDataset(ctx context.Context, service *merge.Service, opts serveOptions) (string, *merge.Dataset, error) {
	if opts.fromStore {
		dataset, err := service.LoadStoredDataset(ctx, a.cfg.Files.Updated)
		return "database " + a.cfg.Database.DBName, dataset, err
	}

	source := opts.dataset
	if source == "" {
		source = a.cfg.Files.Updated
		if _, err := os.Stat(source); errors.Is(err, fs.ErrNotExist) {
			source = a.cfg.Files.Merged
		}
	}
	dataset, err := service.LoadDataset(source, a.cfg.Files.Updated)
	return source, dataset, err
}
