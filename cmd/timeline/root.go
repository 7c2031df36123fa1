package main

import (
	"context"
	"fmt"

	"github.com/rpattn/placement-timeline/internal/config"
	"github.com/rpattn/placement-timeline/internal/db"
	"github.com/rpattn/placement-timeline/internal/domain"
	"github.com/rpattn/placement-timeline/internal/export"
	"github.com/rpattn/placement-timeline/internal/ingestion"
	"github.com/rpattn/placement-timeline/internal/logging"
	"github.com/rpattn/placement-timeline/internal/merge"
	"github.com/rpattn/placement-timeline/internal/metrics"
	"github.com/rpattn/placement-timeline/internal/repository"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configDir string
	logLevel  string
	logFormat string
	sortMode  string
}

// app carries what every subcommand needs once configuration is loaded.
type app struct {
	cfg      config.Config
	logger   *logrus.Logger
	recorder *metrics.Recorder
}

func newRootCmd() *cobra.Command {
	var opts rootOptions
	a := &app{}

	cmd := &cobra.Command{
		Use:           "timeline",
		Short:         "Merge placement timeline events into company profiles",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configDir, "config", ".", "Directory holding config.yaml")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (default from config)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: text or json")
	cmd.PersistentFlags().StringVar(&opts.sortMode, "sort-mode", "", "Timeline sort: lexical or parsed")

	cmd.AddCommand(
		newMergeCmd(a),
		newUpdateCmd(a),
		newExportCmd(a),
		newMigrateCmd(a),
		newServeCmd(a),
	)
	return cmd
}

func (a *app) init(opts rootOptions) error {
	bootstrap := logrus.StandardLogger()
	cfg, err := config.Load(opts.configDir, bootstrap)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Log.Format = opts.logFormat
	}
	if opts.sortMode != "" {
		cfg.SortMode = opts.sortMode
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, nil)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	a.recorder = metrics.NewRecorder()
	return nil
}

// mergeService builds the merge service. With store set (or the database enabled in config)
// runs are mirrored into Postgres; the returned func closes the connection.
func (a *app) mergeService(ctx context.Context, store bool) (*merge.Service, func(), error) {
	mode, err := domain.ParseSortMode(a.cfg.SortMode)
	if err != nil {
		return nil, nil, err
	}

	opts := []merge.Option{
		merge.WithSortMode(mode),
		merge.WithJSONOptions(
			export.JSONOptions{Indent: a.cfg.Output.Indent},
			export.JSONOptions{Indent: a.cfg.Output.Indent, EscapeASCII: a.cfg.Output.EscapeASCIIUpdate},
		),
		merge.WithMetrics(a.recorder),
	}

	closer := func() {}
	if store || a.cfg.Database.Enabled {
		conn, err := db.NewConnection(ctx, a.cfg.Database.Config)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		opts = append(opts,
			merge.WithRunRepository(repository.NewMergeRunRepository(conn.Pool)),
			merge.WithCompanyStore(repository.NewCompanyRepository(conn.Pool)),
		)
		closer = conn.Close
		a.logger.WithField("database", a.cfg.Database.DBName).Info("Mirroring runs to Postgres")
	}

	return merge.NewService(ingestion.NewService(a.logger), a.logger, opts...), closer, nil
}

func pick(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}
