package main

import (
	"github.com/rpattn/placement-timeline/internal/export"
	"github.com/rpattn/placement-timeline/internal/ingestion"

	"github.com/spf13/cobra"
)

type exportOptions struct {
	input  string
	format string
	output string
	dir    string
}

func newExportCmd(a *app) *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a merged dataset as JSON, an XLSX workbook or a SQLite snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := export.ParseFormat(opts.format)
			if err != nil {
				return err
			}

			input := pick(opts.input, a.cfg.Files.Updated)
			companies, err := ingestion.NewService(a.logger).LoadCompanies(input)
			if err != nil {
				return err
			}

			service := export.NewService(
				export.WithExportDirectory(pick(opts.dir, a.cfg.ExportDir)),
				export.WithJSONOptions(export.JSONOptions{Indent: a.cfg.Output.Indent}),
			)
			path, err := service.Export(cmd.Context(), companies, format, input, opts.output)
			if err != nil {
				return err
			}
			a.logger.WithField("format", format).Infof("Exported %d profiles to %s", len(companies), path)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.input, "input", "", "Merged dataset to export (default files.updated)")
	cmd.Flags().StringVar(&opts.format, "format", "xlsx", "Export format: json, xlsx or sqlite")
	cmd.Flags().StringVar(&opts.output, "output", "", "Output path (default <export dir>/<input name>.<ext>)")
	cmd.Flags().StringVar(&opts.dir, "dir", "", "Export directory")
	return cmd
}
