package main

import (
	"github.com/rpattn/placement-timeline/internal/merge"

	"github.com/spf13/cobra"
)

type updateOptions struct {
	merged string
	events string
	output string
	store  bool
}

func newUpdateCmd(a *app) *cobra.Command {
	var opts updateOptions

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Upsert a batch of new events into the merged dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			service, closeStore, err := a.mergeService(ctx, opts.store)
			if err != nil {
				return err
			}
			defer closeStore()

			// failures are logged by the service and leave the output untouched
			_, _ = service.RunIncremental(ctx, merge.IncrementalRequest{
				CompaniesPath: pick(opts.merged, a.cfg.Files.Merged),
				EventsPath:    pick(opts.events, a.cfg.Files.Events),
				OutputPath:    pick(opts.output, a.cfg.Files.Updated),
			})
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.merged, "merged", "", "Merged dataset to update")
	cmd.Flags().StringVar(&opts.events, "events", "", "Event batch (JSON or YAML)")
	cmd.Flags().StringVar(&opts.output, "output", "", "Updated output file")
	cmd.Flags().BoolVar(&opts.store, "store", false, "Also store the result and run log in Postgres")
	return cmd
}
