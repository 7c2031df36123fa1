package main

import (
	"errors"

	"github.com/rpattn/placement-timeline/internal/merge"

	"github.com/spf13/cobra"
)

type mergeOptions struct {
	companies string
	timeline  string
	output    string
	store     bool
}

func newMergeCmd(a *app) *cobra.Command {
	var opts mergeOptions

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Attach the full timeline to the company list",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			service, closeStore, err := a.mergeService(ctx, opts.store)
			if err != nil {
				return err
			}
			defer closeStore()

			_, err = service.RunFresh(ctx, merge.FreshRequest{
				CompaniesPath: pick(opts.companies, a.cfg.Files.Companies),
				TimelinePath:  pick(opts.timeline, a.cfg.Files.Timeline),
				OutputPath:    pick(opts.output, a.cfg.Files.Merged),
			})
			// a missing input was already reported and is not a failure
			if errors.Is(err, merge.ErrMissingInput) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&opts.companies, "companies", "", "Company list (JSON, CSV or XLSX)")
	cmd.Flags().StringVar(&opts.timeline, "timeline", "", "Timeline events (JSON or YAML)")
	cmd.Flags().StringVar(&opts.output, "output", "", "Merged output file")
	cmd.Flags().BoolVar(&opts.store, "store", false, "Also store the result and run log in Postgres")
	return cmd
}
