package main

import (
	"github.com/rpattn/placement-timeline/internal/db"

	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the Postgres schema for the dataset store and run log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return db.RunMigrations(a.cfg.Database.Config, a.logger)
		},
	}
}
