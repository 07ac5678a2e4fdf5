package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/microscanai/microscan/internal/store/postgres"
)

func init() {
	migrateCmd := &cobra.Command{
		Use:       "migrate up|down",
		Short:     "Apply Postgres schema migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := postgres.Migrate(cfg.Postgres.ConnString(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(os.Stdout, "migrations %s applied\n", args[0])
			return nil
		},
	}
	rootCmd.AddCommand(migrateCmd)
}
