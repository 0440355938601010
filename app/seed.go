package app

import (
	"github.com/spf13/cobra"

	"github.com/newsdesk-cms/newsdesk/internal/daemon"
)

func init() { //nolint: gochecknoinits
	rootCmd.AddCommand(seedCmd)
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Migrate the database, seed permissions, default roles and the first administrator",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		return daemon.RunSeed(cmd.Context(), cfg)
	},
}
