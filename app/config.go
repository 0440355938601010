package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newsdesk-cms/newsdesk/internal/config"
)

var dumpJSON bool

func init() { //nolint: gochecknoinits
	configCmd.Flags().BoolVar(&dumpJSON, "json", false, "Print as JSON instead of TOML")
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration with secrets masked",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.ReadConfig(configPath)
		if err != nil {
			return err
		}

		if devMode {
			cfg.DevMode = true
		}

		dump := config.DumpConfig
		if dumpJSON {
			dump = config.DumpConfigJSON
		}

		out, err := dump(cfg.Masked())
		if err != nil {
			return err
		}

		_, err = fmt.Fprint(cmd.OutOrStdout(), out)

		return err
	},
}
