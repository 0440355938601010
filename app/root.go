// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/newsdesk-cms/newsdesk/internal/config"
	"github.com/newsdesk-cms/newsdesk/internal/logger"
)

var (
	configPath string // Path to the configuration directory
	devMode    bool

	rootCmd = &cobra.Command{
		Use:   "newsdesk",
		Short: "newsdesk serves the access control API of the newsdesk CMS",
		Long: `newsdesk serves the back office API of the newsdesk CMS:
login, roles, permissions and user administration.`,
		Args:         cobra.OnlyValidArgs,
		SilenceUsage: true,
	}
)

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./etc/", "Directory holding main.toml")
	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false, "Enable dev mode")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the configuration, applies the command line flags and sets up logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.ReadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if devMode {
		cfg.DevMode = true
	}

	if err := logger.Init(cfg.Log); err != nil {
		return nil, err
	}

	return &cfg, nil
}
