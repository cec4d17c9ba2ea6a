package main

import (
	"fmt"
	"log/slog"

	"github.com/simongrossi/maptoposter-web/internal/config"
	"github.com/simongrossi/maptoposter-web/internal/platform/logger"
	"github.com/spf13/cobra"
)

// cli carries what the subcommands share once the root command has loaded
// the configuration.
type cli struct {
	cfg      *config.Config
	logger   *slog.Logger
	logLevel string
}

// newRootCmd builds the command tree. Every subcommand reads the same
// MAPTOPOSTER_* configuration as the server.
func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "poster",
		Short: "Render minimalist city map posters from OpenStreetMap data",
		Long: `poster renders city map posters on this machine.

It uses the same geocoder, map data cache, themes and renderer as the API
server but runs each job synchronously and writes to local storage.

Configuration comes from MAPTOPOSTER_* environment variables and an optional
config.yaml in the working directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadOffline()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			level := cfg.Server.LogLevel
			if c.logLevel != "" {
				level = c.logLevel
			}
			c.cfg = cfg
			c.logger = logger.SetupWithWriter(level, cmd.ErrOrStderr())
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "",
		"log level (debug, info, warn, error); defaults to server.log_level")

	root.AddCommand(
		newRenderCmd(c),
		newThemesCmd(c),
		newCacheCmd(c),
		newTokenCmd(c),
	)
	return root
}
