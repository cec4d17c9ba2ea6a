package main

import (
	"fmt"

	"github.com/simongrossi/maptoposter-web/internal/cache"
	"github.com/spf13/cobra"
)

func newCacheCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the geocoding and map data cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every cached geocoding result and map layer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dc, err := cache.NewDiskCache(c.cfg.Paths.CacheDir, c.logger)
			if err != nil {
				return err
			}
			removed, err := dc.Clear()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d cache entries from %s\n", removed, dc.Dir())
			return nil
		},
	})
	return cmd
}
