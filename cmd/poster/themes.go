package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/simongrossi/maptoposter-web/internal/theme"
	"github.com/spf13/cobra"
)

func newThemesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "themes",
		Short: "List the available themes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			summaries, err := theme.NewCatalog(c.cfg.Paths.ThemesDir, c.logger).List()
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no themes found in %s\n", c.cfg.Paths.ThemesDir)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tBACKGROUND\tDESCRIPTION")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, s.Name, s.Colors.Bg, s.Description)
			}
			return w.Flush()
		},
	}
}
