package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/simongrossi/maptoposter-web/internal/domain"
	"github.com/simongrossi/maptoposter-web/internal/service"
	"github.com/simongrossi/maptoposter-web/internal/storage"
	"github.com/spf13/cobra"
)

type renderOptions struct {
	req       domain.PosterRequest
	outputDir string
	allThemes bool
}

func newRenderCmd(c *cli) *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a poster for a city",
		Long: `Render a poster for a city and print the path of the written file.

With --all-themes the same place is rendered once per theme found in the
themes directory. Map data is downloaded once and reused from the cache.`,
		Example: `  poster render --city Paris --country France --theme noir
  poster render --city Tokyo --country Japan --format svg --distance 8000
  poster render --city Rome --country Italy --all-themes --output ./out`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runRender(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.req.City, "city", "", "city name (required)")
	f.StringVar(&opts.req.Country, "country", "", "country name (required)")
	f.StringVarP(&opts.req.Style, "theme", "t", domain.DefaultStyle, "theme id")
	f.IntVarP(&opts.req.Distance, "distance", "d", domain.DefaultDistance, "map radius in meters")
	f.Float64Var(&opts.req.Width, "width", domain.DefaultWidth, "poster width in inches")
	f.Float64Var(&opts.req.Height, "height", domain.DefaultHeight, "poster height in inches")
	f.StringVarP(&opts.req.Format, "format", "f", domain.DefaultFormat, "output format: png, svg or pdf")
	f.IntVar(&opts.req.DPI, "dpi", domain.DefaultDPI, "raster resolution for png output")
	f.Float64Var(&opts.req.Margins, "margins", 0, "blank margin around the map in inches")
	f.StringVar(&opts.req.NameLabel, "name-label", "", "text printed instead of the city name")
	f.StringVar(&opts.req.CountryLabel, "country-label", "", "text printed instead of the country name")
	f.StringVarP(&opts.outputDir, "output", "o", "", "directory for the poster files; defaults to storage.local_dir")
	f.BoolVar(&opts.allThemes, "all-themes", false, "render once per available theme")
	_ = cmd.MarkFlagRequired("city")
	_ = cmd.MarkFlagRequired("country")

	return cmd
}

func (c *cli) runRender(cmd *cobra.Command, opts *renderOptions) error {
	req := opts.req
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return err
	}

	dir := opts.outputDir
	if dir == "" {
		dir = c.cfg.Storage.LocalDir
	}
	urls, err := storage.NewURLBuilder(c.cfg.Storage.URLTemplate)
	if err != nil {
		return err
	}
	store, err := storage.NewLocalStore(dir, urls, c.logger)
	if err != nil {
		return err
	}

	// Posters written by hand are never expired.
	cfg := *c.cfg
	cfg.Storage.PosterMaxAge = 0
	pipeline, err := service.NewPipeline(&cfg, store, c.logger)
	if err != nil {
		return err
	}

	styles := []string{req.Style}
	if opts.allThemes {
		themes, err := pipeline.Themes.List()
		if err != nil {
			return err
		}
		if len(themes) == 0 {
			return fmt.Errorf("no themes found in %s", c.cfg.Paths.ThemesDir)
		}
		styles = styles[:0]
		for _, t := range themes {
			styles = append(styles, t.ID)
		}
	}

	var errs []error
	for _, style := range styles {
		r := req
		r.Style = style
		result, err := pipeline.Generator.Generate(cmd.Context(), r, progressPrinter(cmd.ErrOrStderr(), style))
		if err != nil {
			if !opts.allThemes {
				return err
			}
			errs = append(errs, fmt.Errorf("theme %s: %w", style, err))
			continue
		}

		path, err := store.Path(result.Filename)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	return errors.Join(errs...)
}

// progressPrinter reports generation progress on one line per step.
func progressPrinter(w io.Writer, style string) domain.ProgressFunc {
	return func(current int, status string) {
		fmt.Fprintf(w, "[%s %3d%%] %s\n", style, current, status)
	}
}
