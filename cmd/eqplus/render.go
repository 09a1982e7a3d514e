package main

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eqplus/eqplus/internal/config"
	"github.com/eqplus/eqplus/internal/domain"
	"github.com/eqplus/eqplus/internal/eqstate"
	"github.com/eqplus/eqplus/internal/logger"
	"github.com/eqplus/eqplus/internal/plot"
	"github.com/eqplus/eqplus/internal/session"
)

type renderOptions struct {
	filters  []string
	out      string
	width    float64
	height   float64
	ratio    float64
	theme    string
	active   int
	disabled bool
	layers   bool
	pointer  string
}

func renderCommand(g *globals) *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the response plot to PNG without opening a window",
		Long: `Render the response plot to PNG without opening a window.

Filters are given as type:frequency[:gain[:q]], for example
  eqplus render -f peaking:1000:6:1 -f lowshelf:100:-3 -o plot.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(g.cfg, opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.filters, "filter", "f", nil, "Filter as type:frequency[:gain[:q]] (repeatable)")
	cmd.Flags().StringVarP(&opts.out, "output", "o", "eqplus.png", "Output PNG path")
	cmd.Flags().Float64Var(&opts.width, "width", 0, "Logical width (default plot.width)")
	cmd.Flags().Float64Var(&opts.height, "height", 0, "Logical height (default plot.height)")
	cmd.Flags().Float64Var(&opts.ratio, "dpr", 0, "Device pixel ratio (default plot.device_pixel_ratio)")
	cmd.Flags().StringVar(&opts.theme, "theme", "", "Theme name (default plot.theme)")
	cmd.Flags().IntVar(&opts.active, "active", plot.NoSelection, "Index of the selected filter")
	cmd.Flags().BoolVar(&opts.disabled, "disabled", false, "Draw the plot in its disabled state")
	cmd.Flags().BoolVar(&opts.layers, "layers", false, "Write one PNG per layer instead of a flattened image")
	cmd.Flags().StringVar(&opts.pointer, "pointer", "", "Show the crosshair at x,y")

	return cmd
}

func runRender(cfg *config.Config, opts *renderOptions) error {
	filters, err := parseFilters(opts.filters)
	if err != nil {
		return err
	}
	if opts.theme != "" {
		if err := cfg.Set(config.KeyTheme, opts.theme); err != nil {
			return err
		}
	}
	if err := cfg.Set(config.KeyThrottle, 0); err != nil {
		return err
	}

	ps := cfg.PlotSettings()
	width, height, ratio := orDefault(opts.width, ps.Width), orDefault(opts.height, ps.Height), orDefault(opts.ratio, ps.DevicePixelRatio)

	s, err := session.New(cfg, eqstate.NewLogSink("render"), eqstate.WithFilters(filters))
	if err != nil {
		return err
	}
	defer s.Close()

	s.Resize(width, height, ratio)
	if opts.active != plot.NoSelection {
		if err := s.Select(opts.active); err != nil {
			return err
		}
	}
	s.SetDisabled(opts.disabled)
	if opts.pointer != "" {
		x, y, err := parsePoint(opts.pointer)
		if err != nil {
			return err
		}
		// pointer input is ignored while disabled
		s.SetDisabled(false)
		s.PointerMove(x, y)
		s.SetDisabled(opts.disabled)
	}

	if opts.layers {
		return writeLayers(s, opts.out)
	}

	img := s.Composite()
	if img == nil {
		return fmt.Errorf("%w: %vx%v", domain.ErrInvalidGeometry, width, height)
	}
	f, err := os.Create(opts.out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", opts.out, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode %s: %w", opts.out, err)
	}
	logger.Info("Plot rendered", logger.String("file", opts.out), logger.Int("filters", len(filters)))
	return nil
}

// writeLayers writes out-grid.png, out-curve.png and out-crosshair.png.
func writeLayers(s *session.Session, out string) error {
	ext := filepath.Ext(out)
	base := strings.TrimSuffix(out, ext)
	if ext == "" {
		ext = ".png"
	}
	painted, err := s.Frame(func(l plot.Layer, surface *plot.Surface) error {
		path := fmt.Sprintf("%s-%s%s", base, l, ext)
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := surface.EncodePNG(f); err != nil {
			return err
		}
		logger.Info("Layer rendered", logger.Stringer("layer", l), logger.String("file", path))
		return nil
	})
	if err != nil {
		return err
	}
	if painted == 0 {
		return fmt.Errorf("%w: nothing to render", domain.ErrInvalidGeometry)
	}
	return nil
}

func parseFilters(specs []string) ([]domain.Filter, error) {
	filters := make([]domain.Filter, 0, len(specs))
	for i, spec := range specs {
		f, err := domain.ParseFilter(fmt.Sprintf("band%d", i+1), spec)
		if err != nil {
			return nil, fmt.Errorf("filter %d %q: %w", i+1, spec, err)
		}
		filters = append(filters, f)
	}
	return filters, nil
}

func parsePoint(s string) (float64, float64, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("%w: pointer %q, want x,y", domain.ErrInvalidInput, s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return x, y, nil
}

func orDefault(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}
