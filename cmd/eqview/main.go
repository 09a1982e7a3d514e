package main

import (
	"fmt"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/spf13/cobra"

	"github.com/eqplus/eqplus/internal/config"
	"github.com/eqplus/eqplus/internal/domain"
	"github.com/eqplus/eqplus/internal/eqstate"
	"github.com/eqplus/eqplus/internal/logger"
	"github.com/eqplus/eqplus/internal/session"
)

var Version = "dev"

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var (
		configPath string
		logLevel   string
		specs      []string
	)

	cmd := &cobra.Command{
		Use:   "eqview",
		Short: "Native response plot window",
		Long: `Native response plot window.

Drag a handle to move a filter, scroll to change its Q, double-click to add a
filter. Delete removes the selected filter, T cycles its type, B toggles
bypass and Escape clears the selection.`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath, logLevel)
			if err != nil {
				return err
			}
			defer logger.Get().Close()
			return run(cfg, specs)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Path to a config file")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override advanced.log_level")
	cmd.Flags().StringArrayVarP(&specs, "filter", "f", nil, "Initial filter as type:frequency[:gain[:q]] (repeatable)")
	return cmd
}

func loadConfig(path, level string) (*config.Config, error) {
	var cfg *config.Config
	if path != "" {
		c, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = c
	} else {
		cfg = config.Get()
	}
	if level != "" {
		if err := cfg.Set(config.KeyLogLevel, level); err != nil {
			return nil, fmt.Errorf("failed to apply --log-level: %w", err)
		}
	}
	logger.Initialize(cfg.LoggerConfig())
	return cfg, nil
}

func run(cfg *config.Config, specs []string) error {
	filters := make([]domain.Filter, 0, len(specs))
	for i, spec := range specs {
		f, err := domain.ParseFilter(fmt.Sprintf("band%d", i+1), spec)
		if err != nil {
			return fmt.Errorf("filter %d: %w", i+1, err)
		}
		filters = append(filters, f)
	}

	cfg.Watch()
	s, err := session.New(cfg, eqstate.NewLogSink(cfg.EngineSettings().ConfigDir), eqstate.WithFilters(filters))
	if err != nil {
		return err
	}
	defer s.Close()

	ps := cfg.PlotSettings()
	ebiten.SetWindowTitle("eq+")
	ebiten.SetWindowSize(int(ps.Width), int(ps.Height))
	ebiten.SetWindowSizeLimits(320, 200, -1, -1)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	logger.Info("Viewer started", logger.Int("filters", len(filters)))
	if err := ebiten.RunGame(newViewer(s)); err != nil {
		return fmt.Errorf("viewer stopped: %w", err)
	}
	return nil
}
