package main

import (
	"embed"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/windows"

	"github.com/eqplus/eqplus/internal/config"
	"github.com/eqplus/eqplus/internal/logger"
)

//go:embed all:frontend/dist
var assets embed.FS

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// globals holds the persistent flags and the configuration they select.
type globals struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:           "eqplus",
		Short:         "Parametric equalizer with an interactive response plot",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGUI(g)
		},
	}
	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", "", "Path to a config file (default: search the user and system config dirs)")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Override advanced.log_level (debug, info, warn, error)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "eqplus %s (built %s)\n", Version, BuildTime)
		},
	}
	guiCmd := &cobra.Command{
		Use:   "gui",
		Short: "Open the equalizer window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGUI(g)
		},
	}

	rootCmd.AddCommand(guiCmd, renderCommand(g), versionCmd)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		return g.initialize()
	}
	return rootCmd
}

// initialize loads the configuration and sets up logging before any
// subcommand runs.
func (g *globals) initialize() error {
	if g.configPath != "" {
		cfg, err := config.Load(g.configPath)
		if err != nil {
			return err
		}
		g.cfg = cfg
	} else {
		g.cfg = config.Get()
	}

	if g.logLevel != "" {
		if err := g.cfg.Set(config.KeyLogLevel, g.logLevel); err != nil {
			return fmt.Errorf("failed to apply --log-level: %w", err)
		}
	}
	logger.Initialize(g.cfg.LoggerConfig())
	logger.Info("Starting eqplus",
		logger.String("version", Version),
		logger.String("build_time", BuildTime),
		logger.String("config", g.cfg.ConfigFile()))
	return nil
}

func runGUI(g *globals) error {
	defer logger.Get().Close()

	g.cfg.Watch()
	app := NewApp(g.cfg)
	ps := g.cfg.PlotSettings()

	err := wails.Run(&options.App{
		Title:     "eq+",
		Width:     int(ps.Width) + 48,
		Height:    int(ps.Height) + 160,
		MinWidth:  480,
		MinHeight: 320,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 27, G: 38, B: 54, A: 1},
		OnStartup:        app.startup,
		OnShutdown:       app.shutdown,
		Bind: []interface{}{
			app,
		},
		Windows: &windows.Options{
			WebviewIsTransparent: false,
			WindowIsTranslucent:  false,
			DisableWindowIcon:    false,
			Theme:                windows.Dark,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to run window: %w", err)
	}
	return nil
}
