package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/eqplus/eqplus/internal/domain"
	"github.com/eqplus/eqplus/internal/logger"
)

var (
	instance *Config
	once     sync.Once
)

const (
	KeyLogLevel         = "advanced.log_level"
	KeyDebugMode        = "advanced.debug_mode"
	KeySampleRate       = "plot.sample_rate"
	KeyPlotWidth        = "plot.width"
	KeyPlotHeight       = "plot.height"
	KeyDevicePixelRatio = "plot.device_pixel_ratio"
	KeyDrawComposite    = "plot.draw_composite_response"
	KeyTheme            = "plot.theme"
	KeyEngineConfigDir  = "engine.config_dir"
	KeyThrottle         = "engine.throttle_interval"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Plot     PlotConfig     `mapstructure:"plot"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Advanced AdvancedConfig `mapstructure:"advanced"`

	v         *viper.Viper
	mu        sync.RWMutex
	listeners []func(*Config)
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	DataDir string `mapstructure:"data_dir"`
	LogDir  string `mapstructure:"log_dir"`
}

type PlotConfig struct {
	SampleRate            float64 `mapstructure:"sample_rate"`
	Width                 float64 `mapstructure:"width"`
	Height                float64 `mapstructure:"height"`
	DevicePixelRatio      float64 `mapstructure:"device_pixel_ratio"`
	DrawCompositeResponse bool    `mapstructure:"draw_composite_response"`
	Theme                 string  `mapstructure:"theme"`
}

// EngineConfig describes the processing engine that receives filter edits.
type EngineConfig struct {
	ConfigDir        string        `mapstructure:"config_dir"`
	ThrottleInterval time.Duration `mapstructure:"throttle_interval"`
}

type AdvancedConfig struct {
	LogLevel  string `mapstructure:"log_level"`
	LogToFile bool   `mapstructure:"log_to_file"`
	DebugMode bool   `mapstructure:"debug_mode"` // unknown filter types fail loudly
}

// Get returns the process-wide configuration, searching the user, system
// and working directories and writing a default file when none exists.
func Get() *Config {
	once.Do(func() {
		instance = newConfig()
		if err := instance.load(); err != nil {
			logger.Warn("Using default configuration", logger.Error(err))
		}
	})
	return instance
}

// Load reads an explicit config file. It does not touch the singleton.
func Load(path string) (*Config, error) {
	c := newConfig()
	c.v.SetConfigFile(path)
	if err := c.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := c.v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Defaults returns a config holding only default values.
func Defaults() *Config {
	c := newConfig()
	if err := c.v.Unmarshal(c); err != nil {
		panic(err)
	}
	return c
}

func newConfig() *Config {
	c := &Config{v: viper.New()}
	c.v.SetConfigType("yaml")
	c.setDefaults()
	return c
}

func (c *Config) load() error {
	c.v.SetConfigName("config")
	c.v.AddConfigPath(userConfigDir())
	c.v.AddConfigPath(systemConfigDir())
	c.v.AddConfigPath(".")

	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		if err := c.createDefaultConfig(); err != nil {
			logger.Warn("Failed to create default config", logger.Error(err))
		}
	}

	if err := c.v.Unmarshal(c); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return c.Validate()
}

// Watch reloads the file on change and notifies OnChange listeners. Only
// configs backed by a file can be watched.
func (c *Config) Watch() {
	if c.v.ConfigFileUsed() == "" {
		return
	}
	c.v.OnConfigChange(func(e fsnotify.Event) {
		c.mu.Lock()
		if err := c.v.Unmarshal(c); err != nil {
			c.mu.Unlock()
			logger.ErrorLog("Failed to reload config", logger.String("file", e.Name), logger.Error(err))
			return
		}
		listeners := make([]func(*Config), len(c.listeners))
		copy(listeners, c.listeners)
		c.mu.Unlock()

		if err := c.Validate(); err != nil {
			logger.Warn("Reloaded config is invalid", logger.String("file", e.Name), logger.Error(err))
			return
		}
		logger.Info("Config reloaded", logger.String("file", e.Name))
		for _, fn := range listeners {
			fn(c)
		}
	})
	c.v.WatchConfig()
}

// OnChange registers fn to run after every successful reload.
func (c *Config) OnChange(fn func(*Config)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Validate rejects settings the plot cannot draw with.
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	invalid := func(details string, cause error) error {
		if cause != nil {
			cause = fmt.Errorf("%w: %w", domain.ErrInvalidInput, cause)
		} else {
			cause = domain.ErrInvalidInput
		}
		return domain.NewDomainErrorWithDetails(domain.ErrCodeConfig, "invalid configuration", details, cause)
	}
	p := c.Plot
	switch {
	case !(p.SampleRate > 0):
		return invalid(fmt.Sprintf("%s must be positive, got %v", KeySampleRate, p.SampleRate), domain.ErrInvalidSampleRate)
	case !(p.Width > 0) || !(p.Height > 0):
		return invalid(fmt.Sprintf("plot size must be positive, got %vx%v", p.Width, p.Height), domain.ErrInvalidGeometry)
	case !(p.DevicePixelRatio > 0):
		return invalid(fmt.Sprintf("%s must be positive, got %v", KeyDevicePixelRatio, p.DevicePixelRatio), domain.ErrInvalidGeometry)
	case p.Theme == "":
		return invalid(KeyTheme+" is empty", nil)
	case c.Engine.ThrottleInterval < 0:
		return invalid(fmt.Sprintf("%s must not be negative, got %v", KeyThrottle, c.Engine.ThrottleInterval), nil)
	}
	return nil
}

func (c *Config) setDefaults() {
	dataDir := logger.DataDir()

	c.v.SetDefault("app.name", "eq+")
	c.v.SetDefault("app.version", "0.1.0")
	c.v.SetDefault("app.data_dir", dataDir)
	c.v.SetDefault("app.log_dir", filepath.Join(dataDir, "logs"))

	c.v.SetDefault(KeySampleRate, 48000.0)
	c.v.SetDefault(KeyPlotWidth, 750.0)
	c.v.SetDefault(KeyPlotHeight, 400.0)
	c.v.SetDefault(KeyDevicePixelRatio, 1.0)
	c.v.SetDefault(KeyDrawComposite, true)
	c.v.SetDefault(KeyTheme, "dark")

	c.v.SetDefault(KeyEngineConfigDir, defaultEngineConfigDir())
	c.v.SetDefault(KeyThrottle, 100*time.Millisecond)

	c.v.SetDefault(KeyLogLevel, "info")
	c.v.SetDefault("advanced.log_to_file", true)
	c.v.SetDefault(KeyDebugMode, false)
}

func defaultEngineConfigDir() string {
	if runtime.GOOS == "windows" {
		return `C:\Program Files\EqualizerAPO\config`
	}
	return filepath.Join(userConfigDir(), "engine")
}

func userConfigDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "eqplus")
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "eqplus")
}

func systemConfigDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("ProgramData"), "eqplus")
	}
	return "/etc/eqplus"
}

func (c *Config) createDefaultConfig() error {
	configDir := userConfigDir()
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}
	configPath := filepath.Join(configDir, "config.yaml")
	if err := c.v.SafeWriteConfigAs(configPath); err != nil {
		return err
	}
	c.v.SetConfigFile(configPath)
	return nil
}

// LoggerConfig derives the logger settings.
func (c *Config) LoggerConfig() logger.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cfg := logger.DefaultConfig()
	cfg.Level = c.Advanced.LogLevel
	cfg.File = c.Advanced.LogToFile
	cfg.FilePath = filepath.Join(c.App.LogDir, "eqplus.log")
	cfg.Caller = c.Advanced.DebugMode
	return cfg
}

// PlotSettings returns a copy of the plot section.
func (c *Config) PlotSettings() PlotConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Plot
}

// EngineSettings returns a copy of the engine section.
func (c *Config) EngineSettings() EngineConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Engine
}

func (c *Config) DebugMode() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Advanced.DebugMode
}

func (c *Config) ConfigFile() string {
	return c.v.ConfigFileUsed()
}

func (c *Config) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.WriteConfig()
}

func (c *Config) SaveAs(path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.WriteConfigAs(path)
}

func (c *Config) GetString(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetString(key)
}

func (c *Config) GetFloat64(key string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetFloat64(key)
}

func (c *Config) GetBool(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetBool(key)
}

func (c *Config) GetDuration(key string) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetDuration(key)
}

// Set stores value and refreshes the typed sections.
func (c *Config) Set(key string, value interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.v.Set(key, value)
	return c.v.Unmarshal(c)
}
