package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/eqplus/eqplus/internal/config"
	"github.com/eqplus/eqplus/internal/domain"
	"github.com/eqplus/eqplus/internal/eqstate"
	"github.com/eqplus/eqplus/internal/logger"
	"github.com/eqplus/eqplus/internal/plot"
	"github.com/eqplus/eqplus/internal/session"
)

// App is bound to the frontend. Pointer coordinates arrive in CSS pixels
// relative to the plot element.
type App struct {
	ctx     context.Context
	config  *config.Config
	session *session.Session

	mu  sync.Mutex
	buf bytes.Buffer
}

func NewApp(cfg *config.Config) *App {
	return &App{config: cfg}
}

// startup is called when the window is ready. The context is kept for the
// runtime event calls.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	es := a.config.EngineSettings()
	s, err := session.New(a.config, eqstate.NewLogSink(es.ConfigDir))
	if err != nil {
		logger.ErrorLog("Failed to start session", logger.Error(err))
		runtime.Quit(ctx)
		return
	}
	s.OnState(func(snap eqstate.Snapshot) {
		runtime.EventsEmit(a.ctx, "eq:state", snap)
	})
	s.OnCursor(func(c plot.Cursor) {
		runtime.EventsEmit(a.ctx, "eq:cursor", c.String())
	})
	a.session = s

	logger.Info("eq+ UI started")
}

// shutdown is called when the window is closing.
func (a *App) shutdown(ctx context.Context) {
	if a.session != nil {
		a.session.Close()
	}
	logger.Info("eq+ UI shutdown")
}

// Plot input

func (a *App) PointerDown(x, y float64) {
	a.session.PointerDown(x, y)
}

func (a *App) PointerMove(x, y float64) {
	a.session.PointerMove(x, y)
}

func (a *App) PointerUp() {
	a.session.PointerUp()
}

func (a *App) PointerLeave() {
	a.session.PointerLeave()
}

func (a *App) Wheel(deltaY float64) {
	a.session.Wheel(deltaY)
}

func (a *App) DoubleClick(x, y float64) {
	a.session.DoubleClick(x, y)
}

// Resize reports the plot element's CSS size and window.devicePixelRatio.
func (a *App) Resize(width, height, ratio float64) {
	a.session.Resize(width, height, ratio)
}

// Frame paints pending layers and returns them as PNG data URLs keyed by
// layer name. Layers that did not change are omitted.
func (a *App) Frame() (map[string]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string]string, len(plot.Layers))
	_, err := a.session.Frame(func(l plot.Layer, s *plot.Surface) error {
		a.buf.Reset()
		if err := s.EncodePNG(&a.buf); err != nil {
			return err
		}
		out[l.String()] = "data:image/png;base64," + base64.StdEncoding.EncodeToString(a.buf.Bytes())
		return nil
	})
	if err != nil {
		logger.ErrorLog("Failed to publish frame", logger.Error(err))
		return nil, err
	}
	return out, nil
}

// Filter bank

func (a *App) GetState() session.View {
	return a.session.View()
}

func (a *App) SelectFilter(index int) error {
	return a.session.Select(index)
}

func (a *App) AddFilter(frequency float64) (domain.Filter, error) {
	return a.session.Add(frequency)
}

func (a *App) RemoveFilter(id string) error {
	return a.session.Remove(id)
}

func (a *App) SetFilterType(name string) error {
	t, err := domain.ParseFilterType(name)
	if err != nil {
		return err
	}
	return a.session.SetType(t)
}

// SetFilterValue edits one parameter of the selected filter from the
// dial controls: "frequency", "gain" or "q".
func (a *App) SetFilterValue(param string, value float64) error {
	var changes domain.FilterChanges
	switch param {
	case "frequency":
		changes.Frequency = &value
	case "gain":
		changes.Gain = &value
	case "q":
		changes.Q = &value
	default:
		return fmt.Errorf("%w: unknown parameter %q", domain.ErrInvalidInput, param)
	}
	return a.session.Change(changes)
}

func (a *App) SetPreamp(db float64) error {
	return a.session.SetPreamp(db)
}

func (a *App) SetDisabled(disabled bool) {
	a.session.SetDisabled(disabled)
}

func (a *App) FilterTypes() []string {
	types := domain.FilterTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return names
}

// Settings

func (a *App) GetSettings() map[string]interface{} {
	ps := a.config.PlotSettings()
	es := a.config.EngineSettings()
	return map[string]interface{}{
		"drawCompositeResponse": ps.DrawCompositeResponse,
		"theme":                 ps.Theme,
		"themes":                plot.ThemeNames(),
		"configDir":             es.ConfigDir,
	}
}

// UpdateSettings applies and saves the given settings. Unknown keys are
// ignored.
func (a *App) UpdateSettings(settings map[string]interface{}) error {
	if v, ok := settings["drawCompositeResponse"].(bool); ok {
		if err := a.config.Set(config.KeyDrawComposite, v); err != nil {
			return err
		}
	}
	if v, ok := settings["theme"].(string); ok {
		if _, err := plot.LoadTheme(v); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		if err := a.config.Set(config.KeyTheme, v); err != nil {
			return err
		}
	}
	if v, ok := settings["configDir"].(string); ok {
		if err := a.config.Set(config.KeyEngineConfigDir, v); err != nil {
			return err
		}
	}
	a.session.Reconfigure(a.config)

	if err := a.config.Save(); err != nil {
		logger.Warn("Settings applied but not saved", logger.Error(err))
	}
	return nil
}
