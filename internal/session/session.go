// Package session wires a Plot to a filter Bank and serializes every host
// call into them. Desktop shells hold one Session each.
package session

import (
	"fmt"
	"image"
	"sync"

	"github.com/eqplus/eqplus/internal/config"
	"github.com/eqplus/eqplus/internal/domain"
	"github.com/eqplus/eqplus/internal/eqstate"
	"github.com/eqplus/eqplus/internal/logger"
	"github.com/eqplus/eqplus/internal/plot"
)

// Session is safe for concurrent use. Listeners run on the goroutine that
// caused the change and must not call back into the Session.
type Session struct {
	mu       sync.Mutex
	plot     *plot.Plot
	bank     *eqstate.Bank
	sizes    *plot.SizeNotifier
	release  func()
	onState  []func(eqstate.Snapshot)
	onCursor []func(plot.Cursor)
	cursor   plot.Cursor
	closed   bool
}

// New builds a session from cfg. Edits are forwarded to sink.
func New(cfg *config.Config, sink eqstate.Sink, opts ...eqstate.Option) (*Session, error) {
	ps := cfg.PlotSettings()
	es := cfg.EngineSettings()

	bank, err := eqstate.NewBank(sink, es.ThrottleInterval, opts...)
	if err != nil {
		return nil, err
	}

	popts := plot.DefaultOptions()
	popts.SampleRate = ps.SampleRate
	popts.Strict = cfg.DebugMode()
	popts.DrawComposite = ps.DrawCompositeResponse
	popts.Palette = themeOrDefault(ps.Theme)
	popts.Intents = bank

	s := &Session{
		plot:  plot.New(popts),
		bank:  bank,
		sizes: plot.NewSizeNotifier(),
	}
	snap := bank.Snapshot()
	if err := s.plot.Update(snap.Filters, snap.ActiveIndex, snap.Disabled); err != nil {
		bank.Close()
		return nil, fmt.Errorf("failed to load filters into plot: %w", err)
	}
	bank.Subscribe(s.applySnapshot)
	s.release = s.plot.Mount(s.sizes)
	s.sizes.Notify(plot.Size{Width: ps.Width, Height: ps.Height, Ratio: ps.DevicePixelRatio})

	cfg.OnChange(s.Reconfigure)

	logger.Info("Session started",
		logger.Float64("sample_rate", ps.SampleRate),
		logger.String("theme", ps.Theme),
		logger.Int("filters", len(snap.Filters)))
	return s, nil
}

func themeOrDefault(name string) plot.Palette {
	t, err := plot.LoadTheme(name)
	if err != nil {
		logger.Warn("Falling back to default theme", logger.String("theme", name), logger.Error(err))
		return plot.DefaultTheme()
	}
	return t
}

// applySnapshot runs inside a bank commit, which only happens while s.mu
// is held by one of the methods below.
func (s *Session) applySnapshot(snap eqstate.Snapshot) {
	if err := s.plot.Update(snap.Filters, snap.ActiveIndex, snap.Disabled); err != nil {
		logger.ErrorLog("Plot rejected filter snapshot", logger.Error(err))
		return
	}
	for _, fn := range s.onState {
		fn(snap)
	}
}

// Reconfigure applies the plot settings of cfg that can change at runtime.
func (s *Session) Reconfigure(cfg *config.Config) {
	ps := cfg.PlotSettings()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.plot.SetPalette(themeOrDefault(ps.Theme))
	s.plot.SetDrawComposite(ps.DrawCompositeResponse)
}

// OnState registers fn to receive every committed bank state.
func (s *Session) OnState(fn func(eqstate.Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onState = append(s.onState, fn)
}

// OnCursor registers fn to receive cursor changes.
func (s *Session) OnCursor(fn func(plot.Cursor)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCursor = append(s.onCursor, fn)
}

// input runs fn under the lock and reports a cursor change afterwards.
func (s *Session) input(fn func(p *plot.Plot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	fn(s.plot)
	if c := s.plot.Cursor(); c != s.cursor {
		s.cursor = c
		for _, cb := range s.onCursor {
			cb(c)
		}
	}
}

func (s *Session) PointerDown(x, y float64) {
	s.input(func(p *plot.Plot) { p.PointerDown(x, y) })
}

func (s *Session) PointerMove(x, y float64) {
	s.input(func(p *plot.Plot) { p.PointerMove(x, y) })
}

func (s *Session) PointerUp() {
	s.input(func(p *plot.Plot) { p.PointerUp() })
}

func (s *Session) PointerLeave() {
	s.input(func(p *plot.Plot) { p.PointerLeave() })
}

func (s *Session) Wheel(deltaY float64) {
	s.input(func(p *plot.Plot) { p.Wheel(deltaY) })
}

func (s *Session) DoubleClick(x, y float64) {
	s.input(func(p *plot.Plot) { p.DoubleClick(x, y) })
}

// Resize reports a new container size.
func (s *Session) Resize(width, height, ratio float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.sizes.Notify(plot.Size{Width: width, Height: height, Ratio: ratio})
}

// Frame paints pending layers and passes each painted surface to draw
// while the lock is held. It returns the painted layers.
func (s *Session) Frame(draw func(l plot.Layer, surface *plot.Surface) error) (plot.Layer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, nil
	}
	painted := s.plot.Tick()
	if draw == nil {
		return painted, nil
	}
	for _, l := range plot.Layers {
		if !painted.Has(l) {
			continue
		}
		if err := draw(l, s.plot.Surface(l)); err != nil {
			return painted, fmt.Errorf("failed to publish %s layer: %w", l, err)
		}
	}
	return painted, nil
}

// Composite paints pending layers and returns a flattened copy.
func (s *Session) Composite() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plot.Tick()
	return s.plot.Composite()
}

// View is the interaction state hosts mirror in their own widgets.
type View struct {
	State     string           `json:"state"`
	Cursor    string           `json:"cursor"`
	Snapshot  eqstate.Snapshot `json:"snapshot"`
	Anchor    *plot.Point      `json:"anchor,omitempty"`
	RenderErr string           `json:"renderError,omitempty"`
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		State:    s.plot.State().String(),
		Cursor:   s.plot.Cursor().String(),
		Snapshot: s.bank.Snapshot(),
	}
	if pt, ok := s.plot.ActiveAnchor(); ok {
		v.Anchor = &pt
	}
	if err := s.plot.Err(); err != nil {
		v.RenderErr = err.Error()
	}
	return v
}

// edit runs fn against the bank under the lock.
func (s *Session) edit(fn func(b *eqstate.Bank) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSessionClosed
	}
	return fn(s.bank)
}

func (s *Session) Select(index int) error {
	return s.edit(func(b *eqstate.Bank) error { return b.Select(index) })
}

func (s *Session) SetType(t domain.FilterType) error {
	return s.edit(func(b *eqstate.Bank) error { return b.SetType(t) })
}

func (s *Session) Change(changes domain.FilterChanges) error {
	return s.edit(func(b *eqstate.Bank) error { return b.Change(changes) })
}

func (s *Session) Add(frequency float64) (domain.Filter, error) {
	var f domain.Filter
	err := s.edit(func(b *eqstate.Bank) error {
		var err error
		f, err = b.Add(frequency)
		return err
	})
	return f, err
}

func (s *Session) Remove(id string) error {
	return s.edit(func(b *eqstate.Bank) error { return b.Remove(id) })
}

// RemoveActive deletes the selected filter, if any.
func (s *Session) RemoveActive() error {
	return s.edit(func(b *eqstate.Bank) error {
		f, ok := b.Snapshot().Active()
		if !ok {
			return domain.ErrNoSelection
		}
		return b.Remove(f.ID)
	})
}

func (s *Session) SetPreamp(db float64) error {
	return s.edit(func(b *eqstate.Bank) error { return b.SetPreamp(db) })
}

func (s *Session) SetDisabled(disabled bool) {
	_ = s.edit(func(b *eqstate.Bank) error {
		b.SetDisabled(disabled)
		return nil
	})
}

// Close releases the size subscription and flushes held edits. It is safe
// to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.release()
	s.mu.Unlock()

	s.bank.Close()
	logger.Info("Session closed")
}
