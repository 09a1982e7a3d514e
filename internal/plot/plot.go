package plot

import (
	"image"

	"github.com/fogleman/gg"

	"github.com/eqplus/eqplus/internal/domain"
	"github.com/eqplus/eqplus/internal/logger"
)

// Options configures a Plot.
type Options struct {
	SampleRate    float64
	Strict        bool
	DrawComposite bool
	Palette       Palette
	Intents       Intents
}

// DefaultOptions returns the options used by the desktop shell.
func DefaultOptions() Options {
	return Options{
		SampleRate:    DefaultSampleRate,
		DrawComposite: true,
	}
}

// Plot owns the geometry, the filter snapshot, the handle registry, the
// controller and one surface per layer. It is not safe for concurrent use.
type Plot struct {
	model      *model
	mapper     Mapper
	renderer   *Renderer
	registry   *HandleRegistry
	scheduler  *FrameScheduler
	controller *Controller

	palette       Palette
	drawComposite bool
	ratio         float64
	surfaces      map[Layer]*Surface
	err           error
}

func New(opts Options) *Plot {
	if !(opts.SampleRate > 0) {
		logger.Warn("Using default sample rate",
			logger.Float64("sample_rate", opts.SampleRate),
			logger.Float64("default", DefaultSampleRate),
			logger.Error(domain.ErrInvalidSampleRate))
	}
	mapper := NewMapper(opts.SampleRate)
	palette := opts.Palette
	if palette == nil {
		palette = DefaultTheme()
	}

	p := &Plot{
		model:         &model{active: NoSelection},
		mapper:        mapper,
		renderer:      NewRenderer(NewResponseEngine(mapper, opts.Strict)),
		registry:      NewHandleRegistry(),
		palette:       palette,
		drawComposite: opts.DrawComposite,
		ratio:         1,
		surfaces:      make(map[Layer]*Surface, len(Layers)),
	}
	p.scheduler = NewFrameScheduler(p.paint)
	p.controller = newController(p.model, mapper, p.registry, p.scheduler, opts.Intents)
	return p
}

func (p *Plot) Mapper() Mapper {
	return p.mapper
}

func (p *Plot) Controller() *Controller {
	return p.controller
}

func (p *Plot) Registry() *HandleRegistry {
	return p.registry
}

func (p *Plot) Scheduler() *FrameScheduler {
	return p.scheduler
}

// Update replaces the filter snapshot. Ids must be unique; a set with a
// duplicate leaves the previous snapshot in place. Filter values are drawn
// as given.
func (p *Plot) Update(filters []domain.Filter, activeIndex int, disabled bool) error {
	if err := domain.UniqueIDs(filters); err != nil {
		return err
	}
	if activeIndex < 0 || activeIndex >= len(filters) {
		activeIndex = NoSelection
	}
	p.model.filters = append(p.model.filters[:0:0], filters...)
	p.model.active = activeIndex
	p.model.disabled = disabled
	p.controller.reset()
	p.scheduler.RequestRedraw(LayerCurve)
	return nil
}

// Filters returns a copy of the current snapshot.
func (p *Plot) Filters() []domain.Filter {
	return append([]domain.Filter(nil), p.model.filters...)
}

func (p *Plot) ActiveIndex() int {
	return p.model.active
}

func (p *Plot) Disabled() bool {
	return p.model.disabled
}

// Resize changes the logical size and device pixel ratio. Surfaces are
// reallocated and every layer is repainted on the next tick. A
// non-positive size drops the surfaces and paints nothing until a valid
// size arrives.
func (p *Plot) Resize(width, height, ratio float64) {
	if !(ratio > 0) {
		ratio = 1
	}
	if width == p.model.width && height == p.model.height && ratio == p.ratio && len(p.surfaces) > 0 {
		return
	}
	p.model.width, p.model.height, p.ratio = width, height, ratio
	for l := range p.surfaces {
		delete(p.surfaces, l)
	}
	if !p.model.sized() {
		p.registry.Clear()
		p.scheduler.Cancel(AllLayers)
		logger.Debug("Plot collapsed", logger.Float64("width", width), logger.Float64("height", height))
		return
	}
	for _, l := range Layers {
		p.surfaces[l] = NewSurface(width, height, ratio)
	}
	p.scheduler.RequestRedraw(AllLayers)
}

// Size returns the logical size and device pixel ratio.
func (p *Plot) Size() (width, height, ratio float64) {
	return p.model.width, p.model.height, p.ratio
}

// SetPalette switches colors and repaints every layer.
func (p *Plot) SetPalette(palette Palette) {
	if palette == nil {
		return
	}
	p.palette = palette
	p.scheduler.RequestRedraw(AllLayers)
}

// SetDrawComposite toggles the composite response line.
func (p *Plot) SetDrawComposite(on bool) {
	if p.drawComposite == on {
		return
	}
	p.drawComposite = on
	p.scheduler.RequestRedraw(LayerCurve)
}

// Tick paints every layer requested since the previous tick and returns
// them. Hosts call it once per display refresh.
func (p *Plot) Tick() Layer {
	if !p.model.sized() {
		p.scheduler.Cancel(AllLayers)
		return 0
	}
	return p.scheduler.Tick()
}

func (p *Plot) paint(l Layer) {
	s, ok := p.surfaces[l]
	if !ok {
		return
	}
	switch l {
	case LayerGrid:
		p.renderer.DrawGrid(s, p.palette)
	case LayerCurve:
		p.err = p.renderer.DrawCurve(s, p.palette, CurveParams{
			Filters:       p.model.filters,
			ActiveIndex:   p.model.active,
			Disabled:      p.model.disabled,
			DrawComposite: p.drawComposite,
		}, p.registry)
		if p.err != nil {
			logger.ErrorLog("Failed to draw response curve", logger.Error(p.err))
			return
		}
		// hover is derived from the pointer, so carry it across the rebuild
		if pt, shown := p.controller.Crosshair(); shown {
			p.registry.UpdateHover(pt)
		}
		p.controller.syncHover()
	case LayerCrosshair:
		pt, shown := p.controller.Crosshair()
		p.renderer.DrawCrosshair(s, p.palette, pt, shown)
	}
}

// Err returns the error from the most recent curve paint, if any.
func (p *Plot) Err() error {
	return p.err
}

// Surface returns the surface backing l, or nil while the plot has no size.
func (p *Plot) Surface(l Layer) *Surface {
	return p.surfaces[l]
}

// Composite flattens the layers bottom to top into one device-pixel image.
func (p *Plot) Composite() image.Image {
	grid, ok := p.surfaces[LayerGrid]
	if !ok {
		return nil
	}
	b := grid.Image().Bounds()
	dc := gg.NewContext(b.Dx(), b.Dy())
	for _, l := range Layers {
		dc.DrawImage(p.surfaces[l].Image(), 0, 0)
	}
	return dc.Image()
}

// ActiveAnchor is where floating controls for the selected filter attach:
// the down-right corner of its handle.
func (p *Plot) ActiveAnchor() (Point, bool) {
	f, ok := p.model.activeFilter()
	if !ok {
		return Point{}, false
	}
	h, ok := p.registry.Get(f.ID)
	if !ok {
		return Point{}, false
	}
	return Point{X: h.Location.X + HandleRadius, Y: h.Location.Y + HandleRadius}, true
}

func (p *Plot) State() State {
	return p.controller.State()
}

func (p *Plot) Cursor() Cursor {
	return p.controller.Cursor()
}

func (p *Plot) PointerDown(x, y float64) {
	p.controller.PointerDown(Point{X: x, Y: y})
}

func (p *Plot) PointerMove(x, y float64) {
	p.controller.PointerMove(Point{X: x, Y: y})
}

func (p *Plot) PointerUp() {
	p.controller.PointerUp()
}

func (p *Plot) PointerLeave() {
	p.controller.PointerLeave()
}

func (p *Plot) Wheel(deltaY float64) {
	p.controller.Wheel(deltaY)
}

func (p *Plot) DoubleClick(x, y float64) {
	p.controller.DoubleClick(Point{X: x, Y: y})
}
