package plot

import (
	"math"

	"github.com/eqplus/eqplus/internal/domain"
	"github.com/eqplus/eqplus/internal/logger"
)

const (
	MinQ = 0.01
	MaxQ = 10.0

	// qStep is the relative wheel step as a fraction of the current Q.
	qStep = 0.1
)

// NoSelection is the active index when no filter is selected.
const NoSelection = -1

// State is the interaction state.
type State int

const (
	StateIdle State = iota
	StateHovering
	StateDragging
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateHovering:
		return "hovering"
	case StateDragging:
		return "dragging"
	default:
		return "unknown"
	}
}

// Cursor is the pointer affordance the host should show.
type Cursor int

const (
	CursorDefault Cursor = iota
	CursorGrabbing
)

func (c Cursor) String() string {
	if c == CursorGrabbing {
		return "grabbing"
	}
	return "default"
}

// Intents receives the edits produced by user input. The receiver owns the
// filter set and is expected to call Plot.Update with the result.
type Intents interface {
	OnHandleSelected(index int)
	OnFilterChanged(changes domain.FilterChanges)
	OnFilterAdded(frequency float64)
}

// IntentFuncs adapts plain functions to Intents. Nil fields are skipped.
type IntentFuncs struct {
	Selected func(index int)
	Changed  func(changes domain.FilterChanges)
	Added    func(frequency float64)
}

func (f IntentFuncs) OnHandleSelected(index int) {
	if f.Selected != nil {
		f.Selected(index)
	}
}

func (f IntentFuncs) OnFilterChanged(changes domain.FilterChanges) {
	if f.Changed != nil {
		f.Changed(changes)
	}
}

func (f IntentFuncs) OnFilterAdded(frequency float64) {
	if f.Added != nil {
		f.Added(frequency)
	}
}

// model is the caller-owned state shared by Plot and Controller.
type model struct {
	filters  []domain.Filter
	active   int
	disabled bool
	width    float64
	height   float64
}

func (m *model) activeFilter() (domain.Filter, bool) {
	if m.active < 0 || m.active >= len(m.filters) {
		return domain.Filter{}, false
	}
	return m.filters[m.active], true
}

func (m *model) sized() bool {
	return m.width > 0 && m.height > 0
}

// Controller turns pointer and wheel input into intents. It reads the
// handle registry but never writes filter state.
type Controller struct {
	model     *model
	mapper    Mapper
	registry  *HandleRegistry
	scheduler *FrameScheduler
	intents   Intents

	state  State
	target string
	cursor Cursor

	pointer   Point
	crosshair bool
}

func newController(m *model, mapper Mapper, reg *HandleRegistry, sched *FrameScheduler, intents Intents) *Controller {
	if intents == nil {
		intents = IntentFuncs{}
	}
	return &Controller{
		model:     m,
		mapper:    mapper,
		registry:  reg,
		scheduler: sched,
		intents:   intents,
	}
}

func (c *Controller) State() State {
	return c.state
}

// Target is the handle id of the hovered or dragged handle.
func (c *Controller) Target() string {
	return c.target
}

func (c *Controller) Cursor() Cursor {
	return c.cursor
}

// Crosshair returns the last pointer position and whether the crosshair is
// shown.
func (c *Controller) Crosshair() (Point, bool) {
	return c.pointer, c.crosshair
}

func isSentinel(p Point) bool {
	return p.X == 0 && p.Y == 0
}

// PointerDown selects and starts dragging the handle under p.
func (c *Controller) PointerDown(p Point) {
	if c.model.disabled {
		return
	}
	id, ok := c.registry.HitTest(p)
	if !ok {
		return
	}
	index := domain.IndexOf(c.model.filters, id)
	if index < 0 {
		return
	}
	logger.Debug("Handle grabbed", logger.String("id", id), logger.Int("index", index))
	c.state = StateDragging
	c.target = id
	c.cursor = CursorGrabbing
	c.intents.OnHandleSelected(index)
}

// PointerMove updates the crosshair and either the hover state or the
// dragged filter.
func (c *Controller) PointerMove(p Point) {
	if c.model.disabled {
		return
	}
	if isSentinel(p) {
		c.hideCrosshair()
		return
	}
	c.pointer = p
	c.crosshair = true
	c.scheduler.RequestRedraw(LayerCrosshair)

	if c.state == StateDragging {
		c.drag(p)
		return
	}

	if c.registry.UpdateHover(p) {
		c.scheduler.RequestRedraw(LayerCurve)
	}
	c.syncHover()
}

// syncHover derives Idle or Hovering from the registry. A drag is left
// alone.
func (c *Controller) syncHover() {
	if c.state == StateDragging {
		return
	}
	if id, ok := c.registry.Hovered(); ok {
		c.state = StateHovering
		c.target = id
	} else {
		c.state = StateIdle
		c.target = ""
	}
}

func (c *Controller) drag(p Point) {
	f, ok := c.model.activeFilter()
	if !ok || !c.model.sized() {
		return
	}
	freq := c.mapper.XToFreq(p.X, c.model.width)
	changes := domain.FilterChanges{Frequency: &freq}
	if f.UsesGain() {
		gain := GainAtY(p.Y, c.model.height, f.Type.IsShelf())
		changes.Gain = &gain
	}
	c.intents.OnFilterChanged(changes)
}

// PointerUp ends any drag. It is honored even when the plot is disabled.
func (c *Controller) PointerUp() {
	c.state = StateIdle
	c.target = ""
	c.cursor = CursorDefault
}

// PointerLeave clears the crosshair. A drag in progress is kept.
func (c *Controller) PointerLeave() {
	c.hideCrosshair()
}

func (c *Controller) hideCrosshair() {
	c.crosshair = false
	c.scheduler.RequestRedraw(LayerCrosshair)
}

// Wheel adjusts the Q of the active filter by 10% of its current value per
// notch. A positive deltaY lowers Q.
func (c *Controller) Wheel(deltaY float64) {
	if c.model.disabled {
		return
	}
	f, ok := c.model.activeFilter()
	if !ok || !f.UsesQ() {
		return
	}
	q := NextQ(f.Q, deltaY)
	c.intents.OnFilterChanged(domain.FilterChanges{Q: &q})
}

// NextQ is the Q after one wheel notch with the given deltaY.
func NextQ(q, deltaY float64) float64 {
	dir := 1.0
	if deltaY > 0 {
		dir = -1
	}
	return clamp(q+q*qStep*dir, MinQ, MaxQ)
}

// DoubleClick requests a new filter at the frequency under p.
func (c *Controller) DoubleClick(p Point) {
	if c.model.disabled || !c.model.sized() {
		return
	}
	freq := c.mapper.XToFreq(p.X, c.model.width)
	if math.IsNaN(freq) || math.IsInf(freq, 0) {
		return
	}
	c.intents.OnFilterAdded(freq)
}

// reset returns to Idle after the handle set changed underneath a hover.
func (c *Controller) reset() {
	if c.state == StateHovering {
		c.state = StateIdle
		c.target = ""
	}
}
