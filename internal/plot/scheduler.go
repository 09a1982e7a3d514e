package plot

// Layer identifies one raster surface of the plot.
type Layer uint8

const (
	LayerGrid Layer = 1 << iota
	LayerCurve
	LayerCrosshair

	AllLayers = LayerGrid | LayerCurve | LayerCrosshair
)

// Layers lists the layers in paint order, bottom first.
var Layers = []Layer{LayerGrid, LayerCurve, LayerCrosshair}

func (l Layer) Has(o Layer) bool {
	return l&o != 0
}

func (l Layer) String() string {
	switch l {
	case LayerGrid:
		return "grid"
	case LayerCurve:
		return "curve"
	case LayerCrosshair:
		return "crosshair"
	case 0:
		return "none"
	}
	s := ""
	for _, one := range Layers {
		if l.Has(one) {
			if s != "" {
				s += "+"
			}
			s += one.String()
		}
	}
	return s
}

// FrameScheduler coalesces redraw requests. Any number of requests for a
// layer between two ticks produce a single paint of that layer on the next
// tick.
type FrameScheduler struct {
	pending Layer
	paint   func(Layer)
}

// NewFrameScheduler calls paint once per pending layer on every Tick.
func NewFrameScheduler(paint func(Layer)) *FrameScheduler {
	return &FrameScheduler{paint: paint}
}

func (s *FrameScheduler) RequestRedraw(layers Layer) {
	s.pending |= layers
}

func (s *FrameScheduler) Pending() Layer {
	return s.pending
}

// Tick runs the pending paints in layer order and returns what was painted.
// Requests made from inside a paint are deferred to the next tick.
func (s *FrameScheduler) Tick() Layer {
	due := s.pending
	s.pending = 0
	for _, l := range Layers {
		if due.Has(l) {
			s.paint(l)
		}
	}
	return due
}

// Cancel drops pending requests for layers.
func (s *FrameScheduler) Cancel(layers Layer) {
	s.pending &^= layers
}
