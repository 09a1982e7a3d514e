package plot

import (
	"github.com/eqplus/eqplus/internal/domain"
)

const (
	HandleRadius         = 4.5
	SelectedHandleRadius = 1.25 * HandleRadius
	handleSpan           = 2 * HandleRadius
)

// Point is a position in logical pixels.
type Point struct {
	X, Y float64
}

// Handle is the redraw-scoped projection of a filter into pixel space.
type Handle struct {
	Location Point
	Hovered  bool
}

// Hit reports whether p falls in the handle's hit square. The square is
// anchored at (x+R, y+R) and spans 2R up and to the left of the anchor, so
// it sits down-right of the drawn circle.
func (h Handle) Hit(p Point) bool {
	dx := h.Location.X + HandleRadius - p.X
	dy := h.Location.Y + HandleRadius - p.Y
	return dx > 0 && dy > 0 && dx < handleSpan && dy < handleSpan
}

// HandleRegistry maps filter id to its handle. It is rebuilt by every curve
// redraw and is never authoritative for filter state.
type HandleRegistry struct {
	handles map[string]*Handle
	order   []string
}

func NewHandleRegistry() *HandleRegistry {
	return &HandleRegistry{handles: make(map[string]*Handle)}
}

// HandleLocation is where the handle for f is drawn.
func HandleLocation(m Mapper, f domain.Filter, width, height float64) Point {
	x := m.FreqToX(f.Frequency, width)
	y := ZeroY(height)
	if f.UsesGain() {
		y = HandleY(f.Gain, height, f.Type.IsShelf())
	}
	return Point{X: x, Y: y}
}

// Rebuild replaces every entry. Ids not in filters are dropped.
func (r *HandleRegistry) Rebuild(m Mapper, filters []domain.Filter, width, height float64) {
	handles := make(map[string]*Handle, len(filters))
	order := make([]string, 0, len(filters))
	for _, f := range filters {
		handles[f.ID] = &Handle{Location: HandleLocation(m, f, width, height)}
		order = append(order, f.ID)
	}
	r.handles = handles
	r.order = order
}

func (r *HandleRegistry) Clear() {
	r.handles = make(map[string]*Handle)
	r.order = nil
}

func (r *HandleRegistry) Get(id string) (Handle, bool) {
	h, ok := r.handles[id]
	if !ok {
		return Handle{}, false
	}
	return *h, true
}

func (r *HandleRegistry) Len() int {
	return len(r.order)
}

// HitTest returns the id of the first handle, in filter order, hit by p.
func (r *HandleRegistry) HitTest(p Point) (string, bool) {
	for _, id := range r.order {
		if r.handles[id].Hit(p) {
			return id, true
		}
	}
	return "", false
}

// UpdateHover sets each handle's hover flag for p and reports whether any
// flag changed.
func (r *HandleRegistry) UpdateHover(p Point) bool {
	changed := false
	for _, id := range r.order {
		h := r.handles[id]
		hit := h.Hit(p)
		if h.Hovered != hit {
			h.Hovered = hit
			changed = true
		}
	}
	return changed
}

// Hovered returns the id of the first hovered handle.
func (r *HandleRegistry) Hovered() (string, bool) {
	for _, id := range r.order {
		if r.handles[id].Hovered {
			return id, true
		}
	}
	return "", false
}
