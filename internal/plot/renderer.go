package plot

import (
	"fmt"
	"math"

	"github.com/eqplus/eqplus/internal/domain"
)

const (
	curveLineWidth  = 2
	gridLineWidth   = 1
	handleLineWidth = 3
	glowSteps       = 6
	glowSpread      = 16
)

var freqLabels = []struct {
	text string
	freq float64
}{
	{"10", 10},
	{"100", 100},
	{"1k", 1000},
	{"10k", 10000},
}

// CurveParams is the filter state painted on the curve layer.
type CurveParams struct {
	Filters       []domain.Filter
	ActiveIndex   int
	Disabled      bool
	DrawComposite bool
}

// Renderer paints the plot layers. It keeps no state between calls.
type Renderer struct {
	mapper Mapper
	engine *ResponseEngine
}

func NewRenderer(engine *ResponseEngine) *Renderer {
	return &Renderer{mapper: engine.Mapper(), engine: engine}
}

// DrawGrid paints log-spaced frequency lines, dB lines and their labels.
func (r *Renderer) DrawGrid(s *Surface, pal Palette) {
	width, height := s.Width(), s.Height()
	s.Fill(pal.ColorFor(RoleGraphBackground))
	if width <= 0 || height <= 0 {
		return
	}

	m := r.mapper.slope(width)
	line := pal.ColorFor(RoleGridLine)
	marker := pal.ColorFor(RoleGridMarker)
	text := pal.ColorFor(RoleGridText)

	for i, decade := 0, FreqStart; decade < r.mapper.Nyquist(); i, decade = i+1, math.Pow(10, float64(i+1)) {
		for p := 1; p <= 9; p++ {
			if i == 0 && p == 1 {
				continue
			}
			x := math.Floor(m*math.Log10(float64(p)*decade/FreqStart)) + 0.5
			if x > width {
				break
			}
			c := line
			if p == 1 {
				c = marker
			}
			s.line(x, 0, x, height, c, gridLineWidth)
		}
	}

	for _, l := range freqLabels {
		if l.freq >= r.mapper.Nyquist() {
			continue
		}
		x := m * math.Log10(l.freq/FreqStart)
		s.text(l.text, math.Floor(x)+10.5, height-2.5, 0.5, 0, text)
	}

	for db := DBMin + 5; db < DBMax; db += 5 {
		y := math.Floor(DBToY(db, height)) + 0.5
		c := line
		if db == 0 {
			c = marker
		}
		s.line(0, y, width, y, c, gridLineWidth)
		s.text(fmt.Sprintf("%.0f", db), 10.5, y-1.5, 0, 0, text)
	}
}

// DrawCurve paints the composite response, each band's filled curve and
// the handles, then rebuilds reg from the handle positions it drew.
func (r *Renderer) DrawCurve(s *Surface, pal Palette, params CurveParams, reg *HandleRegistry) error {
	s.Clear()
	width, height := s.Width(), s.Height()
	resp, err := r.engine.Compute(params.Filters, width, height)
	if err != nil {
		reg.Clear()
		return err
	}

	if params.DrawComposite {
		c := pal.ColorFor(RoleAccent)
		if params.Disabled {
			c = pal.ColorFor(RoleDisabled)
		}
		s.polyline(resp.CompositeY, c, curveLineWidth)
	}

	zy := ZeroY(height)
	for ix, band := range resp.Bands {
		c := pal.ColorFor(NodeRole(ix))
		s.filledPolyline(band.Y, zy, Transparentize(c, 0.2), Transparentize(c, 0.3), curveLineWidth)
	}

	r.drawHandles(s, pal, params)
	reg.Rebuild(r.mapper, params.Filters, width, height)
	return nil
}

func (r *Renderer) drawHandles(s *Surface, pal Palette, params CurveParams) {
	width, height := s.Width(), s.Height()
	disabled := pal.ColorFor(RoleDisabled)

	for ix, f := range params.Filters {
		loc := HandleLocation(r.mapper, f, width, height)
		c := pal.ColorFor(NodeRole(ix))
		active := ix == params.ActiveIndex

		if !active {
			stroke := Darken(c, 0.1)
			if params.Disabled {
				stroke = disabled
			}
			s.strokeCircle(loc.X, loc.Y, HandleRadius, stroke, handleLineWidth)
			continue
		}

		fill := Opacify(c, 1)
		if params.Disabled {
			fill = disabled
		}
		// soft glow under the active handle
		for i := glowSteps; i > 0; i-- {
			radius := SelectedHandleRadius + glowSpread*float64(i)/glowSteps
			s.fillCircle(loc.X, loc.Y, radius, Transparentize(fill, 1-0.08))
		}
		s.fillCircle(loc.X, loc.Y, SelectedHandleRadius, fill)
		stroke := c
		if params.Disabled {
			stroke = disabled
		}
		s.strokeCircle(loc.X, loc.Y, SelectedHandleRadius, stroke, handleLineWidth)
	}
}

// DrawCrosshair paints guide lines through p and the frequency under it.
// When visible is false the layer is only cleared.
func (r *Renderer) DrawCrosshair(s *Surface, pal Palette, p Point, visible bool) {
	s.Clear()
	width, height := s.Width(), s.Height()
	if !visible || width <= 0 || height <= 0 {
		return
	}

	c := Transparentize(pal.ColorFor(RoleCrosshair), 0.5)
	freq := r.mapper.XToFreq(p.X, width)
	s.text(fmt.Sprintf("%.2fHz", freq), 5.5, height-5.5, 0, 0, c)
	s.line(p.X+0.5, 0, p.X+0.5, height, c, gridLineWidth)
	s.line(0, p.Y+0.5, width, p.Y+0.5, c, gridLineWidth)
}
