package plot

import (
	"image"
	"image/color"
	"io"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

// Surface is one raster layer. The backing buffer is sized in device
// pixels and the drawing context is pre-scaled once, so callers draw in
// logical units.
type Surface struct {
	dc     *gg.Context
	width  float64
	height float64
	ratio  float64
}

// NewSurface allocates a width x height logical surface at the given
// device pixel ratio.
func NewSurface(width, height, ratio float64) *Surface {
	if !(ratio > 0) {
		ratio = 1
	}
	w := int(math.Ceil(width * ratio))
	h := int(math.Ceil(height * ratio))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dc := gg.NewContext(w, h)
	dc.Scale(ratio, ratio)
	dc.SetFontFace(basicfont.Face7x13)
	return &Surface{dc: dc, width: width, height: height, ratio: ratio}
}

func (s *Surface) Width() float64  { return s.width }
func (s *Surface) Height() float64 { return s.height }
func (s *Surface) Ratio() float64  { return s.ratio }

// Clear resets every pixel to transparent.
func (s *Surface) Clear() {
	s.dc.SetColor(color.Transparent)
	s.dc.Clear()
}

// Fill paints the whole surface with c.
func (s *Surface) Fill(c color.Color) {
	s.dc.SetColor(c)
	s.dc.Clear()
}

// lineWidth sets a stroke width in logical pixels.
func (s *Surface) lineWidth(w float64) {
	s.dc.SetLineWidth(w * s.ratio)
}

func (s *Surface) line(x1, y1, x2, y2 float64, c color.Color, width float64) {
	s.dc.SetColor(c)
	s.lineWidth(width)
	s.dc.DrawLine(x1, y1, x2, y2)
	s.dc.Stroke()
}

// polyline strokes ys sampled at x = 0, 1, 2...
func (s *Surface) polyline(ys []float64, c color.Color, width float64) {
	if len(ys) == 0 {
		return
	}
	s.dc.SetColor(c)
	s.lineWidth(width)
	s.dc.MoveTo(0, ys[0])
	for x := 1; x < len(ys); x++ {
		s.dc.LineTo(float64(x), ys[x])
	}
	s.dc.Stroke()
}

// filledPolyline strokes ys and fills the area between it and baseline.
func (s *Surface) filledPolyline(ys []float64, baseline float64, stroke, fill color.Color, width float64) {
	s.dc.MoveTo(0, baseline)
	for x, y := range ys {
		s.dc.LineTo(float64(x), y)
	}
	s.dc.LineTo(s.width, baseline)
	s.dc.SetColor(stroke)
	s.lineWidth(width)
	s.dc.StrokePreserve()
	s.dc.SetColor(fill)
	s.dc.Fill()
}

func (s *Surface) circle(x, y, r float64) {
	s.dc.NewSubPath()
	s.dc.DrawCircle(x, y, r)
}

func (s *Surface) strokeCircle(x, y, r float64, c color.Color, width float64) {
	s.circle(x, y, r)
	s.dc.SetColor(c)
	s.lineWidth(width)
	s.dc.Stroke()
}

func (s *Surface) fillCircle(x, y, r float64, c color.Color) {
	s.circle(x, y, r)
	s.dc.SetColor(c)
	s.dc.Fill()
}

// text draws s with its anchor at (x, y); ax/ay are 0..1 alignment factors.
func (s *Surface) text(str string, x, y, ax, ay float64, c color.Color) {
	s.dc.SetColor(c)
	s.dc.DrawStringAnchored(str, x, y, ax, ay)
}

// Image returns the backing device-pixel buffer.
func (s *Surface) Image() *image.RGBA {
	if img, ok := s.dc.Image().(*image.RGBA); ok {
		return img
	}
	b := s.dc.Image().Bounds()
	img := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.Set(x, y, s.dc.Image().At(x, y))
		}
	}
	return img
}

// At returns the device pixel under the logical point (x, y).
func (s *Surface) At(x, y float64) color.Color {
	return s.dc.Image().At(int(x*s.ratio), int(y*s.ratio))
}

func (s *Surface) EncodePNG(w io.Writer) error {
	return s.dc.EncodePNG(w)
}
