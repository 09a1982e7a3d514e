package main

import (
	"errors"
	"image"
	"math"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/eqplus/eqplus/internal/domain"
	"github.com/eqplus/eqplus/internal/logger"
	"github.com/eqplus/eqplus/internal/plot"
	"github.com/eqplus/eqplus/internal/session"
)

const (
	doubleClickInterval = 400 * time.Millisecond
	doubleClickSlop     = 4.0 // logical pixels
)

// viewer is the ebiten.Game that hosts a session. Layout reports the
// window size, Update feeds input and paints, Draw composites the layers.
type viewer struct {
	session *session.Session
	layers  map[plot.Layer]*ebiten.Image

	scale         float64
	width, height float64

	inside     bool
	lastX      float64
	lastY      float64
	lastClick  time.Time
	clickPoint plot.Point
}

func newViewer(s *session.Session) *viewer {
	v := &viewer{
		session: s,
		layers:  make(map[plot.Layer]*ebiten.Image, len(plot.Layers)),
		scale:   1,
	}
	s.OnCursor(func(c plot.Cursor) {
		if c == plot.CursorGrabbing {
			ebiten.SetCursorShape(ebiten.CursorShapeMove)
			return
		}
		ebiten.SetCursorShape(ebiten.CursorShapeDefault)
	})
	return v
}

func (v *viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	scale := ebiten.Monitor().DeviceScaleFactor()
	if !(scale > 0) {
		scale = 1
	}
	v.scale = scale
	v.width, v.height = float64(outsideWidth), float64(outsideHeight)
	v.session.Resize(v.width, v.height, scale)
	return int(math.Ceil(v.width * scale)), int(math.Ceil(v.height * scale))
}

func (v *viewer) Update() error {
	v.pointer()
	v.keys()

	_, err := v.session.Frame(func(l plot.Layer, s *plot.Surface) error {
		src := s.Image()
		v.layerImage(l, src.Bounds()).WritePixels(src.Pix)
		return nil
	})
	return err
}

func (v *viewer) pointer() {
	cx, cy := ebiten.CursorPosition()
	x, y := float64(cx)/v.scale, float64(cy)/v.scale
	inside := x >= 0 && y >= 0 && x < v.width && y < v.height

	switch {
	case inside && (!v.inside || x != v.lastX || y != v.lastY):
		v.session.PointerMove(x, y)
	case !inside && v.inside:
		v.session.PointerLeave()
	}
	v.inside, v.lastX, v.lastY = inside, x, y

	if inside && inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		now := time.Now()
		if now.Sub(v.lastClick) < doubleClickInterval &&
			math.Abs(x-v.clickPoint.X) <= doubleClickSlop && math.Abs(y-v.clickPoint.Y) <= doubleClickSlop {
			v.session.DoubleClick(x, y)
			v.lastClick = time.Time{}
		} else {
			v.session.PointerDown(x, y)
			v.lastClick, v.clickPoint = now, plot.Point{X: x, Y: y}
		}
	}
	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		v.session.PointerUp()
	}
	if _, dy := ebiten.Wheel(); dy != 0 && inside {
		// ebiten reports scrolling up as positive, the plot expects DOM sign
		v.session.Wheel(-dy)
	}
}

func (v *viewer) keys() {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyDelete), inpututil.IsKeyJustPressed(ebiten.KeyBackspace):
		if err := v.session.RemoveActive(); err != nil && !errors.Is(err, domain.ErrNoSelection) {
			logger.Warn("Failed to remove filter", logger.Error(err))
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyT):
		f, ok := v.session.View().Snapshot.Active()
		if !ok {
			return
		}
		if err := v.session.SetType(nextType(f.Type)); err != nil {
			logger.Warn("Failed to change filter type", logger.Error(err))
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyB):
		v.session.SetDisabled(!v.session.View().Snapshot.Disabled)
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		if err := v.session.Select(plot.NoSelection); err != nil {
			logger.Warn("Failed to clear selection", logger.Error(err))
		}
	}
}

// layerImage returns the ebiten image for l, reallocating it when the
// surface size changed.
func (v *viewer) layerImage(l plot.Layer, bounds image.Rectangle) *ebiten.Image {
	img := v.layers[l]
	if img != nil && img.Bounds().Size() == bounds.Size() {
		return img
	}
	if img != nil {
		img.Deallocate()
	}
	img = ebiten.NewImage(bounds.Dx(), bounds.Dy())
	v.layers[l] = img
	return img
}

func (v *viewer) Draw(screen *ebiten.Image) {
	for _, l := range plot.Layers {
		if img := v.layers[l]; img != nil {
			screen.DrawImage(img, nil)
		}
	}
}

func nextType(t domain.FilterType) domain.FilterType {
	types := domain.FilterTypes()
	for i, candidate := range types {
		if candidate == t {
			return types[(i+1)%len(types)]
		}
	}
	return domain.DefaultFilterType
}
