package plot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eqplus/eqplus/internal/domain"
)

type recorder struct {
	selected []int
	changes  []domain.FilterChanges
	added    []float64
}

func (r *recorder) OnHandleSelected(index int)                  { r.selected = append(r.selected, index) }
func (r *recorder) OnFilterChanged(changes domain.FilterChanges) { r.changes = append(r.changes, changes) }
func (r *recorder) OnFilterAdded(frequency float64)              { r.added = append(r.added, frequency) }

const (
	testWidth  = 1000.0
	testHeight = 400.0
)

func newTestPlot(t *testing.T, filters []domain.Filter, active int) (*Plot, *recorder) {
	t.Helper()
	rec := &recorder{}
	p := New(Options{SampleRate: 48000, Strict: true, DrawComposite: true, Intents: rec})
	p.Resize(testWidth, testHeight, 1)
	require.NoError(t, p.Update(filters, active, false))
	p.Tick()
	return p, rec
}

func handleAt(t *testing.T, p *Plot, id string) Point {
	t.Helper()
	h, ok := p.Registry().Get(id)
	require.True(t, ok, "no handle for %s", id)
	return h.Location
}

func TestPointerDownSelectsAndDrags(t *testing.T) {
	filters := []domain.Filter{peaking("a", 100, 0, 1), peaking("b", 1000, 6, 1)}
	p, rec := newTestPlot(t, filters, NoSelection)

	loc := handleAt(t, p, "b")
	p.PointerDown(loc.X, loc.Y)

	assert.Equal(t, []int{1}, rec.selected)
	assert.Equal(t, StateDragging, p.State())
	assert.Equal(t, "b", p.Controller().Target())
	assert.Equal(t, CursorGrabbing, p.Cursor())

	p.PointerUp()
	assert.Equal(t, StateIdle, p.State())
	assert.Equal(t, CursorDefault, p.Cursor())
}

func TestPointerDownMiss(t *testing.T) {
	p, rec := newTestPlot(t, []domain.Filter{peaking("a", 1000, 0, 1)}, NoSelection)
	p.PointerDown(10, 10)
	assert.Empty(t, rec.selected)
	assert.Equal(t, StateIdle, p.State())
}

func TestDragEmitsFrequencyAndGain(t *testing.T) {
	filters := []domain.Filter{peaking("a", 1000, 6, 1)}
	p, rec := newTestPlot(t, filters, NoSelection)

	loc := handleAt(t, p, "a")
	p.PointerDown(loc.X, loc.Y)
	require.NoError(t, p.Update(filters, rec.selected[0], false))

	p.PointerMove(500, ZeroY(testHeight))
	require.Len(t, rec.changes, 1)
	c := rec.changes[0]
	require.NotNil(t, c.Frequency)
	require.NotNil(t, c.Gain)
	assert.Nil(t, c.Q)
	assert.InDelta(t, p.Mapper().XToFreq(500, testWidth), *c.Frequency, 1e-9)
	assert.InDelta(t, 0, *c.Gain, 1e-9)

	p.PointerMove(500, -100)
	assert.Equal(t, DBMax, *rec.changes[1].Gain)
}

func TestDragShelfDoublesGain(t *testing.T) {
	shelf := domain.Filter{ID: "s", Frequency: 200, Gain: 6, Q: 0.7, Type: domain.FilterLowShelf}
	p, rec := newTestPlot(t, []domain.Filter{shelf}, 0)

	loc := handleAt(t, p, "s")
	assert.InDelta(t, 136, loc.Y, 1e-9)
	p.PointerDown(loc.X, loc.Y)
	p.PointerMove(loc.X, loc.Y)

	require.Len(t, rec.changes, 1)
	assert.InDelta(t, 6, *rec.changes[0].Gain, 1e-9)
}

func TestDragWithoutGain(t *testing.T) {
	lp := domain.Filter{ID: "lp", Frequency: 5000, Q: 0.7, Type: domain.FilterLowPass}
	p, rec := newTestPlot(t, []domain.Filter{lp}, 0)

	loc := handleAt(t, p, "lp")
	p.PointerDown(loc.X, loc.Y)
	p.PointerMove(300, 50)

	require.Len(t, rec.changes, 1)
	assert.NotNil(t, rec.changes[0].Frequency)
	assert.Nil(t, rec.changes[0].Gain)
}

func TestDragWithoutSelectionIsNoop(t *testing.T) {
	p, rec := newTestPlot(t, []domain.Filter{peaking("a", 1000, 0, 1)}, NoSelection)

	loc := handleAt(t, p, "a")
	p.PointerDown(loc.X, loc.Y)
	// the caller never applied the selection
	p.PointerMove(300, 50)
	assert.Empty(t, rec.changes)
	assert.Equal(t, StateDragging, p.State())
}

func TestHoverStates(t *testing.T) {
	p, _ := newTestPlot(t, []domain.Filter{peaking("a", 1000, 0, 1)}, NoSelection)
	loc := handleAt(t, p, "a")

	p.PointerMove(loc.X, loc.Y)
	assert.Equal(t, StateHovering, p.State())
	assert.Equal(t, "a", p.Controller().Target())
	assert.True(t, p.Scheduler().Pending().Has(LayerCurve))
	p.Tick()

	// staying on the handle does not repaint the curve
	p.PointerMove(loc.X+1, loc.Y)
	assert.False(t, p.Scheduler().Pending().Has(LayerCurve))
	assert.True(t, p.Scheduler().Pending().Has(LayerCrosshair))

	p.PointerMove(300, 300)
	assert.Equal(t, StateIdle, p.State())
	assert.Empty(t, p.Controller().Target())
	assert.True(t, p.Scheduler().Pending().Has(LayerCurve))
}

func TestHoverSurvivesUpdate(t *testing.T) {
	filters := []domain.Filter{peaking("a", 1000, 0, 1)}
	p, _ := newTestPlot(t, filters, NoSelection)
	loc := handleAt(t, p, "a")
	p.PointerMove(loc.X, loc.Y)
	p.Tick()
	require.Equal(t, StateHovering, p.State())

	require.NoError(t, p.Update(filters, 0, false))
	p.Tick()

	id, hovered := p.Registry().Hovered()
	assert.True(t, hovered)
	assert.Equal(t, "a", id)
	assert.Equal(t, StateHovering, p.State())
	assert.Equal(t, "a", p.Controller().Target())

	// the handle moved away from the pointer
	moved := []domain.Filter{peaking("a", 5000, 0, 1)}
	require.NoError(t, p.Update(moved, 0, false))
	p.Tick()
	_, hovered = p.Registry().Hovered()
	assert.False(t, hovered)
	assert.Equal(t, StateIdle, p.State())
	assert.Empty(t, p.Controller().Target())
}

func TestHoverRedrawCoalescing(t *testing.T) {
	p, _ := newTestPlot(t, []domain.Filter{peaking("a", 1000, 0, 1)}, NoSelection)
	loc := handleAt(t, p, "a")

	curvePaints := 0
	for frame := 0; frame < 3; frame++ {
		for i := 0; i < 25; i++ {
			p.PointerMove(loc.X, loc.Y)
			p.PointerMove(loc.X+50, loc.Y+50)
		}
		if p.Tick().Has(LayerCurve) {
			curvePaints++
		}
	}
	assert.Equal(t, 3, curvePaints)
	assert.Equal(t, Layer(0), p.Tick())
}

func TestSentinelClearsCrosshair(t *testing.T) {
	p, _ := newTestPlot(t, []domain.Filter{peaking("a", 1000, 0, 1)}, NoSelection)

	p.PointerMove(200, 100)
	_, shown := p.Controller().Crosshair()
	assert.True(t, shown)
	p.Tick()

	p.PointerMove(0, 0)
	_, shown = p.Controller().Crosshair()
	assert.False(t, shown)
	assert.Equal(t, LayerCrosshair, p.Scheduler().Pending())
}

func TestPointerLeaveKeepsDrag(t *testing.T) {
	p, _ := newTestPlot(t, []domain.Filter{peaking("a", 1000, 0, 1)}, 0)
	loc := handleAt(t, p, "a")
	p.PointerDown(loc.X, loc.Y)
	p.PointerMove(loc.X, loc.Y)

	p.PointerLeave()
	_, shown := p.Controller().Crosshair()
	assert.False(t, shown)
	assert.Equal(t, StateDragging, p.State())
}

func TestWheel(t *testing.T) {
	tests := []struct {
		name   string
		filter domain.Filter
		active int
		deltaY float64
		want   *float64
	}{
		{"scroll down lowers q", peaking("a", 1000, 0, 1), 0, 120, ptr(0.9)},
		{"scroll up raises q", peaking("a", 1000, 0, 1), 0, -120, ptr(1.1)},
		{"zero delta raises q", peaking("a", 1000, 0, 2), 0, 0, ptr(2.2)},
		{"shelf ignores wheel", domain.Filter{ID: "s", Frequency: 100, Gain: 3, Q: 1, Type: domain.FilterHighShelf}, 0, 120, nil},
		{"no selection", peaking("a", 1000, 0, 1), NoSelection, 120, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, rec := newTestPlot(t, []domain.Filter{tt.filter}, tt.active)
			p.Wheel(tt.deltaY)
			if tt.want == nil {
				assert.Empty(t, rec.changes)
				return
			}
			require.Len(t, rec.changes, 1)
			require.NotNil(t, rec.changes[0].Q)
			assert.InDelta(t, *tt.want, *rec.changes[0].Q, 1e-12)
			assert.Nil(t, rec.changes[0].Frequency)
		})
	}
}

func ptr(v float64) *float64 { return &v }

func TestNextQClamps(t *testing.T) {
	q := 1.0
	for i := 0; i < 100; i++ {
		q = NextQ(q, -1)
		assert.LessOrEqual(t, q, MaxQ)
	}
	assert.Equal(t, MaxQ, q)

	q = 1.0
	for i := 0; i < 100; i++ {
		q = NextQ(q, 1)
		assert.GreaterOrEqual(t, q, MinQ)
	}
	assert.Equal(t, MinQ, q)
}

func TestDoubleClickAddsFilter(t *testing.T) {
	p, rec := newTestPlot(t, []domain.Filter{peaking("a", 1000, 0, 1)}, 0)
	loc := handleAt(t, p, "a")
	p.PointerDown(loc.X, loc.Y)

	p.DoubleClick(250, 80)
	require.Len(t, rec.added, 1)
	assert.InDelta(t, p.Mapper().XToFreq(250, testWidth), rec.added[0], 1e-9)
	assert.Equal(t, StateDragging, p.State())
}

func TestDisabledIgnoresInput(t *testing.T) {
	filters := []domain.Filter{peaking("a", 1000, 0, 1)}
	p, rec := newTestPlot(t, filters, 0)
	require.NoError(t, p.Update(filters, 0, true))
	p.Tick()
	loc := handleAt(t, p, "a")

	p.PointerDown(loc.X, loc.Y)
	p.PointerMove(loc.X, loc.Y)
	p.Wheel(1)
	p.DoubleClick(100, 100)

	assert.Empty(t, rec.selected)
	assert.Empty(t, rec.changes)
	assert.Empty(t, rec.added)
	assert.Equal(t, Layer(0), p.Scheduler().Pending())

	p.PointerUp()
	assert.Equal(t, StateIdle, p.State())
}

func TestIntentFuncsSkipNil(t *testing.T) {
	var got []int
	f := IntentFuncs{Selected: func(i int) { got = append(got, i) }}
	f.OnHandleSelected(3)
	f.OnFilterAdded(100)
	f.OnFilterChanged(domain.FilterChanges{})
	assert.Equal(t, []int{3}, got)
}
