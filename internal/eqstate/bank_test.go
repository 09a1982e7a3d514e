package eqstate

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/eqplus/eqplus/internal/domain"
	"github.com/eqplus/eqplus/internal/plot"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type event struct {
	op     string
	id     string
	gain   float64
	preamp float64
}

type recordingSink struct {
	mu     sync.Mutex
	events []event
	err    error
}

func (s *recordingSink) record(e event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *recordingSink) AddFilter(f domain.Filter) error {
	return s.record(event{op: "add", id: f.ID})
}

func (s *recordingSink) ModifyFilter(f domain.Filter) error {
	return s.record(event{op: "modify", id: f.ID, gain: f.Gain})
}

func (s *recordingSink) RemoveFilter(id string) error {
	return s.record(event{op: "remove", id: id})
}

func (s *recordingSink) ModifyPreamp(db float64) error {
	return s.record(event{op: "preamp", preamp: db})
}

func (s *recordingSink) ops() []event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event(nil), s.events...)
}

func sequentialIDs() Option {
	n := 0
	return WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("f%d", n)
	})
}

func newTestBank(t *testing.T, opts ...Option) (*Bank, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	b, err := NewBank(sink, time.Hour, append([]Option{sequentialIDs()}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(b.Close)
	return b, sink
}

func gain(v float64) *float64 { return &v }

func TestAddSelectsNewFilter(t *testing.T) {
	b, sink := newTestBank(t)

	f, err := b.Add(1000)
	require.NoError(t, err)
	assert.Equal(t, "f1", f.ID)
	assert.Equal(t, domain.DefaultGain, f.Gain)
	assert.Equal(t, domain.DefaultQ, f.Q)
	assert.Equal(t, domain.DefaultFilterType, f.Type)

	_, err = b.Add(200)
	require.NoError(t, err)

	snap := b.Snapshot()
	require.Len(t, snap.Filters, 2)
	assert.Equal(t, 1, snap.ActiveIndex)
	assert.Equal(t, []event{{op: "add", id: "f1"}, {op: "add", id: "f2"}}, sink.ops())

	_, err = b.Add(-5)
	assert.ErrorIs(t, err, domain.ErrInvalidFrequency)
}

func TestAddUsesUUIDByDefault(t *testing.T) {
	b, err := NewBank(&recordingSink{}, time.Hour)
	require.NoError(t, err)
	defer b.Close()

	f, err := b.Add(1000)
	require.NoError(t, err)
	assert.Len(t, f.ID, 36)
}

func TestChangeRequiresSelection(t *testing.T) {
	b, _ := newTestBank(t, WithFilters([]domain.Filter{{ID: "a", Frequency: 100, Q: 1, Type: domain.FilterPeaking}}))

	err := b.Change(domain.FilterChanges{Gain: gain(3)})
	assert.True(t, domain.IsSelectionError(err))

	assert.NoError(t, b.Change(domain.FilterChanges{}))
}

func TestChangeIsThrottledPerFilter(t *testing.T) {
	b, sink := newTestBank(t, WithFilters([]domain.Filter{
		{ID: "a", Frequency: 100, Q: 1, Type: domain.FilterPeaking},
		{ID: "b", Frequency: 1000, Q: 1, Type: domain.FilterPeaking},
	}))

	require.NoError(t, b.Select(0))
	require.NoError(t, b.Change(domain.FilterChanges{Gain: gain(1)}))
	require.NoError(t, b.Change(domain.FilterChanges{Gain: gain(2)}))
	require.NoError(t, b.Change(domain.FilterChanges{Gain: gain(3)}))
	require.NoError(t, b.Select(1))
	require.NoError(t, b.Change(domain.FilterChanges{Gain: gain(-4)}))

	assert.Equal(t, 3.0, b.Snapshot().Filters[0].Gain)
	assert.Equal(t, []event{
		{op: "modify", id: "a", gain: 1},
		{op: "modify", id: "b", gain: -4},
	}, sink.ops())

	b.Close()
	assert.Contains(t, sink.ops(), event{op: "modify", id: "a", gain: 3})
}

func TestChangeRejectsInvalid(t *testing.T) {
	b, sink := newTestBank(t, WithFilters([]domain.Filter{{ID: "a", Frequency: 100, Q: 1, Type: domain.FilterPeaking}}))
	require.NoError(t, b.Select(0))

	zero := 0.0
	err := b.Change(domain.FilterChanges{Q: &zero})
	assert.ErrorIs(t, err, domain.ErrInvalidQ)
	assert.Equal(t, 1.0, b.Snapshot().Filters[0].Q)

	assert.ErrorIs(t, b.SetType("wobble"), domain.ErrUnknownFilterType)
	require.NoError(t, b.SetType(domain.FilterHighShelf))
	assert.Equal(t, domain.FilterHighShelf, b.Snapshot().Filters[0].Type)
	assert.Len(t, sink.ops(), 1)
}

func TestSelect(t *testing.T) {
	b, _ := newTestBank(t, WithFilters([]domain.Filter{{ID: "a", Frequency: 100, Q: 1, Type: domain.FilterPeaking}}))

	assert.True(t, domain.IsSelectionError(b.Select(1)))
	assert.True(t, domain.IsSelectionError(b.Select(-2)))
	require.NoError(t, b.Select(0))
	require.NoError(t, b.Select(plot.NoSelection))
	_, ok := b.Snapshot().Active()
	assert.False(t, ok)
}

func TestRemove(t *testing.T) {
	b, sink := newTestBank(t, WithFilters([]domain.Filter{
		{ID: "a", Frequency: 100, Q: 1, Type: domain.FilterPeaking},
		{ID: "b", Frequency: 1000, Q: 1, Type: domain.FilterPeaking},
		{ID: "c", Frequency: 5000, Q: 1, Type: domain.FilterPeaking},
	}))

	require.NoError(t, b.Select(2))
	require.NoError(t, b.Change(domain.FilterChanges{Gain: gain(1)}))
	require.NoError(t, b.Change(domain.FilterChanges{Gain: gain(2)}))

	require.NoError(t, b.Remove("a"))
	snap := b.Snapshot()
	assert.Equal(t, 1, snap.ActiveIndex)
	active, ok := snap.Active()
	require.True(t, ok)
	assert.Equal(t, "c", active.ID)

	require.NoError(t, b.Remove("c"))
	assert.Equal(t, plot.NoSelection, b.Snapshot().ActiveIndex)

	assert.Equal(t, []event{
		{op: "modify", id: "c", gain: 1},
		{op: "remove", id: "a"},
		{op: "modify", id: "c", gain: 2},
		{op: "remove", id: "c"},
	}, sink.ops())

	assert.True(t, domain.IsNotFound(b.Remove("zzz")))
}

func TestPreamp(t *testing.T) {
	b, sink := newTestBank(t)

	require.NoError(t, b.SetPreamp(-3))
	require.NoError(t, b.SetPreamp(-4))
	assert.Equal(t, -4.0, b.Snapshot().Preamp)
	assert.Error(t, b.SetPreamp(nan()))

	b.Close()
	assert.Equal(t, []event{{op: "preamp", preamp: -3}, {op: "preamp", preamp: -4}}, sink.ops())
}

func nan() float64 {
	zero := 0.0
	return zero / zero
}

func TestSubscribe(t *testing.T) {
	b, _ := newTestBank(t)
	var got []Snapshot
	b.Subscribe(func(s Snapshot) { got = append(got, s) })

	_, err := b.Add(1000)
	require.NoError(t, err)
	b.SetDisabled(true)

	require.Len(t, got, 2)
	assert.Len(t, got[0].Filters, 1)
	assert.True(t, got[1].Disabled)
}

func TestSubscribeDuringNotify(t *testing.T) {
	b, _ := newTestBank(t)
	var outer, inner int
	b.Subscribe(func(Snapshot) {
		outer++
		if outer == 1 {
			b.Subscribe(func(Snapshot) { inner++ })
		}
	})

	b.SetDisabled(true)
	assert.Equal(t, 1, outer)
	assert.Zero(t, inner)

	b.SetDisabled(false)
	assert.Equal(t, 2, outer)
	assert.Equal(t, 1, inner)
}

func TestSinkErrors(t *testing.T) {
	sink := &recordingSink{err: domain.ErrEngineUnavailable}
	b, err := NewBank(sink, time.Hour, sequentialIDs())
	require.NoError(t, err)
	defer b.Close()

	f, err := b.Add(1000)
	assert.ErrorIs(t, err, domain.ErrEngineUnavailable)
	assert.Equal(t, "f1", f.ID)
	assert.Len(t, b.Snapshot().Filters, 1)
}

func TestNewBankRejectsDuplicates(t *testing.T) {
	_, err := NewBank(&recordingSink{}, time.Hour, WithFilters([]domain.Filter{
		{ID: "a", Frequency: 100, Q: 1, Type: domain.FilterPeaking},
		{ID: "a", Frequency: 200, Q: 1, Type: domain.FilterPeaking},
	}))
	assert.ErrorIs(t, err, domain.ErrDuplicateFilterID)
}

func TestDrivesPlot(t *testing.T) {
	b, sink := newTestBank(t)
	p := plot.New(plot.Options{SampleRate: 48000, Strict: true, DrawComposite: true, Intents: b})
	b.Subscribe(func(s Snapshot) {
		require.NoError(t, p.Update(s.Filters, s.ActiveIndex, s.Disabled))
	})
	p.Resize(1000, 400, 1)
	p.Tick()

	p.DoubleClick(500, 100)
	require.Len(t, b.Snapshot().Filters, 1)
	assert.Equal(t, 0, p.ActiveIndex())
	p.Tick()

	h, ok := p.Registry().Get("f1")
	require.True(t, ok)
	p.PointerDown(h.Location.X, h.Location.Y)
	p.PointerMove(600, plot.DBToY(6, 400))
	p.PointerUp()

	f := b.Snapshot().Filters[0]
	assert.InDelta(t, p.Mapper().XToFreq(600, 1000), f.Frequency, 1e-9)
	assert.InDelta(t, 6, f.Gain, 1e-9)

	p.Wheel(-1)
	assert.InDelta(t, 1.1, b.Snapshot().Filters[0].Q, 1e-12)

	assert.Equal(t, event{op: "add", id: "f1"}, sink.ops()[0])
}
