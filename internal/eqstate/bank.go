// Package eqstate owns the filter bank the plot edits and forwards
// committed edits to a Sink.
package eqstate

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eqplus/eqplus/internal/domain"
	"github.com/eqplus/eqplus/internal/logger"
	"github.com/eqplus/eqplus/internal/plot"
	"github.com/eqplus/eqplus/internal/throttle"
)

var _ plot.Intents = (*Bank)(nil)

// Snapshot is a copy of the bank state.
type Snapshot struct {
	Filters     []domain.Filter `json:"filters"`
	ActiveIndex int             `json:"activeIndex"`
	Preamp      float64         `json:"preamp"`
	Disabled    bool            `json:"disabled"`
}

// Active returns the selected filter.
func (s Snapshot) Active() (domain.Filter, bool) {
	if s.ActiveIndex < 0 || s.ActiveIndex >= len(s.Filters) {
		return domain.Filter{}, false
	}
	return s.Filters[s.ActiveIndex], true
}

type Option func(*Bank)

// WithIDGenerator replaces the uuid generator used for new filters.
func WithIDGenerator(fn func() string) Option {
	return func(b *Bank) { b.newID = fn }
}

// WithFilters seeds the bank.
func WithFilters(filters []domain.Filter) Option {
	return func(b *Bank) { b.filters = append([]domain.Filter(nil), filters...) }
}

// Bank is the caller side of the plot: it applies intents to its filter
// set and forwards the results. It is safe for concurrent use.
type Bank struct {
	mu       sync.Mutex
	filters  []domain.Filter
	active   int
	preamp   float64
	disabled bool

	sink      Sink
	modify    *throttle.Group[string, domain.Filter]
	preampOut *throttle.Throttle[float64]
	newID     func() string
	listeners []func(Snapshot)
}

// NewBank creates a bank that throttles modify calls to sink at interval.
func NewBank(sink Sink, interval time.Duration, opts ...Option) (*Bank, error) {
	b := &Bank{
		active: plot.NoSelection,
		sink:   sink,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(b)
	}
	if err := domain.ValidateSet(b.filters); err != nil {
		return nil, fmt.Errorf("invalid initial filters: %w", err)
	}

	b.modify = throttle.NewGroup(interval, func(id string, f domain.Filter) {
		if err := b.sink.ModifyFilter(f); err != nil {
			logger.ErrorLog("Failed to forward filter change", logger.String("id", id), logger.Error(err))
		}
	})
	b.preampOut = throttle.New(interval, func(db float64) {
		if err := b.sink.ModifyPreamp(db); err != nil {
			logger.ErrorLog("Failed to forward preamp", logger.Float64("preamp", db), logger.Error(err))
		}
	})
	return b, nil
}

// Subscribe registers fn to run after every state change.
func (b *Bank) Subscribe(fn func(Snapshot)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}

func (b *Bank) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

func (b *Bank) snapshotLocked() Snapshot {
	return Snapshot{
		Filters:     append([]domain.Filter(nil), b.filters...),
		ActiveIndex: b.active,
		Preamp:      b.preamp,
		Disabled:    b.disabled,
	}
}

// commit releases b.mu and notifies listeners with the new state.
func (b *Bank) commit() {
	snap := b.snapshotLocked()
	listeners := make([]func(Snapshot), len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.Unlock()
	for _, fn := range listeners {
		fn(snap)
	}
}

// Select makes index the active filter. plot.NoSelection clears it.
func (b *Bank) Select(index int) error {
	b.mu.Lock()
	if index != plot.NoSelection && (index < 0 || index >= len(b.filters)) {
		n := len(b.filters)
		b.mu.Unlock()
		return domain.NewDomainErrorWithDetails(domain.ErrCodeSelection, "cannot select filter",
			fmt.Sprintf("index=%d filters=%d", index, n), domain.ErrSelectionOutOfRange)
	}
	b.active = index
	b.commit()
	return nil
}

// Change merges changes into the active filter.
func (b *Bank) Change(changes domain.FilterChanges) error {
	if changes.IsEmpty() {
		return nil
	}
	b.mu.Lock()
	if b.active < 0 || b.active >= len(b.filters) {
		b.mu.Unlock()
		return domain.NewDomainError(domain.ErrCodeSelection, "no active filter", domain.ErrNoSelection)
	}
	f := b.filters[b.active]
	changes.Apply(&f)
	if err := f.Validate(); err != nil {
		b.mu.Unlock()
		return fmt.Errorf("change %s rejected: %w", changes, err)
	}
	b.filters[b.active] = f
	b.commit()
	b.modify.Call(f.ID, f)
	return nil
}

// SetType switches the active filter's type.
func (b *Bank) SetType(t domain.FilterType) error {
	if !t.IsValid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownFilterType, t)
	}
	return b.Change(domain.FilterChanges{Type: &t})
}

// Add appends a default filter at frequency and selects it.
func (b *Bank) Add(frequency float64) (domain.Filter, error) {
	f, err := domain.NewFilter(b.newID(), frequency)
	if err != nil {
		return domain.Filter{}, err
	}
	b.mu.Lock()
	if domain.IndexOf(b.filters, f.ID) >= 0 {
		b.mu.Unlock()
		return domain.Filter{}, fmt.Errorf("%w: %s", domain.ErrDuplicateFilterID, f.ID)
	}
	b.filters = append(b.filters, *f)
	b.active = len(b.filters) - 1
	b.commit()

	if err := b.sink.AddFilter(*f); err != nil {
		return *f, fmt.Errorf("forward new filter: %w", err)
	}
	return *f, nil
}

// Remove deletes the filter with id. A pending change for it is delivered
// first.
func (b *Bank) Remove(id string) error {
	b.mu.Lock()
	idx := domain.IndexOf(b.filters, id)
	if idx < 0 {
		b.mu.Unlock()
		return domain.NewDomainErrorWithDetails(domain.ErrCodeFilterNotFound, "cannot remove filter", id, domain.ErrFilterNotFound)
	}
	b.mu.Unlock()

	b.modify.Forget(id)

	b.mu.Lock()
	idx = domain.IndexOf(b.filters, id)
	if idx < 0 {
		b.mu.Unlock()
		return nil
	}
	b.filters = append(b.filters[:idx], b.filters[idx+1:]...)
	switch {
	case b.active == idx:
		b.active = plot.NoSelection
	case b.active > idx:
		b.active--
	}
	b.commit()

	if err := b.sink.RemoveFilter(id); err != nil {
		return fmt.Errorf("forward removal: %w", err)
	}
	return nil
}

func (b *Bank) SetPreamp(db float64) error {
	if math.IsNaN(db) || math.IsInf(db, 0) {
		return fmt.Errorf("%w: preamp %v", domain.ErrInvalidInput, db)
	}
	b.mu.Lock()
	b.preamp = db
	b.commit()
	b.preampOut.Call(db)
	return nil
}

func (b *Bank) SetDisabled(disabled bool) {
	b.mu.Lock()
	b.disabled = disabled
	b.commit()
}

// Close delivers held edits and stops forwarding.
func (b *Bank) Close() {
	b.modify.Flush()
	b.preampOut.Flush()
	b.modify.Stop()
	b.preampOut.Stop()
}

func (b *Bank) OnHandleSelected(index int) {
	if err := b.Select(index); err != nil {
		logger.Warn("Ignoring selection", logger.Int("index", index), logger.Error(err))
	}
}

func (b *Bank) OnFilterChanged(changes domain.FilterChanges) {
	if err := b.Change(changes); err != nil {
		logger.Warn("Ignoring filter change", logger.Stringer("changes", changes), logger.Error(err))
	}
}

func (b *Bank) OnFilterAdded(frequency float64) {
	f, err := b.Add(frequency)
	if err != nil {
		logger.ErrorLog("Failed to add filter", logger.Float64("frequency", frequency), logger.Error(err))
		return
	}
	logger.Debug("Filter added", logger.String("id", f.ID), logger.Float64("frequency", frequency))
}
