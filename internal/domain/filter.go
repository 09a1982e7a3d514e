package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FilterType names a biquad response shape. The values match the
// lower-case type names used by the processing engine and the UI.
type FilterType string

const (
	FilterPeaking   FilterType = "peaking"
	FilterLowShelf  FilterType = "lowshelf"
	FilterHighShelf FilterType = "highshelf"
	FilterLowPass   FilterType = "lowpass"
	FilterHighPass  FilterType = "highpass"
	FilterBandPass  FilterType = "bandpass"
	FilterNotch     FilterType = "notch"
	FilterAllPass   FilterType = "allpass"
)

// Defaults for a filter created from an add-filter intent.
const (
	DefaultFilterType = FilterPeaking
	DefaultGain       = 0.0
	DefaultQ          = 1.0
)

// FilterTypes lists every supported type in UI order.
func FilterTypes() []FilterType {
	return []FilterType{
		FilterPeaking,
		FilterLowShelf,
		FilterHighShelf,
		FilterLowPass,
		FilterHighPass,
		FilterBandPass,
		FilterNotch,
		FilterAllPass,
	}
}

// ParseFilterType accepts the canonical names plus a few common aliases.
func ParseFilterType(s string) (FilterType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "peaking", "peak", "pk", "bell":
		return FilterPeaking, nil
	case "lowshelf", "low-shelf", "ls":
		return FilterLowShelf, nil
	case "highshelf", "high-shelf", "hs":
		return FilterHighShelf, nil
	case "lowpass", "low-pass", "lp":
		return FilterLowPass, nil
	case "highpass", "high-pass", "hp":
		return FilterHighPass, nil
	case "bandpass", "band-pass", "bp":
		return FilterBandPass, nil
	case "notch", "no":
		return FilterNotch, nil
	case "allpass", "all-pass", "ap":
		return FilterAllPass, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFilterType, s)
	}
}

func (t FilterType) IsValid() bool {
	switch t {
	case FilterPeaking, FilterLowShelf, FilterHighShelf, FilterLowPass,
		FilterHighPass, FilterBandPass, FilterNotch, FilterAllPass:
		return true
	}
	return false
}

func (t FilterType) IsShelf() bool {
	return t == FilterLowShelf || t == FilterHighShelf
}

// UsesGain reports whether the gain parameter affects the response.
func (t FilterType) UsesGain() bool {
	return t == FilterPeaking || t.IsShelf()
}

// UsesQ reports whether Q is editable from the plot. Shelves still take Q
// as their slope, but it is not exposed to wheel editing.
func (t FilterType) UsesQ() bool {
	return t.IsValid() && !t.IsShelf()
}

func (t FilterType) String() string {
	return string(t)
}

// Filter is one node of the equalizer cascade.
type Filter struct {
	ID        string     `json:"id"`
	Frequency float64    `json:"frequency"` // Hz
	Gain      float64    `json:"gain"`      // dB
	Q         float64    `json:"q"`
	Type      FilterType `json:"type"`
}

func NewFilter(id string, frequency float64) (*Filter, error) {
	f := &Filter{
		ID:        id,
		Frequency: frequency,
		Gain:      DefaultGain,
		Q:         DefaultQ,
		Type:      DefaultFilterType,
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// ParseFilter reads the compact form type:frequency[:gain[:q]], e.g.
// "peaking:1000:6:1.4". Omitted values take the add-filter defaults.
func ParseFilter(id, spec string) (Filter, error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 2 || len(parts) > 4 {
		return Filter{}, fmt.Errorf("%w: %q, want type:frequency[:gain[:q]]", ErrInvalidInput, spec)
	}
	t, err := ParseFilterType(parts[0])
	if err != nil {
		return Filter{}, err
	}
	values := []float64{0, DefaultGain, DefaultQ}
	for i, p := range parts[1:] {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Filter{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		values[i] = v
	}
	f := Filter{ID: id, Frequency: values[0], Gain: values[1], Q: values[2], Type: t}
	if err := f.Validate(); err != nil {
		return Filter{}, err
	}
	return f, nil
}

func (f *Filter) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("%w: empty filter id", ErrInvalidInput)
	}
	if !(f.Frequency > 0) || math.IsInf(f.Frequency, 0) {
		return ErrInvalidFrequency
	}
	if !(f.Q > 0) || math.IsInf(f.Q, 0) {
		return ErrInvalidQ
	}
	if math.IsNaN(f.Gain) || math.IsInf(f.Gain, 0) {
		return fmt.Errorf("%w: gain %v", ErrInvalidInput, f.Gain)
	}
	if !f.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownFilterType, f.Type)
	}
	return nil
}

func (f Filter) UsesGain() bool {
	return f.Type.UsesGain()
}

func (f Filter) UsesQ() bool {
	return f.Type.UsesQ()
}

// FilterChanges is a partial update for the active filter. Nil fields are
// left untouched when applied.
type FilterChanges struct {
	Frequency *float64    `json:"frequency,omitempty"`
	Gain      *float64    `json:"gain,omitempty"`
	Q         *float64    `json:"q,omitempty"`
	Type      *FilterType `json:"type,omitempty"`
}

func (c FilterChanges) IsEmpty() bool {
	return c.Frequency == nil && c.Gain == nil && c.Q == nil && c.Type == nil
}

// Apply merges the non-nil fields into f.
func (c FilterChanges) Apply(f *Filter) {
	if c.Frequency != nil {
		f.Frequency = *c.Frequency
	}
	if c.Gain != nil {
		f.Gain = *c.Gain
	}
	if c.Q != nil {
		f.Q = *c.Q
	}
	if c.Type != nil {
		f.Type = *c.Type
	}
}

func (c FilterChanges) String() string {
	parts := make([]string, 0, 4)
	if c.Frequency != nil {
		parts = append(parts, fmt.Sprintf("frequency=%.2f", *c.Frequency))
	}
	if c.Gain != nil {
		parts = append(parts, fmt.Sprintf("gain=%.2f", *c.Gain))
	}
	if c.Q != nil {
		parts = append(parts, fmt.Sprintf("q=%.3f", *c.Q))
	}
	if c.Type != nil {
		parts = append(parts, "type="+c.Type.String())
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// ValidateSet checks every filter and that ids are unique. Order is not
// checked; it defines the cascade and need not be sorted by frequency.
func ValidateSet(filters []Filter) error {
	for i := range filters {
		if err := filters[i].Validate(); err != nil {
			return fmt.Errorf("filter %d: %w", i, err)
		}
	}
	return UniqueIDs(filters)
}

// UniqueIDs reports the first id that appears twice.
func UniqueIDs(filters []Filter) error {
	seen := make(map[string]struct{}, len(filters))
	for i := range filters {
		if _, dup := seen[filters[i].ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateFilterID, filters[i].ID)
		}
		seen[filters[i].ID] = struct{}{}
	}
	return nil
}

// IndexOf returns the position of the filter with the given id, or -1.
func IndexOf(filters []Filter, id string) int {
	for i := range filters {
		if filters[i].ID == id {
			return i
		}
	}
	return -1
}
