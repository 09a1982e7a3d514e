package plot

import "math"

// Fixed scale of the plot. The frequency axis starts at FreqStart and ends
// at the Nyquist frequency of the operating sample rate.
const (
	FreqStart = 1.0
	DBMax     = 20.0
	DBMin     = -30.0
	DBScale   = 20.0

	DefaultSampleRate = 48000.0

	// Shelf handles are drawn at half deflection from the zero line and
	// dragged back at double.
	shelfDisplaySlope = 0.5
	shelfDragSlope    = 2.0
)

// Mapper converts between pixels and audio-domain values. The zero value
// is not usable; use NewMapper.
type Mapper struct {
	nyquist float64
}

func NewMapper(sampleRate float64) Mapper {
	if !(sampleRate > 0) {
		sampleRate = DefaultSampleRate
	}
	return Mapper{nyquist: sampleRate / 2}
}

func (m Mapper) Nyquist() float64 {
	return m.nyquist
}

func (m Mapper) SampleRate() float64 {
	return m.nyquist * 2
}

// slope is pixels per decade for the given width.
func (m Mapper) slope(width float64) float64 {
	return width / math.Log10(m.nyquist/FreqStart)
}

// FreqToX returns the pixel column for freq, floored to a whole pixel.
func (m Mapper) FreqToX(freq, width float64) float64 {
	if width <= 0 || !(freq > 0) {
		return 0
	}
	return math.Floor(m.slope(width) * math.Log10(freq/FreqStart))
}

// XToFreq is the inverse of FreqToX, ignoring the floor.
func (m Mapper) XToFreq(x, width float64) float64 {
	if width <= 0 {
		return FreqStart
	}
	return math.Pow(10, x/m.slope(width)) * FreqStart
}

// ZeroY is the row of 0 dB. The dB range is asymmetric so this is not the
// vertical center.
func ZeroY(height float64) float64 {
	return math.Abs(DBMax/(DBMin-DBMax)) * height
}

func DBToY(db, height float64) float64 {
	return ZeroY(height) * (1 - db/DBScale)
}

func YToDB(y, height float64) float64 {
	zy := ZeroY(height)
	if zy == 0 {
		return 0
	}
	return DBScale * (1 - y/zy)
}

// HandleY returns the handle row for a gain value, halving the deflection
// for shelf filters.
func HandleY(gain, height float64, shelf bool) float64 {
	y := DBToY(gain, height)
	if shelf {
		zy := ZeroY(height)
		y = (y-zy)*shelfDisplaySlope + zy
	}
	return y
}

// GainAtY converts a pointer row to a gain, undoing the shelf halving and
// clamping to the plotted dB range.
func GainAtY(y, height float64, shelf bool) float64 {
	if shelf {
		zy := ZeroY(height)
		y = (y-zy)*shelfDragSlope + zy
	}
	return clamp(YToDB(y, height), DBMin, DBMax)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
