package plot

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFreqRoundTrip(t *testing.T) {
	m := NewMapper(48000)
	widths := []float64{100, 750, 1000, 1920}
	freqs := []float64{1, 2.5, 20, 63, 100, 440, 1000, 4321, 10000, 20000, 23999}

	for _, w := range widths {
		step := math.Pow(10, 1/m.slope(w))
		for _, f := range freqs {
			got := m.XToFreq(m.FreqToX(f, w), w)
			assert.LessOrEqual(t, got, f*(1+1e-9), "w=%v f=%v", w, f)
			assert.GreaterOrEqual(t, got*step, f*(1-1e-9), "w=%v f=%v", w, f)
		}
	}
}

func TestFreqToXEdges(t *testing.T) {
	m := NewMapper(48000)
	assert.Equal(t, 0.0, m.FreqToX(FreqStart, 750))
	assert.Equal(t, 0.0, m.FreqToX(1000, 0))
	assert.Equal(t, 0.0, m.FreqToX(1000, -10))
	assert.Equal(t, 0.0, m.FreqToX(0, 750))
	assert.InDelta(t, 750, m.FreqToX(m.Nyquist(), 750), 1)
	assert.Equal(t, FreqStart, m.XToFreq(10, 0))
	assert.InDelta(t, m.Nyquist(), m.XToFreq(750, 750), 1e-6)
}

func TestNewMapperSampleRate(t *testing.T) {
	assert.Equal(t, 24000.0, NewMapper(48000).Nyquist())
	assert.Equal(t, 22050.0, NewMapper(44100).Nyquist())
	assert.Equal(t, DefaultSampleRate, NewMapper(0).SampleRate())
	assert.Equal(t, DefaultSampleRate, NewMapper(math.NaN()).SampleRate())
}

func TestDBRoundTrip(t *testing.T) {
	for _, h := range []float64{1, 200, 400, 1080} {
		for db := DBMin; db <= DBMax; db += 0.5 {
			assert.InDelta(t, db, YToDB(DBToY(db, h), h), 1e-9, "h=%v db=%v", h, db)
		}
	}
}

func TestZeroY(t *testing.T) {
	assert.Equal(t, 160.0, ZeroY(400))
	assert.Equal(t, 0.0, DBToY(DBMax, 400))
	assert.InDelta(t, 400, DBToY(DBMin, 400), 1e-9)
	assert.Equal(t, ZeroY(400), DBToY(0, 400))
	assert.Equal(t, 0.0, YToDB(10, 0))
}

func TestShelfHalfDeflection(t *testing.T) {
	const h = 400.0
	zy := ZeroY(h)

	for _, gain := range []float64{-30, -12, -3, 0, 1.5, 6, 20} {
		peak := HandleY(gain, h, false) - zy
		shelf := HandleY(gain, h, true) - zy
		assert.InDelta(t, peak/2, shelf, 1e-9, "gain=%v", gain)

		assert.InDelta(t, gain, GainAtY(HandleY(gain, h, true), h, true), 1e-9, "shelf gain=%v", gain)
		assert.InDelta(t, gain, GainAtY(HandleY(gain, h, false), h, false), 1e-9, "peak gain=%v", gain)
	}
}

func TestGainAtYClamps(t *testing.T) {
	assert.Equal(t, DBMax, GainAtY(-50, 400, false))
	assert.Equal(t, DBMin, GainAtY(900, 400, false))
	assert.Equal(t, DBMax, GainAtY(0, 400, true))
	assert.Equal(t, DBMin, GainAtY(400, 400, true))
}
