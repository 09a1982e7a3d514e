package plot

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"

	"github.com/eqplus/eqplus/internal/domain"
	"github.com/eqplus/eqplus/internal/logger"
)

// unity passes everything at 0 dB.
var unity = biquad.Coefficients{B0: 1}

// BandCurve is the sampled response of one filter node.
type BandCurve struct {
	ID        string
	Magnitude []float64 // linear |H| per pixel column
	Y         []float64 // plot row per pixel column
}

// Response holds every curve for one redraw. All slices have one entry per
// horizontal pixel.
type Response struct {
	Freqs       []float64
	Bands       []BandCurve
	CompositeDB []float64
	CompositeY  []float64
}

func (r *Response) Width() int {
	return len(r.Freqs)
}

// ResponseEngine evaluates biquad magnitude responses on the plot grid.
type ResponseEngine struct {
	mapper Mapper
	strict bool
}

// NewResponseEngine creates an engine. In strict mode an unknown filter type
// is an error; otherwise that node is drawn flat and the error is logged.
func NewResponseEngine(mapper Mapper, strict bool) *ResponseEngine {
	return &ResponseEngine{mapper: mapper, strict: strict}
}

func (e *ResponseEngine) Mapper() Mapper {
	return e.mapper
}

// Compute samples every filter at each pixel column and cascades them. The
// result is recomputed from scratch on every call.
func (e *ResponseEngine) Compute(filters []domain.Filter, width, height float64) (*Response, error) {
	if width <= 0 || height <= 0 {
		return nil, domain.NewDomainErrorWithDetails(domain.ErrCodeGeometry, "cannot compute response",
			fmt.Sprintf("width=%v height=%v", width, height), domain.ErrInvalidGeometry)
	}

	n := int(width)
	resp := &Response{
		Freqs:       make([]float64, n),
		Bands:       make([]BandCurve, len(filters)),
		CompositeDB: make([]float64, n),
		CompositeY:  make([]float64, n),
	}
	for x := 0; x < n; x++ {
		resp.Freqs[x] = e.mapper.XToFreq(float64(x), width)
	}

	sampleRate := e.mapper.SampleRate()
	for i := range filters {
		coeffs, err := e.Coefficients(filters[i])
		if err != nil {
			return nil, err
		}
		band := BandCurve{
			ID:        filters[i].ID,
			Magnitude: make([]float64, n),
			Y:         make([]float64, n),
		}
		for x, freq := range resp.Freqs {
			mag := magnitude(&coeffs, freq, sampleRate)
			band.Magnitude[x] = mag
			band.Y[x] = DBToY(toDB(mag), height)
		}
		resp.Bands[i] = band
	}

	for x := 0; x < n; x++ {
		h := 1.0
		for i := range resp.Bands {
			h *= resp.Bands[i].Magnitude[x]
		}
		db := toDB(h)
		resp.CompositeDB[x] = db
		resp.CompositeY[x] = DBToY(db, height)
	}

	return resp, nil
}

// Coefficients designs the RBJ cookbook biquad for f.
func (e *ResponseEngine) Coefficients(f domain.Filter) (biquad.Coefficients, error) {
	sr := e.mapper.SampleRate()
	switch f.Type {
	case domain.FilterPeaking:
		return design.Peak(f.Frequency, f.Gain, f.Q, sr), nil
	case domain.FilterLowShelf:
		return design.LowShelf(f.Frequency, f.Gain, f.Q, sr), nil
	case domain.FilterHighShelf:
		return design.HighShelf(f.Frequency, f.Gain, f.Q, sr), nil
	case domain.FilterLowPass:
		return design.Lowpass(f.Frequency, f.Q, sr), nil
	case domain.FilterHighPass:
		return design.Highpass(f.Frequency, f.Q, sr), nil
	case domain.FilterBandPass:
		return design.Bandpass(f.Frequency, f.Q, sr), nil
	case domain.FilterNotch:
		return design.Notch(f.Frequency, f.Q, sr), nil
	case domain.FilterAllPass:
		return design.Allpass(f.Frequency, f.Q, sr), nil
	}

	err := domain.NewDomainErrorWithDetails(domain.ErrCodeUnknownType, "cannot design filter",
		fmt.Sprintf("id=%s type=%q", f.ID, f.Type), domain.ErrUnknownFilterType)
	if e.strict {
		return biquad.Coefficients{}, err
	}
	logger.ErrorLog("Unknown filter type, drawing flat response",
		logger.String("id", f.ID),
		logger.String("type", string(f.Type)),
	)
	return unity, nil
}

func magnitude(c *biquad.Coefficients, freq, sampleRate float64) float64 {
	m := c.MagnitudeSquared(freq, sampleRate)
	if math.IsNaN(m) || m <= 0 {
		return 0
	}
	return math.Sqrt(m)
}

// toDB converts a linear magnitude to dB. A magnitude of exactly zero is
// drawn as 0 dB rather than -Inf.
func toDB(mag float64) float64 {
	mag = math.Abs(mag)
	if mag == 0 {
		mag = 1
	}
	return 20 * math.Log10(mag)
}
