package audio

import (
	"fmt"
	"math"
	"strings"
)

// Converter resamples interleaved stereo int16 PCM. Implementations keep
// filter state between calls so consecutive blocks join without clicks.
type Converter interface {
	// Process resamples in by ratio (output rate / input rate) and appends
	// the result to out.
	Process(in []int16, ratio float64, out []int16) ([]int16, error)
	// Reset drops internal filter state.
	Reset()
	Close() error
	Name() string
}

// Converter kinds accepted by NewConverter.
const (
	ConverterAuto          = "auto"
	ConverterLibsamplerate = "libsamplerate"
	ConverterCubic         = "cubic"
)

// NewConverter creates a stereo converter. "auto" prefers libsamplerate and
// falls back to the built-in cubic interpolator when it cannot be loaded.
func NewConverter(kind string) (Converter, error) {
	switch strings.ToLower(kind) {
	case "", ConverterAuto:
		c, err := NewSRCConverter(QualityMedium, 2)
		if err == nil {
			return c, nil
		}
		logger.Debug().Err(err).Msg("libsamplerate unavailable, using cubic resampler")
		return NewCubicConverter(), nil
	case ConverterLibsamplerate:
		c, err := NewSRCConverter(QualityMedium, 2)
		if err != nil {
			return nil, err
		}
		return c, nil
	case ConverterCubic:
		return NewCubicConverter(), nil
	}
	return nil, fmt.Errorf("unknown resampler %q", kind)
}

// historyFrames is the number of trailing frames carried into the next block.
const historyFrames = 3

// CubicConverter is a streaming Catmull-Rom interpolator. At a ratio of
// exactly 1 it reproduces its input, delayed by two frames.
type CubicConverter struct {
	hist [historyFrames * 2]float64
	pos  float64
	buf  []float64
}

func NewCubicConverter() *CubicConverter {
	return &CubicConverter{pos: 1}
}

func (c *CubicConverter) Name() string { return ConverterCubic }

func (c *CubicConverter) Reset() {
	c.hist = [historyFrames * 2]float64{}
	c.pos = 1
}

func (c *CubicConverter) Close() error { return nil }

func (c *CubicConverter) Process(in []int16, ratio float64, out []int16) ([]int16, error) {
	if ratio <= 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return out, &ResamplerError{Code: -1, Msg: fmt.Sprintf("invalid ratio %v", ratio)}
	}
	frames := len(in) / 2
	if frames == 0 {
		return out, nil
	}

	// Stream view: history followed by this block.
	total := historyFrames + frames
	if cap(c.buf) < total*2 {
		c.buf = make([]float64, total*2)
	}
	x := c.buf[:total*2]
	copy(x, c.hist[:])
	for i, s := range in[:frames*2] {
		x[historyFrames*2+i] = float64(s)
	}

	step := 1 / ratio
	t := c.pos
	for {
		i := int(t)
		if i+2 >= total {
			break
		}
		f := t - float64(i)
		for ch := 0; ch < 2; ch++ {
			p0 := x[(i-1)*2+ch]
			p1 := x[i*2+ch]
			p2 := x[(i+1)*2+ch]
			p3 := x[(i+2)*2+ch]
			out = append(out, clamp16(catmullRom(p0, p1, p2, p3, f)))
		}
		t += step
	}

	c.pos = t - float64(frames)
	copy(c.hist[:], x[frames*2:])
	return out, nil
}

func catmullRom(p0, p1, p2, p3, f float64) float64 {
	return p1 + 0.5*f*(p2-p0+f*(2*p0-5*p1+4*p2-p3+f*(3*(p1-p2)+p3-p0)))
}

func clamp16(v float64) int16 {
	v = math.Round(v)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
