package audio

import "fmt"

// Resampler owns the converter for one input format. A format change
// replaces the converter so no filter state crosses the boundary.
type Resampler struct {
	kind     string
	conv     Converter
	inRate   float64
	channels int
	out      []int16
}

// NewResampler returns a resampler that creates converters of kind.
func NewResampler(kind string) *Resampler {
	return &Resampler{kind: kind}
}

// Configure prepares a converter for the given input rate and channel count.
func (r *Resampler) Configure(inRate float64, channels int) error {
	if inRate <= 0 || channels != 2 {
		return fmt.Errorf("unsupported input format: %v Hz, %d channels", inRate, channels)
	}
	if r.conv != nil && r.inRate == inRate && r.channels == channels {
		r.conv.Reset()
		return nil
	}
	r.Close()
	conv, err := NewConverter(r.kind)
	if err != nil {
		return err
	}
	r.conv = conv
	r.inRate = inRate
	r.channels = channels
	logger.Debug().Str("converter", conv.Name()).Float64("rate", inRate).Msg("resampler configured")
	return nil
}

// Process converts pcm at ratio. The returned slice is reused by the next call.
func (r *Resampler) Process(pcm []int16, ratio float64) ([]int16, error) {
	if r.conv == nil {
		return nil, ErrNotConfigured
	}
	out, err := r.conv.Process(pcm, ratio, r.out[:0])
	r.out = out
	return out, err
}

// Reset clears filter state but keeps the converter.
func (r *Resampler) Reset() {
	if r.conv != nil {
		r.conv.Reset()
	}
}

// Name reports the active converter, or "" before Configure.
func (r *Resampler) Name() string {
	if r.conv == nil {
		return ""
	}
	return r.conv.Name()
}

func (r *Resampler) Close() {
	if r.conv != nil {
		r.conv.Close()
		r.conv = nil
	}
}
