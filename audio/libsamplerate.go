package audio

// Quality selects the libsamplerate converter type.
type Quality int

const (
	QualityBest   Quality = iota // sinc, best quality
	QualityMedium                // sinc, medium quality
	QualityFast                  // sinc, fastest
	QualityLinear                // linear interpolation
	QualityHold                  // zero-order hold
)

func (q Quality) String() string {
	switch q {
	case QualityBest:
		return "sinc-best"
	case QualityMedium:
		return "sinc-medium"
	case QualityFast:
		return "sinc-fast"
	case QualityLinear:
		return "linear"
	case QualityHold:
		return "hold"
	}
	return "unknown"
}

// int16 <-> float conversion in the range libsamplerate expects.
func shortToFloat(dst []float32, src []int16) {
	for i, s := range src {
		dst[i] = float32(s) / 32768
	}
}

func floatToShort(dst []int16, src []float32) {
	for i, f := range src {
		dst[i] = clamp16(float64(f) * 32768)
	}
}
