//go:build darwin || freebsd || linux || netbsd

package audio

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/ebitengine/purego"
)

// srcData mirrors libsamplerate's SRC_DATA. C long matches Go int on the
// platforms purego supports.
type srcData struct {
	dataIn          *float32
	dataOut         *float32
	inputFrames     int
	outputFrames    int
	inputFramesUsed int
	outputFramesGen int
	endOfInput      int32
	srcRatio        float64
}

var srcLib struct {
	once sync.Once
	err  error

	newState func(converterType int32, channels int32, errOut *int32) uintptr
	process  func(state uintptr, data *srcData) int32
	reset    func(state uintptr) int32
	delete   func(state uintptr) uintptr
	strerror func(code int32) string
}

var srcLibNames = []string{
	"libsamplerate.so.0",
	"libsamplerate.so",
	"libsamplerate.0.dylib",
	"libsamplerate.dylib",
	"/opt/homebrew/lib/libsamplerate.dylib",
	"/usr/local/lib/libsamplerate.dylib",
}

func loadSRC() error {
	srcLib.once.Do(func() {
		var handle uintptr
		var errs []error
		for _, name := range srcLibNames {
			h, err := purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
			if err == nil {
				handle = h
				break
			}
			errs = append(errs, err)
		}
		if handle == 0 {
			srcLib.err = fmt.Errorf("load libsamplerate: %w", errors.Join(errs...))
			return
		}
		for sym, fn := range map[string]any{
			"src_new":      &srcLib.newState,
			"src_process":  &srcLib.process,
			"src_reset":    &srcLib.reset,
			"src_delete":   &srcLib.delete,
			"src_strerror": &srcLib.strerror,
		} {
			addr, err := purego.Dlsym(handle, sym)
			if err != nil {
				srcLib.err = fmt.Errorf("libsamplerate symbol %s: %w", sym, err)
				return
			}
			purego.RegisterFunc(fn, addr)
		}
	})
	return srcLib.err
}

// SRCConverter resamples through libsamplerate. Ratio changes between
// calls are smoothed by the library.
type SRCConverter struct {
	state    uintptr
	channels int
	quality  Quality
	in       []float32
	out      []float32
	pcm      []int16
}

// NewSRCConverter loads libsamplerate on first use and creates a converter.
func NewSRCConverter(quality Quality, channels int) (*SRCConverter, error) {
	if err := loadSRC(); err != nil {
		return nil, err
	}
	if channels <= 0 || channels > 8 {
		return nil, fmt.Errorf("invalid channel count: %d", channels)
	}
	var code int32
	state := srcLib.newState(int32(quality), int32(channels), &code)
	if state == 0 {
		return nil, &ResamplerError{Code: int(code), Msg: srcLib.strerror(code)}
	}
	return &SRCConverter{state: state, channels: channels, quality: quality}, nil
}

func (c *SRCConverter) Name() string { return ConverterLibsamplerate + "/" + c.quality.String() }

func (c *SRCConverter) Process(in []int16, ratio float64, out []int16) ([]int16, error) {
	if c.state == 0 {
		return out, &ResamplerError{Code: -1, Msg: "converter closed"}
	}
	if ratio < 1.0/256 || ratio > 256 || math.IsNaN(ratio) {
		return out, &ResamplerError{Code: -1, Msg: fmt.Sprintf("invalid ratio %v", ratio)}
	}
	frames := len(in) / c.channels
	if frames == 0 {
		return out, nil
	}

	samples := frames * c.channels
	if cap(c.in) < samples {
		c.in = make([]float32, samples)
	}
	c.in = c.in[:samples]
	shortToFloat(c.in, in[:samples])

	outFrames := int(math.Ceil(float64(frames)*ratio)) + 16
	if cap(c.out) < outFrames*c.channels {
		c.out = make([]float32, outFrames*c.channels)
	}
	c.out = c.out[:outFrames*c.channels]

	var pinner runtime.Pinner
	defer pinner.Unpin()
	pinner.Pin(&c.in[0])
	pinner.Pin(&c.out[0])

	used := 0
	for used < frames {
		data := srcData{
			dataIn:       &c.in[used*c.channels],
			dataOut:      &c.out[0],
			inputFrames:  frames - used,
			outputFrames: outFrames,
			srcRatio:     ratio,
		}
		if code := srcLib.process(c.state, &data); code != 0 {
			return out, &ResamplerError{Code: int(code), Msg: srcLib.strerror(code)}
		}
		if data.inputFramesUsed == 0 && data.outputFramesGen == 0 {
			break
		}
		used += data.inputFramesUsed

		gen := data.outputFramesGen * c.channels
		if cap(c.pcm) < gen {
			c.pcm = make([]int16, gen)
		}
		c.pcm = c.pcm[:gen]
		floatToShort(c.pcm, c.out[:gen])
		out = append(out, c.pcm...)
	}
	return out, nil
}

func (c *SRCConverter) Reset() {
	if c.state != 0 {
		srcLib.reset(c.state)
	}
}

func (c *SRCConverter) Close() error {
	if c.state != 0 {
		srcLib.delete(c.state)
		c.state = 0
	}
	return nil
}
