//go:build !(darwin || freebsd || linux || netbsd)

package audio

import (
	"errors"
	"runtime"
)

// SRCConverter is unavailable on this platform.
type SRCConverter struct{ Converter }

func NewSRCConverter(quality Quality, channels int) (*SRCConverter, error) {
	return nil, errors.New("libsamplerate is not supported on " + runtime.GOOS)
}
