package audio

import (
	"errors"
	"fmt"
)

var (
	// ErrResampler is matched by every ResamplerError.
	ErrResampler = errors.New("resampler error")
	// ErrAudioDevice is matched by every AudioDeviceError.
	ErrAudioDevice = errors.New("audio device error")

	ErrNotConfigured = errors.New("audio output not configured")
	ErrClosed        = errors.New("ring buffer closed")
)

// ResamplerError is an error code reported by a sample rate converter.
type ResamplerError struct {
	Code int
	Msg  string
}

func (e *ResamplerError) Error() string {
	return fmt.Sprintf("resampler error %d: %s", e.Code, e.Msg)
}

func (e *ResamplerError) Is(target error) bool { return target == ErrResampler }

// AudioDeviceError is a failure to open or keep running the output device.
type AudioDeviceError struct {
	Op  string
	Err error
}

func (e *AudioDeviceError) Error() string {
	return fmt.Sprintf("audio device %s: %v", e.Op, e.Err)
}

func (e *AudioDeviceError) Unwrap() error { return e.Err }

func (e *AudioDeviceError) Is(target error) bool { return target == ErrAudioDevice }
