package audio

import "io"

// Device plays interleaved stereo int16 little-endian PCM pulled from a reader.
type Device interface {
	// Start begins pulling from r.
	Start(r io.Reader) error
	Pause()
	Resume()
	// BufferedSize is the number of bytes read from r but not yet played.
	BufferedSize() int
	// Err reports a failure of the underlying device, such as a lost
	// output or an underrun the platform surfaces as an error.
	Err() error
	SetVolume(v float64)
	Close() error
}

// DeviceFactory opens a device running at sampleRate.
type DeviceFactory func(sampleRate int) (Device, error)

// clampVolume limits volume to [0, 2].
func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 2 {
		return 2
	}
	return v
}
