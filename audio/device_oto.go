//go:build !headless

package audio

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// DefaultDevice opens the platform audio output.
var DefaultDevice DeviceFactory = NewOtoDevice

// otoPlayerBufferSize keeps the mux player's internal buffer near 50ms at
// 48kHz so occupancy readings stay responsive.
const otoPlayerBufferSize = 19200

// The oto context is a process singleton fixed to one sample rate.
var (
	otoCtx      *oto.Context
	otoCtxRate  int
	otoInitOnce sync.Once
	otoInitErr  error
)

func ensureOtoContext(sampleRate int) (*oto.Context, error) {
	otoInitOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 2,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   50 * time.Millisecond,
		}
		var ready chan struct{}
		otoCtx, ready, otoInitErr = oto.NewContext(op)
		if otoInitErr != nil {
			return
		}
		<-ready
		otoCtxRate = sampleRate
	})
	if otoInitErr != nil {
		return nil, otoInitErr
	}
	if otoCtxRate != sampleRate {
		return nil, fmt.Errorf("audio context already running at %d Hz", otoCtxRate)
	}
	return otoCtx, nil
}

// OtoDevice plays through an oto player.
type OtoDevice struct {
	ctx    *oto.Context
	player *oto.Player
	volume float64
}

// NewOtoDevice opens the shared oto context at sampleRate.
func NewOtoDevice(sampleRate int) (Device, error) {
	ctx, err := ensureOtoContext(sampleRate)
	if err != nil {
		return nil, &AudioDeviceError{Op: "open", Err: err}
	}
	return &OtoDevice{ctx: ctx, volume: 1}, nil
}

func (d *OtoDevice) Start(r io.Reader) error {
	if d.player != nil {
		d.player.Close()
	}
	d.player = d.ctx.NewPlayer(r)
	d.player.SetBufferSize(otoPlayerBufferSize)
	// Volume before Play avoids a pop when muted.
	d.player.SetVolume(d.volume)
	d.player.Play()
	return nil
}

func (d *OtoDevice) Pause() {
	if d.player != nil {
		d.player.Pause()
	}
}

func (d *OtoDevice) Resume() {
	if d.player != nil {
		d.player.Play()
	}
	if err := d.ctx.Resume(); err != nil {
		logger.Warn().Err(err).Msg("resume audio context")
	}
}

func (d *OtoDevice) BufferedSize() int {
	if d.player == nil {
		return 0
	}
	return d.player.BufferedSize()
}

func (d *OtoDevice) Err() error {
	if err := d.ctx.Err(); err != nil {
		return err
	}
	if d.player != nil {
		return d.player.Err()
	}
	return nil
}

func (d *OtoDevice) SetVolume(v float64) {
	d.volume = clampVolume(v)
	if d.player != nil {
		d.player.SetVolume(d.volume)
	}
}

func (d *OtoDevice) Close() error {
	if d.player == nil {
		return nil
	}
	err := d.player.Close()
	d.player = nil
	return err
}
