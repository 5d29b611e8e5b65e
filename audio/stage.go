package audio

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// State is the lifecycle position of an OutputStage.
type State int

const (
	StateUninitialized State = iota
	StateConfigured
	StateActive
	StateSuspended
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConfigured:
		return "configured"
	case StateActive:
		return "active"
	case StateSuspended:
		return "suspended"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// DefaultDeviceRate is the output rate used when none is configured.
const DefaultDeviceRate = 48000

// reopenInterval limits how often a failed device is reopened.
const reopenInterval = time.Second

// Config tunes an OutputStage. Zero values select defaults.
type Config struct {
	DeviceRate      int
	DisplayRate     float64
	TargetLatencyMs int
	MaxDeviation    float64
	// HighWaterMs bounds the queue; 0 leaves it unbounded.
	HighWaterMs int
	Converter   string
	Volume      float64
}

func (c Config) withDefaults() Config {
	if c.DeviceRate <= 0 {
		c.DeviceRate = DefaultDeviceRate
	}
	if c.Converter == "" {
		c.Converter = ConverterAuto
	}
	if c.Volume < 0 {
		c.Volume = 0
	}
	return c
}

// Stats are counters exposed for diagnostics.
type Stats struct {
	Blocks        uint64
	SilentBlocks  uint64
	Resets        uint64
	LastRatio     float64
	LastDeviation float64
	Occupancy     int
	Underruns     uint64
	DroppedBytes  uint64
}

// OutputStage takes PCM blocks from the emulation goroutine, resamples them
// with drift correction and queues them for the device.
type OutputStage struct {
	mu        sync.Mutex
	cfg       Config
	drift     DriftController
	newDevice DeviceFactory

	state      State
	format     Format
	ring       *RingBuffer
	device     Device
	resampler  *Resampler
	wantActive bool
	lastOpen   time.Time
	bytes      []byte
	stats      Stats

	now func() time.Time
}

// NewOutputStage creates an uninitialized stage. newDevice may be nil to
// use DefaultDevice.
func NewOutputStage(cfg Config, newDevice DeviceFactory) *OutputStage {
	cfg = cfg.withDefaults()
	if newDevice == nil {
		newDevice = DefaultDevice
	}
	return &OutputStage{
		cfg:       cfg,
		drift:     NewDriftController(cfg.TargetLatencyMs, cfg.MaxDeviation),
		newDevice: newDevice,
		now:       time.Now,
	}
}

// OnFormatKnown configures the stage for the core's sample and frame rate.
// A repeated call with a new format rebuilds the resampler and, when the
// stage was running, restarts output.
func (s *OutputStage) OnFormatKnown(sampleRate, frameRate float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sampleRate <= 0 || math.IsNaN(sampleRate) {
		return fmt.Errorf("invalid sample rate %v", sampleRate)
	}

	s.format = Format{
		PluginRate:  sampleRate,
		PluginFPS:   frameRate,
		DeviceRate:  float64(s.cfg.DeviceRate),
		DisplayRate: s.cfg.DisplayRate,
	}
	if s.resampler == nil {
		s.resampler = NewResampler(s.cfg.Converter)
	}
	if err := s.resampler.Configure(sampleRate, 2); err != nil {
		return err
	}
	if s.ring == nil {
		s.ring = s.newRing()
	}
	if s.state == StateUninitialized {
		s.state = StateConfigured
	}
	logger.Info().
		Float64("core_rate", sampleRate).
		Float64("core_fps", frameRate).
		Int("device_rate", s.cfg.DeviceRate).
		Float64("ratio", s.format.BaseRatio()).
		Str("resampler", s.resampler.Name()).
		Msg("audio format")
	return nil
}

func (s *OutputStage) newRing() *RingBuffer {
	hw := 0
	if s.cfg.HighWaterMs > 0 {
		hw = s.cfg.DeviceRate * s.cfg.HighWaterMs / 1000 * BytesPerFrame
	}
	return NewRingBuffer(hw)
}

// Activate opens the device if needed and starts playback.
func (s *OutputStage) Activate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateUninitialized:
		return ErrNotConfigured
	case StateActive:
		return nil
	case StateSuspended:
		s.device.Resume()
		s.state = StateActive
		s.wantActive = true
		return nil
	}
	s.wantActive = true
	return s.openDevice()
}

// openDevice moves Configured to Active. Caller holds mu.
func (s *OutputStage) openDevice() error {
	s.lastOpen = s.now()
	dev, err := s.newDevice(s.cfg.DeviceRate)
	if err != nil {
		return &AudioDeviceError{Op: "open", Err: err}
	}
	dev.SetVolume(s.cfg.Volume)
	if err := dev.Start(s.ring); err != nil {
		dev.Close()
		return &AudioDeviceError{Op: "start", Err: err}
	}
	s.device = dev
	s.state = StateActive
	return nil
}

// Suspend pauses the device. Queued audio is kept.
func (s *OutputStage) Suspend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return
	}
	s.device.Pause()
	s.state = StateSuspended
}

// Resume restarts a suspended device.
func (s *OutputStage) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSuspended {
		return
	}
	s.device.Resume()
	s.state = StateActive
}

// OnAudioBlock resamples one block of interleaved stereo PCM and queues it.
// Blocks arriving before the format is known are dropped.
func (s *OutputStage) OnAudioBlock(pcm []int16) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateUninitialized || len(pcm) < 2 {
		return
	}
	// Only a device error resets the stage. A ring underrun is counted in
	// Stats and left to drift correction, since the ring refills itself.
	if s.device != nil {
		if err := s.device.Err(); err != nil {
			s.resetLocked(&AudioDeviceError{Op: "play", Err: err})
		}
	}
	if s.state == StateConfigured && s.wantActive && s.now().Sub(s.lastOpen) >= reopenInterval {
		if err := s.openDevice(); err != nil {
			logger.Warn().Err(err).Msg("audio device reopen failed")
		}
	}
	if s.state == StateConfigured {
		return
	}

	occupancy := s.ring.Buffered() + s.device.BufferedSize()
	ratio, dev := s.drift.Ratio(s.format, occupancy)
	s.stats.Blocks++
	s.stats.LastRatio = ratio
	s.stats.LastDeviation = dev
	s.stats.Occupancy = occupancy

	out, err := s.resampler.Process(pcm, ratio)
	if err != nil {
		logger.Warn().Err(err).Msg("resampler failed, substituting silence")
		s.stats.SilentBlocks++
		s.resampler.Reset()
		frames := int(float64(len(pcm)/2) * ratio)
		out = make([]int16, frames*2)
	}
	s.queue(out)
}

// queue writes samples to the ring as little-endian bytes. Caller holds mu.
func (s *OutputStage) queue(samples []int16) {
	if len(samples) == 0 {
		return
	}
	needed := len(samples) * 2
	if cap(s.bytes) < needed {
		s.bytes = make([]byte, 0, needed)
	}
	s.bytes = s.bytes[:0]
	for _, v := range samples {
		s.bytes = append(s.bytes, byte(v), byte(v>>8))
	}
	s.ring.Write(s.bytes)
}

// resetLocked discards the device, queue and filter state after a device
// failure. Rates and tuning survive. Caller holds mu.
func (s *OutputStage) resetLocked(cause error) {
	logger.Warn().Err(cause).Msg("audio device failed, resetting output")
	s.stats.Resets++
	s.stats.Underruns += s.ring.Underruns()
	s.stats.DroppedBytes += s.ring.Dropped()
	s.ring.Close()
	if s.device != nil {
		s.device.Close()
		s.device = nil
	}
	s.ring = s.newRing()
	s.resampler.Reset()
	s.state = StateConfigured
	s.lastOpen = s.now()
}

// ClearQueue drops audio that has not reached the device yet.
func (s *OutputStage) ClearQueue() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ring != nil {
		s.ring.Clear()
	}
}

// SetVolume sets playback volume in [0, 2].
func (s *OutputStage) SetVolume(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Volume = clampVolume(v)
	if s.device != nil {
		s.device.SetVolume(s.cfg.Volume)
	}
}

// SetDisplayRate updates the refresh rate used for the base ratio.
func (s *OutputStage) SetDisplayRate(hz float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.DisplayRate = hz
	s.format.DisplayRate = hz
}

// State returns the current lifecycle state.
func (s *OutputStage) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Occupancy is the audio queued ahead of the speaker, in bytes.
func (s *OutputStage) Occupancy() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ring == nil {
		return 0
	}
	n := s.ring.Buffered()
	if s.device != nil {
		n += s.device.BufferedSize()
	}
	return n
}

// Stats returns a snapshot of the stage counters.
func (s *OutputStage) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	if s.ring != nil {
		st.Underruns += s.ring.Underruns()
		st.DroppedBytes += s.ring.Dropped()
	}
	return st
}

// Close stops output and returns the stage to Uninitialized. The ring is
// closed before the device so a blocked device read returns.
func (s *OutputStage) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ring != nil {
		s.ring.Close()
		s.ring = nil
	}
	if s.device != nil {
		s.device.Close()
		s.device = nil
	}
	if s.resampler != nil {
		s.resampler.Close()
		s.resampler = nil
	}
	s.state = StateUninitialized
	s.wantActive = false
}
