package frontend

import (
	"sync"

	"github.com/user-none/retrohost/libretro"
)

// videoSink converts core frames to RGBA for the shared framebuffer.
type videoSink struct {
	fb      *SharedFramebuffer
	scratch []byte
}

func (v *videoSink) OnVideoFrame(f libretro.Frame) {
	if f.Dupe {
		// The framebuffer already holds the previous frame.
		return
	}
	v.scratch = f.ConvertToRGBA(v.scratch)
	v.fb.Update(v.scratch, f.Width, f.Height)
}

// deviceTypeMask strips the subclass bits from a device ID.
const deviceTypeMask = 0xFF

// inputSource answers core input queries from a snapshot of SharedInput
// taken at poll time, so one frame sees consistent input.
type inputSource struct {
	shared   *SharedInput
	snapshot [MaxPorts]PortState
}

func (in *inputSource) Poll() {
	in.snapshot = in.shared.Read()
}

func (in *inputSource) State(port, device, index, id uint) int16 {
	if port >= MaxPorts {
		return 0
	}
	st := in.snapshot[port]
	switch device & deviceTypeMask {
	case libretro.DeviceJoypad:
		if id == libretro.JoypadMask {
			return int16(st.Buttons)
		}
		if id < 16 && st.Buttons&(1<<id) != 0 {
			return 1
		}
	case libretro.DeviceAnalog:
		if index <= libretro.AnalogRight && id <= libretro.AnalogY {
			return st.Analog[index][id]
		}
	}
	return 0
}

// Rumble scaling floors, so any non-zero request can be felt.
const (
	minRumbleMagnitude  = 0.40
	minRumbleDurationMs = 250
)

// rumbleMagnitude scales a core strength by the user's rumble level.
// Levels 1-4 multiply the strength, level 5 is always full strength and
// level 0 disables rumble.
func rumbleMagnitude(strength uint16, level int) float64 {
	if strength == 0 || level <= 0 {
		return 0
	}
	if level >= 5 {
		return 1
	}
	m := float64(strength) / 65535 * float64(level)
	if m > 1 {
		return 1
	}
	if m < minRumbleMagnitude {
		return minRumbleMagnitude
	}
	return m
}

// RumbleState records the motor strengths the core requested per port.
// The UI thread reads it and drives the gamepads.
type RumbleState struct {
	mu      sync.Mutex
	motors  [MaxPorts][2]uint16
	changed bool
}

// SetRumble implements libretro.RumbleSink.
func (r *RumbleState) SetRumble(port, effect uint, strength uint16) bool {
	if port >= MaxPorts || effect > libretro.RumbleWeak {
		return false
	}
	r.mu.Lock()
	if r.motors[port][effect] != strength {
		r.motors[port][effect] = strength
		r.changed = true
	}
	r.mu.Unlock()
	return true
}

// Motors returns the strong and weak strengths for every port and whether
// anything changed since the last call.
func (r *RumbleState) Motors() ([MaxPorts][2]uint16, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	changed := r.changed
	r.changed = false
	return r.motors, changed
}

// Active reports whether any motor is running.
func (r *RumbleState) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.motors {
		if m[0] != 0 || m[1] != 0 {
			return true
		}
	}
	return false
}

// Stop turns every motor off.
func (r *RumbleState) Stop() {
	r.mu.Lock()
	r.motors = [MaxPorts][2]uint16{}
	r.changed = true
	r.mu.Unlock()
}

// MessageQueue holds the on-screen message the core or the host last
// asked for. Its lifetime counts down in emulated frames.
type MessageQueue struct {
	mu        sync.Mutex
	text      string
	remaining uint32
}

// defaultMessageFrames is used when a message asks for zero frames.
const defaultMessageFrames = 180

// ShowMessage implements libretro.MessageSink. A later message replaces
// the current one.
func (m *MessageQueue) ShowMessage(msg string, frames uint32) {
	if frames == 0 {
		frames = defaultMessageFrames
	}
	m.mu.Lock()
	m.text = msg
	m.remaining = frames
	m.mu.Unlock()
}

// Tick advances the queue by one emulated frame.
func (m *MessageQueue) Tick() {
	m.mu.Lock()
	if m.remaining > 0 {
		m.remaining--
		if m.remaining == 0 {
			m.text = ""
		}
	}
	m.mu.Unlock()
}

// Current returns the visible message, if any.
func (m *MessageQueue) Current() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text, m.text != ""
}
