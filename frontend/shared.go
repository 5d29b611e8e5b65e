package frontend

import (
	"image"
	"sync"
	"time"
)

// MaxPorts is the number of controller ports input is collected for.
const MaxPorts = 2

// PortState is one controller port's input: a RetroPad button bitmask
// indexed by libretro joypad ID and the two analog sticks.
type PortState struct {
	Buttons uint16
	// Analog is indexed by stick then axis, in -32768..32767.
	Analog [2][2]int16
}

// SharedInput holds controller state written by the UI thread and read by
// the emulation goroutine.
type SharedInput struct {
	mu    sync.Mutex
	ports [MaxPorts]PortState
}

// Set updates one port. Out of range ports are ignored.
func (si *SharedInput) Set(port int, state PortState) {
	if port < 0 || port >= MaxPorts {
		return
	}
	si.mu.Lock()
	si.ports[port] = state
	si.mu.Unlock()
}

// Read returns the state of every port.
func (si *SharedInput) Read() [MaxPorts]PortState {
	si.mu.Lock()
	result := si.ports
	si.mu.Unlock()
	return result
}

// SharedFramebuffer holds RGBA pixels written by the emulation goroutine
// and read by the renderer. The emulation side writes into writePixels
// while readers receive a copy in readPixels.
type SharedFramebuffer struct {
	mu          sync.Mutex
	writePixels []byte
	readPixels  []byte
	width       int
	height      int
	frames      uint64
}

// NewSharedFramebuffer creates a framebuffer pre-sized for width x height.
// Larger frames grow it.
func NewSharedFramebuffer(width, height int) *SharedFramebuffer {
	size := width * height * 4
	return &SharedFramebuffer{
		writePixels: make([]byte, size),
		readPixels:  make([]byte, size),
	}
}

// Update copies a packed RGBA frame.
func (sf *SharedFramebuffer) Update(pixels []byte, width, height int) {
	n := width * height * 4
	if n > len(pixels) || width <= 0 || height <= 0 {
		return
	}
	sf.mu.Lock()
	if n > len(sf.writePixels) {
		sf.writePixels = make([]byte, n)
	}
	copy(sf.writePixels[:n], pixels[:n])
	sf.width = width
	sf.height = height
	sf.frames++
	sf.mu.Unlock()
}

// Read returns a snapshot of the latest frame. The returned slice is owned
// by the framebuffer and stays valid until the next Read.
func (sf *SharedFramebuffer) Read() (pixels []byte, width, height int) {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	n := sf.width * sf.height * 4
	if len(sf.readPixels) < n {
		sf.readPixels = make([]byte, n)
	}
	copy(sf.readPixels[:n], sf.writePixels[:n])
	return sf.readPixels[:n], sf.width, sf.height
}

// Image returns a copy of the latest frame, or nil before the first one.
func (sf *SharedFramebuffer) Image() *image.RGBA {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	if sf.width == 0 || sf.height == 0 {
		return nil
	}
	img := image.NewRGBA(image.Rect(0, 0, sf.width, sf.height))
	copy(img.Pix, sf.writePixels[:sf.width*sf.height*4])
	return img
}

// Frames returns how many frames have been written.
func (sf *SharedFramebuffer) Frames() uint64 {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	return sf.frames
}

// EmuControl coordinates pause, resume and stop between the UI thread and
// the emulation goroutine.
type EmuControl struct {
	mu       sync.Mutex
	pauseReq bool
	paused   bool
	running  bool
	ackCh    chan struct{}
}

// NewEmuControl creates a running control.
func NewEmuControl() *EmuControl {
	return &EmuControl{
		running: true,
		ackCh:   make(chan struct{}, 1),
	}
}

// RequestPause asks the emulation goroutine to pause and blocks until it
// has stopped between frames.
func (ec *EmuControl) RequestPause() {
	ec.mu.Lock()
	if ec.paused || ec.pauseReq || !ec.running {
		ec.mu.Unlock()
		return
	}
	ec.pauseReq = true
	ec.mu.Unlock()

	<-ec.ackCh
}

// RequestResume lets a paused emulation goroutine continue.
func (ec *EmuControl) RequestResume() {
	ec.mu.Lock()
	ec.pauseReq = false
	ec.paused = false
	ec.mu.Unlock()
}

// CheckPause is called by the emulation goroutine between frames. While a
// pause is requested it acknowledges and waits. It returns false once the
// goroutine should exit.
func (ec *EmuControl) CheckPause() bool {
	ec.mu.Lock()
	if !ec.running {
		ec.mu.Unlock()
		return false
	}
	if !ec.pauseReq {
		ec.mu.Unlock()
		return true
	}
	ec.paused = true
	ec.mu.Unlock()

	select {
	case ec.ackCh <- struct{}{}:
	default:
	}

	for {
		ec.mu.Lock()
		if !ec.running {
			ec.mu.Unlock()
			return false
		}
		if !ec.pauseReq {
			ec.paused = false
			ec.mu.Unlock()
			return true
		}
		ec.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
}

// Stop tells the emulation goroutine to exit. A pending RequestPause is
// released.
func (ec *EmuControl) Stop() {
	ec.mu.Lock()
	ec.running = false
	waiting := ec.pauseReq && !ec.paused
	ec.pauseReq = false
	ec.mu.Unlock()
	if waiting {
		select {
		case ec.ackCh <- struct{}{}:
		default:
		}
	}
}

// ShouldRun reports whether the emulation goroutine should keep going.
func (ec *EmuControl) ShouldRun() bool {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.running
}

// IsPaused reports whether the emulation goroutine is parked.
func (ec *EmuControl) IsPaused() bool {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.paused
}
