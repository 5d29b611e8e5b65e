package frontend

import "fmt"

// stateSource serializes the running core.
type stateSource interface {
	SaveState() ([]byte, error)
}

// stateTarget restores a state and renders the frame it describes.
type stateTarget interface {
	LoadState(state []byte) error
	RunFrame() error
}

// rewindBuffer keeps serialized states in a ring, newest last, so play can
// be stepped backwards.
type rewindBuffer struct {
	buffer    [][]byte
	head      int // next write position
	count     int
	frameStep int
	frameTick int
}

// newRewindBuffer sizes the ring to hold bufferSizeMB of stateSize states.
// It returns nil when nothing would fit.
func newRewindBuffer(bufferSizeMB, frameStep, stateSize int) *rewindBuffer {
	if stateSize <= 0 || bufferSizeMB <= 0 || frameStep <= 0 {
		return nil
	}
	capacity := bufferSizeMB * 1024 * 1024 / stateSize
	if capacity == 0 {
		return nil
	}
	return &rewindBuffer{
		buffer:    make([][]byte, capacity),
		frameStep: frameStep,
	}
}

// Capture stores a state every frameStep calls.
func (rb *rewindBuffer) Capture(src stateSource) error {
	rb.frameTick++
	if rb.frameTick < rb.frameStep {
		return nil
	}
	rb.frameTick = 0

	state, err := src.SaveState()
	if err != nil {
		return fmt.Errorf("rewind capture: %w", err)
	}
	rb.buffer[rb.head] = state
	rb.head = (rb.head + 1) % len(rb.buffer)
	if rb.count < len(rb.buffer) {
		rb.count++
	}
	return nil
}

// Rewind drops count states and restores the newest one left, then runs a
// frame so the restored point is on screen. The oldest state is never
// dropped, so holding rewind at the start keeps showing it.
func (rb *rewindBuffer) Rewind(dst stateTarget, count int) bool {
	if rb.count == 0 || count <= 0 {
		return false
	}
	if count >= rb.count {
		count = rb.count - 1
	}
	n := len(rb.buffer)
	rb.head = (rb.head - count + n) % n
	rb.count -= count

	state := rb.buffer[(rb.head-1+n)%n]
	if state == nil {
		return false
	}
	if err := dst.LoadState(state); err != nil {
		return false
	}
	return dst.RunFrame() == nil
}

// Reset empties the buffer.
func (rb *rewindBuffer) Reset() {
	rb.head = 0
	rb.count = 0
	rb.frameTick = 0
	for i := range rb.buffer {
		rb.buffer[i] = nil
	}
}

func (rb *rewindBuffer) Count() int    { return rb.count }
func (rb *rewindBuffer) Capacity() int { return len(rb.buffer) }

// rewindItemsForHoldDuration returns how many states to step back for a
// key held this many ticks: slow at first, faster the longer it is held.
//
//	Hold (ticks) | Steps  | Rate
//	1            | 1      | single step
//	2-15         | 0 or 1 | every 4th tick
//	16-30        | 0 or 1 | every 2nd tick
//	31-60        | 1      | every tick
//	61+          | 2      | two per tick
func rewindItemsForHoldDuration(holdDuration int) int {
	switch {
	case holdDuration <= 0:
		return 0
	case holdDuration == 1:
		return 1
	case holdDuration <= 15:
		if holdDuration%4 == 0 {
			return 1
		}
		return 0
	case holdDuration <= 30:
		if holdDuration%2 == 0 {
			return 1
		}
		return 0
	case holdDuration <= 60:
		return 1
	default:
		return 2
	}
}
