package audio

import (
	"io"
	"sync"
)

// compactThreshold is how much consumed space may build up at the front of
// the queue before it is reclaimed.
const compactThreshold = 64 * 1024

// RingBuffer is a growable byte queue between the emulation goroutine and
// the audio device. Write never blocks and, by default, never drops data.
// Read blocks until data is available or the buffer is closed.
//
// With a high-water mark set, writes that would push the buffered amount
// past it drop the oldest bytes first.
type RingBuffer struct {
	mu        sync.Mutex
	cond      *sync.Cond
	data      []byte
	start     int
	closed    bool
	highWater int
	dropped   uint64
	underruns uint64
}

// NewRingBuffer creates an empty buffer. highWater of 0 leaves it unbounded.
func NewRingBuffer(highWater int) *RingBuffer {
	rb := &RingBuffer{highWater: highWater}
	rb.cond = sync.NewCond(&rb.mu)
	return rb
}

// Write appends p. Writes after Close are discarded.
func (rb *RingBuffer) Write(p []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.closed {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}

	rb.data = append(rb.data, p...)
	if rb.highWater > 0 {
		if over := len(rb.data) - rb.start - rb.highWater; over > 0 {
			rb.start += over
			rb.dropped += uint64(over)
		}
	}
	rb.compact()
	rb.cond.Signal()
	return len(p), nil
}

// compact reclaims consumed space at the front.
func (rb *RingBuffer) compact() {
	if rb.start < compactThreshold || rb.start < len(rb.data)/2 {
		return
	}
	n := copy(rb.data, rb.data[rb.start:])
	rb.data = rb.data[:n]
	rb.start = 0
}

// Read removes up to len(p) bytes. It blocks while the buffer is empty.
// After Close, remaining data is returned and then io.EOF.
func (rb *RingBuffer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	rb.mu.Lock()
	defer rb.mu.Unlock()

	if len(rb.data) == rb.start && !rb.closed {
		rb.underruns++
	}
	for len(rb.data) == rb.start && !rb.closed {
		rb.cond.Wait()
	}
	if len(rb.data) == rb.start {
		return 0, io.EOF
	}

	n := copy(p, rb.data[rb.start:])
	rb.start += n
	if rb.start == len(rb.data) {
		rb.data = rb.data[:0]
		rb.start = 0
	}
	return n, nil
}

// Buffered returns the number of unread bytes.
func (rb *RingBuffer) Buffered() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return len(rb.data) - rb.start
}

// Clear discards all unread bytes.
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.data = rb.data[:0]
	rb.start = 0
}

// Close wakes any blocked reader. Unread data can still be read.
func (rb *RingBuffer) Close() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.closed = true
	rb.cond.Broadcast()
}

// Dropped returns the number of bytes discarded by the high-water mark.
func (rb *RingBuffer) Dropped() uint64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.dropped
}

// Underruns returns how many reads found the buffer empty.
func (rb *RingBuffer) Underruns() uint64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.underruns
}
