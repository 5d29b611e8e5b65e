package audio

import (
	"io"
	"sync"
	"time"
)

// headlessTick is how often the headless device consumes audio.
const headlessTick = 10 * time.Millisecond

// HeadlessDevice discards audio at real-time speed so pacing and drift
// behave as they would with a sound card.
type HeadlessDevice struct {
	mu         sync.Mutex
	sampleRate int
	paused     bool
	consumed   uint64
	stop       chan struct{}
	done       chan struct{}
	err        error
}

// NewHeadlessDevice returns a device that drains at sampleRate.
func NewHeadlessDevice(sampleRate int) (Device, error) {
	return &HeadlessDevice{sampleRate: sampleRate}, nil
}

func (d *HeadlessDevice) Start(r io.Reader) error {
	d.Close()
	d.mu.Lock()
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	stop, done := d.stop, d.done
	d.mu.Unlock()

	chunk := d.sampleRate * BytesPerFrame * int(headlessTick) / int(time.Second)
	buf := make([]byte, chunk)
	go func() {
		defer close(done)
		t := time.NewTicker(headlessTick)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
			}
			d.mu.Lock()
			paused := d.paused
			d.mu.Unlock()
			if paused {
				continue
			}
			n, err := io.ReadFull(r, buf)
			d.mu.Lock()
			d.consumed += uint64(n)
			d.mu.Unlock()
			if err != nil {
				return
			}
		}
	}()
	return nil
}

func (d *HeadlessDevice) Pause() {
	d.mu.Lock()
	d.paused = true
	d.mu.Unlock()
}

func (d *HeadlessDevice) Resume() {
	d.mu.Lock()
	d.paused = false
	d.mu.Unlock()
}

func (d *HeadlessDevice) BufferedSize() int { return 0 }

func (d *HeadlessDevice) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

func (d *HeadlessDevice) SetVolume(float64) {}

// Consumed returns the number of bytes drained so far.
func (d *HeadlessDevice) Consumed() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.consumed
}

// Close stops the drain goroutine. A reader blocked in Read must be closed
// by the caller for Close to return.
func (d *HeadlessDevice) Close() error {
	d.mu.Lock()
	stop, done := d.stop, d.done
	d.stop, d.done = nil, nil
	d.mu.Unlock()
	if stop != nil {
		close(stop)
		<-done
	}
	return nil
}
