package frontend

import (
	"sync"

	"github.com/user-none/retrohost/libretro"
)

// TurboState is the fast-forward multiplier, set from the UI goroutine and
// read by the emulation goroutine.
type TurboState struct {
	mu         sync.Mutex
	multiplier int
}

// CycleMultiplier steps Off(1) -> 2x -> 3x -> Off and returns the new value.
func (ts *TurboState) CycleMultiplier() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	switch ts.multiplier {
	case 0, 1:
		ts.multiplier = 2
	case 2:
		ts.multiplier = 3
	default:
		ts.multiplier = 1
	}
	return ts.multiplier
}

// Read returns the current multiplier, at least 1.
func (ts *TurboState) Read() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.multiplier < 1 {
		return 1
	}
	return ts.multiplier
}

// averageAudio folds the stereo samples of multiplier frames, laid end to
// end, into one frame's worth by averaging corresponding samples.
func averageAudio(combined []int16, multiplier int) []int16 {
	if multiplier <= 1 || len(combined) == 0 {
		return combined
	}
	frameLen := len(combined) / multiplier
	frameLen &^= 1
	if frameLen == 0 {
		return nil
	}

	out := make([]int16, frameLen)
	for i := range out {
		var acc int32
		for f := 0; f < multiplier; f++ {
			acc += int32(combined[f*frameLen+i])
		}
		out[i] = int16(acc / int32(multiplier))
	}
	return out
}

// audioGate sits between the core and the output stage. While held it
// collects blocks instead of forwarding them, so fast-forward can hand the
// stage one averaged block per tick and rewind can drop audio entirely.
type audioGate struct {
	next libretro.AudioSink
	held bool
	buf  []int16
}

func (g *audioGate) OnFormatKnown(sampleRate, frameRate float64) error {
	return g.next.OnFormatKnown(sampleRate, frameRate)
}

func (g *audioGate) OnAudioBlock(pcm []int16) {
	if g.held {
		g.buf = append(g.buf, pcm...)
		return
	}
	g.next.OnAudioBlock(pcm)
}

func (g *audioGate) Suspend() { g.next.Suspend() }

func (g *audioGate) hold() {
	g.held = true
	g.buf = g.buf[:0]
}

// release forwards what was held, averaged over frames, or drops it when
// mute is set.
func (g *audioGate) release(frames int, mute bool) {
	g.held = false
	if !mute && len(g.buf) > 0 {
		if out := averageAudio(g.buf, frames); len(out) > 0 {
			g.next.OnAudioBlock(out)
		}
	}
	g.buf = g.buf[:0]
}
