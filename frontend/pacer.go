package frontend

import "time"

// maxLagFrames is how far behind the pacer may fall, after a pause or a
// slow frame, before it restarts from now instead of catching up.
const maxLagFrames = 4

// pacer spaces emulated frames at a fixed interval using an absolute
// deadline, so sleep overshoot does not accumulate.
type pacer struct {
	interval time.Duration
	next     time.Time
	now      func() time.Time
	sleep    func(time.Duration)
}

func newPacer(interval time.Duration) *pacer {
	return &pacer{interval: interval, now: time.Now, sleep: time.Sleep}
}

// wait blocks until the next frame is due. A zero interval never waits.
func (p *pacer) wait() {
	if p.interval <= 0 {
		return
	}
	now := p.now()
	if p.next.IsZero() || now.Sub(p.next) > maxLagFrames*p.interval {
		p.next = now
	}
	p.next = p.next.Add(p.interval)
	if d := p.next.Sub(now); d > 0 {
		p.sleep(d)
	}
}
