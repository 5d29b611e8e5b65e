package libretro

// DefaultPoolSlots is the number of slots in each frame buffer pool.
const DefaultPoolSlots = 30

// FrameBufferPool is a fixed ring of preallocated buffers used to hand
// frames from core callbacks to consumers without allocating per frame.
//
// There is no backpressure. A consumer holding a slot past SlotCount()
// advances sees it overwritten; consumers must copy what they need before
// returning from the notification that handed them the slot.
type FrameBufferPool struct {
	slots  [][]byte
	cursor int
}

// NewFrameBufferPool preallocates slotCount zeroed buffers of slotSize bytes.
func NewFrameBufferPool(slotSize, slotCount int) *FrameBufferPool {
	if slotCount < 1 {
		slotCount = 1
	}
	if slotSize < 0 {
		slotSize = 0
	}
	p := &FrameBufferPool{slots: make([][]byte, slotCount)}
	for i := range p.slots {
		p.slots[i] = make([]byte, slotSize)
	}
	return p
}

// Current returns the slot at the write cursor.
func (p *FrameBufferPool) Current() []byte {
	return p.slots[p.cursor]
}

// CurrentIndex returns the write cursor.
func (p *FrameBufferPool) CurrentIndex() int {
	return p.cursor
}

// Advance moves the write cursor to the next slot, wrapping at SlotCount.
func (p *FrameBufferPool) Advance() {
	p.cursor = (p.cursor + 1) % len(p.slots)
}

// Slot returns slot i.
func (p *FrameBufferPool) Slot(i int) []byte {
	return p.slots[i]
}

func (p *FrameBufferPool) SlotCount() int {
	return len(p.slots)
}

func (p *FrameBufferPool) SlotSize() int {
	return len(p.slots[0])
}

// Grow reallocates every slot to at least size bytes. Existing contents
// are discarded and the cursor is kept.
func (p *FrameBufferPool) Grow(size int) {
	if size <= p.SlotSize() {
		return
	}
	for i := range p.slots {
		p.slots[i] = make([]byte, size)
	}
}
