package libretro

import "unsafe"

// The methods in this file run on the emulation goroutine from inside a
// plugin call, with c.mu already held by the caller of that plugin call.

func (c *Core) videoRefresh(data unsafe.Pointer, width, height, pitch int) {
	if data == nil {
		// Duplicate frame: show the previous frame again without touching
		// the pool.
		if c.haveFrame && c.opts.Video != nil {
			f := c.lastFrame
			f.Dupe = true
			c.opts.Video.OnVideoFrame(f)
		}
		return
	}
	if c.videoPool == nil || width <= 0 || height <= 0 {
		return
	}
	c.videoStarted = true

	bpp := c.pixelFormat.BytesPerPixel()
	rowBytes := width * bpp
	if pitch < rowBytes {
		c.log.Warn().Int("pitch", pitch).Int("width", width).Msg("video pitch smaller than row, frame dropped")
		return
	}
	need := rowBytes * height
	if need > c.videoPool.SlotSize() {
		c.log.Warn().Int("bytes", need).Int("slot", c.videoPool.SlotSize()).Msg("frame exceeds video slot, growing pool")
		c.videoPool.Grow(need + videoSlotHeadroom)
	}

	slot := c.videoPool.Current()
	src := unsafe.Slice((*byte)(data), pitch*(height-1)+rowBytes)
	for y := 0; y < height; y++ {
		copy(slot[y*rowBytes:(y+1)*rowBytes], src[y*pitch:y*pitch+rowBytes])
	}

	c.lastFrame = Frame{
		Data:   slot[:need],
		Width:  width,
		Height: height,
		Pitch:  rowBytes,
		Format: c.pixelFormat,
	}
	c.haveFrame = true
	c.videoPool.Advance()

	if c.opts.Video != nil {
		c.opts.Video.OnVideoFrame(c.lastFrame)
	}
}

func (c *Core) audioSample(left, right int16) {
	if c.audioPool == nil {
		return
	}
	slot := c.audioPool.Current()
	if c.audioPending+4 > len(slot) {
		c.flushAudio()
		slot = c.audioPool.Current()
	}
	s := slot[c.audioPending:]
	s[0] = byte(left)
	s[1] = byte(uint16(left) >> 8)
	s[2] = byte(right)
	s[3] = byte(uint16(right) >> 8)
	c.audioPending += 4
}

// audioSampleBatch buffers interleaved stereo samples and returns the
// number of frames consumed.
func (c *Core) audioSampleBatch(samples []int16) int {
	if c.audioPool == nil {
		return 0
	}
	frames := len(samples) / 2
	for len(samples) >= 2 {
		slot := c.audioPool.Current()
		free := (len(slot) - c.audioPending) / 4
		if free == 0 {
			c.flushAudio()
			continue
		}
		n := len(samples) / 2
		if n > free {
			n = free
		}
		dst := slot[c.audioPending:]
		for i := 0; i < n*2; i++ {
			v := samples[i]
			dst[i*2] = byte(v)
			dst[i*2+1] = byte(uint16(v) >> 8)
		}
		c.audioPending += n * 4
		samples = samples[n*2:]
	}
	return frames
}

// flushAudio hands the pending audio block to the sink and advances the
// audio pool.
func (c *Core) flushAudio() {
	if c.audioPool == nil || c.audioPending == 0 {
		return
	}
	slot := c.audioPool.Current()[:c.audioPending]
	if c.opts.Audio != nil {
		pcm := make16(slot)
		c.opts.Audio.OnAudioBlock(pcm)
	}
	c.audioPending = 0
	c.audioPool.Advance()
}

// make16 views little-endian PCM bytes as samples. Slots are written in
// little-endian order, so on big-endian hosts the bytes are swapped in place.
func make16(b []byte) []int16 {
	if len(b) < 2 {
		return nil
	}
	if !littleEndian {
		for i := 0; i+1 < len(b); i += 2 {
			b[i], b[i+1] = b[i+1], b[i]
		}
	}
	return unsafe.Slice((*int16)(unsafe.Pointer(&b[0])), len(b)/2)
}

var littleEndian = func() bool {
	x := uint16(1)
	return *(*byte)(unsafe.Pointer(&x)) == 1
}()

func (c *Core) inputPoll() {
	if c.opts.Input != nil {
		c.opts.Input.Poll()
	}
}

func (c *Core) inputState(port, device, index, id uint) int16 {
	if c.opts.Input == nil {
		return 0
	}
	if device&deviceMask == DeviceJoypad && id == JoypadMask {
		var mask int16
		for b := uint(0); b <= JoypadR3; b++ {
			if c.opts.Input.State(port, device, index, b) != 0 {
				mask |= 1 << b
			}
		}
		return mask
	}
	return c.opts.Input.State(port, device, index, id)
}

func (c *Core) setRumble(port, effect uint, strength uint16) bool {
	if c.opts.Rumble == nil {
		return false
	}
	return c.opts.Rumble.SetRumble(port, effect, strength)
}
