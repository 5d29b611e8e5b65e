package libretro

import (
	"sync/atomic"
	"unsafe"
)

// active is the core the trampolines deliver to. The plugin ABI passes no
// context pointer to its callbacks, so only one core can be hosted per
// process at a time.
var active atomic.Pointer[Core]

func activate(c *Core) error {
	if active.CompareAndSwap(nil, c) || active.Load() == c {
		return nil
	}
	return ErrActiveCore
}

func deactivate(c *Core) {
	active.CompareAndSwap(c, nil)
}

// Active returns the core currently receiving callbacks, if any.
func Active() *Core {
	return active.Load()
}

// recoverCallback stops a panic from unwinding into C.
func recoverCallback(name string) {
	if r := recover(); r != nil {
		logger.Error().Str("callback", name).Interface("panic", r).Msg("recovered panic in core callback")
	}
}

func environmentTrampoline(cmd uint32, data unsafe.Pointer) (handled bool) {
	defer recoverCallback("environment")
	c := active.Load()
	if c == nil {
		return false
	}
	return c.environment(cmd, data)
}

func videoRefreshTrampoline(data unsafe.Pointer, width, height uint32, pitch uintptr) {
	defer recoverCallback("video_refresh")
	if c := active.Load(); c != nil {
		c.videoRefresh(data, int(width), int(height), int(pitch))
	}
}

func audioSampleTrampoline(left, right int16) {
	defer recoverCallback("audio_sample")
	if c := active.Load(); c != nil {
		c.audioSample(left, right)
	}
}

func audioSampleBatchTrampoline(data *int16, frames uintptr) (written uintptr) {
	defer recoverCallback("audio_sample_batch")
	c := active.Load()
	if c == nil || data == nil {
		return 0
	}
	return uintptr(c.audioSampleBatch(unsafe.Slice(data, int(frames)*2)))
}

func inputPollTrampoline() {
	defer recoverCallback("input_poll")
	if c := active.Load(); c != nil {
		c.inputPoll()
	}
}

func inputStateTrampoline(port, device, index, id uint32) (state int16) {
	defer recoverCallback("input_state")
	c := active.Load()
	if c == nil {
		return 0
	}
	return c.inputState(uint(port), uint(device), uint(index), uint(id))
}

// logTrampoline receives the core's printf-style log call. Only the four
// arguments passed in integer registers are visible to a Go callback.
func logTrampoline(level uint32, format *byte, a0, a1, a2, a3 uintptr) {
	defer recoverCallback("log")
	c := active.Load()
	if c == nil {
		return
	}
	c.coreLog(int(level), goString(format), []uintptr{a0, a1, a2, a3})
}

func rumbleTrampoline(port, effect uint32, strength uint16) (ok bool) {
	defer recoverCallback("rumble")
	c := active.Load()
	if c == nil {
		return false
	}
	return c.setRumble(uint(port), uint(effect), strength)
}
