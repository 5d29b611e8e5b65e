package libretro

// VideoSink receives finished frames from the core. The frame data is
// borrowed and must be copied before OnVideoFrame returns.
type VideoSink interface {
	OnVideoFrame(f Frame)
}

// AudioSink receives interleaved signed 16-bit stereo PCM from the core.
type AudioSink interface {
	// OnFormatKnown is called after content load and whenever the core
	// changes its timing.
	OnFormatKnown(sampleRate, frameRate float64) error
	// OnAudioBlock delivers one block in emission order. pcm is borrowed.
	OnAudioBlock(pcm []int16)
	// Suspend stops the device from draining without discarding audio.
	Suspend()
}

// InputSource answers input queries synchronously during RunFrame.
type InputSource interface {
	Poll()
	State(port, device, index, id uint) int16
}

// SaveStore persists battery-backed save RAM between sessions.
type SaveStore interface {
	LoadSaveBlob(name string) ([]byte, error)
	StoreSaveBlob(name string, data []byte) error
}

// RumbleSink drives force feedback. strength is 0-65535.
type RumbleSink interface {
	SetRumble(port uint, effect uint, strength uint16) bool
}

// MessageSink shows on-screen messages the core requests.
type MessageSink interface {
	ShowMessage(msg string, frames uint32)
}

// InputDescriptor names a button for a port.
type InputDescriptor struct {
	Port        uint
	Device      uint
	Index       uint
	ID          uint
	Description string
}

// ControllerType is one device type a core accepts on a port.
type ControllerType struct {
	Description string
	ID          uint
}
