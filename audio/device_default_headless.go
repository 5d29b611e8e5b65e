//go:build headless

package audio

// DefaultDevice drains audio without a sound card.
var DefaultDevice DeviceFactory = NewHeadlessDevice
