package audio

import "math"

const (
	// DefaultTargetLatencyMs is the buffered amount the controller steers toward.
	DefaultTargetLatencyMs = 64
	// DefaultMaxDeviation bounds the ratio correction to half a percent.
	DefaultMaxDeviation = 0.005
	// BytesPerFrame is one interleaved stereo int16 frame.
	BytesPerFrame = 4
)

// Format describes the rates the resampling ratio is derived from.
type Format struct {
	PluginRate  float64 // sample rate reported by the core
	PluginFPS   float64 // frame rate reported by the core
	DeviceRate  float64 // output device sample rate
	DisplayRate float64 // display refresh rate, 0 when unknown
}

// BaseRatio is the nominal output/input ratio before drift correction.
// When the display refresh rate is known, samples are stretched so that
// pacing emulation to the display keeps audio in step.
func (f Format) BaseRatio() float64 {
	if f.PluginRate <= 0 || f.DeviceRate <= 0 {
		return 1
	}
	ratio := f.DeviceRate / f.PluginRate
	if f.DisplayRate > 0 && f.PluginFPS > 0 {
		ratio *= f.DisplayRate / f.PluginFPS
	}
	return ratio
}

// DriftController nudges the resampling ratio so device buffer occupancy
// converges on a target.
type DriftController struct {
	TargetLatencyMs int
	MaxDeviation    float64
}

// NewDriftController returns a controller with the given target and bound.
// Non-positive values fall back to the defaults.
func NewDriftController(targetMs int, maxDeviation float64) DriftController {
	if targetMs <= 0 {
		targetMs = DefaultTargetLatencyMs
	}
	if maxDeviation <= 0 {
		maxDeviation = DefaultMaxDeviation
	}
	return DriftController{TargetLatencyMs: targetMs, MaxDeviation: maxDeviation}
}

// TargetBytes is the target occupancy for a device running at deviceRate.
func (d DriftController) TargetBytes(deviceRate float64) int {
	if deviceRate <= 0 || d.TargetLatencyMs <= 0 {
		return 0
	}
	frames := int(deviceRate * float64(d.TargetLatencyMs) / 1000)
	return frames * BytesPerFrame
}

// Deviation maps occupancy to a correction in [-MaxDeviation, MaxDeviation].
// An emptier buffer yields a positive value, which produces more output.
// A zero target disables correction.
func (d DriftController) Deviation(occupancy, target int) float64 {
	if target <= 0 {
		return 0
	}
	dev := float64(target-occupancy) / float64(target)
	return math.Max(-d.MaxDeviation, math.Min(d.MaxDeviation, dev))
}

// Ratio returns the corrected ratio and the deviation applied.
func (d DriftController) Ratio(f Format, occupancy int) (float64, float64) {
	dev := d.Deviation(occupancy, d.TargetBytes(f.DeviceRate))
	return f.BaseRatio() * (1 + dev), dev
}
