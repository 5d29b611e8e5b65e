package storage

import (
	"encoding/json"
	"fmt"
	"slices"
)

// presentKeyPaths are the dotted keys that get defaults when absent.
var presentKeyPaths = map[string][]string{
	"":       {"version", "language"},
	"audio":  {"deviceSampleRate", "targetLatencyMs", "maxDeviation", "resampler", "volume"},
	"video":  {"scale", "syncToDisplay", "displayRate"},
	"window": {"width", "height"},
	"rewind": {"bufferSizeMB", "frameStep"},
}

// detectPresentKeys returns the dotted-path keys (e.g. "audio.volume")
// explicitly present in the JSON, so intentional zero values survive.
func detectPresentKeys(jsonBytes []byte) map[string]bool {
	present := make(map[string]bool)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(jsonBytes, &raw); err != nil {
		return present
	}

	for section, keys := range presentKeyPaths {
		if section == "" {
			for _, k := range keys {
				if _, ok := raw[k]; ok {
					present[k] = true
				}
			}
			continue
		}
		sectionRaw, ok := raw[section]
		if !ok {
			continue
		}
		var fields map[string]json.RawMessage
		if json.Unmarshal(sectionRaw, &fields) != nil {
			continue
		}
		for _, k := range keys {
			if _, ok := fields[k]; ok {
				present[section+"."+k] = true
			}
		}
	}
	return present
}

// ApplyMissingDefaults sets default values for config fields that are absent
// from the JSON file, preserving intentional zero values (e.g. volume=0).
func ApplyMissingDefaults(config *Config, presentKeys map[string]bool) {
	defaults := DefaultConfig()

	if !presentKeys["version"] {
		config.Version = defaults.Version
	}
	if !presentKeys["language"] {
		config.Language = defaults.Language
	}
	if !presentKeys["audio.deviceSampleRate"] {
		config.Audio.DeviceSampleRate = defaults.Audio.DeviceSampleRate
	}
	if !presentKeys["audio.targetLatencyMs"] {
		config.Audio.TargetLatencyMs = defaults.Audio.TargetLatencyMs
	}
	if !presentKeys["audio.maxDeviation"] {
		config.Audio.MaxDeviation = defaults.Audio.MaxDeviation
	}
	if !presentKeys["audio.resampler"] {
		config.Audio.Resampler = defaults.Audio.Resampler
	}
	if !presentKeys["audio.volume"] {
		config.Audio.Volume = defaults.Audio.Volume
	}
	if !presentKeys["video.scale"] {
		config.Video.Scale = defaults.Video.Scale
	}
	if !presentKeys["video.syncToDisplay"] {
		config.Video.SyncToDisplay = defaults.Video.SyncToDisplay
	}
	if !presentKeys["video.displayRate"] {
		config.Video.DisplayRate = defaults.Video.DisplayRate
	}
	if !presentKeys["window.width"] {
		config.Window.Width = defaults.Window.Width
	}
	if !presentKeys["window.height"] {
		config.Window.Height = defaults.Window.Height
	}
	if !presentKeys["rewind.bufferSizeMB"] {
		config.Rewind.BufferSizeMB = defaults.Rewind.BufferSizeMB
	}
	if !presentKeys["rewind.frameStep"] {
		config.Rewind.FrameStep = defaults.Rewind.FrameStep
	}
	if config.CoreOptions == nil {
		config.CoreOptions = map[string]map[string]string{}
	}
}

// ValidateConfig checks config fields against valid ranges and returns
// human-readable problems. An empty slice means the config is valid.
func ValidateConfig(config *Config) []string {
	var errors []string

	if config.Version != 1 {
		errors = append(errors, fmt.Sprintf("version: %d (valid: 1)", config.Version))
	}
	if r := config.Audio.DeviceSampleRate; r < 8000 || r > 192000 {
		errors = append(errors, fmt.Sprintf("audio.deviceSampleRate: %d (valid: 8000-192000)", r))
	}
	if ms := config.Audio.TargetLatencyMs; ms < 8 || ms > 500 {
		errors = append(errors, fmt.Sprintf("audio.targetLatencyMs: %d (valid: 8-500)", ms))
	}
	if d := config.Audio.MaxDeviation; d <= 0 || d > 0.05 {
		errors = append(errors, fmt.Sprintf("audio.maxDeviation: %.4f (valid: >0-0.05)", d))
	}
	if hw := config.Audio.HighWaterMs; hw != 0 && hw < config.Audio.TargetLatencyMs*2 {
		errors = append(errors, fmt.Sprintf("audio.highWaterMs: %d (valid: 0 or >= 2x targetLatencyMs)", hw))
	}
	if !slices.Contains(ResamplerNames, config.Audio.Resampler) {
		errors = append(errors, fmt.Sprintf("audio.resampler: %q (valid: %v)", config.Audio.Resampler, ResamplerNames))
	}
	if config.Audio.Volume < 0 || config.Audio.Volume > 2.0 {
		errors = append(errors, fmt.Sprintf("audio.volume: %.2f (valid: 0.0-2.0)", config.Audio.Volume))
	}
	if config.Video.Scale < 1 || config.Video.Scale > 10 {
		errors = append(errors, fmt.Sprintf("video.scale: %d (valid: 1-10)", config.Video.Scale))
	}
	if config.Video.DisplayRate < 0 || config.Video.DisplayRate > 500 {
		errors = append(errors, fmt.Sprintf("video.displayRate: %.2f (valid: 0-500)", config.Video.DisplayRate))
	}
	if config.Window.Width < 320 {
		errors = append(errors, fmt.Sprintf("window.width: %d (valid: >= 320)", config.Window.Width))
	}
	if config.Window.Height < 240 {
		errors = append(errors, fmt.Sprintf("window.height: %d (valid: >= 240)", config.Window.Height))
	}
	if config.Input.RumbleLevel < 0 || config.Input.RumbleLevel > 5 {
		errors = append(errors, fmt.Sprintf("input.rumbleLevel: %d (valid: 0-5)", config.Input.RumbleLevel))
	}
	if mb := config.Rewind.BufferSizeMB; mb < 1 || mb > 1024 {
		errors = append(errors, fmt.Sprintf("rewind.bufferSizeMB: %d (valid: 1-1024)", mb))
	}
	if fs := config.Rewind.FrameStep; fs < 1 || fs > 60 {
		errors = append(errors, fmt.Sprintf("rewind.frameStep: %d (valid: 1-60)", fs))
	}

	return errors
}

// CorrectConfig resets any invalid fields to their defaults. Valid fields
// are preserved.
func CorrectConfig(config *Config) *Config {
	defaults := DefaultConfig()

	if config.Version != 1 {
		config.Version = defaults.Version
	}
	if r := config.Audio.DeviceSampleRate; r < 8000 || r > 192000 {
		config.Audio.DeviceSampleRate = defaults.Audio.DeviceSampleRate
	}
	if ms := config.Audio.TargetLatencyMs; ms < 8 || ms > 500 {
		config.Audio.TargetLatencyMs = defaults.Audio.TargetLatencyMs
	}
	if d := config.Audio.MaxDeviation; d <= 0 || d > 0.05 {
		config.Audio.MaxDeviation = defaults.Audio.MaxDeviation
	}
	if hw := config.Audio.HighWaterMs; hw != 0 && hw < config.Audio.TargetLatencyMs*2 {
		config.Audio.HighWaterMs = defaults.Audio.HighWaterMs
	}
	if !slices.Contains(ResamplerNames, config.Audio.Resampler) {
		config.Audio.Resampler = defaults.Audio.Resampler
	}
	if config.Audio.Volume < 0 || config.Audio.Volume > 2.0 {
		config.Audio.Volume = defaults.Audio.Volume
	}
	if config.Video.Scale < 1 || config.Video.Scale > 10 {
		config.Video.Scale = defaults.Video.Scale
	}
	if config.Video.DisplayRate < 0 || config.Video.DisplayRate > 500 {
		config.Video.DisplayRate = defaults.Video.DisplayRate
	}
	if config.Window.Width < 320 {
		config.Window.Width = defaults.Window.Width
	}
	if config.Window.Height < 240 {
		config.Window.Height = defaults.Window.Height
	}
	if config.Input.RumbleLevel < 0 || config.Input.RumbleLevel > 5 {
		config.Input.RumbleLevel = defaults.Input.RumbleLevel
	}
	if mb := config.Rewind.BufferSizeMB; mb < 1 || mb > 1024 {
		config.Rewind.BufferSizeMB = defaults.Rewind.BufferSizeMB
	}
	if fs := config.Rewind.FrameStep; fs < 1 || fs > 60 {
		config.Rewind.FrameStep = defaults.Rewind.FrameStep
	}

	return config
}
