package storage

// Config represents the host configuration stored in config.json
type Config struct {
	Version     int                          `json:"version"`
	Username    string                       `json:"username,omitempty"`
	Language    string                       `json:"language,omitempty"` // BCP 47 tag, e.g. "en-US"
	Paths       PathsConfig                  `json:"paths"`
	Audio       AudioConfig                  `json:"audio"`
	Video       VideoConfig                  `json:"video"`
	Window      WindowConfig                 `json:"window"`
	Input       InputConfig                  `json:"input"`
	Rewind      RewindConfig                 `json:"rewind"`
	CoreOptions map[string]map[string]string `json:"coreOptions,omitempty"` // core name -> key -> value
}

// PathsConfig overrides data directories. Empty means a directory under
// the base dir.
type PathsConfig struct {
	System      string `json:"system,omitempty"`
	Saves       string `json:"saves,omitempty"`
	States      string `json:"states,omitempty"`
	Screenshots string `json:"screenshots,omitempty"`
	CoreAssets  string `json:"coreAssets,omitempty"`
	Cheats      string `json:"cheats,omitempty"`
	Database    string `json:"database,omitempty"`
}

// AudioConfig contains audio output settings
type AudioConfig struct {
	DeviceSampleRate int     `json:"deviceSampleRate"`
	TargetLatencyMs  int     `json:"targetLatencyMs"`
	MaxDeviation     float64 `json:"maxDeviation"`
	HighWaterMs      int     `json:"highWaterMs"` // 0 = unbounded
	Resampler        string  `json:"resampler"`   // "auto", "libsamplerate", "cubic"
	Volume           float64 `json:"volume"`
	Muted            bool    `json:"muted"`
	FastForwardMute  bool    `json:"fastForwardMute"`
}

// VideoConfig contains video settings
type VideoConfig struct {
	Scale         int     `json:"scale"`
	SyncToDisplay bool    `json:"syncToDisplay"`
	DisplayRate   float64 `json:"displayRate"`
}

// WindowConfig contains window size
type WindowConfig struct {
	Width      int  `json:"width"`
	Height     int  `json:"height"`
	Fullscreen bool `json:"fullscreen"`
}

// InputConfig contains binding overrides. Empty maps mean "use defaults."
type InputConfig struct {
	Keyboard    map[string]string `json:"keyboard,omitempty"`   // button name -> key name
	Controller  map[string]string `json:"controller,omitempty"` // button name -> pad button name
	RumbleLevel int               `json:"rumbleLevel,omitempty"`
}

// RewindConfig contains rewind settings
type RewindConfig struct {
	Enabled      bool `json:"enabled"`      // off by default for its memory use
	BufferSizeMB int  `json:"bufferSizeMB"` // states kept, in megabytes
	FrameStep    int  `json:"frameStep"`    // capture every N ticks
}

// Resampler names accepted in AudioConfig.Resampler
var ResamplerNames = []string{"auto", "libsamplerate", "cubic"}

// DefaultConfig returns a new Config with default values
func DefaultConfig() *Config {
	return &Config{
		Version:  1,
		Username: "",
		Language: "en",
		Audio: AudioConfig{
			DeviceSampleRate: 48000,
			TargetLatencyMs:  64,
			MaxDeviation:     0.005,
			HighWaterMs:      0,
			Resampler:        "auto",
			Volume:           1.0,
		},
		Video: VideoConfig{
			Scale:         3,
			SyncToDisplay: true,
			DisplayRate:   60,
		},
		Window: WindowConfig{
			Width:  960,
			Height: 720,
		},
		Input: InputConfig{},
		Rewind: RewindConfig{
			Enabled:      false,
			BufferSizeMB: 40,
			FrameStep:    1,
		},
		CoreOptions: map[string]map[string]string{},
	}
}

// OptionsFor returns the saved option values for a core.
func (c *Config) OptionsFor(core string) map[string]string {
	return c.CoreOptions[core]
}

// SetOptions replaces the saved option values for a core.
func (c *Config) SetOptions(core string, values map[string]string) {
	if c.CoreOptions == nil {
		c.CoreOptions = make(map[string]map[string]string)
	}
	if len(values) == 0 {
		delete(c.CoreOptions, core)
		return
	}
	c.CoreOptions[core] = values
}
