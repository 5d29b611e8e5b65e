package libretro

import "unsafe"

// APIVersion is the libretro API version this host implements.
const APIVersion = 1

// Device types passed to input_state and retro_set_controller_port_device.
const (
	DeviceNone     = 0
	DeviceJoypad   = 1
	DeviceMouse    = 2
	DeviceKeyboard = 3
	DeviceLightgun = 4
	DeviceAnalog   = 5
	DevicePointer  = 6

	deviceTypeShift = 8
	deviceMask      = (1 << deviceTypeShift) - 1
)

// RetroPad button IDs.
const (
	JoypadB      = 0
	JoypadY      = 1
	JoypadSelect = 2
	JoypadStart  = 3
	JoypadUp     = 4
	JoypadDown   = 5
	JoypadLeft   = 6
	JoypadRight  = 7
	JoypadA      = 8
	JoypadX      = 9
	JoypadL      = 10
	JoypadR      = 11
	JoypadL2     = 12
	JoypadR2     = 13
	JoypadL3     = 14
	JoypadR3     = 15

	// JoypadMask requests every button as a bitmask in a single call.
	JoypadMask = 256
)

// Analog stick indexes and axis IDs.
const (
	AnalogLeft  = 0
	AnalogRight = 1
	AnalogX     = 0
	AnalogY     = 1
)

// Memory region IDs for get_memory_data/get_memory_size.
const (
	MemorySaveRAM   = 0
	MemoryRTC       = 1
	MemorySystemRAM = 2
	MemoryVideoRAM  = 3
)

// PixelFormat is the pixel layout of frames handed to video refresh.
type PixelFormat uint32

const (
	PixelFormat0RGB1555 PixelFormat = 0
	PixelFormatXRGB8888 PixelFormat = 1
	PixelFormatRGB565   PixelFormat = 2
)

// BytesPerPixel returns the size of one pixel, or 0 for unknown formats.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelFormat0RGB1555, PixelFormatRGB565:
		return 2
	case PixelFormatXRGB8888:
		return 4
	}
	return 0
}

func (f PixelFormat) String() string {
	switch f {
	case PixelFormat0RGB1555:
		return "0RGB1555"
	case PixelFormatXRGB8888:
		return "XRGB8888"
	case PixelFormatRGB565:
		return "RGB565"
	}
	return "unknown"
}

// Log levels used by the core log interface.
const (
	LogDebug = 0
	LogInfo  = 1
	LogWarn  = 2
	LogError = 3
)

// Rumble effects.
const (
	RumbleStrong = 0
	RumbleWeak   = 1
)

// Environment commands.
const (
	envExperimental = 0x10000
	envPrivate      = 0x20000

	EnvSetRotation                   = 1
	EnvGetOverscan                   = 2
	EnvGetCanDupe                    = 3
	EnvSetMessage                    = 6
	EnvShutdown                      = 7
	EnvSetPerformanceLevel           = 8
	EnvGetSystemDirectory            = 9
	EnvSetPixelFormat                = 10
	EnvSetInputDescriptors           = 11
	EnvSetKeyboardCallback           = 12
	EnvSetDiskControlInterface       = 13
	EnvSetHWRender                   = 14
	EnvGetVariable                   = 15
	EnvSetVariables                  = 16
	EnvGetVariableUpdate             = 17
	EnvSetSupportNoGame              = 18
	EnvGetLibretroPath               = 19
	EnvSetFrameTimeCallback          = 21
	EnvSetAudioCallback              = 22
	EnvGetRumbleInterface            = 23
	EnvGetInputDeviceCapabilities    = 24
	EnvGetLogInterface               = 27
	EnvGetPerfInterface              = 28
	EnvGetCoreAssetsDirectory        = 30
	EnvGetSaveDirectory              = 31
	EnvSetSystemAVInfo               = 32
	EnvSetSubsystemInfo              = 34
	EnvSetControllerInfo             = 35
	EnvSetMemoryMaps                 = 36
	EnvSetGeometry                   = 37
	EnvGetUsername                   = 38
	EnvGetLanguage                   = 39
	EnvSetSupportAchievements        = 42
	EnvSetSerializationQuirks        = 44
	EnvGetAudioVideoEnable           = 47
	EnvGetInputBitmasks              = 51
	EnvGetCoreOptionsVersion         = 52
	EnvSetCoreOptions                = 53
	EnvSetCoreOptionsIntl            = 54
	EnvSetCoreOptionsDisplay         = 55
	EnvGetMessageInterfaceVersion    = 59
	EnvSetMessageExt                 = 60
	EnvSetAudioBufferStatusCallback  = 62
	EnvSetMinimumAudioLatency        = 63
	EnvSetContentInfoOverride        = 65
	EnvSetVariable                   = 70
	EnvGetThrottleState              = 71
	EnvSetCoreOptionsUpdateDisplayCb = 69
)

// maxCoreOptionValues is RETRO_NUM_CORE_OPTION_VALUES_MAX.
const maxCoreOptionValues = 128

// The following types mirror the C structs of the plugin ABI. Field order
// and widths must match the C layout exactly.

type gameGeometry struct {
	baseWidth   uint32
	baseHeight  uint32
	maxWidth    uint32
	maxHeight   uint32
	aspectRatio float32
}

type systemTiming struct {
	fps        float64
	sampleRate float64
}

type systemAVInfo struct {
	geometry gameGeometry
	timing   systemTiming
}

type systemInfo struct {
	libraryName     *byte
	libraryVersion  *byte
	validExtensions *byte
	needFullpath    bool
	blockExtract    bool
}

type gameInfo struct {
	path *byte
	data unsafe.Pointer
	size uintptr
	meta *byte
}

type variable struct {
	key   *byte
	value *byte
}

type message struct {
	msg    *byte
	frames uint32
}

type messageExt struct {
	msg      *byte
	duration uint32
	priority uint32
	level    int32
	target   int32
	typ      int32
	progress int8
}

type logCallback struct {
	log uintptr
}

type rumbleInterface struct {
	setRumbleState uintptr
}

type frameTimeCallback struct {
	callback  uintptr
	reference int64
}

type inputDescriptor struct {
	port        uint32
	device      uint32
	index       uint32
	id          uint32
	description *byte
}

type controllerDescription struct {
	desc *byte
	id   uint32
}

type controllerInfo struct {
	types    *controllerDescription
	numTypes uint32
}

type coreOptionValue struct {
	value *byte
	label *byte
}

type coreOptionDefinition struct {
	key          *byte
	desc         *byte
	info         *byte
	values       [maxCoreOptionValues]coreOptionValue
	defaultValue *byte
}

type coreOptionsIntl struct {
	us    *coreOptionDefinition
	local *coreOptionDefinition
}

type coreOptionDisplay struct {
	key     *byte
	visible bool
}

// AVInfo is the audio/video timing and geometry reported by a core.
type AVInfo struct {
	SampleRate      float64
	NativeFrameRate float64
	BaseWidth       uint32
	BaseHeight      uint32
	MaxWidth        uint32
	MaxHeight       uint32
	AspectRatio     float64
}

func (c *systemAVInfo) toAVInfo() AVInfo {
	info := AVInfo{
		SampleRate:      c.timing.sampleRate,
		NativeFrameRate: c.timing.fps,
	}
	info.applyGeometry(&c.geometry)
	return info
}

// applyGeometry copies a geometry update. A non-positive aspect ratio means
// width/height.
func (a *AVInfo) applyGeometry(g *gameGeometry) {
	a.BaseWidth = g.baseWidth
	a.BaseHeight = g.baseHeight
	if g.maxWidth != 0 {
		a.MaxWidth = g.maxWidth
	}
	if g.maxHeight != 0 {
		a.MaxHeight = g.maxHeight
	}
	a.AspectRatio = float64(g.aspectRatio)
	if a.AspectRatio <= 0 && g.baseHeight > 0 {
		a.AspectRatio = float64(g.baseWidth) / float64(g.baseHeight)
	}
}

// SystemInfo is the static description a core reports about itself.
type SystemInfo struct {
	LibraryName     string
	LibraryVersion  string
	ValidExtensions []string
	NeedFullpath    bool
	BlockExtract    bool
}

func (c *systemInfo) toSystemInfo() SystemInfo {
	info := SystemInfo{
		LibraryName:    goString(c.libraryName),
		LibraryVersion: goString(c.libraryVersion),
		NeedFullpath:   c.needFullpath,
		BlockExtract:   c.blockExtract,
	}
	if ext := goString(c.validExtensions); ext != "" {
		info.ValidExtensions = splitExtensions(ext)
	}
	return info
}
