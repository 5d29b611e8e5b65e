package libretro

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/rs/zerolog"
)

// Audio slots hold one second of stereo 16-bit PCM at the core's rate.
const audioSlotBytesPerHz = 4

// videoSlotHeadroom is extra space per video slot for cores that write
// slightly past their declared maximum geometry.
const videoSlotHeadroom = 4096

// Options configures a Core. Every collaborator is optional.
type Options struct {
	SystemDir     string
	SaveDir       string
	CoreAssetsDir string
	Username      string
	Language      uint32

	Video    VideoSink
	Audio    AudioSink
	Input    InputSource
	Saves    SaveStore
	Rumble   RumbleSink
	Messages MessageSink

	// OptionOverrides are user values for core variables.
	OptionOverrides map[string]string
	// PoolSlots defaults to DefaultPoolSlots.
	PoolSlots int
}

// Content is what LoadContent hands to the core. Path is required for
// cores that need the full path; otherwise Data is used when set and the
// file at Path is read when it is not.
type Content struct {
	Path string
	Data []byte
}

// Core hosts one loaded core library.
//
// Only one Core may be loaded at a time per process: callbacks reach their
// Core through a single process-wide slot that Load sets and Unload clears.
type Core struct {
	mu   sync.Mutex
	opts Options
	log  zerolog.Logger

	path        string
	plugin      Plugin
	initialized bool
	gameLoaded  bool

	sys  SystemInfo
	av   AVInfo
	vars *Variables

	pixelFormat  PixelFormat
	videoStarted bool
	lastFrame    Frame
	haveFrame    bool

	videoPool    *FrameBufferPool
	audioPool    *FrameBufferPool
	audioPending int

	strings     stringArena
	gamePinner  runtime.Pinner
	contentData []byte
	contentPath string
	contentName string

	supportNoGame      bool
	performanceLevel   uint32
	serializationQuirk uint64
	minAudioLatencyMs  uint32
	rotation           uint32
	inputDescriptors   []InputDescriptor
	controllerTypes    [][]ControllerType

	frameTime     func(usec int64)
	frameTimeRef  int64
	lastFrameTime time.Time

	shutdown atomic.Bool
}

// NewCore creates an empty core host.
func NewCore(opts Options) *Core {
	if opts.PoolSlots <= 0 {
		opts.PoolSlots = DefaultPoolSlots
	}
	c := &Core{
		opts:        opts,
		log:         logger,
		vars:        NewVariables(),
		pixelFormat: PixelFormat0RGB1555,
	}
	c.vars.SetOverrides(opts.OptionOverrides)
	return c
}

// Load opens the core library at path, registers the host callbacks and
// initializes the core.
func (c *Core) Load(path string) error {
	p, err := openPlugin(path)
	if err != nil {
		return err
	}
	if err := c.LoadPlugin(p, path); err != nil {
		p.Close()
		return err
	}
	return nil
}

// LoadPlugin hosts an already resolved plugin. path is reported to the
// core as its library path.
func (c *Core) LoadPlugin(p Plugin, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.plugin != nil {
		return &PluginLoadError{Path: path, Err: fmt.Errorf("core %s already loaded", c.path)}
	}
	if v := p.APIVersion(); v != APIVersion {
		return &PluginLoadError{Path: path, Err: fmt.Errorf("unsupported API version %d", v)}
	}
	if err := activate(c); err != nil {
		return &PluginLoadError{Path: path, Err: err}
	}

	c.path = path
	c.plugin = p
	c.shutdown.Store(false)
	c.pixelFormat = PixelFormat0RGB1555
	c.videoStarted = false
	c.haveFrame = false

	p.RegisterCallbacks()

	var si systemInfo
	p.GetSystemInfo(&si)
	c.sys = si.toSystemInfo()
	c.log = logger.With().Str("core", c.sys.LibraryName).Logger()

	p.Init()
	c.initialized = true

	c.log.Info().
		Str("path", path).
		Str("version", c.sys.LibraryVersion).
		Strs("extensions", c.sys.ValidExtensions).
		Bool("need_fullpath", c.sys.NeedFullpath).
		Msg("core loaded")
	return nil
}

// LoadContent hands content to the core, sizes the frame pools from the
// reported AV info and restores save RAM.
func (c *Core) LoadContent(content Content) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.plugin == nil {
		return &ContentLoadError{Path: content.Path, Err: ErrNotLoaded}
	}
	if c.gameLoaded {
		c.unloadGameLocked()
	}

	var gi *gameInfo
	switch {
	case content.Path == "" && content.Data == nil:
		if !c.supportNoGame {
			return &ContentLoadError{Err: errors.New("core requires content")}
		}
	case c.sys.NeedFullpath:
		if content.Path == "" {
			return &ContentLoadError{Err: errors.New("core requires a content path")}
		}
		abs, err := filepath.Abs(content.Path)
		if err != nil {
			return &ContentLoadError{Path: content.Path, Err: err}
		}
		gi = &gameInfo{path: c.strings.get(abs)}
		c.contentPath = abs
	default:
		data := content.Data
		if data == nil {
			var err error
			data, err = os.ReadFile(content.Path)
			if err != nil {
				return &ContentLoadError{Path: content.Path, Err: err}
			}
		}
		c.contentData = data
		c.contentPath = content.Path
		gi = &gameInfo{size: uintptr(len(data))}
		if content.Path != "" {
			gi.path = c.strings.get(content.Path)
		}
		if len(data) > 0 {
			c.gamePinner.Pin(&data[0])
			gi.data = unsafe.Pointer(&data[0])
		}
	}
	c.contentName = contentBaseName(content.Path)

	if gi != nil {
		c.gamePinner.Pin(gi)
	}
	ok := c.plugin.LoadGame(gi)
	if !ok {
		c.gamePinner.Unpin()
		c.contentData = nil
		return &ContentLoadError{Path: content.Path, Err: errors.New("core rejected content")}
	}
	c.gameLoaded = true

	var av systemAVInfo
	c.plugin.GetSystemAVInfo(&av)
	c.av = av.toAVInfo()
	c.allocatePools()
	c.notifyAudioFormat()
	c.restoreSaveRAM()

	c.log.Info().
		Str("content", c.contentName).
		Float64("fps", c.av.NativeFrameRate).
		Float64("sample_rate", c.av.SampleRate).
		Uint32("width", c.av.BaseWidth).
		Uint32("height", c.av.BaseHeight).
		Msg("content loaded")
	return nil
}

func contentBaseName(path string) string {
	if path == "" {
		return ""
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (c *Core) allocatePools() {
	bpp := c.pixelFormat.BytesPerPixel()
	if bpp < 4 {
		// The pixel format may still change to XRGB8888 before the first frame.
		bpp = 4
	}
	videoSize := int(c.av.MaxWidth)*int(c.av.MaxHeight)*bpp + videoSlotHeadroom
	audioSize := int(math.Ceil(c.av.SampleRate)) * audioSlotBytesPerHz
	if audioSize < 4096 {
		audioSize = 4096
	}
	c.videoPool = NewFrameBufferPool(videoSize, c.opts.PoolSlots)
	c.audioPool = NewFrameBufferPool(audioSize, c.opts.PoolSlots)
	c.audioPending = 0
	c.haveFrame = false
}

func (c *Core) notifyAudioFormat() {
	if c.opts.Audio == nil {
		return
	}
	if err := c.opts.Audio.OnFormatKnown(c.av.SampleRate, c.av.NativeFrameRate); err != nil {
		c.log.Warn().Err(err).Msg("audio output unavailable")
	}
}

// RunFrame runs the core for one frame. Audio emitted during the frame is
// delivered to the audio sink as one block before RunFrame returns.
func (c *Core) RunFrame() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.plugin == nil {
		return ErrNotLoaded
	}
	if !c.gameLoaded {
		return ErrNoContent
	}

	if c.frameTime != nil {
		now := time.Now()
		usec := c.frameTimeRef
		if !c.lastFrameTime.IsZero() {
			usec = now.Sub(c.lastFrameTime).Microseconds()
		}
		c.lastFrameTime = now
		c.frameTime(usec)
	}

	c.plugin.Run()
	c.flushAudio()
	return nil
}

// Unload unloads content and the core. It is safe to call at any point,
// including repeatedly; later calls do nothing.
func (c *Core) Unload() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.plugin == nil {
		return
	}
	if c.opts.Audio != nil {
		c.opts.Audio.Suspend()
	}
	if c.gameLoaded {
		c.unloadGameLocked()
	}
	if c.initialized {
		c.plugin.Deinit()
		c.initialized = false
	}
	if err := c.plugin.Close(); err != nil {
		c.log.Warn().Err(err).Msg("close core library")
	}
	c.plugin = nil
	c.videoPool = nil
	c.audioPool = nil
	c.vars.Clear()
	c.strings.release()
	c.frameTime = nil
	c.lastFrameTime = time.Time{}
	deactivate(c)
	c.log.Info().Str("path", c.path).Msg("core unloaded")
}

// UnloadContent unloads the current content but keeps the core loaded.
func (c *Core) UnloadContent() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.plugin != nil && c.gameLoaded {
		c.unloadGameLocked()
	}
}

func (c *Core) unloadGameLocked() {
	c.storeSaveRAM()
	c.plugin.UnloadGame()
	c.gameLoaded = false
	c.gamePinner.Unpin()
	c.contentData = nil
	c.haveFrame = false
	c.audioPending = 0
}

// Reset restarts the running content.
func (c *Core) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.gameLoaded {
		return ErrNoContent
	}
	c.plugin.Reset()
	return nil
}

// SaveState serializes the running content.
func (c *Core) SaveState() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.gameLoaded {
		return nil, ErrNoContent
	}
	size := c.plugin.SerializeSize()
	if size == 0 {
		return nil, fmt.Errorf("%w: core reports no state", ErrSerialize)
	}
	buf := make([]byte, size)
	if !c.plugin.Serialize(unsafe.Pointer(&buf[0]), size) {
		return nil, ErrSerialize
	}
	return buf, nil
}

// LoadState restores state produced by SaveState.
func (c *Core) LoadState(state []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.gameLoaded {
		return ErrNoContent
	}
	if len(state) == 0 {
		return fmt.Errorf("%w: empty state", ErrSerialize)
	}
	if !c.plugin.Unserialize(unsafe.Pointer(&state[0]), uintptr(len(state))) {
		return ErrSerialize
	}
	return nil
}

// memory returns a view of a core memory region, or nil.
func (c *Core) memory(id uint32) []byte {
	size := c.plugin.GetMemorySize(id)
	ptr := c.plugin.GetMemoryData(id)
	if ptr == nil || size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(ptr), size)
}

// SaveRAM returns a copy of the core's battery-backed RAM.
func (c *Core) SaveRAM() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.gameLoaded {
		return nil
	}
	mem := c.memory(MemorySaveRAM)
	if mem == nil {
		return nil
	}
	return append([]byte(nil), mem...)
}

// FlushSaveRAM writes save RAM to the save store now.
func (c *Core) FlushSaveRAM() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gameLoaded {
		c.storeSaveRAM()
	}
}

func (c *Core) restoreSaveRAM() {
	if c.opts.Saves == nil || c.contentName == "" {
		return
	}
	mem := c.memory(MemorySaveRAM)
	if mem == nil {
		return
	}
	data, err := c.opts.Saves.LoadSaveBlob(c.contentName)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.log.Warn().Err(err).Str("content", c.contentName).Msg("load save RAM")
		}
		return
	}
	n := copy(mem, data)
	c.log.Debug().Int("bytes", n).Msg("save RAM restored")
}

func (c *Core) storeSaveRAM() {
	if c.opts.Saves == nil || c.contentName == "" {
		return
	}
	mem := c.memory(MemorySaveRAM)
	if mem == nil {
		return
	}
	if err := c.opts.Saves.StoreSaveBlob(c.contentName, append([]byte(nil), mem...)); err != nil {
		c.log.Warn().Err(err).Str("content", c.contentName).Msg("store save RAM")
	}
}

// SetControllerPortDevice selects the device type plugged into port.
func (c *Core) SetControllerPortDevice(port, device uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.plugin == nil {
		return ErrNotLoaded
	}
	c.plugin.SetControllerPortDevice(uint32(port), uint32(device))
	return nil
}

// CheatReset clears every cheat.
func (c *Core) CheatReset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.gameLoaded {
		return ErrNoContent
	}
	c.plugin.CheatReset()
	return nil
}

// CheatSet enables or disables cheat index with the given code.
func (c *Core) CheatSet(index uint, enabled bool, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.gameLoaded {
		return ErrNoContent
	}
	buf := append([]byte(code), 0)
	c.plugin.CheatSet(uint32(index), enabled, &buf[0])
	runtime.KeepAlive(buf)
	return nil
}

// SystemInfo returns what the core reported about itself.
func (c *Core) SystemInfo() SystemInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sys
}

// AVInfo returns the current timing and geometry.
func (c *Core) AVInfo() AVInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.av
}

// Variables returns the core's options.
func (c *Core) Variables() *Variables {
	return c.vars
}

// PixelFormat returns the format frames are delivered in.
func (c *Core) PixelFormat() PixelFormat {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pixelFormat
}

// InputDescriptors returns the button names the core declared.
func (c *Core) InputDescriptors() []InputDescriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]InputDescriptor(nil), c.inputDescriptors...)
}

// ControllerTypes returns the device types the core accepts per port.
func (c *Core) ControllerTypes() [][]ControllerType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controllerTypes
}

// ShutdownRequested reports whether the core asked the frontend to exit.
func (c *Core) ShutdownRequested() bool {
	return c.shutdown.Load()
}

// Loaded reports whether a core library is loaded.
func (c *Core) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plugin != nil
}

// ContentName returns the base name of the loaded content.
func (c *Core) ContentName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.contentName
}
