//go:build darwin || freebsd || linux || netbsd

package libretro

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

// SymbolTable holds the entry points resolved from a core library.
// Resolution is all-or-nothing: OpenSymbolTable fails if any mandatory
// symbol is missing.
type SymbolTable struct {
	path   string
	handle uintptr

	retroSetEnvironment      func(cb uintptr)
	retroSetVideoRefresh     func(cb uintptr)
	retroSetAudioSample      func(cb uintptr)
	retroSetAudioSampleBatch func(cb uintptr)
	retroSetInputPoll        func(cb uintptr)
	retroSetInputState       func(cb uintptr)
	retroInit                func()
	retroDeinit              func()
	retroAPIVersion          func() uint32
	retroGetSystemInfo       func(info *systemInfo)
	retroGetSystemAVInfo     func(info *systemAVInfo)
	retroSetControllerPort   func(port, device uint32)
	retroReset               func()
	retroRun                 func()
	retroSerializeSize       func() uintptr
	retroSerialize           func(data unsafe.Pointer, size uintptr) bool
	retroUnserialize         func(data unsafe.Pointer, size uintptr) bool
	retroCheatReset          func()
	retroCheatSet            func(index uint32, enabled bool, code *byte)
	retroLoadGame            func(game *gameInfo) bool
	retroUnloadGame          func()
	retroGetMemoryData       func(id uint32) unsafe.Pointer
	retroGetMemorySize       func(id uint32) uintptr
}

type symbolBinding struct {
	name string
	fptr any
}

func (t *SymbolTable) bindings() []symbolBinding {
	return []symbolBinding{
		{"retro_set_environment", &t.retroSetEnvironment},
		{"retro_set_video_refresh", &t.retroSetVideoRefresh},
		{"retro_set_audio_sample", &t.retroSetAudioSample},
		{"retro_set_audio_sample_batch", &t.retroSetAudioSampleBatch},
		{"retro_set_input_poll", &t.retroSetInputPoll},
		{"retro_set_input_state", &t.retroSetInputState},
		{"retro_init", &t.retroInit},
		{"retro_deinit", &t.retroDeinit},
		{"retro_api_version", &t.retroAPIVersion},
		{"retro_get_system_info", &t.retroGetSystemInfo},
		{"retro_get_system_av_info", &t.retroGetSystemAVInfo},
		{"retro_set_controller_port_device", &t.retroSetControllerPort},
		{"retro_reset", &t.retroReset},
		{"retro_run", &t.retroRun},
		{"retro_serialize_size", &t.retroSerializeSize},
		{"retro_serialize", &t.retroSerialize},
		{"retro_unserialize", &t.retroUnserialize},
		{"retro_cheat_reset", &t.retroCheatReset},
		{"retro_cheat_set", &t.retroCheatSet},
		{"retro_load_game", &t.retroLoadGame},
		{"retro_unload_game", &t.retroUnloadGame},
		{"retro_get_memory_data", &t.retroGetMemoryData},
		{"retro_get_memory_size", &t.retroGetMemorySize},
	}
}

// OpenSymbolTable opens the core library at path and resolves every
// mandatory entry point.
func OpenSymbolTable(path string) (*SymbolTable, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return nil, &PluginLoadError{Path: path, Err: err}
	}

	t := &SymbolTable{path: path, handle: handle}
	for _, b := range t.bindings() {
		addr, err := purego.Dlsym(handle, b.name)
		if err == nil && addr == 0 {
			err = errors.New("null address")
		}
		if err != nil {
			purego.Dlclose(handle)
			return nil, &PluginLoadError{Path: path, Symbol: b.name, Err: err}
		}
		purego.RegisterFunc(b.fptr, addr)
	}
	return t, nil
}

func openPlugin(path string) (Plugin, error) {
	t, err := OpenSymbolTable(path)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (t *SymbolTable) APIVersion() uint32 { return t.retroAPIVersion() }

func (t *SymbolTable) RegisterCallbacks() {
	cb := nativeCallbacks()
	t.retroSetEnvironment(cb.environment)
	t.retroSetVideoRefresh(cb.videoRefresh)
	t.retroSetAudioSample(cb.audioSample)
	t.retroSetAudioSampleBatch(cb.audioSampleBatch)
	t.retroSetInputPoll(cb.inputPoll)
	t.retroSetInputState(cb.inputState)
}

func (t *SymbolTable) Init()                               { t.retroInit() }
func (t *SymbolTable) Deinit()                             { t.retroDeinit() }
func (t *SymbolTable) GetSystemInfo(info *systemInfo)      { t.retroGetSystemInfo(info) }
func (t *SymbolTable) GetSystemAVInfo(info *systemAVInfo)  { t.retroGetSystemAVInfo(info) }
func (t *SymbolTable) SetControllerPortDevice(p, d uint32) { t.retroSetControllerPort(p, d) }
func (t *SymbolTable) Reset()                              { t.retroReset() }
func (t *SymbolTable) Run()                                { t.retroRun() }
func (t *SymbolTable) SerializeSize() uintptr              { return t.retroSerializeSize() }
func (t *SymbolTable) CheatReset()                         { t.retroCheatReset() }
func (t *SymbolTable) LoadGame(game *gameInfo) bool        { return t.retroLoadGame(game) }
func (t *SymbolTable) UnloadGame()                         { t.retroUnloadGame() }
func (t *SymbolTable) GetMemorySize(id uint32) uintptr     { return t.retroGetMemorySize(id) }

func (t *SymbolTable) Serialize(data unsafe.Pointer, size uintptr) bool {
	return t.retroSerialize(data, size)
}

func (t *SymbolTable) Unserialize(data unsafe.Pointer, size uintptr) bool {
	return t.retroUnserialize(data, size)
}

func (t *SymbolTable) CheatSet(index uint32, enabled bool, code *byte) {
	t.retroCheatSet(index, enabled, code)
}

func (t *SymbolTable) GetMemoryData(id uint32) unsafe.Pointer {
	return t.retroGetMemoryData(id)
}

func (t *SymbolTable) Close() error {
	if t.handle == 0 {
		return nil
	}
	err := purego.Dlclose(t.handle)
	t.handle = 0
	if err != nil {
		return fmt.Errorf("close %s: %w", t.path, err)
	}
	return nil
}

var (
	callbacksOnce sync.Once
	callbacks     callbackPointers
)

// nativeCallbacks creates the C-callable trampolines once per process.
// purego callbacks are never freed, so they must not be created per load.
func nativeCallbacks() *callbackPointers {
	callbacksOnce.Do(func() {
		callbacks = callbackPointers{
			environment:      purego.NewCallback(environmentTrampoline),
			videoRefresh:     purego.NewCallback(videoRefreshTrampoline),
			audioSample:      purego.NewCallback(audioSampleTrampoline),
			audioSampleBatch: purego.NewCallback(audioSampleBatchTrampoline),
			inputPoll:        purego.NewCallback(inputPollTrampoline),
			inputState:       purego.NewCallback(inputStateTrampoline),
			log:              purego.NewCallback(logTrampoline),
			rumble:           purego.NewCallback(rumbleTrampoline),
		}
	})
	return &callbacks
}

// bindFrameTimeCallback wraps a core-provided frame time function pointer.
func bindFrameTimeCallback(ptr uintptr) func(usec int64) {
	if ptr == 0 {
		return nil
	}
	var fn func(usec int64)
	purego.RegisterFunc(&fn, ptr)
	return fn
}
