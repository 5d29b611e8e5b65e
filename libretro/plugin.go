package libretro

import "unsafe"

// Plugin is the fixed set of entry points a core exports. SymbolTable is
// the dynamic-library implementation; anything else satisfying it can be
// hosted the same way.
type Plugin interface {
	APIVersion() uint32

	// RegisterCallbacks hands the host trampolines to the core through its
	// six callback setters. The active module must already be set.
	RegisterCallbacks()

	Init()
	Deinit()
	GetSystemInfo(info *systemInfo)
	GetSystemAVInfo(info *systemAVInfo)
	SetControllerPortDevice(port, device uint32)
	Reset()
	Run()
	SerializeSize() uintptr
	Serialize(data unsafe.Pointer, size uintptr) bool
	Unserialize(data unsafe.Pointer, size uintptr) bool
	CheatReset()
	CheatSet(index uint32, enabled bool, code *byte)
	LoadGame(game *gameInfo) bool
	UnloadGame()
	GetMemoryData(id uint32) unsafe.Pointer
	GetMemorySize(id uint32) uintptr

	// Close releases the library handle.
	Close() error
}

// callbackPointers holds C-callable addresses of the host trampolines.
type callbackPointers struct {
	environment      uintptr
	videoRefresh     uintptr
	audioSample      uintptr
	audioSampleBatch uintptr
	inputPoll        uintptr
	inputState       uintptr
	log              uintptr
	rumble           uintptr
}
