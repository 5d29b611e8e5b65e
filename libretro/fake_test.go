package libretro

import (
	"os"
	"runtime"
	"testing"
	"unsafe"
)

// fakePlugin is an in-process core. Its run hook calls the same Go
// trampolines a native core would reach through the registered callbacks.
type fakePlugin struct {
	apiVersion   uint32
	needFullpath bool
	rejectGame   bool
	av           systemAVInfo
	saveRAM      []byte
	state        []byte

	registered  bool
	initCalls   int
	deinitCalls int
	loadCalls   int
	unloadCalls int
	resetCalls  int
	closeCalls  int
	runCalls    int
	cheats      map[uint32]string
	ports       map[uint32]uint32
	lastGame    gameInfo
	lastPath    string
	lastData    []byte

	onInit func()
	onRun  func()

	// Read back through systemInfo by Go code only, so they need no
	// pinning and a rejected fake can simply be dropped.
	name    []byte
	version []byte
	exts    []byte
}

func newFakePlugin() *fakePlugin {
	p := &fakePlugin{
		apiVersion: APIVersion,
		av: systemAVInfo{
			geometry: gameGeometry{baseWidth: 4, baseHeight: 2, maxWidth: 8, maxHeight: 4, aspectRatio: 2},
			timing:   systemTiming{fps: 60, sampleRate: 32000},
		},
		cheats:  make(map[uint32]string),
		ports:   make(map[uint32]uint32),
		name:    []byte("Fake\x00"),
		version: []byte("1.0\x00"),
		exts:    []byte("bin|rom\x00"),
	}
	return p
}

func (p *fakePlugin) APIVersion() uint32 { return p.apiVersion }
func (p *fakePlugin) RegisterCallbacks() { p.registered = true }
func (p *fakePlugin) Init() {
	p.initCalls++
	if p.onInit != nil {
		p.onInit()
	}
}
func (p *fakePlugin) Deinit() { p.deinitCalls++ }

func (p *fakePlugin) GetSystemInfo(info *systemInfo) {
	info.libraryName = &p.name[0]
	info.libraryVersion = &p.version[0]
	info.validExtensions = &p.exts[0]
	info.needFullpath = p.needFullpath
}

func (p *fakePlugin) GetSystemAVInfo(info *systemAVInfo) { *info = p.av }

func (p *fakePlugin) SetControllerPortDevice(port, device uint32) { p.ports[port] = device }
func (p *fakePlugin) Reset()                                      { p.resetCalls++ }

func (p *fakePlugin) Run() {
	p.runCalls++
	if p.onRun != nil {
		p.onRun()
	}
}

func (p *fakePlugin) SerializeSize() uintptr { return uintptr(len(p.state)) }

func (p *fakePlugin) Serialize(data unsafe.Pointer, size uintptr) bool {
	if size < uintptr(len(p.state)) {
		return false
	}
	copy(unsafe.Slice((*byte)(data), size), p.state)
	return true
}

func (p *fakePlugin) Unserialize(data unsafe.Pointer, size uintptr) bool {
	if size != uintptr(len(p.state)) {
		return false
	}
	copy(p.state, unsafe.Slice((*byte)(data), size))
	return true
}

func (p *fakePlugin) CheatReset() { p.cheats = make(map[uint32]string) }

func (p *fakePlugin) CheatSet(index uint32, enabled bool, code *byte) {
	if enabled {
		p.cheats[index] = goString(code)
	} else {
		delete(p.cheats, index)
	}
}

func (p *fakePlugin) LoadGame(game *gameInfo) bool {
	p.loadCalls++
	if game != nil {
		p.lastGame = *game
		p.lastPath = goString(game.path)
		if game.data != nil {
			p.lastData = append([]byte(nil), unsafe.Slice((*byte)(game.data), game.size)...)
		}
	}
	return !p.rejectGame
}

func (p *fakePlugin) UnloadGame() { p.unloadCalls++ }

func (p *fakePlugin) GetMemoryData(id uint32) unsafe.Pointer {
	if id != MemorySaveRAM || len(p.saveRAM) == 0 {
		return nil
	}
	return unsafe.Pointer(&p.saveRAM[0])
}

func (p *fakePlugin) GetMemorySize(id uint32) uintptr {
	if id != MemorySaveRAM {
		return 0
	}
	return uintptr(len(p.saveRAM))
}

func (p *fakePlugin) Close() error {
	p.closeCalls++
	return nil
}

type recordedFrame struct {
	data   []byte
	width  int
	height int
	dupe   bool
}

type fakeVideo struct {
	frames []recordedFrame
}

func (v *fakeVideo) OnVideoFrame(f Frame) {
	v.frames = append(v.frames, recordedFrame{
		data:   append([]byte(nil), f.Data...),
		width:  f.Width,
		height: f.Height,
		dupe:   f.Dupe,
	})
}

type fakeAudio struct {
	sampleRate float64
	frameRate  float64
	blocks     [][]int16
	suspended  int
}

func (a *fakeAudio) OnFormatKnown(sampleRate, frameRate float64) error {
	a.sampleRate = sampleRate
	a.frameRate = frameRate
	return nil
}

func (a *fakeAudio) OnAudioBlock(pcm []int16) {
	a.blocks = append(a.blocks, append([]int16(nil), pcm...))
}

func (a *fakeAudio) Suspend() { a.suspended++ }

type fakeSaves struct {
	blobs  map[string][]byte
	stored map[string][]byte
}

func (s *fakeSaves) LoadSaveBlob(name string) ([]byte, error) {
	b, ok := s.blobs[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return b, nil
}

func (s *fakeSaves) StoreSaveBlob(name string, data []byte) error {
	if s.stored == nil {
		s.stored = make(map[string][]byte)
	}
	s.stored[name] = data
	return nil
}

type fakeInput struct {
	polls   int
	pressed map[uint]bool
}

func (in *fakeInput) Poll() { in.polls++ }

func (in *fakeInput) State(port, device, index, id uint) int16 {
	if port == 0 && device == DeviceJoypad && in.pressed[id] {
		return 1
	}
	return 0
}

// loadFake hosts p in a new core and unloads it when the test ends.
func loadFake(t *testing.T, p *fakePlugin, opts Options) *Core {
	t.Helper()
	c := NewCore(opts)
	if err := c.LoadPlugin(p, "/cores/fake_libretro.so"); err != nil {
		t.Fatalf("LoadPlugin: %v", err)
	}
	t.Cleanup(c.Unload)
	return c
}

// cString returns a pinned NUL-terminated copy of s.
func cString(t *testing.T, s string) *byte {
	t.Helper()
	b := append([]byte(s), 0)
	var pinner runtime.Pinner
	pinner.Pin(&b[0])
	t.Cleanup(pinner.Unpin)
	return &b[0]
}
