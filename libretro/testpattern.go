package libretro

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// TestPatternPath is the path reported for the built-in test pattern core.
const TestPatternPath = "builtin:testpattern"

const (
	testPatternWidth      = 320
	testPatternHeight     = 240
	testPatternFPS        = 60
	testPatternSampleRate = 44100
	testPatternStateSize  = 24
)

// TestPatternCore is a core written in Go. It scrolls colour bars, plays a
// tone and reacts to the RetroPad, so a frontend can be exercised without a
// native library. It talks to the host through the same trampolines a
// native core reaches through its registered callbacks.
type TestPatternCore struct {
	frames  uint64
	phase   float64
	offset  int
	seed    byte
	speed   int
	tone    bool
	invert  bool
	buttons uint16
	prev    uint16
	loaded  bool

	pixels  []byte
	audio   []int16
	saveRAM []byte
	cheats  map[uint32]string

	name    []byte
	version []byte
	exts    []byte
	vars    []variable
	keys    map[string][]byte
}

// NewTestPatternCore returns an unloaded test pattern core.
func NewTestPatternCore() *TestPatternCore {
	p := &TestPatternCore{
		pixels:  make([]byte, testPatternWidth*testPatternHeight*4),
		audio:   make([]int16, testPatternSampleRate/testPatternFPS*2),
		saveRAM: make([]byte, 16),
		cheats:  make(map[uint32]string),
		name:    []byte("Test Pattern\x00"),
		version: []byte("1.0\x00"),
		exts:    []byte("bin|txt\x00"),
		keys:    make(map[string][]byte),
		speed:   1,
		tone:    true,
	}
	p.vars = []variable{
		{key: p.cstr("testpattern_tone"), value: p.cstr("Tone; enabled|disabled")},
		{key: p.cstr("testpattern_speed"), value: p.cstr("Scroll speed; 1|2|4|0")},
		{},
	}
	return p
}

// cstr keeps a NUL-terminated copy of s alive for the core's lifetime.
func (p *TestPatternCore) cstr(s string) *byte {
	if b, ok := p.keys[s]; ok {
		return &b[0]
	}
	b := append([]byte(s), 0)
	p.keys[s] = b
	return &b[0]
}

func (p *TestPatternCore) APIVersion() uint32 { return APIVersion }

// RegisterCallbacks is a no-op: the trampolines are called directly.
func (p *TestPatternCore) RegisterCallbacks() {}

func (p *TestPatternCore) Init() {
	format := uint32(PixelFormatXRGB8888)
	environmentTrampoline(EnvSetPixelFormat, unsafe.Pointer(&format))
	noGame := true
	environmentTrampoline(EnvSetSupportNoGame, unsafe.Pointer(&noGame))
	environmentTrampoline(EnvSetVariables, unsafe.Pointer(&p.vars[0]))
	p.readVariables()
}

func (p *TestPatternCore) Deinit() { p.loaded = false }

func (p *TestPatternCore) GetSystemInfo(info *systemInfo) {
	info.libraryName = &p.name[0]
	info.libraryVersion = &p.version[0]
	info.validExtensions = &p.exts[0]
}

func (p *TestPatternCore) GetSystemAVInfo(info *systemAVInfo) {
	info.geometry = gameGeometry{
		baseWidth:   testPatternWidth,
		baseHeight:  testPatternHeight,
		maxWidth:    testPatternWidth,
		maxHeight:   testPatternHeight,
		aspectRatio: 4.0 / 3.0,
	}
	info.timing = systemTiming{fps: testPatternFPS, sampleRate: testPatternSampleRate}
}

func (p *TestPatternCore) SetControllerPortDevice(port, device uint32) {}

func (p *TestPatternCore) Reset() {
	p.offset = 0
	p.phase = 0
}

func (p *TestPatternCore) readVariables() {
	v := variable{key: p.cstr("testpattern_tone")}
	if environmentTrampoline(EnvGetVariable, unsafe.Pointer(&v)) {
		p.tone = goString(v.value) != "disabled"
	}
	v = variable{key: p.cstr("testpattern_speed")}
	if environmentTrampoline(EnvGetVariable, unsafe.Pointer(&v)) {
		switch goString(v.value) {
		case "0":
			p.speed = 0
		case "2":
			p.speed = 2
		case "4":
			p.speed = 4
		default:
			p.speed = 1
		}
	}
}

func (p *TestPatternCore) Run() {
	var updated bool
	environmentTrampoline(EnvGetVariableUpdate, unsafe.Pointer(&updated))
	if updated {
		p.readVariables()
	}

	inputPollTrampoline()
	p.prev = p.buttons
	p.buttons = 0
	for id := uint32(JoypadB); id <= JoypadR3; id++ {
		if inputStateTrampoline(0, DeviceJoypad, 0, id) != 0 {
			p.buttons |= 1 << id
		}
	}
	pressed := p.buttons &^ p.prev

	if pressed&(1<<JoypadStart) != 0 {
		msg := message{msg: p.cstr("Test pattern running"), frames: 120}
		environmentTrampoline(EnvSetMessage, unsafe.Pointer(&msg))
	}
	var strength uint16
	if p.buttons&(1<<JoypadA) != 0 {
		strength = 0xFFFF
	}
	if pressed&(1<<JoypadA) != 0 || p.prev&(1<<JoypadA) != 0 {
		rumbleTrampoline(0, RumbleStrong, strength)
	}

	switch {
	case p.buttons&(1<<JoypadLeft) != 0:
		p.offset -= p.speed * 2
	case p.buttons&(1<<JoypadRight) != 0:
		p.offset += p.speed * 2
	default:
		p.offset += p.speed
	}

	if p.frames > 0 && p.buttons == 0 && p.prev == 0 && p.speed == 0 {
		videoRefreshTrampoline(nil, testPatternWidth, testPatternHeight, testPatternWidth*4)
	} else {
		p.draw()
		videoRefreshTrampoline(unsafe.Pointer(&p.pixels[0]), testPatternWidth, testPatternHeight, testPatternWidth*4)
	}

	p.synth()
	audioSampleBatchTrampoline(&p.audio[0], uintptr(len(p.audio)/2))

	p.frames++
	total := binary.LittleEndian.Uint64(p.saveRAM) + 1
	binary.LittleEndian.PutUint64(p.saveRAM, total)
}

var testPatternBars = [8][3]byte{
	{0xC0, 0xC0, 0xC0}, {0xC0, 0xC0, 0x00}, {0x00, 0xC0, 0xC0}, {0x00, 0xC0, 0x00},
	{0xC0, 0x00, 0xC0}, {0xC0, 0x00, 0x00}, {0x00, 0x00, 0xC0}, {0x10, 0x10, 0x10},
}

// draw renders scrolling colour bars in little-endian XRGB8888.
func (p *TestPatternCore) draw() {
	barWidth := testPatternWidth / len(testPatternBars)
	for y := 0; y < testPatternHeight; y++ {
		row := p.pixels[y*testPatternWidth*4:]
		for x := 0; x < testPatternWidth; x++ {
			pos := ((x+p.offset)%testPatternWidth + testPatternWidth) % testPatternWidth
			c := testPatternBars[pos/barWidth%len(testPatternBars)]
			r, g, b := c[0]+p.seed, c[1], c[2]
			if y >= testPatternHeight*3/4 {
				r, g, b = byte(x), byte(x), byte(x)
			}
			if p.invert {
				r, g, b = ^r, ^g, ^b
			}
			row[x*4+0] = b
			row[x*4+1] = g
			row[x*4+2] = r
			row[x*4+3] = 0
		}
	}
}

// synth fills one frame of a 440 Hz stereo tone.
func (p *TestPatternCore) synth() {
	step := 2 * math.Pi * 440 / testPatternSampleRate
	for i := 0; i < len(p.audio); i += 2 {
		var v int16
		if p.tone {
			v = int16(math.Sin(p.phase) * 8000)
		}
		p.audio[i] = v
		p.audio[i+1] = v
		p.phase += step
		if p.phase >= 2*math.Pi {
			p.phase -= 2 * math.Pi
		}
	}
}

func (p *TestPatternCore) SerializeSize() uintptr { return testPatternStateSize }

func (p *TestPatternCore) Serialize(data unsafe.Pointer, size uintptr) bool {
	if size < testPatternStateSize {
		return false
	}
	buf := unsafe.Slice((*byte)(data), size)
	binary.LittleEndian.PutUint64(buf[0:], p.frames)
	binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(p.phase))
	binary.LittleEndian.PutUint64(buf[16:], uint64(int64(p.offset)))
	return true
}

func (p *TestPatternCore) Unserialize(data unsafe.Pointer, size uintptr) bool {
	if size != testPatternStateSize {
		return false
	}
	buf := unsafe.Slice((*byte)(data), size)
	p.frames = binary.LittleEndian.Uint64(buf[0:])
	p.phase = math.Float64frombits(binary.LittleEndian.Uint64(buf[8:]))
	p.offset = int(int64(binary.LittleEndian.Uint64(buf[16:])))
	return true
}

func (p *TestPatternCore) CheatReset() {
	p.cheats = make(map[uint32]string)
	p.invert = false
}

// CheatSet understands one code, "invert", which flips the palette.
func (p *TestPatternCore) CheatSet(index uint32, enabled bool, code *byte) {
	if enabled {
		p.cheats[index] = goString(code)
	} else {
		delete(p.cheats, index)
	}
	p.invert = false
	for _, c := range p.cheats {
		if c == "invert" {
			p.invert = true
		}
	}
}

// LoadGame accepts no content or any data; the data tints the red bars.
func (p *TestPatternCore) LoadGame(game *gameInfo) bool {
	p.seed = 0
	if game != nil && game.data != nil && game.size > 0 {
		for _, b := range unsafe.Slice((*byte)(game.data), game.size) {
			p.seed += b
		}
		p.seed &= 0x3F
	}
	p.frames = 0
	p.loaded = true
	return true
}

func (p *TestPatternCore) UnloadGame() { p.loaded = false }

func (p *TestPatternCore) GetMemoryData(id uint32) unsafe.Pointer {
	if id != MemorySaveRAM {
		return nil
	}
	return unsafe.Pointer(&p.saveRAM[0])
}

func (p *TestPatternCore) GetMemorySize(id uint32) uintptr {
	if id != MemorySaveRAM {
		return 0
	}
	return uintptr(len(p.saveRAM))
}

func (p *TestPatternCore) Close() error { return nil }
