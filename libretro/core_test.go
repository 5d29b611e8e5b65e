package libretro

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"unsafe"
)

func TestCore_LoadPluginLifecycle(t *testing.T) {
	p := newFakePlugin()
	c := loadFake(t, p, Options{})

	if !p.registered {
		t.Error("callbacks were not registered")
	}
	if p.initCalls != 1 {
		t.Errorf("init calls = %d, want 1", p.initCalls)
	}
	if Active() != c {
		t.Error("core is not the active module")
	}
	info := c.SystemInfo()
	if info.LibraryName != "Fake" || info.LibraryVersion != "1.0" {
		t.Errorf("system info = %+v", info)
	}
	if len(info.ValidExtensions) != 2 || info.ValidExtensions[0] != "bin" {
		t.Errorf("extensions = %v, want [bin rom]", info.ValidExtensions)
	}
}

func TestCore_LoadPluginRejectsAPIVersion(t *testing.T) {
	p := newFakePlugin()
	p.apiVersion = 2
	c := NewCore(Options{})

	err := c.LoadPlugin(p, "bad.so")
	if !errors.Is(err, ErrPluginLoad) {
		t.Fatalf("expected ErrPluginLoad, got %v", err)
	}
	if p.initCalls != 0 {
		t.Error("init must not run for a rejected plugin")
	}
	if Active() != nil {
		t.Error("rejected plugin left an active module")
	}
}

func TestCore_SingleActiveModule(t *testing.T) {
	loadFake(t, newFakePlugin(), Options{})

	second := NewCore(Options{})
	err := second.LoadPlugin(newFakePlugin(), "second.so")
	if !errors.Is(err, ErrPluginLoad) || !errors.Is(err, ErrActiveCore) {
		t.Fatalf("expected active core error, got %v", err)
	}
}

func TestCore_RejectedPluginDropped(t *testing.T) {
	loadFake(t, newFakePlugin(), Options{})

	for _, p := range []*fakePlugin{newFakePlugin(), newFakePlugin()} {
		p.apiVersion = 2
		if err := NewCore(Options{}).LoadPlugin(p, "rejected.so"); err == nil {
			t.Fatal("plugin accepted")
		}
		if p.closeCalls != 0 {
			t.Error("LoadPlugin closed a plugin it does not own")
		}
	}
	// Rejected plugins are released by the caller without Close.
	runtime.GC()
	runtime.GC()

	c := Active()
	if c == nil {
		t.Fatal("active core lost")
	}
	out := false
	if !c.environment(EnvGetCanDupe, unsafe.Pointer(&out)) || !out {
		t.Error("active core stopped answering after GC")
	}
}

func TestCore_LoadMissingLibrary(t *testing.T) {
	c := NewCore(Options{})
	err := c.Load(filepath.Join(t.TempDir(), "missing_libretro.so"))
	if !errors.Is(err, ErrPluginLoad) {
		t.Fatalf("expected ErrPluginLoad, got %v", err)
	}
	var ple *PluginLoadError
	if !errors.As(err, &ple) {
		t.Fatalf("expected *PluginLoadError, got %T", err)
	}
}

func TestCore_LoadContentData(t *testing.T) {
	p := newFakePlugin()
	audio := &fakeAudio{}
	c := loadFake(t, p, Options{Audio: audio})

	dir := t.TempDir()
	path := filepath.Join(dir, "game.bin")
	data := []byte{1, 2, 3, 4}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	if err := c.LoadContent(Content{Path: path}); err != nil {
		t.Fatalf("LoadContent: %v", err)
	}
	if !bytes.Equal(p.lastData, data) {
		t.Errorf("core got data %v, want %v", p.lastData, data)
	}
	if p.lastPath != path {
		t.Errorf("core got path %q, want %q", p.lastPath, path)
	}
	av := c.AVInfo()
	if av.SampleRate != 32000 || av.NativeFrameRate != 60 {
		t.Errorf("av info = %+v", av)
	}
	if audio.sampleRate != 32000 || audio.frameRate != 60 {
		t.Errorf("audio sink format = %v/%v", audio.sampleRate, audio.frameRate)
	}
	if c.ContentName() != "game" {
		t.Errorf("content name = %q, want game", c.ContentName())
	}
}

func TestCore_LoadContentFullPath(t *testing.T) {
	p := newFakePlugin()
	p.needFullpath = true
	c := loadFake(t, p, Options{})

	path := filepath.Join(t.TempDir(), "disc.cue")
	if err := c.LoadContent(Content{Path: path}); err != nil {
		t.Fatalf("LoadContent: %v", err)
	}
	if p.lastPath != path {
		t.Errorf("core got path %q, want %q", p.lastPath, path)
	}
	if p.lastGame.data != nil {
		t.Error("full path cores must not receive data")
	}
}

func TestCore_LoadContentRejected(t *testing.T) {
	p := newFakePlugin()
	p.rejectGame = true
	c := loadFake(t, p, Options{})

	err := c.LoadContent(Content{Path: "x.bin", Data: []byte{1}})
	if !errors.Is(err, ErrContentLoad) {
		t.Fatalf("expected ErrContentLoad, got %v", err)
	}
	if err := c.RunFrame(); !errors.Is(err, ErrNoContent) {
		t.Errorf("RunFrame after rejected content: %v", err)
	}

	c.Unload()
	if p.unloadCalls != 0 {
		t.Errorf("unload_game called %d times for rejected content", p.unloadCalls)
	}
	if p.deinitCalls != 1 {
		t.Errorf("deinit calls = %d, want 1", p.deinitCalls)
	}
}

func TestCore_LoadContentWithoutGame(t *testing.T) {
	p := newFakePlugin()
	c := loadFake(t, p, Options{})
	if err := c.LoadContent(Content{}); !errors.Is(err, ErrContentLoad) {
		t.Fatalf("expected ErrContentLoad, got %v", err)
	}

	p2 := newFakePlugin()
	p2.onInit = func() {
		v := true
		Active().environment(EnvSetSupportNoGame, unsafe.Pointer(&v))
	}
	c.Unload()
	c2 := loadFake(t, p2, Options{})
	if err := c2.LoadContent(Content{}); err != nil {
		t.Fatalf("no-game content: %v", err)
	}
}

func TestCore_UnloadIdempotent(t *testing.T) {
	p := newFakePlugin()
	audio := &fakeAudio{}
	c := loadFake(t, p, Options{Audio: audio})
	if err := c.LoadContent(Content{Path: "a.bin", Data: []byte{0}}); err != nil {
		t.Fatal(err)
	}

	c.Unload()
	c.Unload()

	if p.unloadCalls != 1 || p.deinitCalls != 1 || p.closeCalls != 1 {
		t.Errorf("unload_game=%d deinit=%d close=%d, want 1 each", p.unloadCalls, p.deinitCalls, p.closeCalls)
	}
	if audio.suspended != 1 {
		t.Errorf("audio suspended %d times, want 1", audio.suspended)
	}
	if Active() != nil {
		t.Error("active module not cleared")
	}
	if c.Loaded() {
		t.Error("core still reports loaded")
	}
}

func TestCore_UnloadNeverLoaded(t *testing.T) {
	c := NewCore(Options{})
	c.Unload()
	if err := c.RunFrame(); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("expected ErrNotLoaded, got %v", err)
	}
}

func TestCore_RunFrameAudio(t *testing.T) {
	p := newFakePlugin()
	audio := &fakeAudio{}
	c := loadFake(t, p, Options{Audio: audio})
	if err := c.LoadContent(Content{Path: "a.bin", Data: []byte{0}}); err != nil {
		t.Fatal(err)
	}

	p.onRun = func() {
		audioSampleTrampoline(1, -1)
		batch := []int16{2, -2, 3, -3}
		n := audioSampleBatchTrampoline(&batch[0], 2)
		if n != 2 {
			t.Errorf("batch consumed %d frames, want 2", n)
		}
	}
	if err := c.RunFrame(); err != nil {
		t.Fatal(err)
	}

	if len(audio.blocks) != 1 {
		t.Fatalf("got %d audio blocks, want 1", len(audio.blocks))
	}
	want := []int16{1, -1, 2, -2, 3, -3}
	got := audio.blocks[0]
	if len(got) != len(want) {
		t.Fatalf("block = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("block = %v, want %v", got, want)
		}
	}
	if c.audioPool.CurrentIndex() != 1 {
		t.Errorf("audio pool cursor = %d, want 1", c.audioPool.CurrentIndex())
	}
}

func TestCore_RunFrameNoAudioNoBlock(t *testing.T) {
	p := newFakePlugin()
	audio := &fakeAudio{}
	c := loadFake(t, p, Options{Audio: audio})
	if err := c.LoadContent(Content{Path: "a.bin", Data: []byte{0}}); err != nil {
		t.Fatal(err)
	}
	if err := c.RunFrame(); err != nil {
		t.Fatal(err)
	}
	if len(audio.blocks) != 0 {
		t.Errorf("got %d audio blocks from a silent frame", len(audio.blocks))
	}
}

func TestCore_VideoRefreshDupe(t *testing.T) {
	p := newFakePlugin()
	video := &fakeVideo{}
	c := loadFake(t, p, Options{Video: video})
	if err := c.LoadContent(Content{Path: "a.bin", Data: []byte{0}}); err != nil {
		t.Fatal(err)
	}

	// 2x2 RGB565 frame with a pitch of 3 pixels.
	src := []byte{
		1, 2, 3, 4, 0xEE, 0xEE,
		5, 6, 7, 8, 0xEE, 0xEE,
	}
	p.onRun = func() { videoRefreshTrampoline(unsafe.Pointer(&src[0]), 2, 2, 6) }
	if err := c.RunFrame(); err != nil {
		t.Fatal(err)
	}
	cursor := c.videoPool.CurrentIndex()

	p.onRun = func() { videoRefreshTrampoline(nil, 2, 2, 6) }
	if err := c.RunFrame(); err != nil {
		t.Fatal(err)
	}

	if len(video.frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(video.frames))
	}
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	for i, f := range video.frames {
		if !bytes.Equal(f.data, want) {
			t.Errorf("frame %d = %v, want %v", i, f.data, want)
		}
	}
	if !video.frames[1].dupe {
		t.Error("second frame not marked as dupe")
	}
	if c.videoPool.CurrentIndex() != cursor {
		t.Errorf("dupe advanced video pool from %d to %d", cursor, c.videoPool.CurrentIndex())
	}
}

func TestCore_VideoRefreshDupeBeforeFirstFrame(t *testing.T) {
	p := newFakePlugin()
	video := &fakeVideo{}
	c := loadFake(t, p, Options{Video: video})
	if err := c.LoadContent(Content{Path: "a.bin", Data: []byte{0}}); err != nil {
		t.Fatal(err)
	}
	p.onRun = func() { videoRefreshTrampoline(nil, 2, 2, 4) }
	if err := c.RunFrame(); err != nil {
		t.Fatal(err)
	}
	if len(video.frames) != 0 {
		t.Errorf("got %d frames, want none", len(video.frames))
	}
}

func TestCore_InputState(t *testing.T) {
	p := newFakePlugin()
	in := &fakeInput{pressed: map[uint]bool{JoypadA: true, JoypadStart: true}}
	c := loadFake(t, p, Options{Input: in})
	if err := c.LoadContent(Content{Path: "a.bin", Data: []byte{0}}); err != nil {
		t.Fatal(err)
	}

	var a, b, mask int16
	p.onRun = func() {
		inputPollTrampoline()
		a = inputStateTrampoline(0, DeviceJoypad, 0, JoypadA)
		b = inputStateTrampoline(0, DeviceJoypad, 0, JoypadB)
		mask = inputStateTrampoline(0, DeviceJoypad, 0, JoypadMask)
	}
	if err := c.RunFrame(); err != nil {
		t.Fatal(err)
	}
	if in.polls != 1 {
		t.Errorf("polls = %d, want 1", in.polls)
	}
	if a != 1 || b != 0 {
		t.Errorf("A=%d B=%d, want 1 0", a, b)
	}
	want := int16(1<<JoypadA | 1<<JoypadStart)
	if mask != want {
		t.Errorf("mask = %#x, want %#x", mask, want)
	}
}

func TestCore_SaveRAMRoundTrip(t *testing.T) {
	p := newFakePlugin()
	p.saveRAM = make([]byte, 4)
	saves := &fakeSaves{blobs: map[string][]byte{"zelda": {9, 8, 7, 6}}}
	c := loadFake(t, p, Options{Saves: saves})

	if err := c.LoadContent(Content{Path: "/roms/zelda.sfc", Data: []byte{0}}); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(p.saveRAM, []byte{9, 8, 7, 6}) {
		t.Errorf("save RAM not restored: %v", p.saveRAM)
	}

	p.saveRAM[0] = 1
	c.Unload()
	if got := saves.stored["zelda"]; !bytes.Equal(got, []byte{1, 8, 7, 6}) {
		t.Errorf("stored save RAM = %v", got)
	}
}

func TestCore_SaveStateRoundTrip(t *testing.T) {
	p := newFakePlugin()
	p.state = []byte{1, 2, 3}
	c := loadFake(t, p, Options{})
	if err := c.LoadContent(Content{Path: "a.bin", Data: []byte{0}}); err != nil {
		t.Fatal(err)
	}

	state, err := c.SaveState()
	if err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	p.state[0] = 42
	if err := c.LoadState(state); err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if p.state[0] != 1 {
		t.Errorf("state not restored: %v", p.state)
	}

	if err := c.LoadState([]byte{1}); !errors.Is(err, ErrSerialize) {
		t.Errorf("expected ErrSerialize for wrong size, got %v", err)
	}
}

func TestCore_CheatsAndPorts(t *testing.T) {
	p := newFakePlugin()
	c := loadFake(t, p, Options{})
	if err := c.LoadContent(Content{Path: "a.bin", Data: []byte{0}}); err != nil {
		t.Fatal(err)
	}
	if err := c.CheatSet(3, true, "7E0DBE:05"); err != nil {
		t.Fatal(err)
	}
	if p.cheats[3] != "7E0DBE:05" {
		t.Errorf("cheat = %q", p.cheats[3])
	}
	if err := c.CheatReset(); err != nil {
		t.Fatal(err)
	}
	if len(p.cheats) != 0 {
		t.Error("cheats not reset")
	}
	if err := c.SetControllerPortDevice(1, DeviceAnalog); err != nil {
		t.Fatal(err)
	}
	if p.ports[1] != DeviceAnalog {
		t.Errorf("port 1 device = %d", p.ports[1])
	}
	if err := c.Reset(); err != nil || p.resetCalls != 1 {
		t.Errorf("reset err=%v calls=%d", err, p.resetCalls)
	}
}

func TestCore_CallbackWithoutActiveModule(t *testing.T) {
	var out bool
	if environmentTrampoline(EnvGetCanDupe, unsafe.Pointer(&out)) {
		t.Error("environment handled with no active module")
	}
	if n := inputStateTrampoline(0, DeviceJoypad, 0, JoypadA); n != 0 {
		t.Errorf("input state = %d with no active module", n)
	}
}
