package frontend

import (
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/user-none/retrohost/audio"
	"github.com/user-none/retrohost/libretro"
	"github.com/user-none/retrohost/storage"
)

// nullDevice accepts audio without reading it.
type nullDevice struct{}

func (nullDevice) Start(io.Reader) error { return nil }
func (nullDevice) Pause()                {}
func (nullDevice) Resume()               {}
func (nullDevice) BufferedSize() int     { return 0 }
func (nullDevice) Err() error            { return nil }
func (nullDevice) SetVolume(float64)     {}
func (nullDevice) Close() error          { return nil }

func openNullDevice(int) (audio.Device, error) { return nullDevice{}, nil }

func testSessionOptions(fs afero.Fs) SessionOptions {
	cfg := storage.DefaultConfig()
	cfg.Audio.Resampler = "cubic"
	return SessionOptions{
		CorePath:    libretro.TestPatternPath,
		Config:      cfg,
		Dirs:        storage.ResolveDirs("/data", storage.PathsConfig{}),
		Fs:          fs,
		AudioDevice: openNullDevice,
	}
}

func newTestSession(t *testing.T, opts SessionOptions) *Session {
	t.Helper()
	s, err := NewSession(opts)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func stepN(t *testing.T, s *Session, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := s.Step(); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}
}

func TestCoreKey(t *testing.T) {
	tests := []struct {
		path, want string
	}{
		{libretro.TestPatternPath, "testpattern"},
		{"/cores/snes9x_libretro.so", "snes9x_libretro"},
		{"cores/mgba_libretro.dylib", "mgba_libretro"},
		{"core.dll", "core"},
	}
	for _, tt := range tests {
		if got := CoreKey(tt.path); got != tt.want {
			t.Errorf("CoreKey(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestNewSession_RequiresCore(t *testing.T) {
	opts := testSessionOptions(afero.NewMemMapFs())
	opts.CorePath = ""
	if _, err := NewSession(opts); err == nil {
		t.Fatal("session created without a core")
	}
}

func TestSession_StepProducesFramesAndAudio(t *testing.T) {
	s := newTestSession(t, testSessionOptions(afero.NewMemMapFs()))

	if got := s.Audio.State(); got != audio.StateActive {
		t.Fatalf("audio state = %v, want active", got)
	}
	stepN(t, s, 5)

	if s.Frames() != 5 {
		t.Errorf("frames = %d, want 5", s.Frames())
	}
	if _, w, h := s.Video.Read(); w != 320 || h != 240 {
		t.Errorf("video = %dx%d, want 320x240", w, h)
	}
	if st := s.Audio.Stats(); st.Blocks == 0 || st.Occupancy == 0 {
		t.Errorf("no audio queued: %+v", st)
	}
}

func TestSession_FrameInterval(t *testing.T) {
	opts := testSessionOptions(afero.NewMemMapFs())
	opts.Config.Video.DisplayRate = 50
	s := newTestSession(t, opts)
	if got := s.FrameInterval(); got != 20*time.Millisecond {
		t.Errorf("interval = %v, want 20ms", got)
	}
	s.Close()

	opts = testSessionOptions(afero.NewMemMapFs())
	opts.Config.Video.SyncToDisplay = false
	s = newTestSession(t, opts)
	if got := s.FrameInterval(); got != time.Second/60 {
		t.Errorf("interval = %v, want core rate", got)
	}
}

func TestSession_SaveAndLoadState(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := newTestSession(t, testSessionOptions(fs))
	stepN(t, s, 3)

	if err := s.SaveState(); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	if ok, _ := afero.Exists(fs, "/data/states/testpattern/state-0.state"); !ok {
		t.Fatal("state file not written")
	}
	if msg, _ := s.Messages.Current(); msg != "State saved to slot 0" {
		t.Errorf("message = %q", msg)
	}

	stepN(t, s, 3)
	if err := s.LoadState(); err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if msg, _ := s.Messages.Current(); msg != "State loaded from slot 0" {
		t.Errorf("message = %q", msg)
	}

	s.NextSlot()
	if s.Slot() != 1 {
		t.Fatalf("slot = %d, want 1", s.Slot())
	}
	if err := s.LoadState(); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("empty slot load = %v", err)
	}
	if msg, _ := s.Messages.Current(); msg != "No state in slot 1" {
		t.Errorf("message = %q", msg)
	}
}

func TestSession_SlotsWrap(t *testing.T) {
	s := newTestSession(t, testSessionOptions(afero.NewMemMapFs()))

	s.PreviousSlot()
	if s.Slot() != storage.StateSlots-1 {
		t.Errorf("slot = %d, want %d", s.Slot(), storage.StateSlots-1)
	}
	s.NextSlot()
	if s.Slot() != 0 {
		t.Errorf("slot = %d, want 0", s.Slot())
	}
	if msg, _ := s.Messages.Current(); msg != "Slot 0" {
		t.Errorf("message = %q", msg)
	}
}

func TestSession_OptionsOverriddenAndPersisted(t *testing.T) {
	opts := testSessionOptions(afero.NewMemMapFs())
	opts.Config.SetOptions("testpattern", map[string]string{"testpattern_tone": "disabled"})
	s := newTestSession(t, opts)

	if v, _ := s.Core.Variables().Get("testpattern_tone"); v != "disabled" {
		t.Fatalf("tone = %q, want disabled", v)
	}
	if !s.Core.Variables().Set("testpattern_speed", "2") {
		t.Fatal("Set rejected a declared value")
	}
	stepN(t, s, 1)
	s.Close()

	saved := opts.Config.OptionsFor("testpattern")
	if saved["testpattern_tone"] != "disabled" || saved["testpattern_speed"] != "2" {
		t.Errorf("saved options = %v", saved)
	}
}

func TestSession_ResumeState(t *testing.T) {
	fs := afero.NewMemMapFs()
	opts := testSessionOptions(fs)
	opts.Resume = true

	s := newTestSession(t, opts)
	stepN(t, s, 4)
	s.Close()

	if ok, _ := afero.Exists(fs, "/data/states/testpattern/resume.state"); !ok {
		t.Fatal("resume state not written")
	}

	s = newTestSession(t, opts)
	stepN(t, s, 1)
}

func TestSession_CheatsApplied(t *testing.T) {
	fs := afero.NewMemMapFs()
	cht := "cheats = 1\ncheat0_desc = \"Invert\"\ncheat0_code = \"invert\"\ncheat0_enable = true\n"
	if err := afero.WriteFile(fs, "/data/cheats/testpattern.cht", []byte(cht), 0644); err != nil {
		t.Fatal(err)
	}
	s := newTestSession(t, testSessionOptions(fs))
	stepN(t, s, 1)

	pixels, _, _ := s.Video.Read()
	// The first bar is light grey, 0xC0, so inverted it reads 0x3F.
	if pixels[0] != 0x3F || pixels[3] != 0xFF {
		t.Errorf("first pixel = %v, want inverted grey", pixels[:4])
	}
}

func TestSession_Screenshot(t *testing.T) {
	s := newTestSession(t, testSessionOptions(afero.NewMemMapFs()))

	if _, err := s.Screenshot(time.Unix(100, 0)); err == nil {
		t.Error("screenshot before the first frame succeeded")
	}
	stepN(t, s, 1)
	path, err := s.Screenshot(time.Unix(100, 0))
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join("/data", "screenshots", "testpattern", "100.png") {
		t.Errorf("path = %q", path)
	}
}

func TestSession_InputReachesCore(t *testing.T) {
	s := newTestSession(t, testSessionOptions(afero.NewMemMapFs()))

	s.Input.Set(0, PortState{Buttons: 1<<libretro.JoypadStart | 1<<libretro.JoypadA})
	stepN(t, s, 1)

	if msg, ok := s.Messages.Current(); !ok || msg != "Test pattern running" {
		t.Errorf("message = %q, %v", msg, ok)
	}
	motors, _ := s.Rumble.Motors()
	if motors[0][libretro.RumbleStrong] != 0xFFFF {
		t.Errorf("rumble = %v", motors)
	}

	s.Input.Set(0, PortState{})
	stepN(t, s, 1)
	if s.Rumble.Active() {
		t.Error("rumble still active after release")
	}
}

func TestSession_PostRunsOnStep(t *testing.T) {
	s := newTestSession(t, testSessionOptions(afero.NewMemMapFs()))

	ran := false
	if !s.Post(func() { ran = true }) {
		t.Fatal("Post rejected")
	}
	if ran {
		t.Fatal("command ran before Step")
	}
	stepN(t, s, 1)
	if !ran {
		t.Error("command did not run")
	}
}

func TestSession_LoadsContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demo.bin")
	if err := os.WriteFile(path, []byte{1, 2, 3}, 0644); err != nil {
		t.Fatal(err)
	}
	opts := testSessionOptions(afero.NewMemMapFs())
	opts.ContentPath = path
	s := newTestSession(t, opts)

	if got := s.Core.ContentName(); got != "demo" {
		t.Errorf("content name = %q, want demo", got)
	}
	if got := s.Title(); got != "demo" {
		t.Errorf("title = %q, want demo", got)
	}
	stepN(t, s, 1)
	path, err := s.Screenshot(time.Unix(7, 0))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(filepath.Dir(path)) != "demo" {
		t.Errorf("screenshot not keyed by content: %q", path)
	}
}

func TestSession_IdentifiesContent(t *testing.T) {
	data := []byte{1, 2, 3}
	path := filepath.Join(t.TempDir(), "demo.bin")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	// One record: {"name": "Demo Cart (World)", "crc": <crc32>}.
	db := append([]byte("RARCHDB\x00"), make([]byte, 8)...)
	db = append(db, 0x82, 0xa4)
	db = append(db, "name"...)
	db = append(db, 0xa0|byte(len("Demo Cart (World)")))
	db = append(db, "Demo Cart (World)"...)
	db = append(db, 0xa3)
	db = append(db, "crc"...)
	db = append(db, 0xce)
	db = binary.BigEndian.AppendUint32(db, crc32.ChecksumIEEE(data))
	db = append(db, 0xc0)

	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/data/database/carts.rdb", db, 0644); err != nil {
		t.Fatal(err)
	}
	opts := testSessionOptions(fs)
	opts.ContentPath = path
	s := newTestSession(t, opts)

	if got := s.Title(); got != "Demo Cart" {
		t.Errorf("title = %q, want Demo Cart", got)
	}
}

func TestSession_RunStopsAtMaxFrames(t *testing.T) {
	opts := testSessionOptions(afero.NewMemMapFs())
	opts.MaxFrames = 10
	opts.Unthrottled = true
	s := newTestSession(t, opts)

	if err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.Frames() != 10 {
		t.Errorf("frames = %d, want 10", s.Frames())
	}
}

func TestSession_RunCancelled(t *testing.T) {
	s := newTestSession(t, testSessionOptions(afero.NewMemMapFs()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
	if s.Frames() != 0 {
		t.Errorf("frames = %d after cancelled run", s.Frames())
	}
}

func TestSession_RunStopsOnControlStop(t *testing.T) {
	opts := testSessionOptions(afero.NewMemMapFs())
	opts.Unthrottled = true
	s := newTestSession(t, opts)

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()
	time.Sleep(20 * time.Millisecond)
	s.Pause()
	if s.Audio.State() != audio.StateSuspended {
		t.Errorf("audio state while paused = %v", s.Audio.State())
	}
	s.Control.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestRunHeadless(t *testing.T) {
	opts := testSessionOptions(afero.NewMemMapFs())
	opts.MaxFrames = 30
	opts.Unthrottled = true
	s := newTestSession(t, opts)

	if err := RunHeadless(context.Background(), s); err != nil {
		t.Fatal(err)
	}
	if s.Frames() != 30 {
		t.Errorf("frames = %d, want 30", s.Frames())
	}
}

func TestRunHeadless_Cancelled(t *testing.T) {
	s := newTestSession(t, testSessionOptions(afero.NewMemMapFs()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := RunHeadless(ctx, s)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("RunHeadless = %v", err)
	}
	if s.Frames() == 0 {
		t.Error("no frames ran")
	}
}

func TestSession_FastForward(t *testing.T) {
	s := newTestSession(t, testSessionOptions(afero.NewMemMapFs()))

	if got := s.CycleFastForward(); got != 2 {
		t.Fatalf("multiplier = %d, want 2", got)
	}
	if msg, _ := s.Messages.Current(); msg != "Fast forward 2x" {
		t.Errorf("message = %q", msg)
	}
	stepN(t, s, 3)
	if s.Frames() != 6 {
		t.Errorf("frames = %d, want 6", s.Frames())
	}

	s.CycleFastForward()
	s.CycleFastForward()
	if msg, _ := s.Messages.Current(); msg != "Fast forward off" {
		t.Errorf("message = %q", msg)
	}
	stepN(t, s, 1)
	if s.Frames() != 7 {
		t.Errorf("frames = %d, want 7", s.Frames())
	}
}

func TestSession_RewindDisabledByDefault(t *testing.T) {
	s := newTestSession(t, testSessionOptions(afero.NewMemMapFs()))
	if s.CanRewind() {
		t.Error("rewind enabled without config")
	}
	if s.RewindStep(1) {
		t.Error("RewindStep succeeded without a buffer")
	}
}

func TestSession_Rewind(t *testing.T) {
	opts := testSessionOptions(afero.NewMemMapFs())
	opts.Config.Rewind.Enabled = true
	s := newTestSession(t, opts)
	if !s.CanRewind() {
		t.Fatal("rewind not enabled")
	}
	stepN(t, s, 5)

	if !s.RewindStep(2) {
		t.Fatal("RewindStep failed")
	}
	frames := s.Frames()
	stepN(t, s, 3)
	if s.Frames() != frames {
		t.Errorf("frames advanced while rewinding: %d -> %d", frames, s.Frames())
	}

	s.EndRewind()
	stepN(t, s, 2)
	if s.Frames() != frames+2 {
		t.Errorf("frames = %d, want %d", s.Frames(), frames+2)
	}
}
