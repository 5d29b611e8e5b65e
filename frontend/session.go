// Package frontend runs a hosted core: it wires the core to the audio
// stage, storage and content loading, and drives frames either in a window
// or headless.
package frontend

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
	"github.com/user-none/retrohost/audio"
	"github.com/user-none/retrohost/content"
	"github.com/user-none/retrohost/libretro"
	"github.com/user-none/retrohost/rdb"
	"github.com/user-none/retrohost/storage"
)

// ErrShutdown is returned by Step once the core has asked to exit.
var ErrShutdown = errors.New("core requested shutdown")

// notifyFrames is how long host notifications stay up.
const notifyFrames = 60

// SessionOptions configure NewSession.
type SessionOptions struct {
	// CorePath is a core library, or libretro.TestPatternPath for the
	// built-in test pattern.
	CorePath string
	// ContentPath may be empty for cores that run without content.
	ContentPath string

	Config *storage.Config
	Dirs   storage.Dirs
	Fs     afero.Fs
	// AudioDevice defaults to audio.DefaultDevice.
	AudioDevice audio.DeviceFactory
	Loader      *content.Loader

	// Resume loads the resume state on start and writes it on Close.
	Resume bool
	// MaxFrames stops Run after that many frames. 0 runs until stopped.
	MaxFrames uint64
	// Unthrottled runs frames back to back.
	Unthrottled bool
}

// Session is one loaded core and its content.
type Session struct {
	Core     *libretro.Core
	Audio    *audio.OutputStage
	Input    *SharedInput
	Video    *SharedFramebuffer
	Messages *MessageQueue
	Rumble   *RumbleState
	Control  *EmuControl
	Turbo    *TurboState

	opts    SessionOptions
	cfg     *storage.Config
	coreKey string
	states  *storage.StateStore
	item    *content.Item
	game    rdb.Game
	known   bool
	cmds    chan func()
	gate    *audioGate

	// Owned by the emulation goroutine.
	rewind    *rewindBuffer
	rewinding bool

	mu     sync.Mutex
	slot   int
	frames uint64

	closeOnce sync.Once
}

// CoreKey names a core in the saved option table: the library file name
// without its extension.
func CoreKey(path string) string {
	if path == libretro.TestPatternPath {
		return "testpattern"
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// NewSession loads the core and content and starts audio output.
func NewSession(opts SessionOptions) (*Session, error) {
	if opts.CorePath == "" {
		return nil, errors.New("no core selected")
	}
	if opts.Config == nil {
		opts.Config = storage.DefaultConfig()
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Loader == nil {
		l, err := content.NewLoader(content.DefaultCacheEntries)
		if err != nil {
			return nil, err
		}
		opts.Loader = l
	}
	cfg := opts.Config

	s := &Session{
		Input:    &SharedInput{},
		Video:    NewSharedFramebuffer(640, 480),
		Messages: &MessageQueue{},
		Rumble:   &RumbleState{},
		Control:  NewEmuControl(),
		Turbo:    &TurboState{},
		opts:     opts,
		cfg:      cfg,
		coreKey:  CoreKey(opts.CorePath),
		states:   storage.NewStateStore(opts.Fs, opts.Dirs.States),
		cmds:     make(chan func(), 16),
	}

	volume := cfg.Audio.Volume
	if cfg.Audio.Muted {
		volume = 0
	}
	s.Audio = audio.NewOutputStage(audio.Config{
		DeviceRate:      cfg.Audio.DeviceSampleRate,
		DisplayRate:     s.displayRate(),
		TargetLatencyMs: cfg.Audio.TargetLatencyMs,
		MaxDeviation:    cfg.Audio.MaxDeviation,
		HighWaterMs:     cfg.Audio.HighWaterMs,
		Converter:       cfg.Audio.Resampler,
		Volume:          volume,
	}, opts.AudioDevice)
	s.gate = &audioGate{next: s.Audio}

	s.Core = libretro.NewCore(libretro.Options{
		SystemDir:       opts.Dirs.System,
		SaveDir:         opts.Dirs.Saves,
		CoreAssetsDir:   opts.Dirs.CoreAssets,
		Username:        cfg.Username,
		Language:        libretro.LanguageFromTag(cfg.Language),
		Video:           &videoSink{fb: s.Video},
		Audio:           s.gate,
		Input:           &inputSource{shared: s.Input},
		Saves:           storage.NewSaveStore(opts.Fs, opts.Dirs.Saves),
		Rumble:          s.Rumble,
		Messages:        s.Messages,
		OptionOverrides: cfg.OptionsFor(s.coreKey),
	})

	if err := s.loadCore(); err != nil {
		s.Audio.Close()
		return nil, err
	}
	if err := s.loadContent(); err != nil {
		s.Core.Unload()
		s.Audio.Close()
		s.item.Close()
		return nil, err
	}

	s.applyCheats()
	if opts.Resume {
		if err := s.loadSlot(storage.ResumeSlot); err == nil {
			logger.Info().Msg("resumed from last session")
		}
	}
	s.setupRewind()
	if err := s.Audio.Activate(); err != nil {
		logger.Warn().Err(err).Msg("audio output unavailable, will retry")
	}
	return s, nil
}

func (s *Session) loadCore() error {
	if s.opts.CorePath == libretro.TestPatternPath {
		return s.Core.LoadPlugin(libretro.NewTestPatternCore(), libretro.TestPatternPath)
	}
	return s.Core.Load(s.opts.CorePath)
}

func (s *Session) loadContent() error {
	if s.opts.ContentPath == "" {
		return s.Core.LoadContent(libretro.Content{})
	}
	sys := s.Core.SystemInfo()
	item, err := s.opts.Loader.Open(s.opts.ContentPath, content.Options{
		Extensions:   sys.ValidExtensions,
		NeedFullpath: sys.NeedFullpath,
		BlockExtract: sys.BlockExtract,
	})
	if err != nil {
		return err
	}
	s.item = item
	logger.Info().Str("path", item.Path).Str("format", item.Format).Msg("content resolved")
	if s.game, s.known = rdb.IdentifyIn(s.opts.Fs, s.opts.Dirs.Database, item.Data); s.known {
		logger.Info().Str("game", s.game.Name).Uint("year", s.game.ReleaseYear).Msg("content identified")
	}
	return s.Core.LoadContent(libretro.Content{Path: item.Path, Data: item.Data})
}

// Title names what is running: the database name of the content when it
// was identified, else the content file name, else the core name.
func (s *Session) Title() string {
	if s.known {
		return rdb.DisplayName(s.game.Name)
	}
	if name := s.Core.ContentName(); name != "" {
		return name
	}
	return s.Core.SystemInfo().LibraryName
}

func (s *Session) applyCheats() {
	cheats, err := LoadCheatFile(s.opts.Fs, s.opts.Dirs.Cheats, s.stateName())
	if err != nil {
		logger.Warn().Err(err).Msg("cheat file ignored")
		return
	}
	if len(cheats) == 0 {
		return
	}
	n, err := ApplyCheats(s.Core, cheats)
	if err != nil {
		logger.Warn().Err(err).Msg("apply cheats")
	}
	logger.Info().Int("enabled", n).Int("total", len(cheats)).Msg("cheats loaded")
}

// setupRewind sizes the rewind buffer from the core's state size.
func (s *Session) setupRewind() {
	rc := s.cfg.Rewind
	if !rc.Enabled {
		return
	}
	state, err := s.Core.SaveState()
	if err != nil {
		logger.Warn().Err(err).Msg("rewind disabled, core cannot save state")
		return
	}
	s.rewind = newRewindBuffer(rc.BufferSizeMB, rc.FrameStep, len(state))
	if s.rewind != nil {
		logger.Info().Int("states", s.rewind.Capacity()).Int("state_bytes", len(state)).Msg("rewind enabled")
	}
}

// displayRate is the refresh rate frames are paced to, or 0 to pace at
// the core's own rate.
func (s *Session) displayRate() float64 {
	if s.cfg.Video.SyncToDisplay && s.cfg.Video.DisplayRate > 0 {
		return s.cfg.Video.DisplayRate
	}
	return 0
}

// FrameInterval is the time between emulated frames.
func (s *Session) FrameInterval() time.Duration {
	rate := s.displayRate()
	if rate <= 0 {
		rate = s.Core.AVInfo().NativeFrameRate
	}
	if rate <= 0 {
		rate = 60
	}
	return time.Duration(float64(time.Second) / rate)
}

// Post queues fn to run on the emulation goroutine before the next frame.
// It reports false when the queue is full.
func (s *Session) Post(fn func()) bool {
	select {
	case s.cmds <- fn:
		return true
	default:
		logger.Warn().Msg("command queue full, dropped")
		return false
	}
}

func (s *Session) drainCommands() {
	for {
		select {
		case fn := <-s.cmds:
			fn()
		default:
			return
		}
	}
}

// Step runs queued commands and one tick: a single frame, or one frame per
// fast-forward step with their audio folded together. Nothing runs while
// rewinding.
func (s *Session) Step() error {
	s.drainCommands()
	if s.rewinding {
		return nil
	}

	m := s.Turbo.Read()
	if m > 1 {
		s.gate.hold()
	}
	for i := 0; i < m; i++ {
		if err := s.Core.RunFrame(); err != nil {
			s.gate.release(m, true)
			return err
		}
		s.mu.Lock()
		s.frames++
		s.mu.Unlock()
	}
	if m > 1 {
		s.gate.release(m, s.cfg.Audio.FastForwardMute)
	}

	if s.rewind != nil {
		if err := s.rewind.Capture(s.Core); err != nil {
			logger.Debug().Err(err).Msg("rewind capture")
		}
	}
	s.Messages.Tick()
	if s.Core.ShutdownRequested() {
		return ErrShutdown
	}
	return nil
}

// Run steps frames until ctx ends, the control is stopped, the core asks
// to shut down or MaxFrames is reached.
func (s *Session) Run(ctx context.Context) error {
	interval := s.FrameInterval()
	if s.opts.Unthrottled {
		interval = 0
	}
	p := newPacer(interval)
	defer s.Control.Stop()
	for {
		if !s.Control.CheckPause() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Step(); err != nil {
			if errors.Is(err, ErrShutdown) {
				logger.Info().Msg("core requested shutdown")
				return nil
			}
			return err
		}
		if s.opts.MaxFrames > 0 && s.Frames() >= s.opts.MaxFrames {
			return nil
		}
		p.wait()
	}
}

// Frames returns how many frames have run.
func (s *Session) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Slot returns the selected save state slot.
func (s *Session) Slot() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slot
}

// stateName keys save states: the content name, or the core for cores
// running without content.
func (s *Session) stateName() string {
	if name := s.Core.ContentName(); name != "" {
		return name
	}
	return s.coreKey
}

// SaveState writes the running state into the selected slot.
func (s *Session) SaveState() error {
	slot := s.Slot()
	if err := s.saveSlot(slot); err != nil {
		s.Messages.ShowMessage("Save state failed", notifyFrames)
		return err
	}
	s.Messages.ShowMessage(fmt.Sprintf("State saved to slot %d", slot), notifyFrames)
	return nil
}

// LoadState restores the selected slot.
func (s *Session) LoadState() error {
	slot := s.Slot()
	if err := s.loadSlot(slot); err != nil {
		s.Messages.ShowMessage(fmt.Sprintf("No state in slot %d", slot), notifyFrames)
		return err
	}
	s.Messages.ShowMessage(fmt.Sprintf("State loaded from slot %d", slot), notifyFrames)
	return nil
}

func (s *Session) saveSlot(slot int) error {
	state, err := s.Core.SaveState()
	if err != nil {
		return err
	}
	return s.states.Save(s.stateName(), slot, state)
}

func (s *Session) loadSlot(slot int) error {
	state, err := s.states.Load(s.stateName(), slot)
	if err != nil {
		return err
	}
	if err := s.Core.LoadState(state); err != nil {
		return err
	}
	// Queued audio belongs to the timeline that was just replaced.
	s.Audio.ClearQueue()
	if s.rewind != nil {
		s.rewind.Reset()
	}
	return nil
}

// CanRewind reports whether rewind is enabled for this session.
func (s *Session) CanRewind() bool { return s.rewind != nil }

// RewindStep steps back count captured states and shows the result. Audio
// is dropped until EndRewind. It must run on the emulation goroutine.
func (s *Session) RewindStep(count int) bool {
	if s.rewind == nil {
		return false
	}
	if !s.rewinding {
		s.rewinding = true
		s.Audio.ClearQueue()
	}
	s.gate.hold()
	ok := s.rewind.Rewind(s.Core, count)
	s.gate.release(1, true)
	return ok
}

// EndRewind resumes normal play after RewindStep.
func (s *Session) EndRewind() { s.rewinding = false }

// CycleFastForward steps the fast-forward multiplier and announces it.
func (s *Session) CycleFastForward() int {
	m := s.Turbo.CycleMultiplier()
	if m > 1 {
		s.Messages.ShowMessage(fmt.Sprintf("Fast forward %dx", m), notifyFrames)
	} else {
		s.Messages.ShowMessage("Fast forward off", notifyFrames)
	}
	return m
}

// NextSlot selects the next save state slot, wrapping after the last.
func (s *Session) NextSlot() {
	s.mu.Lock()
	s.slot = (s.slot + 1) % storage.StateSlots
	slot := s.slot
	s.mu.Unlock()
	s.Messages.ShowMessage(fmt.Sprintf("Slot %d", slot), notifyFrames)
}

// PreviousSlot selects the previous save state slot.
func (s *Session) PreviousSlot() {
	s.mu.Lock()
	s.slot = (s.slot + storage.StateSlots - 1) % storage.StateSlots
	slot := s.slot
	s.mu.Unlock()
	s.Messages.ShowMessage(fmt.Sprintf("Slot %d", slot), notifyFrames)
}

// Reset restarts the content.
func (s *Session) Reset() error {
	if err := s.Core.Reset(); err != nil {
		return err
	}
	if s.rewind != nil {
		s.rewind.Reset()
	}
	s.Messages.ShowMessage("Reset", notifyFrames)
	return nil
}

// Pause parks the emulation goroutine and suspends audio.
func (s *Session) Pause() {
	s.Control.RequestPause()
	s.Audio.Suspend()
	s.Rumble.Stop()
}

// Resume continues after Pause.
func (s *Session) Resume() {
	s.Audio.Resume()
	s.Control.RequestResume()
}

// Screenshot saves the latest frame under the screenshot directory.
func (s *Session) Screenshot(now time.Time) (string, error) {
	img := s.Video.Image()
	if img == nil {
		return "", errors.New("no frame to capture")
	}
	return SaveScreenshot(s.opts.Fs, s.opts.Dirs.Screenshots, s.stateName(), img, now)
}

// Close stops emulation, writes the resume state and save RAM, records
// the core's option values in the config and releases the core, audio and
// any extracted content. Run must have returned.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.Control.Stop()
		if s.opts.Resume {
			if err := s.saveSlot(storage.ResumeSlot); err != nil {
				logger.Warn().Err(err).Msg("write resume state")
			}
		}
		s.cfg.SetOptions(s.coreKey, s.Core.Variables().Values())
		s.Rumble.Stop()

		st := s.Audio.Stats()
		logger.Info().
			Uint64("frames", s.Frames()).
			Uint64("audio_blocks", st.Blocks).
			Uint64("silent_blocks", st.SilentBlocks).
			Uint64("underruns", st.Underruns).
			Uint64("audio_resets", st.Resets).
			Float64("last_ratio", st.LastRatio).
			Msg("session closed")

		s.Core.Unload()
		s.Audio.Close()
		if err := s.item.Close(); err != nil {
			logger.Warn().Err(err).Msg("remove extracted content")
		}
	})
}
