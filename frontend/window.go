//go:build !headless

package frontend

import (
	"context"
	"errors"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/user-none/retrohost/storage"
)

// rumbleRefresh is how often a held rumble request is re-sent to the pad.
const rumbleRefresh = 200 * time.Millisecond

// windowRunner implements ebiten.Game. Emulation runs on its own goroutine;
// Update only polls input and hotkeys and Draw shows the latest frame.
type windowRunner struct {
	s        *Session
	cfg      *storage.Config
	mapping  InputMapping
	renderer *FramebufferRenderer
	overlay  *messageOverlay
	gamepads []ebiten.GamepadID
	paused   bool
	aspect   float64
	ticks    int

	lastRumble time.Time
	done       chan struct{}
}

// RunWindowed shows s in a window until it is closed, the core shuts down
// or ctx ends. The final window size is written back to cfg.
func RunWindowed(ctx context.Context, s *Session, cfg *storage.Config) error {
	sys := s.Core.SystemInfo()
	av := s.Core.AVInfo()

	title := s.Title()
	if title != sys.LibraryName {
		title = sys.LibraryName + " - " + title
	}
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	baseW, baseH := int(av.BaseWidth), int(av.BaseHeight)
	if baseW == 0 || baseH == 0 {
		baseW, baseH = 320, 240
	}
	if av.AspectRatio > 0 {
		baseW = int(float64(baseH) * av.AspectRatio)
	}
	winW, winH := cfg.Window.Width, cfg.Window.Height
	if winW == 0 || winH == 0 {
		winW, winH = baseW*cfg.Video.Scale, baseH*cfg.Video.Scale
	}
	ebiten.SetWindowSize(winW, winH)
	ebiten.SetWindowSizeLimits(baseW, baseH, -1, -1)
	ebiten.SetFullscreen(cfg.Window.Fullscreen)

	wr := &windowRunner{
		s:        s,
		cfg:      cfg,
		mapping:  BuildMappingFromConfig(cfg.Input.Keyboard, cfg.Input.Controller),
		renderer: NewFramebufferRenderer(),
		overlay:  newMessageOverlay(),
		aspect:   av.AspectRatio,
		done:     make(chan struct{}),
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var runErr error
	go func() {
		defer close(wr.done)
		runErr = s.Run(runCtx)
	}()

	err := ebiten.RunGame(wr)

	if wr.paused {
		s.Resume()
	}
	cancel()
	s.Control.Stop()
	<-wr.done

	if !ebiten.IsFullscreen() {
		cfg.Window.Width, cfg.Window.Height = ebiten.WindowSize()
	}
	cfg.Window.Fullscreen = ebiten.IsFullscreen()

	if err != nil {
		return err
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

// Update implements ebiten.Game.
func (wr *windowRunner) Update() error {
	select {
	case <-wr.done:
		return ebiten.Termination
	default:
	}

	// The aspect ratio is re-read once a second.
	wr.ticks++
	if wr.ticks%ebiten.TPS() == 0 {
		wr.aspect = wr.s.Core.AVInfo().AspectRatio
	}

	wr.pollInput()
	wr.handleHotkeys()
	wr.applyRumble()
	return nil
}

func (wr *windowRunner) pollInput() {
	wr.gamepads = ebiten.AppendGamepadIDs(wr.gamepads[:0])
	for port := 0; port < MaxPorts; port++ {
		var id ebiten.GamepadID
		hasPad := port < len(wr.gamepads)
		if hasPad {
			id = wr.gamepads[port]
		}
		wr.s.Input.Set(port, PollPort(wr.mapping, id, hasPad, port == 0))
	}
}

func (wr *windowRunner) handleHotkeys() {
	s := wr.s

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		if wr.paused {
			s.Resume()
			s.Messages.ShowMessage("Resumed", notifyFrames)
		} else {
			s.Pause()
		}
		wr.paused = !wr.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		ebiten.SetFullscreen(!ebiten.IsFullscreen())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		path, err := s.Screenshot(time.Now())
		if err != nil {
			logger.Warn().Err(err).Msg("screenshot")
		} else {
			logger.Info().Str("path", path).Msg("screenshot saved")
		}
	}
	// Released while paused still ends the rewind.
	if s.CanRewind() && inpututil.IsKeyJustReleased(ebiten.KeyR) {
		s.Post(s.EndRewind)
	}
	if wr.paused {
		return
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyF1) {
		s.Post(func() {
			if err := s.SaveState(); err != nil {
				logger.Warn().Err(err).Msg("save state")
			}
		})
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF2) {
		if ebiten.IsKeyPressed(ebiten.KeyShift) {
			s.PreviousSlot()
		} else {
			s.NextSlot()
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF3) {
		s.Post(func() {
			if err := s.LoadState(); err != nil {
				logger.Warn().Err(err).Msg("load state")
			}
		})
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF4) {
		s.CycleFastForward()
	}
	if s.CanRewind() {
		if held := inpututil.KeyPressDuration(ebiten.KeyR); held > 0 {
			if items := rewindItemsForHoldDuration(held); items > 0 {
				s.Post(func() { s.RewindStep(items) })
			}
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		s.Post(func() {
			if err := s.Reset(); err != nil {
				logger.Warn().Err(err).Msg("reset")
			}
		})
	}
}

// applyRumble drives the pads from the core's motor requests, scaled by
// the configured rumble level.
func (wr *windowRunner) applyRumble() {
	level := wr.cfg.Input.RumbleLevel
	if level <= 0 || len(wr.gamepads) == 0 {
		return
	}
	motors, changed := wr.s.Rumble.Motors()
	if !changed && time.Since(wr.lastRumble) < rumbleRefresh {
		return
	}
	for port := 0; port < MaxPorts && port < len(wr.gamepads); port++ {
		strong := rumbleMagnitude(motors[port][0], level)
		weak := rumbleMagnitude(motors[port][1], level)
		if strong == 0 && weak == 0 {
			continue
		}
		ebiten.VibrateGamepad(wr.gamepads[port], &ebiten.VibrateGamepadOptions{
			Duration:        minRumbleDurationMs * time.Millisecond,
			StrongMagnitude: strong,
			WeakMagnitude:   weak,
		})
	}
	wr.lastRumble = time.Now()
}

// Draw implements ebiten.Game.
func (wr *windowRunner) Draw(screen *ebiten.Image) {
	pixels, width, height := wr.s.Video.Read()
	wr.renderer.DrawFramebuffer(screen, pixels, width, height, wr.aspect)

	msg, ok := wr.s.Messages.Current()
	if wr.paused {
		msg, ok = "Paused", true
	}
	if ok {
		wr.overlay.Draw(screen, msg)
	}
}

// Layout implements ebiten.Game.
func (wr *windowRunner) Layout(outsideWidth, outsideHeight int) (int, int) {
	s := 1.0
	if m := ebiten.Monitor(); m != nil {
		s = m.DeviceScaleFactor()
	}
	return int(float64(outsideWidth) * s), int(float64(outsideHeight) * s)
}
