package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/user-none/retrohost/audio"
	"github.com/user-none/retrohost/content"
	"github.com/user-none/retrohost/frontend"
	"github.com/user-none/retrohost/libretro"
	"github.com/user-none/retrohost/storage"
)

func main() {
	corePath := flag.String("core", "", "path to a core library, or \""+libretro.TestPatternPath+"\" (file picker if omitted)")
	contentPath := flag.String("content", "", "path to content, may be an archive")
	configPath := flag.String("config", "", "config file (default: config.json in the data directory)")
	logLevel := flag.String("log-level", "info", "log level: trace, debug, info, warn, error")
	headless := flag.Bool("headless", false, "run without a window")
	frames := flag.Uint64("frames", 0, "stop after this many frames (0 runs until interrupted)")
	resampler := flag.String("resampler", "", "override the resampler: auto, libsamplerate, cubic")
	resume := flag.Bool("resume", false, "resume from and save to the resume state")
	unthrottled := flag.Bool("unthrottled", false, "run frames as fast as possible")
	flag.Parse()

	log, err := setupLogging(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(log, options{
		corePath:    *corePath,
		contentPath: *contentPath,
		configPath:  *configPath,
		headless:    *headless,
		frames:      *frames,
		resampler:   *resampler,
		resume:      *resume,
		unthrottled: *unthrottled,
	}); err != nil {
		log.Fatal().Err(err).Msg("retrohost")
	}
}

type options struct {
	corePath    string
	contentPath string
	configPath  string
	headless    bool
	frames      uint64
	resampler   string
	resume      bool
	unthrottled bool
}

func setupLogging(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid -log-level %q", level)
	}
	zerolog.SetGlobalLevel(lvl)
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	audio.SetLogger(log)
	content.SetLogger(log)
	libretro.SetLogger(log)
	frontend.SetLogger(log)
	return log, nil
}

func run(log zerolog.Logger, opts options) error {
	fs := afero.NewOsFs()

	baseDir, err := storage.GetBaseDir()
	if err != nil {
		return err
	}
	if opts.configPath == "" {
		opts.configPath = filepath.Join(baseDir, "config.json")
	}
	if err := storage.CreateConfigIfMissing(fs, opts.configPath); err != nil {
		log.Warn().Err(err).Msg("could not write default config")
	}
	cfg, err := storage.LoadConfig(fs, opts.configPath)
	if err != nil {
		return err
	}
	if problems := storage.ValidateConfig(cfg); len(problems) > 0 {
		for _, p := range problems {
			log.Warn().Str("problem", p).Msg("config corrected")
		}
		cfg = storage.CorrectConfig(cfg)
	}
	if opts.resampler != "" {
		cfg.Audio.Resampler = opts.resampler
	}

	dirs := storage.ResolveDirs(baseDir, cfg.Paths)
	if err := storage.EnsureDirectories(fs, dirs); err != nil {
		return err
	}

	if opts.corePath == "" && !opts.headless {
		if opts.corePath, err = pickCore(); err != nil {
			return err
		}
		if opts.contentPath == "" {
			opts.contentPath = pickContent()
		}
	}
	if opts.corePath == "" {
		return errors.New("no core given, use -core")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := frontend.NewSession(frontend.SessionOptions{
		CorePath:    opts.corePath,
		ContentPath: opts.contentPath,
		Config:      cfg,
		Dirs:        dirs,
		Fs:          fs,
		Resume:      opts.resume,
		MaxFrames:   opts.frames,
		Unthrottled: opts.unthrottled,
	})
	if err != nil {
		return err
	}

	sys := s.Core.SystemInfo()
	log.Info().
		Str("core", sys.LibraryName).
		Str("version", sys.LibraryVersion).
		Str("title", s.Title()).
		Msg("running")

	if opts.headless {
		err = frontend.RunHeadless(ctx, s)
	} else {
		err = frontend.RunWindowed(ctx, s, cfg)
	}
	s.Close()

	if serr := storage.SaveConfig(fs, opts.configPath, cfg); serr != nil {
		log.Warn().Err(serr).Msg("could not save config")
	}
	return err
}
