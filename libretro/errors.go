package libretro

import (
	"errors"
	"fmt"
)

var (
	// ErrPluginLoad is matched by every PluginLoadError.
	ErrPluginLoad = errors.New("plugin load failed")
	// ErrContentLoad is matched by every ContentLoadError.
	ErrContentLoad = errors.New("content load failed")
	ErrNotLoaded   = errors.New("no core loaded")
	ErrNoContent   = errors.New("no content loaded")
	ErrSerialize   = errors.New("core serialization failed")
	ErrActiveCore  = errors.New("another core is already active")
)

// PluginLoadError reports a library that could not be opened or a
// mandatory symbol that could not be resolved.
type PluginLoadError struct {
	Path   string
	Symbol string
	Err    error
}

func (e *PluginLoadError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("load %s: missing symbol %s: %v", e.Path, e.Symbol, e.Err)
	}
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *PluginLoadError) Unwrap() error { return e.Err }

func (e *PluginLoadError) Is(target error) bool { return target == ErrPluginLoad }

// ContentLoadError reports content the core rejected or the host could
// not read.
type ContentLoadError struct {
	Path string
	Err  error
}

func (e *ContentLoadError) Error() string {
	return fmt.Sprintf("load content %s: %v", e.Path, e.Err)
}

func (e *ContentLoadError) Unwrap() error { return e.Err }

func (e *ContentLoadError) Is(target error) bool { return target == ErrContentLoad }
