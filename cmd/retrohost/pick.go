//go:build !headless

package main

import (
	"errors"
	"runtime"

	"github.com/sqweek/dialog"
)

func coreExtension() string {
	switch runtime.GOOS {
	case "darwin":
		return "dylib"
	case "windows":
		return "dll"
	}
	return "so"
}

// pickCore asks for a core library with a file dialog.
func pickCore() (string, error) {
	path, err := dialog.File().
		Title("Select Core").
		Filter("Core library", coreExtension()).
		Load()
	if errors.Is(err, dialog.ErrCancelled) {
		return "", errors.New("no core selected")
	}
	return path, err
}

// pickContent asks for content. Cancelling runs the core without content.
func pickContent() string {
	path, err := dialog.File().
		Title("Select Content").
		Filter("Content", "zip", "7z", "rar", "gz", "tgz", "xz", "txz", "zst", "tzst", "lz4", "bin", "iso", "cue").
		Filter("All files", "*").
		Load()
	if err != nil {
		return ""
	}
	return path
}
