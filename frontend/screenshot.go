package frontend

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// SaveScreenshot writes img as <dir>/<game>/<unix time>.png and returns the
// path. An empty game name saves directly under dir.
func SaveScreenshot(fs afero.Fs, dir, game string, img image.Image, now time.Time) (string, error) {
	if img == nil {
		return "", errors.New("no frame to capture")
	}
	if game != "" {
		dir = filepath.Join(dir, game)
	}
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create screenshot directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%d.png", now.Unix()))
	f, err := fs.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create screenshot file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to encode screenshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}
