package content

import (
	"fmt"
	"path/filepath"

	"github.com/klauspost/compress/zip"
)

// extractFromZIP extracts the first matching file from a ZIP archive
func extractFromZIP(path string, extensions []string) (entry, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return entry{}, fmt.Errorf("failed to open zip: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.FileInfo().IsDir() || !isContentFile(f.Name, extensions) {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return entry{}, fmt.Errorf("failed to open %s in archive: %w", f.Name, err)
		}
		data, err := limitedRead(rc)
		rc.Close()
		if err != nil {
			return entry{}, fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
		return entry{name: filepath.Base(f.Name), data: data}, nil
	}

	return entry{}, ErrNoContentFile
}
