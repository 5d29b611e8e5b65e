package content

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/nwaples/rardecode/v2"
)

// extractFromRAR extracts the first matching file from a RAR archive
func extractFromRAR(path string, extensions []string) (entry, error) {
	r, err := rardecode.OpenReader(path)
	if err != nil {
		return entry{}, fmt.Errorf("failed to open rar: %w", err)
	}
	defer r.Close()

	for {
		header, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return entry{}, fmt.Errorf("failed to read rar entry: %w", err)
		}
		if header.IsDir || !isContentFile(header.Name, extensions) {
			continue
		}

		data, err := limitedRead(r)
		if err != nil {
			return entry{}, fmt.Errorf("failed to read %s: %w", header.Name, err)
		}
		return entry{name: filepath.Base(header.Name), data: data}, nil
	}

	return entry{}, ErrNoContentFile
}
