package content

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// compressedSuffixes maps single-stream formats to the extensions they
// add to the inner file name, longest first.
var compressedSuffixes = map[formatType][]string{
	formatGzip: {".tar.gz", ".tgz", ".gz"},
	formatXZ:   {".tar.xz", ".txz", ".xz"},
	formatZstd: {".tar.zst", ".tzst", ".zst"},
	formatLZ4:  {".tar.lz4", ".lz4"},
}

func decompressor(format formatType, r io.Reader) (io.ReadCloser, error) {
	switch format {
	case formatGzip:
		return gzip.NewReader(r)
	case formatXZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(xr), nil
	case formatZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	case formatLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}

// isTarball reports whether a compressed file wraps a tar archive.
func isTarball(path string) bool {
	lower := strings.ToLower(path)
	for _, s := range []string{".tar.gz", ".tgz", ".tar.xz", ".txz", ".tar.zst", ".tzst", ".tar.lz4"} {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}

// innerName strips the compression suffix from a plain compressed file.
func innerName(path string, format formatType) string {
	name := filepath.Base(path)
	lower := strings.ToLower(name)
	for _, s := range compressedSuffixes[format] {
		if strings.HasSuffix(lower, s) {
			return name[:len(name)-len(s)]
		}
	}
	return name
}

// extractCompressed extracts content from a compressed file or tarball.
func extractCompressed(path string, format formatType, extensions []string) (entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return entry{}, fmt.Errorf("failed to open %s: %w", format, err)
	}
	defer f.Close()

	dr, err := decompressor(format, f)
	if err != nil {
		return entry{}, fmt.Errorf("failed to create %s reader: %w", format, err)
	}
	defer dr.Close()

	if isTarball(path) {
		return extractFromTar(dr, extensions)
	}

	// Plain compressed file - the decompressed stream is the content
	data, err := limitedRead(dr)
	if err != nil {
		return entry{}, fmt.Errorf("failed to decompress %s: %w", format, err)
	}
	return entry{name: innerName(path, format), data: data}, nil
}

// extractFromTar extracts the first matching file from a tar stream
func extractFromTar(r io.Reader, extensions []string) (entry, error) {
	tr := tar.NewReader(r)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return entry{}, fmt.Errorf("failed to read tar entry: %w", err)
		}
		if header.Typeflag != tar.TypeReg || !isContentFile(header.Name, extensions) {
			continue
		}

		data, err := limitedRead(tr)
		if err != nil {
			return entry{}, fmt.Errorf("failed to read %s from tar: %w", header.Name, err)
		}
		return entry{name: filepath.Base(header.Name), data: data}, nil
	}

	return entry{}, ErrNoContentFile
}
