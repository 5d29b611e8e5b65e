// Package content resolves user-selected files into something a core can
// load, unpacking archives (ZIP, 7z, RAR, tar) and compressed files (gzip,
// xz, zstd, lz4) on the way.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Magic bytes for format detection
var (
	magicZIP    = []byte{0x50, 0x4B, 0x03, 0x04}
	magicZIPEnd = []byte{0x50, 0x4B, 0x05, 0x06} // empty zip
	magic7z     = []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}
	magicGzip   = []byte{0x1F, 0x8B}
	magicRAR    = []byte{0x52, 0x61, 0x72, 0x21} // "Rar!"
	magicXZ     = []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}
	magicZstd   = []byte{0x28, 0xB5, 0x2F, 0xFD}
	magicLZ4    = []byte{0x04, 0x22, 0x4D, 0x18}
)

// MaxSize caps how much content is read into memory.
var MaxSize int64 = 512 << 20

var (
	// ErrNoContentFile is returned when an archive holds nothing the core accepts.
	ErrNoContentFile = errors.New("no loadable file found in archive")
	// ErrUnsupportedFormat is returned for files the core does not list.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrFileTooLarge is returned when content exceeds MaxSize.
	ErrFileTooLarge = errors.New("file exceeds maximum size limit")
)

type formatType int

const (
	formatUnknown formatType = iota
	formatRaw
	formatZIP
	format7z
	formatRAR
	formatGzip
	formatXZ
	formatZstd
	formatLZ4
)

func (f formatType) String() string {
	switch f {
	case formatRaw:
		return "raw"
	case formatZIP:
		return "zip"
	case format7z:
		return "7z"
	case formatRAR:
		return "rar"
	case formatGzip:
		return "gzip"
	case formatXZ:
		return "xz"
	case formatZstd:
		return "zstd"
	case formatLZ4:
		return "lz4"
	}
	return "unknown"
}

// Options describe what the receiving core accepts.
type Options struct {
	// Extensions the core lists, with or without a leading dot. Empty
	// accepts any file.
	Extensions []string
	// NeedFullpath cores read the file themselves, so archive entries are
	// extracted to a temporary directory.
	NeedFullpath bool
	// BlockExtract passes archives through untouched.
	BlockExtract bool
	// TempDir is where entries are extracted. Defaults to os.TempDir.
	TempDir string
}

// Item is resolved content.
type Item struct {
	// Path is handed to the core. For extracted entries it names the
	// entry next to its archive, or the temporary copy for NeedFullpath.
	Path string
	// Name is the base name of the loaded file.
	Name string
	// Data is nil when the core reads Path itself.
	Data []byte
	// Format of the file that was opened.
	Format string

	tempDir string
}

// Close removes any temporary extraction.
func (it *Item) Close() error {
	if it == nil || it.tempDir == "" {
		return nil
	}
	err := os.RemoveAll(it.tempDir)
	it.tempDir = ""
	return err
}

// entry is a file pulled out of an archive.
type entry struct {
	name string
	data []byte
}

// Open resolves path for a core described by opts.
func Open(path string, opts Options) (*Item, error) {
	return defaultLoader.Open(path, opts)
}

// normalizeExtensions returns lowercase extensions with a leading dot.
func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}

func readHeader(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	header := make([]byte, 16)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("failed to read file header: %w", err)
	}
	return header[:n], nil
}

// detectFormat classifies a file by magic bytes, then by extension. Files
// whose extension the core lists are raw even when they look like archives.
func detectFormat(header []byte, path string, extensions []string) formatType {
	ext := strings.ToLower(filepath.Ext(path))

	for _, e := range extensions {
		if ext == e {
			return formatRaw
		}
	}

	switch {
	case bytes.HasPrefix(header, magicZIP), bytes.HasPrefix(header, magicZIPEnd):
		return formatZIP
	case bytes.HasPrefix(header, magicRAR):
		return formatRAR
	case bytes.HasPrefix(header, magic7z):
		return format7z
	case bytes.HasPrefix(header, magicXZ):
		return formatXZ
	case bytes.HasPrefix(header, magicZstd):
		return formatZstd
	case bytes.HasPrefix(header, magicLZ4):
		return formatLZ4
	case bytes.HasPrefix(header, magicGzip):
		return formatGzip
	}

	// Fall back to extension for archive formats
	switch ext {
	case ".zip":
		return formatZIP
	case ".7z":
		return format7z
	case ".rar":
		return formatRAR
	case ".gz", ".tgz":
		return formatGzip
	case ".xz", ".txz":
		return formatXZ
	case ".zst", ".tzst":
		return formatZstd
	case ".lz4":
		return formatLZ4
	}

	if len(extensions) == 0 {
		return formatRaw
	}
	return formatUnknown
}

// isContentFile checks name against extensions (case-insensitive). An empty
// list accepts every name.
func isContentFile(name string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	lower := strings.ToLower(name)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// limitedRead reads from r up to MaxSize bytes, returning an error if exceeded
func limitedRead(r io.Reader) ([]byte, error) {
	lr := io.LimitReader(r, MaxSize+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > MaxSize {
		return nil, ErrFileTooLarge
	}
	return data, nil
}

func extract(path string, format formatType, extensions []string) (entry, error) {
	switch format {
	case formatZIP:
		return extractFromZIP(path, extensions)
	case format7z:
		return extractFrom7z(path, extensions)
	case formatRAR:
		return extractFromRAR(path, extensions)
	case formatGzip, formatXZ, formatZstd, formatLZ4:
		return extractCompressed(path, format, extensions)
	}
	return entry{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}
