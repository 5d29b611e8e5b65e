package content

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheEntries is how many extracted archive entries a Loader keeps.
const DefaultCacheEntries = 4

var defaultLoader = &Loader{}

type cacheKey struct {
	path    string
	size    int64
	modTime time.Time
	exts    string
}

// Loader opens content and remembers recently extracted archive entries, so
// reloading the same archive (after a core switch or a reset) skips the
// decompression.
type Loader struct {
	cache *lru.Cache[cacheKey, entry]
}

// NewLoader returns a Loader caching up to entries extractions. Zero
// disables the cache.
func NewLoader(entries int) (*Loader, error) {
	if entries <= 0 {
		return &Loader{}, nil
	}
	c, err := lru.New[cacheKey, entry](entries)
	if err != nil {
		return nil, err
	}
	return &Loader{cache: c}, nil
}

// Open resolves path for a core described by opts.
func (l *Loader) Open(path string, opts Options) (*Item, error) {
	exts := normalizeExtensions(opts.Extensions)

	header, err := readHeader(path)
	if err != nil {
		return nil, err
	}
	format := detectFormat(header, path, exts)
	if opts.BlockExtract && format != formatUnknown {
		format = formatRaw
	}

	switch format {
	case formatUnknown:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)

	case formatRaw:
		item := &Item{Path: path, Name: filepath.Base(path), Format: format.String()}
		if opts.NeedFullpath {
			return item, nil
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
		defer f.Close()
		if item.Data, err = limitedRead(f); err != nil {
			return nil, fmt.Errorf("failed to read content: %w", err)
		}
		return item, nil
	}

	e, err := l.extractCached(path, format, exts)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("archive", path).Str("entry", e.name).Str("format", format.String()).Msg("extracted content")

	if !opts.NeedFullpath {
		return &Item{
			Path:   filepath.Join(filepath.Dir(path), e.name),
			Name:   e.name,
			Data:   e.data,
			Format: format.String(),
		}, nil
	}

	dir, err := os.MkdirTemp(opts.TempDir, "retrohost-")
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction directory: %w", err)
	}
	out := filepath.Join(dir, e.name)
	if err := os.WriteFile(out, e.data, 0o644); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to write extracted content: %w", err)
	}
	return &Item{Path: out, Name: e.name, Format: format.String(), tempDir: dir}, nil
}

func (l *Loader) extractCached(path string, format formatType, exts []string) (entry, error) {
	if l.cache == nil {
		return extract(path, format, exts)
	}
	fi, err := os.Stat(path)
	if err != nil {
		return entry{}, fmt.Errorf("failed to stat file: %w", err)
	}
	key := cacheKey{path: path, size: fi.Size(), modTime: fi.ModTime(), exts: strings.Join(exts, "|")}
	if e, ok := l.cache.Get(key); ok {
		return e, nil
	}
	e, err := extract(path, format, exts)
	if err != nil {
		return entry{}, err
	}
	l.cache.Add(key, e)
	return e, nil
}

// Purge drops all cached extractions.
func (l *Loader) Purge() {
	if l.cache != nil {
		l.cache.Purge()
	}
}
