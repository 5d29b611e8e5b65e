package libretro

import (
	"runtime"
	"strings"
	"unsafe"
)

// goString copies a NUL-terminated C string into Go memory.
func goString(p *byte) string {
	if p == nil {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Add(unsafe.Pointer(p), n)) != 0 {
		n++
	}
	return string(unsafe.Slice(p, n))
}

// splitExtensions parses a "|"-separated extension list into lowercase
// entries without leading dots.
func splitExtensions(list string) []string {
	var exts []string
	for _, e := range strings.Split(list, "|") {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e != "" {
			exts = append(exts, e)
		}
	}
	return exts
}

// stringArena hands out NUL-terminated strings whose addresses stay valid
// and pinned until release. Cores are allowed to keep pointers returned
// from environment queries, so these cannot be per-call temporaries.
type stringArena struct {
	pinner  runtime.Pinner
	strings map[string]*byte
}

func (a *stringArena) get(s string) *byte {
	if a.strings == nil {
		a.strings = make(map[string]*byte)
	}
	if p, ok := a.strings[s]; ok {
		return p
	}
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	p := &buf[0]
	a.pinner.Pin(p)
	a.strings[s] = p
	return p
}

func (a *stringArena) release() {
	a.pinner.Unpin()
	a.strings = nil
}
