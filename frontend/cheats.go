package frontend

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// Cheat is one entry of a .cht cheat file.
type Cheat struct {
	Index   uint
	Desc    string
	Code    string
	Enabled bool
}

// ParseCheats reads the key = value cheat file format:
//
//	cheats = 1
//	cheat0_desc = "Infinite lives"
//	cheat0_code = "7E0DBE:05"
//	cheat0_enable = true
func ParseCheats(r io.Reader) ([]Cheat, error) {
	kv := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		kv[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(value), "\"")
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	countStr, ok := kv["cheats"]
	if !ok {
		return nil, errors.New("missing cheats count")
	}
	count, err := strconv.Atoi(countStr)
	if err != nil || count < 0 {
		return nil, fmt.Errorf("invalid cheats count %q", countStr)
	}

	var cheats []Cheat
	for i := 0; i < count; i++ {
		prefix := fmt.Sprintf("cheat%d_", i)
		code := kv[prefix+"code"]
		if code == "" {
			continue
		}
		cheats = append(cheats, Cheat{
			Index:   uint(i),
			Desc:    kv[prefix+"desc"],
			Code:    code,
			Enabled: kv[prefix+"enable"] == "true",
		})
	}
	return cheats, nil
}

// LoadCheatFile parses <dir>/<name>.cht. A missing file yields no cheats.
func LoadCheatFile(fs afero.Fs, dir, name string) ([]Cheat, error) {
	if dir == "" || name == "" {
		return nil, nil
	}
	f, err := fs.Open(filepath.Join(dir, name+".cht"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	return ParseCheats(f)
}

// cheatTarget is the part of a core that accepts cheats.
type cheatTarget interface {
	CheatReset() error
	CheatSet(index uint, enabled bool, code string) error
}

// ApplyCheats resets the core's cheats and installs the enabled ones. It
// returns how many were applied.
func ApplyCheats(core cheatTarget, cheats []Cheat) (int, error) {
	if err := core.CheatReset(); err != nil {
		return 0, err
	}
	applied := 0
	for _, c := range cheats {
		if !c.Enabled {
			continue
		}
		if err := core.CheatSet(c.Index, true, c.Code); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}
