// Package rdb reads libretro game databases. An .rdb file is a 16 byte
// header followed by one MessagePack map per game, ended by nil.
package rdb

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"hash/crc32"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const (
	magic      = "RARCHDB"
	headerSize = 0x10
)

var (
	ErrBadMagic  = errors.New("not an rdb file")
	ErrTruncated = errors.New("rdb file truncated")
)

// Game is one database entry.
type Game struct {
	Name         string // full No-Intro name, e.g. "Sonic the Hedgehog (USA, Europe)"
	Description  string
	Genre        string
	Developer    string
	Publisher    string
	Franchise    string
	Serial       string
	ROMName      string
	ReleaseMonth uint
	ReleaseYear  uint
	Size         uint64
	CRC32        uint32
	MD5          string // lowercase hex
}

// DB is a parsed database indexed by checksum.
type DB struct {
	games []Game
	byCRC map[uint32]int
	byMD5 map[string]int
}

// Load reads and parses the database at path.
func Load(fs afero.Fs, path string) (*DB, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rdb: %w", err)
	}
	db, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return db, nil
}

// Parse decodes database content.
func Parse(data []byte) (*DB, error) {
	if len(data) < headerSize || string(data[:len(magic)]) != magic {
		return nil, ErrBadMagic
	}
	db := &DB{byCRC: make(map[uint32]int), byMD5: make(map[string]int)}

	d := &decoder{data: data, pos: headerSize}
	for d.pos < len(d.data) {
		v, err := d.next()
		if err != nil {
			return nil, err
		}
		if v.kind == kindNil {
			break
		}
		if v.kind != kindMap {
			return nil, fmt.Errorf("record at %d is not a map", d.pos)
		}
		g, err := d.game(int(v.num))
		if err != nil {
			return nil, err
		}
		db.add(g)
	}
	return db, nil
}

func (db *DB) add(g Game) {
	if g.Name == "" && g.CRC32 == 0 {
		return
	}
	i := len(db.games)
	db.games = append(db.games, g)
	if g.CRC32 != 0 {
		db.byCRC[g.CRC32] = i
	}
	if g.MD5 != "" {
		db.byMD5[g.MD5] = i
	}
}

// Len returns the number of games.
func (db *DB) Len() int { return len(db.games) }

// ByCRC32 looks a game up by CRC32.
func (db *DB) ByCRC32(sum uint32) (Game, bool) {
	i, ok := db.byCRC[sum]
	if !ok {
		return Game{}, false
	}
	return db.games[i], true
}

// ByMD5 looks a game up by hex MD5. Case is ignored.
func (db *DB) ByMD5(sum string) (Game, bool) {
	i, ok := db.byMD5[strings.ToLower(sum)]
	if !ok {
		return Game{}, false
	}
	return db.games[i], true
}

// Identify looks up data by its CRC32.
func (db *DB) Identify(data []byte) (Game, bool) {
	return db.ByCRC32(crc32.ChecksumIEEE(data))
}

// IdentifyIn checks data against every .rdb file in dir and returns the
// first match. Unreadable databases are skipped.
func IdentifyIn(fs afero.Fs, dir string, data []byte) (Game, bool) {
	if dir == "" || len(data) == 0 {
		return Game{}, false
	}
	paths, err := afero.Glob(fs, filepath.Join(dir, "*.rdb"))
	if err != nil {
		return Game{}, false
	}
	sum := crc32.ChecksumIEEE(data)
	for _, p := range paths {
		db, err := Load(fs, p)
		if err != nil {
			continue
		}
		if g, ok := db.ByCRC32(sum); ok {
			return g, true
		}
	}
	return Game{}, false
}

// DisplayName strips region and revision tags from a No-Intro name.
func DisplayName(name string) string {
	if idx := strings.Index(name, " ("); idx > 0 {
		return strings.TrimSpace(name[:idx])
	}
	return name
}

// game reads n key/value pairs into a Game.
func (d *decoder) game(n int) (Game, error) {
	var g Game
	for i := 0; i < n; i++ {
		k, err := d.next()
		if err != nil {
			return g, err
		}
		v, err := d.next()
		if err != nil {
			return g, err
		}
		if v.kind == kindMap {
			if _, err := d.skipMap(int(v.num)); err != nil {
				return g, err
			}
			continue
		}
		if k.kind == kindStr {
			setField(&g, string(k.raw), v)
		}
	}
	return g, nil
}

func setField(g *Game, key string, v value) {
	switch key {
	case "name":
		g.Name = string(v.raw)
	case "description":
		g.Description = string(v.raw)
	case "genre":
		g.Genre = string(v.raw)
	case "developer":
		g.Developer = string(v.raw)
	case "publisher":
		g.Publisher = string(v.raw)
	case "franchise":
		g.Franchise = string(v.raw)
	case "serial":
		g.Serial = string(v.raw)
	case "rom_name":
		g.ROMName = string(v.raw)
	case "size":
		g.Size = v.uint()
	case "releasemonth":
		g.ReleaseMonth = uint(v.uint())
	case "releaseyear":
		g.ReleaseYear = uint(v.uint())
	case "crc":
		g.CRC32 = uint32(v.uint())
	case "md5":
		g.MD5 = hex.EncodeToString(v.raw)
	}
}

type kind int

const (
	kindNil kind = iota
	kindBool
	kindUint
	kindInt
	kindStr
	kindBin
	kindArray
	kindMap
)

// value is one decoded MessagePack item. Maps and arrays carry their
// element count in num; their elements follow in the stream.
type value struct {
	kind kind
	num  uint64
	raw  []byte
}

// uint reads numbers stored either as integers or as big-endian binary.
func (v value) uint() uint64 {
	switch v.kind {
	case kindUint, kindInt:
		return v.num
	case kindBin, kindStr:
		var n uint64
		for _, b := range v.raw {
			n = n<<8 | uint64(b)
		}
		return n
	}
	return 0
}

type decoder struct {
	data []byte
	pos  int
}

func (d *decoder) take(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.data) {
		return nil, ErrTruncated
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) length(size int) (int, error) {
	b, err := d.take(size)
	if err != nil {
		return 0, err
	}
	switch size {
	case 1:
		return int(b[0]), nil
	case 2:
		return int(binary.BigEndian.Uint16(b)), nil
	}
	return int(binary.BigEndian.Uint32(b)), nil
}

func (d *decoder) bytes(lenSize int) ([]byte, error) {
	n, err := d.length(lenSize)
	if err != nil {
		return nil, err
	}
	return d.take(n)
}

func (d *decoder) number(size int) (uint64, error) {
	b, err := d.take(size)
	if err != nil {
		return 0, err
	}
	var n uint64
	for _, c := range b {
		n = n<<8 | uint64(c)
	}
	return n, nil
}

// next decodes one item. Array elements are skipped since no rdb field
// uses them.
func (d *decoder) next() (value, error) {
	t, err := d.take(1)
	if err != nil {
		return value{}, err
	}
	c := t[0]
	switch {
	case c <= 0x7f:
		return value{kind: kindUint, num: uint64(c)}, nil
	case c <= 0x8f:
		return value{kind: kindMap, num: uint64(c & 0x0f)}, nil
	case c <= 0x9f:
		return d.skipArray(int(c & 0x0f))
	case c <= 0xbf:
		raw, err := d.take(int(c & 0x1f))
		return value{kind: kindStr, raw: raw}, err
	case c >= 0xe0:
		return value{kind: kindInt, num: uint64(int64(int8(c)))}, nil
	}

	switch c {
	case 0xc0:
		return value{kind: kindNil}, nil
	case 0xc2, 0xc3:
		return value{kind: kindBool, num: uint64(c - 0xc2)}, nil
	case 0xc4, 0xc5, 0xc6:
		raw, err := d.bytes(1 << (c - 0xc4))
		return value{kind: kindBin, raw: raw}, err
	case 0xcc, 0xcd, 0xce, 0xcf:
		n, err := d.number(1 << (c - 0xcc))
		return value{kind: kindUint, num: n}, err
	case 0xd0, 0xd1, 0xd2, 0xd3:
		size := 1 << (c - 0xd0)
		n, err := d.number(size)
		shift := 64 - 8*size
		return value{kind: kindInt, num: uint64(int64(n<<shift) >> shift)}, err
	case 0xd9, 0xda, 0xdb:
		raw, err := d.bytes(1 << (c - 0xd9))
		return value{kind: kindStr, raw: raw}, err
	case 0xdc, 0xdd:
		n, err := d.length(2 << (c - 0xdc))
		if err != nil {
			return value{}, err
		}
		return d.skipArray(n)
	case 0xde, 0xdf:
		n, err := d.length(2 << (c - 0xde))
		return value{kind: kindMap, num: uint64(n)}, err
	}
	return value{}, fmt.Errorf("unsupported MessagePack type 0x%02x at %d", c, d.pos-1)
}

func (d *decoder) skipArray(n int) (value, error) {
	for i := 0; i < n; i++ {
		v, err := d.next()
		if err != nil {
			return value{}, err
		}
		if v.kind == kindMap {
			if _, err := d.skipMap(int(v.num)); err != nil {
				return value{}, err
			}
		}
	}
	return value{kind: kindArray, num: uint64(n)}, nil
}

func (d *decoder) skipMap(n int) (value, error) {
	for i := 0; i < 2*n; i++ {
		v, err := d.next()
		if err != nil {
			return value{}, err
		}
		if v.kind == kindMap {
			if _, err := d.skipMap(int(v.num)); err != nil {
				return value{}, err
			}
		}
	}
	return value{kind: kindMap, num: uint64(n)}, nil
}
