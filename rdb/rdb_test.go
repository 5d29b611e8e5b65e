package rdb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"testing"

	"github.com/spf13/afero"
)

// builder writes the subset of MessagePack that rdb files use.
type builder struct{ bytes.Buffer }

func newBuilder() *builder {
	b := &builder{}
	b.WriteString(magic)
	b.Write(make([]byte, headerSize-len(magic)))
	return b
}

func (b *builder) mapHeader(n int) {
	if n < 16 {
		b.WriteByte(0x80 | byte(n))
		return
	}
	b.WriteByte(0xde)
	binary.Write(b, binary.BigEndian, uint16(n))
}

func (b *builder) str(s string) {
	if len(s) < 32 {
		b.WriteByte(0xa0 | byte(len(s)))
	} else {
		b.WriteByte(0xd9)
		b.WriteByte(byte(len(s)))
	}
	b.WriteString(s)
}

func (b *builder) bin(v []byte) {
	b.WriteByte(0xc4)
	b.WriteByte(byte(len(v)))
	b.Write(v)
}

func (b *builder) uint32(v uint32) {
	b.WriteByte(0xce)
	binary.Write(b, binary.BigEndian, v)
}

func (b *builder) game(name string, crc uint32, md5 []byte, year uint32) {
	b.mapHeader(4)
	b.str("name")
	b.str(name)
	b.str("crc")
	var c [4]byte
	binary.BigEndian.PutUint32(c[:], crc)
	b.bin(c[:])
	b.str("md5")
	b.bin(md5)
	b.str("releaseyear")
	b.uint32(year)
}

func sampleDB(t *testing.T) []byte {
	t.Helper()
	b := newBuilder()
	b.game("Sonic the Hedgehog (USA, Europe)", 0x12345678, []byte{0xAB, 0xCD, 0xEF, 0x01}, 1991)
	b.game("Alex Kidd in Miracle World (Europe)", 0xAABBCCDD, []byte{0x01, 0x02}, 1986)

	// A record with fields the host ignores.
	b.mapHeader(3)
	b.str("name")
	b.str("Wonder Boy")
	b.str("size")
	b.WriteByte(0xcd)
	binary.Write(b, binary.BigEndian, uint16(0x8000))
	b.str("tags")
	b.WriteByte(0x92)
	b.str("a")
	b.WriteByte(0x05)

	b.WriteByte(0xc0)
	return b.Bytes()
}

func TestParse(t *testing.T) {
	db, err := Parse(sampleDB(t))
	if err != nil {
		t.Fatal(err)
	}
	if db.Len() != 3 {
		t.Fatalf("games = %d, want 3", db.Len())
	}

	g, ok := db.ByCRC32(0x12345678)
	if !ok {
		t.Fatal("CRC lookup failed")
	}
	if g.Name != "Sonic the Hedgehog (USA, Europe)" || g.ReleaseYear != 1991 || g.MD5 != "abcdef01" {
		t.Errorf("game = %+v", g)
	}
	if g, ok := db.ByMD5("ABCDEF01"); !ok || g.CRC32 != 0x12345678 {
		t.Errorf("MD5 lookup = %+v, %v", g, ok)
	}
	if _, ok := db.ByCRC32(0); ok {
		t.Error("zero CRC matched")
	}
	if _, ok := db.ByMD5("nonexistent"); ok {
		t.Error("unknown MD5 matched")
	}
}

func TestParse_LargeMapAndLongStrings(t *testing.T) {
	b := newBuilder()
	b.mapHeader(16)
	b.str("description")
	long := "A very long description that does not fit a fixstr"
	b.str(long)
	b.str("crc")
	b.uint32(0x01020304)
	for i := 0; i < 14; i++ {
		b.str("x")
		b.WriteByte(0xff) // -1
	}
	b.WriteByte(0xc0)

	db, err := Parse(b.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	g, ok := db.ByCRC32(0x01020304)
	if !ok || g.Description != long {
		t.Errorf("game = %+v, %v", g, ok)
	}
}

func TestParse_Errors(t *testing.T) {
	if _, err := Parse(nil); !errors.Is(err, ErrBadMagic) {
		t.Errorf("empty = %v", err)
	}
	if _, err := Parse(make([]byte, headerSize)); !errors.Is(err, ErrBadMagic) {
		t.Errorf("zero header = %v", err)
	}

	data := sampleDB(t)
	if _, err := Parse(data[:len(data)-10]); !errors.Is(err, ErrTruncated) {
		t.Errorf("truncated = %v", err)
	}

	b := newBuilder()
	b.WriteByte(0xc1)
	if _, err := Parse(b.Bytes()); err == nil {
		t.Error("reserved type accepted")
	}
}

func TestParse_EmptyDatabase(t *testing.T) {
	b := newBuilder()
	b.WriteByte(0xc0)
	db, err := Parse(b.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if db.Len() != 0 {
		t.Errorf("games = %d", db.Len())
	}
}

func TestIdentifyIn(t *testing.T) {
	rom := []byte("not really a cartridge")
	b := newBuilder()
	b.game("Test Cart (World) (Rev 1)", crc32.ChecksumIEEE(rom), []byte{1}, 2020)
	b.WriteByte(0xc0)

	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/db/broken.rdb", []byte("garbage"), 0644)
	afero.WriteFile(fs, "/db/test.rdb", b.Bytes(), 0644)

	g, ok := IdentifyIn(fs, "/db", rom)
	if !ok {
		t.Fatal("content not identified")
	}
	if DisplayName(g.Name) != "Test Cart" {
		t.Errorf("display name = %q", DisplayName(g.Name))
	}

	if _, ok := IdentifyIn(fs, "/db", []byte("other")); ok {
		t.Error("unknown content identified")
	}
	if _, ok := IdentifyIn(fs, "", rom); ok {
		t.Error("identified without a directory")
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"USA region", "Sonic the Hedgehog (USA)", "Sonic the Hedgehog"},
		{"Multi-region", "Sonic the Hedgehog (USA, Europe)", "Sonic the Hedgehog"},
		{"With revision", "Zillion (Japan) (Rev 2)", "Zillion"},
		{"No parentheses", "Wonder Boy", "Wonder Boy"},
		{"Empty string", "", ""},
		{"Only parentheses", "(USA)", "(USA)"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DisplayName(tc.input); got != tc.expected {
				t.Errorf("DisplayName(%q) = %q, want %q", tc.input, got, tc.expected)
			}
		})
	}
}
