//go:build !headless

package frontend

import (
	"math"
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/user-none/retrohost/libretro"
)

func TestParseKeyValid(t *testing.T) {
	tests := []struct {
		name string
		want ebiten.Key
	}{
		{"J", ebiten.KeyJ},
		{"K", ebiten.KeyK},
		{"Enter", ebiten.KeyEnter},
		{"Semicolon", ebiten.KeySemicolon},
		{"Space", ebiten.KeySpace},
		{"F5", ebiten.KeyF5},
		{"1", ebiten.Key1},
	}
	for _, tt := range tests {
		k, ok := ParseKey(tt.name)
		if !ok {
			t.Errorf("ParseKey(%q) returned false, want true", tt.name)
		}
		if k != tt.want {
			t.Errorf("ParseKey(%q) = %v, want %v", tt.name, k, tt.want)
		}
	}
}

func TestParseKeyInvalid(t *testing.T) {
	invalids := []string{"", "jj", "enter", "ENTER", "F13", "Unknown"}
	for _, name := range invalids {
		if _, ok := ParseKey(name); ok {
			t.Errorf("ParseKey(%q) returned true, want false", name)
		}
	}
}

func TestParsePadValid(t *testing.T) {
	tests := []struct {
		name string
		want ebiten.StandardGamepadButton
	}{
		{"A", ebiten.StandardGamepadButtonRightBottom},
		{"B", ebiten.StandardGamepadButtonRightRight},
		{"L2", ebiten.StandardGamepadButtonFrontBottomLeft},
		{"L3", ebiten.StandardGamepadButtonLeftStick},
		{"Start", ebiten.StandardGamepadButtonCenterRight},
		{"DpadLeft", ebiten.StandardGamepadButtonLeftLeft},
	}
	for _, tt := range tests {
		b, ok := ParsePad(tt.name)
		if !ok {
			t.Errorf("ParsePad(%q) returned false, want true", tt.name)
		}
		if b != tt.want {
			t.Errorf("ParsePad(%q) = %v, want %v", tt.name, b, tt.want)
		}
	}
}

func TestParsePadInvalid(t *testing.T) {
	for _, name := range []string{"", "a", "start", "Home", "Unknown"} {
		if _, ok := ParsePad(name); ok {
			t.Errorf("ParsePad(%q) returned true, want false", name)
		}
	}
}

func TestIsReservedKey(t *testing.T) {
	for _, k := range []ebiten.Key{ebiten.KeyEscape, ebiten.KeyF1, ebiten.KeyF12, ebiten.KeyShift} {
		if !IsReservedKey(k) {
			t.Errorf("%v not reserved", k)
		}
	}
	if IsReservedKey(ebiten.KeyJ) {
		t.Error("J reserved")
	}
}

func TestBuildMappingDefaults(t *testing.T) {
	m := BuildMappingFromConfig(nil, nil)

	if len(m.Keys) != len(RetroPadButtons) || len(m.Gamepad) != len(RetroPadButtons) {
		t.Fatalf("mapped %d keys and %d pad buttons, want %d", len(m.Keys), len(m.Gamepad), len(RetroPadButtons))
	}
	if m.Keys[libretro.JoypadB] != ebiten.KeyK {
		t.Errorf("B key = %v, want K", m.Keys[libretro.JoypadB])
	}
	if m.Keys[libretro.JoypadStart] != ebiten.KeyEnter {
		t.Errorf("Start key = %v, want Enter", m.Keys[libretro.JoypadStart])
	}
	if m.Gamepad[libretro.JoypadB] != ebiten.StandardGamepadButtonRightBottom {
		t.Errorf("B pad = %v", m.Gamepad[libretro.JoypadB])
	}
	for _, k := range m.Keys {
		if IsReservedKey(k) {
			t.Errorf("default binding uses reserved key %v", k)
		}
	}
}

func TestBuildMappingOverrides(t *testing.T) {
	m := BuildMappingFromConfig(
		map[string]string{"A": "Space", "B": "F1", "Start": "Bogus"},
		map[string]string{"A": "R1", "Select": "nope"},
	)

	if m.Keys[libretro.JoypadA] != ebiten.KeySpace {
		t.Errorf("A key = %v, want Space", m.Keys[libretro.JoypadA])
	}
	if _, ok := m.Keys[libretro.JoypadB]; ok {
		t.Error("reserved override should leave B unbound")
	}
	if _, ok := m.Keys[libretro.JoypadStart]; ok {
		t.Error("invalid override should leave Start unbound")
	}
	if m.Keys[libretro.JoypadY] != ebiten.KeyJ {
		t.Errorf("Y key = %v, want default J", m.Keys[libretro.JoypadY])
	}
	if m.Gamepad[libretro.JoypadA] != ebiten.StandardGamepadButtonFrontTopRight {
		t.Errorf("A pad = %v, want R1", m.Gamepad[libretro.JoypadA])
	}
	if _, ok := m.Gamepad[libretro.JoypadSelect]; ok {
		t.Error("invalid pad override should leave Select unbound")
	}
}

func TestAxisToInt16(t *testing.T) {
	tests := []struct {
		in   float64
		want int16
	}{
		{0, 0},
		{1, 32767},
		{-1, -32767},
		{0.5, 16384},
		{2, 32767},
		{-3, -32767},
	}
	for _, tt := range tests {
		if got := axisToInt16(tt.in); got != tt.want {
			t.Errorf("axisToInt16(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestStickButtons(t *testing.T) {
	m := BuildMappingFromConfig(nil, nil)

	if got := stickButtons(m, 0.1, -0.1); got != 0 {
		t.Errorf("dead zone pressed %016b", got)
	}
	if got := stickButtons(m, -0.9, 0); got != 1<<libretro.JoypadLeft {
		t.Errorf("left = %016b", got)
	}
	if got := stickButtons(m, 0.9, 0.9); got != 1<<libretro.JoypadRight|1<<libretro.JoypadDown {
		t.Errorf("down-right = %016b", got)
	}

	// Swapping the d-pad bindings moves the stick with them.
	swapped := BuildMappingFromConfig(nil, map[string]string{"Up": "DpadDown", "Down": "DpadUp"})
	if got := stickButtons(swapped, 0, -0.9); got != 1<<libretro.JoypadDown {
		t.Errorf("swapped up = %016b", got)
	}
}

func TestFitRect(t *testing.T) {
	approx := func(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

	// 4:3 frame in a 16:9 screen is pillarboxed.
	sx, sy, ox, oy := fitRect(1920, 1080, 320, 240, 4.0/3.0)
	if !approx(sx, 4.5) || !approx(sy, 4.5) || !approx(ox, 240) || !approx(oy, 0) {
		t.Errorf("pillarbox = %v %v %v %v", sx, sy, ox, oy)
	}

	// Non-square pixels stretch horizontally.
	sx, sy, ox, oy = fitRect(640, 480, 256, 240, 4.0/3.0)
	if !approx(sy, 2) || !approx(sx, 2.5) || !approx(ox, 0) || !approx(oy, 0) {
		t.Errorf("stretch = %v %v %v %v", sx, sy, ox, oy)
	}

	// Zero aspect uses the frame's own shape.
	sx, sy, _, oy = fitRect(400, 400, 200, 100, 0)
	if !approx(sx, 2) || !approx(sy, 2) || !approx(oy, 100) {
		t.Errorf("square pixels = %v %v %v", sx, sy, oy)
	}
}
