//go:build !headless

package frontend

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/user-none/retrohost/libretro"
)

// InputMapping maps RetroPad button IDs to ebiten inputs.
type InputMapping struct {
	Keys    map[int]ebiten.Key
	Gamepad map[int]ebiten.StandardGamepadButton
}

// keyNameMap maps key names used in the config to ebiten keys.
var keyNameMap = map[string]ebiten.Key{
	"A":          ebiten.KeyA,
	"B":          ebiten.KeyB,
	"C":          ebiten.KeyC,
	"D":          ebiten.KeyD,
	"E":          ebiten.KeyE,
	"F":          ebiten.KeyF,
	"G":          ebiten.KeyG,
	"H":          ebiten.KeyH,
	"I":          ebiten.KeyI,
	"J":          ebiten.KeyJ,
	"K":          ebiten.KeyK,
	"L":          ebiten.KeyL,
	"M":          ebiten.KeyM,
	"N":          ebiten.KeyN,
	"O":          ebiten.KeyO,
	"P":          ebiten.KeyP,
	"Q":          ebiten.KeyQ,
	"R":          ebiten.KeyR,
	"S":          ebiten.KeyS,
	"T":          ebiten.KeyT,
	"U":          ebiten.KeyU,
	"V":          ebiten.KeyV,
	"W":          ebiten.KeyW,
	"X":          ebiten.KeyX,
	"Y":          ebiten.KeyY,
	"Z":          ebiten.KeyZ,
	"0":          ebiten.Key0,
	"1":          ebiten.Key1,
	"2":          ebiten.Key2,
	"3":          ebiten.Key3,
	"4":          ebiten.Key4,
	"5":          ebiten.Key5,
	"6":          ebiten.Key6,
	"7":          ebiten.Key7,
	"8":          ebiten.Key8,
	"9":          ebiten.Key9,
	"Enter":      ebiten.KeyEnter,
	"Backspace":  ebiten.KeyBackspace,
	"Space":      ebiten.KeySpace,
	"Semicolon":  ebiten.KeySemicolon,
	"Comma":      ebiten.KeyComma,
	"Period":     ebiten.KeyPeriod,
	"Slash":      ebiten.KeySlash,
	"Tab":        ebiten.KeyTab,
	"Escape":     ebiten.KeyEscape,
	"Shift":      ebiten.KeyShift,
	"ArrowUp":    ebiten.KeyArrowUp,
	"ArrowDown":  ebiten.KeyArrowDown,
	"ArrowLeft":  ebiten.KeyArrowLeft,
	"ArrowRight": ebiten.KeyArrowRight,
	"[":          ebiten.KeyLeftBracket,
	"]":          ebiten.KeyRightBracket,
	"-":          ebiten.KeyMinus,
	"=":          ebiten.KeyEqual,
	"'":          ebiten.KeyApostrophe,
	"F1":         ebiten.KeyF1,
	"F2":         ebiten.KeyF2,
	"F3":         ebiten.KeyF3,
	"F4":         ebiten.KeyF4,
	"F5":         ebiten.KeyF5,
	"F6":         ebiten.KeyF6,
	"F7":         ebiten.KeyF7,
	"F8":         ebiten.KeyF8,
	"F9":         ebiten.KeyF9,
	"F10":        ebiten.KeyF10,
	"F11":        ebiten.KeyF11,
	"F12":        ebiten.KeyF12,
}

// padNameMap maps pad button names used in the config to ebiten buttons.
var padNameMap = map[string]ebiten.StandardGamepadButton{
	"A":         ebiten.StandardGamepadButtonRightBottom,
	"B":         ebiten.StandardGamepadButtonRightRight,
	"X":         ebiten.StandardGamepadButtonRightLeft,
	"Y":         ebiten.StandardGamepadButtonRightTop,
	"L1":        ebiten.StandardGamepadButtonFrontTopLeft,
	"R1":        ebiten.StandardGamepadButtonFrontTopRight,
	"L2":        ebiten.StandardGamepadButtonFrontBottomLeft,
	"R2":        ebiten.StandardGamepadButtonFrontBottomRight,
	"Start":     ebiten.StandardGamepadButtonCenterRight,
	"Select":    ebiten.StandardGamepadButtonCenterLeft,
	"DpadUp":    ebiten.StandardGamepadButtonLeftTop,
	"DpadDown":  ebiten.StandardGamepadButtonLeftBottom,
	"DpadLeft":  ebiten.StandardGamepadButtonLeftLeft,
	"DpadRight": ebiten.StandardGamepadButtonLeftRight,
	"L3":        ebiten.StandardGamepadButtonLeftStick,
	"R3":        ebiten.StandardGamepadButtonRightStick,
}

// reservedKeys drive host functions and cannot be bound to buttons.
var reservedKeys = map[ebiten.Key]bool{
	ebiten.KeyEscape:  true, // Pause
	ebiten.KeyF1:      true, // Save state
	ebiten.KeyF2:      true, // Cycle slot
	ebiten.KeyF3:      true, // Load state
	ebiten.KeyF4:      true, // Fast forward
	ebiten.KeyF5:      true, // Reset
	ebiten.KeyF11:     true, // Fullscreen
	ebiten.KeyF12:     true, // Screenshot
	ebiten.KeyR:       true, // Rewind (hold)
	ebiten.KeyShift:   true, // Modifier (Shift+F2)
	ebiten.KeyControl: true,
	ebiten.KeyAlt:     true,
	ebiten.KeyMeta:    true,
}

// IsReservedKey reports whether k is used by the host.
func IsReservedKey(k ebiten.Key) bool {
	return reservedKeys[k]
}

// ParseKey converts a key name to an ebiten.Key.
func ParseKey(name string) (ebiten.Key, bool) {
	k, ok := keyNameMap[name]
	return k, ok
}

// ParsePad converts a pad button name to an ebiten.StandardGamepadButton.
func ParsePad(name string) (ebiten.StandardGamepadButton, bool) {
	b, ok := padNameMap[name]
	return b, ok
}

// RetroPadButton is a bindable RetroPad button and its default bindings.
type RetroPadButton struct {
	Name       string
	ID         int
	DefaultKey string
	DefaultPad string
}

// RetroPadButtons lists every RetroPad button by config name.
var RetroPadButtons = []RetroPadButton{
	{"Up", libretro.JoypadUp, "W", "DpadUp"},
	{"Down", libretro.JoypadDown, "S", "DpadDown"},
	{"Left", libretro.JoypadLeft, "A", "DpadLeft"},
	{"Right", libretro.JoypadRight, "D", "DpadRight"},
	{"B", libretro.JoypadB, "K", "A"},
	{"A", libretro.JoypadA, "L", "B"},
	{"Y", libretro.JoypadY, "J", "X"},
	{"X", libretro.JoypadX, "I", "Y"},
	{"L", libretro.JoypadL, "Q", "L1"},
	{"R", libretro.JoypadR, "E", "R1"},
	{"L2", libretro.JoypadL2, "1", "L2"},
	{"R2", libretro.JoypadR2, "3", "R2"},
	{"L3", libretro.JoypadL3, "Z", "L3"},
	{"R3", libretro.JoypadR3, "C", "R3"},
	{"Select", libretro.JoypadSelect, "Backspace", "Select"},
	{"Start", libretro.JoypadStart, "Enter", "Start"},
}

// BuildMappingFromConfig builds a mapping from config overrides keyed by
// button name, falling back to the defaults. Invalid or reserved
// overrides leave the button unbound on that device.
func BuildMappingFromConfig(kbOverrides, padOverrides map[string]string) InputMapping {
	m := InputMapping{
		Keys:    make(map[int]ebiten.Key),
		Gamepad: make(map[int]ebiten.StandardGamepadButton),
	}
	for _, btn := range RetroPadButtons {
		keyName := btn.DefaultKey
		if override, ok := kbOverrides[btn.Name]; ok {
			keyName = override
		}
		if k, ok := ParseKey(keyName); ok && !reservedKeys[k] {
			m.Keys[btn.ID] = k
		}

		padName := btn.DefaultPad
		if override, ok := padOverrides[btn.Name]; ok {
			padName = override
		}
		if b, ok := ParsePad(padName); ok {
			m.Gamepad[btn.ID] = b
		}
	}
	return m
}

// analogThreshold is how far the left stick must move to press a d-pad
// direction.
const analogThreshold = 0.25

// axisToInt16 scales an axis in [-1, 1] to the core's analog range.
func axisToInt16(v float64) int16 {
	v = math.Max(-1, math.Min(1, v))
	return int16(math.Round(v * 32767))
}

// PollPort reads one port. The keyboard only feeds the first port.
func PollPort(mapping InputMapping, gamepadID ebiten.GamepadID, hasGamepad, keyboard bool) PortState {
	var st PortState

	if keyboard {
		for id, key := range mapping.Keys {
			if ebiten.IsKeyPressed(key) {
				st.Buttons |= 1 << uint(id)
			}
		}
	}
	if !hasGamepad {
		return st
	}

	for id, padBtn := range mapping.Gamepad {
		if ebiten.IsStandardGamepadButtonPressed(gamepadID, padBtn) {
			st.Buttons |= 1 << uint(id)
		}
	}

	lx := ebiten.StandardGamepadAxisValue(gamepadID, ebiten.StandardGamepadAxisLeftStickHorizontal)
	ly := ebiten.StandardGamepadAxisValue(gamepadID, ebiten.StandardGamepadAxisLeftStickVertical)
	rx := ebiten.StandardGamepadAxisValue(gamepadID, ebiten.StandardGamepadAxisRightStickHorizontal)
	ry := ebiten.StandardGamepadAxisValue(gamepadID, ebiten.StandardGamepadAxisRightStickVertical)
	st.Analog[libretro.AnalogLeft][libretro.AnalogX] = axisToInt16(lx)
	st.Analog[libretro.AnalogLeft][libretro.AnalogY] = axisToInt16(ly)
	st.Analog[libretro.AnalogRight][libretro.AnalogX] = axisToInt16(rx)
	st.Analog[libretro.AnalogRight][libretro.AnalogY] = axisToInt16(ry)

	st.Buttons |= stickButtons(mapping, lx, ly)
	return st
}

// stickButtons presses whichever RetroPad buttons the d-pad is mapped to
// when the left stick leans that way, so the stick follows d-pad remaps.
func stickButtons(mapping InputMapping, axisX, axisY float64) uint16 {
	var buttons uint16
	for id, padBtn := range mapping.Gamepad {
		switch padBtn {
		case ebiten.StandardGamepadButtonLeftLeft:
			if axisX < -analogThreshold {
				buttons |= 1 << uint(id)
			}
		case ebiten.StandardGamepadButtonLeftRight:
			if axisX > analogThreshold {
				buttons |= 1 << uint(id)
			}
		case ebiten.StandardGamepadButtonLeftTop:
			if axisY < -analogThreshold {
				buttons |= 1 << uint(id)
			}
		case ebiten.StandardGamepadButtonLeftBottom:
			if axisY > analogThreshold {
				buttons |= 1 << uint(id)
			}
		}
	}
	return buttons
}
