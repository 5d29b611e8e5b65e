package libretro

import (
	"strings"
	"sync"
)

// Variable is one core option.
type Variable struct {
	Key         string
	Description string
	Info        string
	Choices     []string
	Default     string
	Value       string
	Visible     bool
}

// Variables holds the options a core declared and their current values.
// The core reads them from its own thread while the frontend may change
// them from another.
type Variables struct {
	mu        sync.Mutex
	order     []string
	vars      map[string]*Variable
	overrides map[string]string
	dirty     bool
}

func NewVariables() *Variables {
	return &Variables{vars: make(map[string]*Variable)}
}

// parseLegacyVariable splits a "Description; first|second|third" value.
// The first choice is the default.
func parseLegacyVariable(decl string) (desc string, choices []string) {
	desc, list, ok := strings.Cut(decl, ";")
	if !ok {
		return strings.TrimSpace(decl), nil
	}
	for _, c := range strings.Split(strings.TrimSpace(list), "|") {
		if c != "" {
			choices = append(choices, c)
		}
	}
	return strings.TrimSpace(desc), choices
}

// SetOverrides sets user values applied when options are defined. Values
// that are not valid choices are ignored.
func (v *Variables) SetOverrides(overrides map[string]string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.overrides = overrides
	for key, val := range overrides {
		if vr, ok := v.vars[key]; ok && vr.hasChoice(val) && vr.Value != val {
			vr.Value = val
			v.dirty = true
		}
	}
}

// DefineLegacy registers a variable from the SET_VARIABLES declaration form.
func (v *Variables) DefineLegacy(key, decl string) {
	desc, choices := parseLegacyVariable(decl)
	def := ""
	if len(choices) > 0 {
		def = choices[0]
	}
	v.Define(Variable{Key: key, Description: desc, Choices: choices, Default: def})
}

// Define registers or replaces a variable. The current value starts at the
// user override when it is a valid choice, else the default.
func (v *Variables) Define(def Variable) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if def.Default == "" && len(def.Choices) > 0 {
		def.Default = def.Choices[0]
	}
	def.Value = def.Default
	def.Visible = true
	if o, ok := v.overrides[def.Key]; ok && def.hasChoice(o) {
		def.Value = o
	}
	if _, exists := v.vars[def.Key]; !exists {
		v.order = append(v.order, def.Key)
	}
	d := def
	v.vars[def.Key] = &d
	v.dirty = true
}

// Clear removes every variable. Overrides are kept.
func (v *Variables) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.order = nil
	v.vars = make(map[string]*Variable)
	v.dirty = false
}

// Get returns the current value of key.
func (v *Variables) Get(key string) (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	vr, ok := v.vars[key]
	if !ok {
		return "", false
	}
	return vr.Value, true
}

// Set changes the value of key. It fails for unknown keys and for values
// that are not among the declared choices.
func (v *Variables) Set(key, value string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	vr, ok := v.vars[key]
	if !ok || !vr.hasChoice(value) {
		return false
	}
	if vr.Value != value {
		vr.Value = value
		v.dirty = true
	}
	return true
}

// SetVisible changes whether a frontend should show key.
func (v *Variables) SetVisible(key string, visible bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if vr, ok := v.vars[key]; ok {
		vr.Visible = visible
	}
}

// TakeUpdate reports whether any value changed since the last call and
// clears the flag.
func (v *Variables) TakeUpdate() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	d := v.dirty
	v.dirty = false
	return d
}

// List returns copies of all variables in declaration order.
func (v *Variables) List() []Variable {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Variable, 0, len(v.order))
	for _, k := range v.order {
		vr := *v.vars[k]
		vr.Choices = append([]string(nil), vr.Choices...)
		out = append(out, vr)
	}
	return out
}

// Values returns the current value of every variable.
func (v *Variables) Values() map[string]string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(map[string]string, len(v.vars))
	for k, vr := range v.vars {
		out[k] = vr.Value
	}
	return out
}

func (vr *Variable) hasChoice(value string) bool {
	if len(vr.Choices) == 0 {
		return true
	}
	for _, c := range vr.Choices {
		if c == value {
			return true
		}
	}
	return false
}
