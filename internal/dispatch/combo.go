package dispatch

import (
	"fmt"
	"strings"
)

// Combo is a parsed keyboard shortcut: zero or more modifiers plus one key.
type Combo struct {
	Mods []string // normalized, in declaration order
	Key  string   // single character or named key
}

func (c Combo) String() string {
	if len(c.Mods) == 0 {
		return c.Key
	}
	return strings.Join(c.Mods, "+") + "+" + c.Key
}

var modifierAliases = map[string]string{
	"ctrl":    "ctrl",
	"control": "ctrl",
	"shift":   "shift",
	"alt":     "alt",
	"option":  "alt",
	"cmd":     "cmd",
	"command": "cmd",
	"super":   "cmd",
	"win":     "cmd",
}

var keyAliases = map[string]string{
	"return": "enter",
	"escape": "esc",
	"del":    "delete",
	"pgup":   "pageup",
	"pgdown": "pagedown",
}

var namedKeys = map[string]struct{}{
	"space": {}, "enter": {}, "tab": {}, "esc": {}, "backspace": {},
	"delete": {}, "insert": {},
	"up": {}, "down": {}, "left": {}, "right": {},
	"home": {}, "end": {}, "pageup": {}, "pagedown": {},
	"f1": {}, "f2": {}, "f3": {}, "f4": {}, "f5": {}, "f6": {},
	"f7": {}, "f8": {}, "f9": {}, "f10": {}, "f11": {}, "f12": {},
	"volumeup": {}, "volumedown": {}, "mute": {},
	"playpause": {}, "nexttrack": {}, "prevtrack": {},
	"printscreen": {},
}

// ParseCombo parses "modifier+modifier+key" into a Combo. Modifiers are
// ctrl, shift, alt and cmd (with common aliases); the final token must be
// a single printable character or a named key.
func ParseCombo(s string) (Combo, error) {
	trimmed := strings.TrimSpace(strings.ToLower(s))
	if trimmed == "" {
		return Combo{}, fmt.Errorf("empty key combo")
	}

	parts := strings.Split(trimmed, "+")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
		if parts[i] == "" {
			return Combo{}, fmt.Errorf("malformed key combo %q", s)
		}
	}

	var combo Combo
	seen := map[string]bool{}
	for _, part := range parts[:len(parts)-1] {
		mod, ok := modifierAliases[part]
		if !ok {
			return Combo{}, fmt.Errorf("unknown modifier %q in combo %q", part, s)
		}
		if seen[mod] {
			return Combo{}, fmt.Errorf("duplicate modifier %q in combo %q", mod, s)
		}
		seen[mod] = true
		combo.Mods = append(combo.Mods, mod)
	}

	key := parts[len(parts)-1]
	if alias, ok := keyAliases[key]; ok {
		key = alias
	}
	if len([]rune(key)) != 1 {
		if _, ok := namedKeys[key]; !ok {
			return Combo{}, fmt.Errorf("unknown key %q in combo %q", key, s)
		}
	}
	combo.Key = key
	return combo, nil
}

// ValidCombo reports whether s parses as a key combo.
func ValidCombo(s string) bool {
	_, err := ParseCombo(s)
	return err == nil
}
