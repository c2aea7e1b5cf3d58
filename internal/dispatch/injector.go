package dispatch

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// XDoToolInjector sends combos to the active window through xdotool.
type XDoToolInjector struct{}

// xdotool spellings for keys whose names differ from ours.
var xdotoolKeys = map[string]string{
	"esc":         "Escape",
	"enter":       "Return",
	"backspace":   "BackSpace",
	"delete":      "Delete",
	"insert":      "Insert",
	"space":       "space",
	"tab":         "Tab",
	"up":          "Up",
	"down":        "Down",
	"left":        "Left",
	"right":       "Right",
	"home":        "Home",
	"end":         "End",
	"pageup":      "Page_Up",
	"pagedown":    "Page_Down",
	"printscreen": "Print",
	"volumeup":    "XF86AudioRaiseVolume",
	"volumedown":  "XF86AudioLowerVolume",
	"mute":        "XF86AudioMute",
	"playpause":   "XF86AudioPlay",
	"nexttrack":   "XF86AudioNext",
	"prevtrack":   "XF86AudioPrev",
}

var xdotoolMods = map[string]string{
	"ctrl":  "ctrl",
	"shift": "shift",
	"alt":   "alt",
	"cmd":   "super",
}

func (i *XDoToolInjector) Send(combo Combo) error {
	parts := make([]string, 0, len(combo.Mods)+1)
	for _, mod := range combo.Mods {
		parts = append(parts, xdotoolMods[mod])
	}
	key := combo.Key
	if mapped, ok := xdotoolKeys[key]; ok {
		key = mapped
	} else if strings.HasPrefix(key, "f") && len(key) <= 3 {
		key = strings.ToUpper(key[:1]) + key[1:]
	}
	parts = append(parts, key)

	cmd := exec.Command("xdotool", "key", "--clearmodifiers", strings.Join(parts, "+"))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("xdotool: %s", msg)
		}
		return fmt.Errorf("xdotool: %w", err)
	}
	return nil
}

// NopInjector discards combos. Used while no injection backend is
// configured and in tests.
type NopInjector struct{}

func (NopInjector) Send(Combo) error { return nil }
