// Package hotkey detects the configured push-to-talk combination from raw
// keyboard input devices. On Wayland there is no portable global-hotkey API,
// so key edges are read directly from /dev/input/event* devices, which
// requires membership in the "input" group.
package hotkey

import (
	"fmt"
	"strings"
)

// Linux input event key codes (linux/input-event-codes.h).
const (
	KeyEsc uint16 = 1

	KeyLeftCtrl   uint16 = 29
	KeyLeftShift  uint16 = 42
	KeyRightShift uint16 = 54
	KeyLeftAlt    uint16 = 56
	KeyRightCtrl  uint16 = 97
	KeyRightAlt   uint16 = 100
	KeyLeftMeta   uint16 = 125
	KeyRightMeta  uint16 = 126

	KeySpace uint16 = 57
	KeyEnter uint16 = 28
	KeyTab   uint16 = 15
)

// modifierKeys is the set excluded from "extra key pressed" checks.
var modifierKeys = map[uint16]struct{}{
	KeyLeftCtrl: {}, KeyRightCtrl: {},
	KeyLeftShift: {}, KeyRightShift: {},
	KeyLeftAlt: {}, KeyRightAlt: {},
	KeyLeftMeta: {}, KeyRightMeta: {},
}

// IsModifier reports whether a key code is a modifier key.
func IsModifier(code uint16) bool {
	_, ok := modifierKeys[code]
	return ok
}

// namedKeys maps trigger-key config names to key codes.
var namedKeys = map[string]uint16{
	"esc": KeyEsc, "escape": KeyEsc,
	"space": KeySpace,
	"enter": KeyEnter, "return": KeyEnter,
	"tab": KeyTab,

	"1": 2, "2": 3, "3": 4, "4": 5, "5": 6,
	"6": 7, "7": 8, "8": 9, "9": 10, "0": 11,

	"q": 16, "w": 17, "e": 18, "r": 19, "t": 20, "y": 21,
	"u": 22, "i": 23, "o": 24, "p": 25,
	"a": 30, "s": 31, "d": 32, "f": 33, "g": 34, "h": 35,
	"j": 36, "k": 37, "l": 38,
	"z": 44, "x": 45, "c": 46, "v": 47, "b": 48, "n": 49, "m": 50,

	"f1": 59, "f2": 60, "f3": 61, "f4": 62, "f5": 63,
	"f6": 64, "f7": 65, "f8": 66, "f9": 67, "f10": 68,
	"f11": 87, "f12": 88,
}

// keyName returns a stable display name for a key code.
func keyName(code uint16) string {
	best := ""
	for name, c := range namedKeys {
		if c != code {
			continue
		}
		if best == "" || len(name) < len(best) || (len(name) == len(best) && name < best) {
			best = name
		}
	}
	if best == "" {
		return fmt.Sprintf("key%d", code)
	}
	return best
}

// ParseTriggerKey resolves a trigger-key config name to its key code.
// An empty name means no trigger key and resolves to code 0.
func ParseTriggerKey(name string) (uint16, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return 0, nil
	}
	code, ok := namedKeys[name]
	if !ok {
		return 0, fmt.Errorf("unknown trigger key %q", name)
	}
	return code, nil
}
