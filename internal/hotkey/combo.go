package hotkey

import (
	"strings"

	"github.com/mhalvorsen/dictata/internal/config"
)

// Combo is a resolved hotkey combination with the trigger key parsed to a code.
type Combo struct {
	Ctrl  bool
	Alt   bool
	Shift bool
	Super bool
	// Trigger is the non-modifier key code required alongside the
	// modifiers; 0 means modifiers alone activate the combo.
	Trigger uint16
}

// ComboFromConfig resolves the configured hotkey into a Combo.
func ComboFromConfig(cfg config.HotkeyConfig) (Combo, error) {
	trigger, err := ParseTriggerKey(cfg.TriggerKey)
	if err != nil {
		return Combo{}, err
	}
	return Combo{
		Ctrl:    cfg.Ctrl,
		Alt:     cfg.Alt,
		Shift:   cfg.Shift,
		Super:   cfg.Super,
		Trigger: trigger,
	}, nil
}

// configured reports whether the combo can ever activate.
func (c Combo) configured() bool {
	return c.Ctrl || c.Alt || c.Shift || c.Super || c.Trigger != 0
}

// Active reports whether exactly the configured combination is held down:
// every configured modifier pressed, every unconfigured modifier released,
// the trigger key (when set) pressed, and no other non-modifier key pressed.
func (c Combo) Active(pressed map[uint16]struct{}) bool {
	if !c.configured() {
		return false
	}

	has := func(code uint16) bool {
		_, ok := pressed[code]
		return ok
	}
	pair := func(want bool, left, right uint16) bool {
		if want {
			return has(left) || has(right)
		}
		return !has(left) && !has(right)
	}

	if !pair(c.Ctrl, KeyLeftCtrl, KeyRightCtrl) {
		return false
	}
	if !pair(c.Alt, KeyLeftAlt, KeyRightAlt) {
		return false
	}
	if !pair(c.Shift, KeyLeftShift, KeyRightShift) {
		return false
	}
	if !pair(c.Super, KeyLeftMeta, KeyRightMeta) {
		return false
	}
	if c.Trigger != 0 && !has(c.Trigger) {
		return false
	}

	// Reject when any stray non-modifier key is held, so e.g. Ctrl+PrtSc
	// does not activate a Ctrl+Super combo.
	for code := range pressed {
		if IsModifier(code) || code == c.Trigger {
			continue
		}
		return false
	}
	return true
}

// String renders the combo for logs ("Ctrl+Super", "Ctrl+Alt+space").
func (c Combo) String() string {
	parts := make([]string, 0, 5)
	if c.Ctrl {
		parts = append(parts, "Ctrl")
	}
	if c.Alt {
		parts = append(parts, "Alt")
	}
	if c.Shift {
		parts = append(parts, "Shift")
	}
	if c.Super {
		parts = append(parts, "Super")
	}
	if c.Trigger != 0 {
		parts = append(parts, keyName(c.Trigger))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}
