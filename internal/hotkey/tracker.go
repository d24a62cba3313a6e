package hotkey

import "time"

// Intent is a high-level recording command derived from key edges.
type Intent int

const (
	IntentNone Intent = iota
	IntentStart
	IntentStop
	IntentCancel
)

// String renders intents for logs.
func (i Intent) String() string {
	switch i {
	case IntentStart:
		return "start"
	case IntentStop:
		return "stop"
	case IntentCancel:
		return "cancel"
	default:
		return "none"
	}
}

// Key event values reported by the kernel.
const (
	keyValueRelease = 0
	keyValuePress   = 1
	keyValueRepeat  = 2
)

// quickTapThreshold separates a deliberate hold-to-dictate from a tap that
// means "never mind".
const quickTapThreshold = 200 * time.Millisecond

// tracker maintains the pressed-key set and the Idle/Recording hotkey state
// machine. It is driven by a single goroutine and never shared.
type tracker struct {
	combo   Combo
	pressed map[uint16]struct{}

	recording bool
	// armed gates re-activation: after an ESC cancel the combo must be
	// fully released before it can start a new recording.
	armed     bool
	startedAt time.Time

	now func() time.Time
}

func newTracker(combo Combo, now func() time.Time) *tracker {
	if now == nil {
		now = time.Now
	}
	return &tracker{
		combo:   combo,
		pressed: make(map[uint16]struct{}),
		armed:   true,
		now:     now,
	}
}

// setCombo swaps the active combination. The pressed-key set is preserved so
// a config reload mid-press cannot corrupt edge tracking; the new combo
// applies from the next transition check.
func (t *tracker) setCombo(combo Combo) {
	t.combo = combo
}

// handleKey applies one key edge and returns the resulting intent, if any.
// Repeat events never mutate state.
func (t *tracker) handleKey(code uint16, value int32) Intent {
	switch value {
	case keyValuePress:
		t.pressed[code] = struct{}{}
		if code == KeyEsc && t.recording {
			t.recording = false
			t.armed = false
			return IntentCancel
		}
	case keyValueRelease:
		delete(t.pressed, code)
	default:
		return IntentNone
	}

	active := t.combo.Active(t.pressed)

	if active && !t.recording && t.armed {
		t.recording = true
		t.startedAt = t.now()
		return IntentStart
	}

	if !active {
		t.armed = true
		if t.recording {
			t.recording = false
			if t.now().Sub(t.startedAt) < quickTapThreshold {
				return IntentCancel
			}
			return IntentStop
		}
	}

	return IntentNone
}
