package profile

import (
	"time"
)

// ActionKind selects what a pad press resolves to.
type ActionKind string

const (
	ActionKey     ActionKind = "key"      // key combo (default)
	ActionMacro   ActionKind = "macro"    // ordered key sequence
	ActionBridge  ActionKind = "bridge"   // automation bridge command
	ActionLayer   ActionKind = "layer"    // push a named layer
	ActionLayerUp ActionKind = "layer_up" // pop back one layer
)

// Band maps a closed press-force range to a key combo. Bands are matched
// in declaration order.
type Band struct {
	Low, High uint8
	KeyCombo  string
}

// MacroStep is one step of a macro sequence: emit the combo, then wait
// DelayAfter before the next step.
type MacroStep struct {
	KeyCombo   string
	DelayAfter time.Duration
}

// RepeatSettings controls key auto-repeat while a pad is held.
type RepeatSettings struct {
	Enabled  bool
	Delay    time.Duration // initial delay before the first repeat
	Interval time.Duration // spacing between repeats
}

// LongPressSettings fires an alternate combo when the pad is held past
// Threshold.
type LongPressSettings struct {
	Enabled   bool
	KeyCombo  string
	Threshold time.Duration
}

// PadMapping is the full configuration of one pad in one layer.
type PadMapping struct {
	Action      ActionKind
	KeyCombo    string // primary combo; fallback for velocity bands
	BridgeCmd   string // for ActionBridge
	TargetLayer string // for ActionLayer
	Enabled     bool
	Label       string
	Color       string

	Repeat        RepeatSettings
	LongPress     LongPressSettings
	VelocityBands []Band
	MacroSteps    []MacroStep
}

// NewPadMapping returns an enabled key mapping with the default color.
func NewPadMapping(combo string) PadMapping {
	return PadMapping{
		Action:   ActionKey,
		KeyCombo: combo,
		Enabled:  true,
		Color:    "green",
		Repeat:   RepeatSettings{Delay: 500 * time.Millisecond, Interval: 50 * time.Millisecond},
		LongPress: LongPressSettings{
			Threshold: 500 * time.Millisecond,
		},
	}
}

// clone deep-copies the mapping so callers never share band or step slices
// with the store.
func (m PadMapping) clone() PadMapping {
	out := m
	if m.VelocityBands != nil {
		out.VelocityBands = append([]Band(nil), m.VelocityBands...)
	}
	if m.MacroSteps != nil {
		out.MacroSteps = append([]MacroStep(nil), m.MacroSteps...)
	}
	return out
}

// ResolveVelocity picks the combo for a press force: the first declared
// band containing the clamped velocity, else the primary combo. Velocities
// outside 0-127 clamp into range rather than being rejected.
func (m PadMapping) ResolveVelocity(velocity int) string {
	if velocity < 0 {
		velocity = 0
	}
	if velocity > 127 {
		velocity = 127
	}
	for _, band := range m.VelocityBands {
		if int(band.Low) <= velocity && velocity <= int(band.High) {
			return band.KeyCombo
		}
	}
	return m.KeyCombo
}
