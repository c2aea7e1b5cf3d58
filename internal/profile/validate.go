package profile

import (
	"fmt"
	"time"

	"github.com/padworks/padmapper/internal/device"
	"github.com/padworks/padmapper/internal/dispatch"
)

// Limits on imported data. Oversized records are rejected at the boundary
// rather than degrading the resolution path.
const (
	MaxLayers           = 50
	MaxMappingsPerLayer = 500
	MaxMacroSteps       = 100
	MaxVelocityBands    = 20
	MaxMacroStepDelay   = 60 * time.Second
	MaxLabelLength      = 100
	MaxNameLength       = 100
)

// ValidationError is a configuration fault tied to one field. It is raised
// at the configuration boundary and never reaches the resolution path.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// ValidateMapping checks one pad mapping for syntactic and structural
// faults: combo syntax, band ranges and overlap, known colors, sane
// timing values.
func ValidateMapping(m PadMapping) error {
	switch m.Action {
	case ActionKey, ActionMacro, ActionBridge, ActionLayer, ActionLayerUp, "":
	default:
		return invalid("action", "unknown action %q", m.Action)
	}

	if m.Action == ActionLayer && m.TargetLayer == "" {
		return invalid("target_layer", "layer action requires a target layer")
	}
	if m.Action == ActionBridge && m.BridgeCmd == "" {
		return invalid("bridge_cmd", "bridge action requires a command")
	}

	if m.KeyCombo != "" {
		if _, err := dispatch.ParseCombo(m.KeyCombo); err != nil {
			return invalid("key_combo", "%v", err)
		}
	}
	if len(m.Label) > MaxLabelLength {
		return invalid("label", "exceeds %d characters", MaxLabelLength)
	}
	if m.Color != "" && !device.IsValidColor(m.Color) {
		return invalid("color", "unknown color %q", m.Color)
	}

	if m.Repeat.Enabled {
		if m.Repeat.Interval < 10*time.Millisecond {
			return invalid("repeat.interval", "must be at least 10ms")
		}
		if m.Repeat.Delay < 0 || m.Repeat.Delay > 10*time.Second {
			return invalid("repeat.delay", "must be between 0 and 10s")
		}
	}

	if m.LongPress.Enabled {
		if m.LongPress.KeyCombo == "" {
			return invalid("long_press.key_combo", "long press requires a combo")
		}
		if _, err := dispatch.ParseCombo(m.LongPress.KeyCombo); err != nil {
			return invalid("long_press.key_combo", "%v", err)
		}
		if m.LongPress.Threshold < 100*time.Millisecond || m.LongPress.Threshold > 10*time.Second {
			return invalid("long_press.threshold", "must be between 100ms and 10s")
		}
	}

	if err := validateBands(m.VelocityBands); err != nil {
		return err
	}

	if len(m.MacroSteps) > MaxMacroSteps {
		return invalid("macro_steps", "more than %d steps", MaxMacroSteps)
	}
	for i, step := range m.MacroSteps {
		field := fmt.Sprintf("macro_steps[%d]", i)
		if step.KeyCombo != "" {
			if _, err := dispatch.ParseCombo(step.KeyCombo); err != nil {
				return invalid(field+".key_combo", "%v", err)
			}
		}
		if step.DelayAfter < 0 || step.DelayAfter > MaxMacroStepDelay {
			return invalid(field+".delay_after", "must be between 0 and %s", MaxMacroStepDelay)
		}
	}

	return nil
}

func validateBands(bands []Band) error {
	if len(bands) > MaxVelocityBands {
		return invalid("velocity_bands", "more than %d bands", MaxVelocityBands)
	}
	for i, band := range bands {
		field := fmt.Sprintf("velocity_bands[%d]", i)
		if band.Low > band.High {
			return invalid(field, "low %d exceeds high %d", band.Low, band.High)
		}
		if band.High > 127 {
			return invalid(field, "high %d out of 0-127", band.High)
		}
		if band.KeyCombo == "" {
			return invalid(field+".key_combo", "empty combo")
		}
		if _, err := dispatch.ParseCombo(band.KeyCombo); err != nil {
			return invalid(field+".key_combo", "%v", err)
		}
		for j := 0; j < i; j++ {
			prev := bands[j]
			if band.Low <= prev.High && prev.Low <= band.High {
				return invalid(field, "overlaps band %d-%d", prev.Low, prev.High)
			}
		}
	}
	return nil
}

// ValidateProfile checks a whole profile, including every mapping.
func ValidateProfile(p *Profile) error {
	if p.Name == "" {
		return invalid("name", "empty profile name")
	}
	if len(p.Name) > MaxNameLength {
		return invalid("name", "exceeds %d characters", MaxNameLength)
	}
	if len(p.Layers) == 0 {
		return invalid("layers", "profile needs at least one layer")
	}
	if len(p.Layers) > MaxLayers {
		return invalid("layers", "more than %d layers", MaxLayers)
	}

	seen := map[string]bool{}
	for _, layer := range p.Layers {
		if layer.Name == "" {
			return invalid("layers", "empty layer name")
		}
		if seen[layer.Name] {
			return invalid("layers", "duplicate layer %q", layer.Name)
		}
		seen[layer.Name] = true
		if len(layer.Mappings) > MaxMappingsPerLayer {
			return invalid("layers."+layer.Name, "more than %d mappings", MaxMappingsPerLayer)
		}
		for coord, m := range layer.Mappings {
			if !coord.Valid() {
				return invalid("layers."+layer.Name, "invalid coordinate %s", coord)
			}
			if err := ValidateMapping(m); err != nil {
				return fmt.Errorf("layer %q, pad %s: %w", layer.Name, coord, err)
			}
		}
	}
	return nil
}
