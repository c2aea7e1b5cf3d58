package profile

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/padworks/padmapper/internal/device"
)

// The persisted record format. Durations serialize as seconds so exported
// profiles stay readable and compatible with hand-edited files.

type macroStepRecord struct {
	KeyCombo   string  `json:"key_combo"`
	DelayAfter float64 `json:"delay_after"`
}

type bandRecord struct {
	Low      uint8  `json:"low"`
	High     uint8  `json:"high"`
	KeyCombo string `json:"key_combo"`
}

type mappingRecord struct {
	Action      string  `json:"action,omitempty"`
	KeyCombo    string  `json:"key_combo"`
	BridgeCmd   string  `json:"bridge_cmd,omitempty"`
	TargetLayer string  `json:"target_layer,omitempty"`
	Enabled     bool    `json:"enabled"`
	Label       string  `json:"label,omitempty"`
	Color       string  `json:"color"`

	RepeatEnabled  bool    `json:"repeat_enabled,omitempty"`
	RepeatDelay    float64 `json:"repeat_delay,omitempty"`
	RepeatInterval float64 `json:"repeat_interval,omitempty"`

	LongPressEnabled   bool    `json:"long_press_enabled,omitempty"`
	LongPressCombo     string  `json:"long_press_combo,omitempty"`
	LongPressThreshold float64 `json:"long_press_threshold,omitempty"`

	VelocityBands []bandRecord      `json:"velocity_bands,omitempty"`
	MacroSteps    []macroStepRecord `json:"macro_steps,omitempty"`
}

type layerRecord struct {
	Name     string                   `json:"name"`
	Mappings map[string]mappingRecord `json:"mappings"`
}

type profileRecord struct {
	ID          string        `json:"id,omitempty"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Layers      []layerRecord `json:"layers"`
}

func seconds(d time.Duration) float64  { return d.Seconds() }
func duration(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }

func toRecord(m PadMapping) mappingRecord {
	rec := mappingRecord{
		Action:      string(m.Action),
		KeyCombo:    m.KeyCombo,
		BridgeCmd:   m.BridgeCmd,
		TargetLayer: m.TargetLayer,
		Enabled:     m.Enabled,
		Label:       m.Label,
		Color:       m.Color,

		RepeatEnabled:  m.Repeat.Enabled,
		RepeatDelay:    seconds(m.Repeat.Delay),
		RepeatInterval: seconds(m.Repeat.Interval),

		LongPressEnabled:   m.LongPress.Enabled,
		LongPressCombo:     m.LongPress.KeyCombo,
		LongPressThreshold: seconds(m.LongPress.Threshold),
	}
	for _, b := range m.VelocityBands {
		rec.VelocityBands = append(rec.VelocityBands, bandRecord(b))
	}
	for _, step := range m.MacroSteps {
		rec.MacroSteps = append(rec.MacroSteps, macroStepRecord{
			KeyCombo:   step.KeyCombo,
			DelayAfter: seconds(step.DelayAfter),
		})
	}
	return rec
}

func fromRecord(rec mappingRecord) PadMapping {
	m := PadMapping{
		Action:      ActionKind(rec.Action),
		KeyCombo:    rec.KeyCombo,
		BridgeCmd:   rec.BridgeCmd,
		TargetLayer: rec.TargetLayer,
		Enabled:     rec.Enabled,
		Label:       rec.Label,
		Color:       rec.Color,

		Repeat: RepeatSettings{
			Enabled:  rec.RepeatEnabled,
			Delay:    duration(rec.RepeatDelay),
			Interval: duration(rec.RepeatInterval),
		},
		LongPress: LongPressSettings{
			Enabled:   rec.LongPressEnabled,
			KeyCombo:  rec.LongPressCombo,
			Threshold: duration(rec.LongPressThreshold),
		},
	}
	if m.Action == "" {
		m.Action = ActionKey
	}
	for _, b := range rec.VelocityBands {
		m.VelocityBands = append(m.VelocityBands, Band(b))
	}
	for _, step := range rec.MacroSteps {
		m.MacroSteps = append(m.MacroSteps, MacroStep{
			KeyCombo:   step.KeyCombo,
			DelayAfter: duration(step.DelayAfter),
		})
	}
	return m
}

// ExportMapping serializes one mapping to its JSON record form, for
// configuration surfaces that edit single pads.
func ExportMapping(m PadMapping) ([]byte, error) {
	return json.Marshal(toRecord(m))
}

// ImportMapping parses and validates one mapping record.
func ImportMapping(data []byte) (PadMapping, error) {
	var rec mappingRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return PadMapping{}, &ValidationError{Msg: fmt.Sprintf("malformed mapping record: %v", err)}
	}
	m := fromRecord(rec)
	if err := ValidateMapping(m); err != nil {
		return PadMapping{}, err
	}
	return m, nil
}

// Export serializes a profile to its JSON record form.
func Export(p *Profile) ([]byte, error) {
	rec := profileRecord{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
	}
	for _, layer := range p.Layers {
		lr := layerRecord{Name: layer.Name, Mappings: map[string]mappingRecord{}}
		for coord, m := range layer.Mappings {
			lr.Mappings[coord.String()] = toRecord(m)
		}
		rec.Layers = append(rec.Layers, lr)
	}
	return json.MarshalIndent(rec, "", "  ")
}

// Import parses and validates a profile record. A record without an ID is
// assigned a fresh one.
func Import(data []byte) (*Profile, error) {
	var rec profileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &ValidationError{Msg: fmt.Sprintf("malformed profile record: %v", err)}
	}

	p := &Profile{
		ID:          rec.ID,
		Name:        rec.Name,
		Description: rec.Description,
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Name == "" {
		p.Name = "Imported"
	}
	for _, lr := range rec.Layers {
		layer := NewLayer(lr.Name)
		for coordStr, mr := range lr.Mappings {
			coord, err := device.ParseCoordinate(coordStr)
			if err != nil {
				return nil, &ValidationError{Field: "layers." + lr.Name, Msg: err.Error()}
			}
			layer.Mappings[coord] = fromRecord(mr)
		}
		p.Layers = append(p.Layers, layer)
	}
	if len(p.Layers) == 0 {
		p.Layers = []*Layer{NewLayer("Base")}
	}

	if err := ValidateProfile(p); err != nil {
		return nil, err
	}
	return p, nil
}
