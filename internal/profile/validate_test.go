package profile

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padworks/padmapper/internal/device"
)

func TestValidateMapping(t *testing.T) {
	valid := NewPadMapping("ctrl+c")
	require.NoError(t, ValidateMapping(valid))

	tests := []struct {
		name    string
		mutate  func(m *PadMapping)
		wantErr string
	}{
		{
			name:    "unknown action",
			mutate:  func(m *PadMapping) { m.Action = "teleport" },
			wantErr: "unknown action",
		},
		{
			name:    "layer without target",
			mutate:  func(m *PadMapping) { m.Action = ActionLayer },
			wantErr: "target_layer",
		},
		{
			name:    "bridge without command",
			mutate:  func(m *PadMapping) { m.Action = ActionBridge },
			wantErr: "bridge_cmd",
		},
		{
			name:    "bad combo",
			mutate:  func(m *PadMapping) { m.KeyCombo = "hyper+x" },
			wantErr: "key_combo",
		},
		{
			name:    "bad color",
			mutate:  func(m *PadMapping) { m.Color = "chartreuse" },
			wantErr: "color",
		},
		{
			name: "repeat interval too small",
			mutate: func(m *PadMapping) {
				m.Repeat.Enabled = true
				m.Repeat.Interval = 5 * time.Millisecond
			},
			wantErr: "repeat.interval",
		},
		{
			name: "long press without combo",
			mutate: func(m *PadMapping) {
				m.LongPress.Enabled = true
				m.LongPress.KeyCombo = ""
			},
			wantErr: "long_press.key_combo",
		},
		{
			name: "long press threshold too small",
			mutate: func(m *PadMapping) {
				m.LongPress.Enabled = true
				m.LongPress.KeyCombo = "ctrl+z"
				m.LongPress.Threshold = 50 * time.Millisecond
			},
			wantErr: "long_press.threshold",
		},
		{
			name: "band inverted range",
			mutate: func(m *PadMapping) {
				m.VelocityBands = []Band{{Low: 50, High: 10, KeyCombo: "a"}}
			},
			wantErr: "velocity_bands[0]",
		},
		{
			name: "band overlap",
			mutate: func(m *PadMapping) {
				m.VelocityBands = []Band{
					{Low: 0, High: 64, KeyCombo: "a"},
					{Low: 64, High: 127, KeyCombo: "b"},
				}
			},
			wantErr: "overlaps",
		},
		{
			name: "macro delay too long",
			mutate: func(m *PadMapping) {
				m.MacroSteps = []MacroStep{{KeyCombo: "a", DelayAfter: 2 * time.Minute}}
			},
			wantErr: "delay_after",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := NewPadMapping("ctrl+c")
			tc.mutate(&m)
			err := ValidateMapping(m)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateMappingAdjacentBandsOK(t *testing.T) {
	m := NewPadMapping("x")
	m.VelocityBands = []Band{
		{Low: 0, High: 42, KeyCombo: "a"},
		{Low: 43, High: 84, KeyCombo: "b"},
		{Low: 85, High: 127, KeyCombo: "c"},
	}
	assert.NoError(t, ValidateMapping(m))
}

func TestValidateProfile(t *testing.T) {
	p := NewProfile("Studio")
	p.Layers[0].Mappings[device.Grid(1, 1)] = NewPadMapping("ctrl+c")
	require.NoError(t, ValidateProfile(p))

	p.Name = ""
	assert.Error(t, ValidateProfile(p))
	p.Name = "Studio"

	p.Layers = append(p.Layers, NewLayer("Base"))
	err := ValidateProfile(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate layer")
	p.Layers = p.Layers[:1]

	bad := NewPadMapping("nonsense combo here")
	p.Layers[0].Mappings[device.Grid(2, 2)] = bad
	err = ValidateProfile(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2,2")
}

func TestValidateProfileLimits(t *testing.T) {
	p := NewProfile("Big")
	for i := 0; i < MaxLayers; i++ {
		p.EnsureLayer(fmt.Sprintf("extra-%d", i))
	}
	err := ValidateProfile(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "layers")
}
