package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAutoPick(t *testing.T) {
	tests := []struct {
		name  string
		ports []string
		want  string
		ok    bool
	}{
		{
			name:  "launchpad by keyword",
			ports: []string{"Midi Through Port-0", "Launchpad Mini MK3 LPMiniMK3 MIDI"},
			want:  "Launchpad Mini MK3 LPMiniMK3 MIDI",
			ok:    true,
		},
		{
			name:  "daw port skipped",
			ports: []string{"Launchpad Mini MK3 LPMiniMK3 DAW", "Launchpad Mini MK3 LPMiniMK3 MIDI"},
			want:  "Launchpad Mini MK3 LPMiniMK3 MIDI",
			ok:    true,
		},
		{
			name:  "lone port qualifies",
			ports: []string{"Some Generic Controller"},
			want:  "Some Generic Controller",
			ok:    true,
		},
		{
			name:  "nothing recognizable",
			ports: []string{"Midi Through Port-0", "Virtual Synth"},
			ok:    false,
		},
		{
			name:  "empty list",
			ports: nil,
			ok:    false,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := AutoPick(tc.ports)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
