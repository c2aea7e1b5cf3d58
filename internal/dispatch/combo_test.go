package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCombo(t *testing.T) {
	tests := []struct {
		in      string
		want    Combo
		wantErr string
	}{
		{in: "a", want: Combo{Key: "a"}},
		{in: "A", want: Combo{Key: "a"}},
		{in: "ctrl+c", want: Combo{Mods: []string{"ctrl"}, Key: "c"}},
		{in: "ctrl+shift+k", want: Combo{Mods: []string{"ctrl", "shift"}, Key: "k"}},
		{in: "control+z", want: Combo{Mods: []string{"ctrl"}, Key: "z"}},
		{in: "command+space", want: Combo{Mods: []string{"cmd"}, Key: "space"}},
		{in: "option+tab", want: Combo{Mods: []string{"alt"}, Key: "tab"}},
		{in: "win+e", want: Combo{Mods: []string{"cmd"}, Key: "e"}},
		{in: " Shift + F5 ", want: Combo{Mods: []string{"shift"}, Key: "f5"}},
		{in: "return", want: Combo{Key: "enter"}},
		{in: "escape", want: Combo{Key: "esc"}},
		{in: "pgdown", want: Combo{Key: "pagedown"}},
		{in: "playpause", want: Combo{Key: "playpause"}},
		{in: "", wantErr: "empty"},
		{in: "ctrl+", wantErr: "malformed"},
		{in: "+a", wantErr: "malformed"},
		{in: "hyper+a", wantErr: "unknown modifier"},
		{in: "ctrl+ctrl+a", wantErr: "duplicate modifier"},
		{in: "ctrl+control+a", wantErr: "duplicate modifier"},
		{in: "ctrl+foo", wantErr: "unknown key"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseCombo(tc.in)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestComboString(t *testing.T) {
	assert.Equal(t, "a", Combo{Key: "a"}.String())
	assert.Equal(t, "ctrl+shift+k", Combo{Mods: []string{"ctrl", "shift"}, Key: "k"}.String())
}

func TestValidCombo(t *testing.T) {
	assert.True(t, ValidCombo("ctrl+s"))
	assert.False(t, ValidCombo("boguskey"))
}
