package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveVelocityBands(t *testing.T) {
	m := NewPadMapping("x")
	m.VelocityBands = []Band{
		{Low: 0, High: 42, KeyCombo: "a"},
		{Low: 43, High: 84, KeyCombo: "b"},
		{Low: 85, High: 127, KeyCombo: "c"},
	}

	tests := []struct {
		velocity int
		want     string
	}{
		{0, "a"},
		{42, "a"},
		{43, "b"},
		{84, "b"},
		{85, "c"},
		{127, "c"},
		{-5, "a"},  // clamped to 0
		{200, "c"}, // clamped to 127
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, m.ResolveVelocity(tc.velocity), "velocity %d", tc.velocity)
	}
}

func TestResolveVelocityFallsBackToPrimary(t *testing.T) {
	m := NewPadMapping("primary")
	assert.Equal(t, "primary", m.ResolveVelocity(64))

	// A gap between bands falls through to the primary combo.
	m.VelocityBands = []Band{{Low: 100, High: 127, KeyCombo: "loud"}}
	assert.Equal(t, "primary", m.ResolveVelocity(50))
	assert.Equal(t, "loud", m.ResolveVelocity(110))
}

func TestResolveVelocityFirstDeclaredWins(t *testing.T) {
	// Overlap is rejected at validation, but a legacy record that slipped
	// through resolves to the first declared band.
	m := NewPadMapping("x")
	m.VelocityBands = []Band{
		{Low: 0, High: 100, KeyCombo: "first"},
		{Low: 50, High: 127, KeyCombo: "second"},
	}
	assert.Equal(t, "first", m.ResolveVelocity(75))
}
