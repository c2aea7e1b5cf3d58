package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCoordinate(t *testing.T) {
	tests := []struct {
		in      string
		want    Coordinate
		wantErr bool
	}{
		{in: "1,1", want: Grid(1, 1)},
		{in: "8,8", want: Grid(8, 8)},
		{in: "3, 5", want: Grid(3, 5)},
		{in: "ctrl:1", want: Ctrl(1)},
		{in: "ctrl:8", want: Ctrl(8)},
		{in: "scene:4", want: Scene(4)},
		{in: "0,1", wantErr: true},
		{in: "9,1", wantErr: true},
		{in: "1,9", wantErr: true},
		{in: "ctrl:0", wantErr: true},
		{in: "ctrl:9", wantErr: true},
		{in: "scene:9", wantErr: true},
		{in: "banana", wantErr: true},
		{in: "", wantErr: true},
		{in: "1", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseCoordinate(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCoordinateStringRoundTrip(t *testing.T) {
	for _, coord := range AllCoordinates() {
		got, err := ParseCoordinate(coord.String())
		require.NoError(t, err, coord.String())
		assert.Equal(t, coord, got)
	}
}

func TestAllCoordinatesCount(t *testing.T) {
	coords := AllCoordinates()
	assert.Len(t, coords, 80)

	seen := map[Coordinate]bool{}
	for _, c := range coords {
		assert.True(t, c.Valid(), c.String())
		assert.False(t, seen[c], "duplicate %s", c)
		seen[c] = true
	}
}

func TestCoordinateTextMarshalling(t *testing.T) {
	c := Grid(2, 7)
	b, err := c.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2,7", string(b))

	var back Coordinate
	require.NoError(t, back.UnmarshalText(b))
	assert.Equal(t, c, back)

	assert.Error(t, back.UnmarshalText([]byte("99,99")))
}
