package device

import (
	"gitlab.com/gomidi/midi/v2"
)

// classicModel implements Model for the Launchpad S generation. The grid
// uses note row*16+col addressing, the control row is CC 104-111, and the
// LEDs are red/green only: the full palette collapses to a 2-bit-per-
// channel velocity encoding.
type classicModel struct{}

func (m *classicModel) Name() ModelName { return ModelClassic }

func (m *classicModel) Setup(send func(midi.Message) error) error {
	// CC 0 value 0 resets the unit to its default state.
	return send(midi.ControlChange(0, 0, 0))
}

func (m *classicModel) noteFor(coord Coordinate) (num uint8, isCC bool, ok bool) {
	if !coord.Valid() {
		return 0, false, false
	}
	switch coord.Kind {
	case KindGrid:
		return uint8((coord.Row-1)*16 + coord.Col - 1), false, true
	case KindScene:
		return uint8((coord.Row-1)*16 + 8), false, true
	case KindCtrl:
		return uint8(103 + coord.Col), true, true
	}
	return 0, false, false
}

func (m *classicModel) coordForNote(note uint8) (Coordinate, bool) {
	row := int(note/16) + 1
	col := int(note % 16)
	if row < 1 || row > 8 || col > 8 {
		return Coordinate{}, false
	}
	if col == 8 {
		return Scene(row), true
	}
	return Grid(row, col+1), true
}

func (m *classicModel) Decode(msg midi.Message) (Event, bool) {
	var channel, key, velocity uint8

	switch {
	case msg.GetNoteOn(&channel, &key, &velocity):
		coord, ok := m.coordForNote(key)
		if !ok {
			return Event{}, false
		}
		return Event{Coord: coord, Velocity: velocity, Press: velocity > 0}, true

	case msg.GetNoteOff(&channel, &key, &velocity):
		coord, ok := m.coordForNote(key)
		if !ok {
			return Event{}, false
		}
		return Event{Coord: coord, Velocity: velocity, Press: false}, true

	case msg.GetControlChange(&channel, &key, &velocity):
		if key >= 104 && key <= 111 {
			return Event{Coord: Ctrl(int(key) - 103), Velocity: velocity, Press: velocity > 0}, true
		}
	}

	return Event{}, false
}

func (m *classicModel) EncodeLED(coord Coordinate, color string) (midi.Message, bool) {
	num, isCC, ok := m.noteFor(coord)
	if !ok {
		return nil, false
	}
	velocity := m.classicVelocity(color)
	if isCC {
		return midi.ControlChange(0, num, velocity), true
	}
	return midi.NoteOn(0, num, velocity), true
}

// classicVelocity approximates a palette color on red/green LEDs. Blue
// leans toward green, which sits closer on the spectrum.
func (m *classicModel) classicVelocity(color string) uint8 {
	hex, ok := colorHex[color]
	if !ok || color == "off" {
		return 0x0C // copy+clear flags only, LED off
	}
	r, g, b, err := parseHex(hex)
	if err != nil {
		return 0x0C
	}

	effectiveR := r/2 + b/8
	effectiveG := g/2 + (b*3)/8
	if effectiveR > 127 {
		effectiveR = 127
	}
	if effectiveG > 127 {
		effectiveG = 127
	}
	if effectiveR < 5 && effectiveG < 5 {
		return 0x0C
	}

	redLevel := colorTo4Level(uint8(effectiveR))
	greenLevel := colorTo4Level(uint8(effectiveG))

	// Velocity bits: 5-4 green, 3-2 copy+clear flags, 1-0 red.
	return (greenLevel << 4) | 0x0C | redLevel
}

func colorTo4Level(value uint8) uint8 {
	switch {
	case value < 32:
		return 0
	case value < 64:
		return 1
	case value < 96:
		return 2
	}
	return 3
}

func (m *classicModel) Clear() []midi.Message {
	// The reset message extinguishes every LED at once.
	return []midi.Message{midi.ControlChange(0, 0, 0)}
}
