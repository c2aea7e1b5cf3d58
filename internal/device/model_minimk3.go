package device

import (
	"gitlab.com/gomidi/midi/v2"
)

// miniMK3Model implements Model for the Launchpad Mini Mk3 family in
// programmer mode. Note numbers address a 10x10 logical grid: grid pads
// are 11-88 (bottom-left 11), the scene column is x9 (19..89) and the
// control row is 91-98, both of which arrive as control changes.
type miniMK3Model struct{}

func (m *miniMK3Model) Name() ModelName { return ModelMiniMK3 }

// Programmer-mode SysEx for Mini MK3, Launchpad X and Pro MK3. Sending
// all three is harmless; only the connected unit responds.
var programmerModeSysEx = [][]byte{
	{0x00, 0x20, 0x29, 0x02, 0x0D, 0x0E, 0x01}, // Mini MK3
	{0x00, 0x20, 0x29, 0x02, 0x0C, 0x0E, 0x01}, // Launchpad X
	{0x00, 0x20, 0x29, 0x02, 0x0E, 0x0E, 0x01}, // Pro MK3
}

func (m *miniMK3Model) Setup(send func(midi.Message) error) error {
	for _, sysex := range programmerModeSysEx {
		if err := send(midi.SysEx(sysex)); err != nil {
			return err
		}
	}
	return nil
}

// noteFor converts a canonical coordinate to the programmer-mode note
// number. Canonical row 1 is the top grid row, which is note row 8x.
func (m *miniMK3Model) noteFor(coord Coordinate) (uint8, bool) {
	if !coord.Valid() {
		return 0, false
	}
	switch coord.Kind {
	case KindGrid:
		return uint8((9-coord.Row)*10 + coord.Col), true
	case KindScene:
		return uint8((9-coord.Row)*10 + 9), true
	case KindCtrl:
		return uint8(90 + coord.Col), true
	}
	return 0, false
}

func (m *miniMK3Model) coordFor(note uint8) (Coordinate, bool) {
	if note < 11 || note > 99 {
		return Coordinate{}, false
	}
	row := 9 - int(note/10)
	col := int(note % 10)
	switch {
	case note >= 91 && note <= 98:
		return Ctrl(col), true
	case col == 9 && row >= 1 && row <= 8:
		return Scene(row), true
	case row >= 1 && row <= 8 && col >= 1 && col <= 8:
		return Grid(row, col), true
	}
	return Coordinate{}, false
}

func (m *miniMK3Model) Decode(msg midi.Message) (Event, bool) {
	var channel, key, velocity uint8

	switch {
	case msg.GetNoteOn(&channel, &key, &velocity):
		coord, ok := m.coordFor(key)
		if !ok {
			return Event{}, false
		}
		// Velocity 0 note-on is a release on this family.
		return Event{Coord: coord, Velocity: velocity, Press: velocity > 0}, true

	case msg.GetNoteOff(&channel, &key, &velocity):
		coord, ok := m.coordFor(key)
		if !ok {
			return Event{}, false
		}
		return Event{Coord: coord, Velocity: velocity, Press: false}, true

	case msg.GetControlChange(&channel, &key, &velocity):
		// Control row and scene column report as CC in programmer mode.
		coord, ok := m.coordFor(key)
		if !ok || coord.Kind == KindGrid {
			return Event{}, false
		}
		return Event{Coord: coord, Velocity: velocity, Press: velocity > 0}, true
	}

	return Event{}, false
}

func (m *miniMK3Model) EncodeLED(coord Coordinate, color string) (midi.Message, bool) {
	note, ok := m.noteFor(coord)
	if !ok {
		return nil, false
	}
	code, ok := palette[color]
	if !ok {
		return nil, false
	}
	// In programmer mode every LED, including the CC buttons, lights
	// from a note-on whose velocity is the palette code.
	return midi.NoteOn(0, note, code), true
}

func (m *miniMK3Model) Clear() []midi.Message {
	msgs := make([]midi.Message, 0, 80)
	for _, coord := range AllCoordinates() {
		if msg, ok := m.EncodeLED(coord, "off"); ok {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}
