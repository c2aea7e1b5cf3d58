package device

import (
	"gitlab.com/gomidi/midi/v2"
)

// ModelName identifies a supported controller model.
type ModelName string

const (
	ModelMiniMK3 ModelName = "minimk3" // Launchpad Mini Mk3 / X / Pro Mk3 family
	ModelClassic ModelName = "classic" // Launchpad S / Mini Mk1 (red-green LEDs)
)

// Model is the closed capability set a controller variant must provide:
// the coordinate map between raw MIDI numbers and canonical coordinates,
// and the color table translating semantic names to device color codes.
// A Model is selected once at connect time; the resolution path never
// branches on it.
type Model interface {
	Name() ModelName

	// Setup puts the device into the mode required for custom LED
	// control (programmer-mode SysEx, or a reset for classic units).
	Setup(send func(midi.Message) error) error

	// Decode maps a raw MIDI message to a normalized event. ok is false
	// for messages that do not correspond to a button on this model.
	Decode(msg midi.Message) (ev Event, ok bool)

	// EncodeLED builds the message that lights coord with the named
	// palette color. ok is false when the button cannot be lit.
	EncodeLED(coord Coordinate, color string) (msg midi.Message, ok bool)

	// Clear returns the messages that switch every LED off.
	Clear() []midi.Message
}

// ModelFor returns the Model implementation for a configured name,
// defaulting to the Mini Mk3 family.
func ModelFor(name ModelName) Model {
	switch name {
	case ModelClassic:
		return &classicModel{}
	default:
		return &miniMK3Model{}
	}
}
