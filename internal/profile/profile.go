package profile

import (
	"github.com/google/uuid"

	"github.com/padworks/padmapper/internal/device"
)

// Layer is one complete pad-to-action mapping set. Coordinates are unique
// within a layer; the mapping table is sparse.
type Layer struct {
	Name     string
	Mappings map[device.Coordinate]PadMapping
}

func NewLayer(name string) *Layer {
	return &Layer{Name: name, Mappings: map[device.Coordinate]PadMapping{}}
}

func (l *Layer) clone() *Layer {
	out := NewLayer(l.Name)
	for coord, m := range l.Mappings {
		out.Mappings[coord] = m.clone()
	}
	return out
}

// Profile is a named, ordered set of layers. The first layer is the base
// layer.
type Profile struct {
	ID          string
	Name        string
	Description string
	Layers      []*Layer
}

// NewProfile creates a profile with a single empty base layer.
func NewProfile(name string) *Profile {
	return &Profile{
		ID:     uuid.New().String(),
		Name:   name,
		Layers: []*Layer{NewLayer("Base")},
	}
}

// Clone deep-copies the profile.
func (p *Profile) Clone() *Profile {
	out := &Profile{ID: p.ID, Name: p.Name, Description: p.Description}
	for _, layer := range p.Layers {
		out.Layers = append(out.Layers, layer.clone())
	}
	return out
}

// LayerIndex returns the position of a named layer, or -1.
func (p *Profile) LayerIndex(name string) int {
	for i, layer := range p.Layers {
		if layer.Name == name {
			return i
		}
	}
	return -1
}

// EnsureLayer returns the index of the named layer, appending an empty one
// when absent.
func (p *Profile) EnsureLayer(name string) int {
	if i := p.LayerIndex(name); i >= 0 {
		return i
	}
	p.Layers = append(p.Layers, NewLayer(name))
	return len(p.Layers) - 1
}
