package profile

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/padworks/padmapper/internal/device"
)

// Store is the in-memory authoritative mapping table: one profile, an
// active-layer stack, and registered observers. Mutations are atomic with
// respect to concurrent reads; a reader sees either the fully prior or
// fully new state.
//
// Observer callbacks run after the store lock is released, so observers
// may call back into the store.
type Store struct {
	log *zap.Logger

	mu      sync.RWMutex
	profile *Profile
	stack   []int // indices into profile.Layers; last entry is active

	repaint     func(colors map[device.Coordinate]string)
	layerChange []func()
}

func NewStore(log *zap.Logger) *Store {
	return &Store{
		log:     log.Named("profile"),
		profile: NewProfile("Default"),
		stack:   []int{0},
	}
}

// OnRepaint registers the LED repaint sink, invoked with the complete
// color set whenever the visible layer content changes.
func (s *Store) OnRepaint(fn func(colors map[device.Coordinate]string)) {
	s.mu.Lock()
	s.repaint = fn
	s.mu.Unlock()
}

// OnLayerChange registers a callback fired after the active layer or
// profile is replaced. The engine uses it to discard held press state.
func (s *Store) OnLayerChange(fn func()) {
	s.mu.Lock()
	s.layerChange = append(s.layerChange, fn)
	s.mu.Unlock()
}

// GetActiveMapping returns a copy of the mapping for coord in the active
// layer at the instant of the call.
func (s *Store) GetActiveMapping(coord device.Coordinate) (PadMapping, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	layer := s.profile.Layers[s.stack[len(s.stack)-1]]
	m, ok := layer.Mappings[coord]
	if !ok {
		return PadMapping{}, false
	}
	return m.clone(), true
}

// ActiveLayer returns the active layer's index and name.
func (s *Store) ActiveLayer() (int, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.stack[len(s.stack)-1]
	return idx, s.profile.Layers[idx].Name
}

// LayerNames lists the profile's layers in order.
func (s *Store) LayerNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, len(s.profile.Layers))
	for i, layer := range s.profile.Layers {
		names[i] = layer.Name
	}
	return names
}

// SetLayer resets the layer stack to the given index and repaints.
func (s *Store) SetLayer(index int) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.profile.Layers) {
		n := len(s.profile.Layers)
		s.mu.Unlock()
		return fmt.Errorf("profile: layer index %d out of range (have %d)", index, n)
	}
	s.stack = []int{index}
	name := s.profile.Layers[index].Name
	s.mu.Unlock()

	s.log.Info("layer set", zap.String("layer", name))
	s.notifyLayerChange()
	s.notifyRepaint()
	return nil
}

// PushLayer activates a named layer on top of the stack, creating it when
// absent.
func (s *Store) PushLayer(name string) {
	s.mu.Lock()
	idx := s.profile.EnsureLayer(name)
	s.stack = append(s.stack, idx)
	s.mu.Unlock()

	s.log.Info("layer pushed", zap.String("layer", name))
	s.notifyLayerChange()
	s.notifyRepaint()
}

// PopLayer returns to the previous layer. Popping the base layer is a
// no-op.
func (s *Store) PopLayer() {
	s.mu.Lock()
	if len(s.stack) <= 1 {
		s.mu.Unlock()
		return
	}
	s.stack = s.stack[:len(s.stack)-1]
	name := s.profile.Layers[s.stack[len(s.stack)-1]].Name
	s.mu.Unlock()

	s.log.Info("layer popped", zap.String("layer", name))
	s.notifyLayerChange()
	s.notifyRepaint()
}

// ReplaceProfile swaps in a new profile atomically and resets the layer
// stack to its base layer.
func (s *Store) ReplaceProfile(p *Profile) error {
	if err := ValidateProfile(p); err != nil {
		return err
	}

	s.mu.Lock()
	s.profile = p.Clone()
	s.stack = []int{0}
	s.mu.Unlock()

	s.log.Info("profile replaced", zap.String("profile", p.Name))
	s.notifyLayerChange()
	s.notifyRepaint()
	return nil
}

// UpsertMapping validates and installs a mapping at coord in the named
// layer (the active layer when layerName is empty).
func (s *Store) UpsertMapping(layerName string, coord device.Coordinate, m PadMapping) error {
	if !coord.Valid() {
		return &ValidationError{Field: "coordinate", Msg: "out of range: " + coord.String()}
	}
	if err := ValidateMapping(m); err != nil {
		return err
	}

	s.mu.Lock()
	idx := s.stack[len(s.stack)-1]
	if layerName != "" {
		idx = s.profile.EnsureLayer(layerName)
	}
	s.profile.Layers[idx].Mappings[coord] = m.clone()
	visible := idx == s.stack[len(s.stack)-1]
	s.mu.Unlock()

	if visible {
		s.notifyRepaint()
	}
	return nil
}

// DeleteMapping removes the mapping at coord from the named layer (active
// layer when empty). Deleting an absent mapping is a no-op.
func (s *Store) DeleteMapping(layerName string, coord device.Coordinate) {
	s.mu.Lock()
	idx := s.stack[len(s.stack)-1]
	if layerName != "" {
		i := s.profile.LayerIndex(layerName)
		if i < 0 {
			s.mu.Unlock()
			return
		}
		idx = i
	}
	delete(s.profile.Layers[idx].Mappings, coord)
	visible := idx == s.stack[len(s.stack)-1]
	s.mu.Unlock()

	if visible {
		s.notifyRepaint()
	}
}

// Snapshot returns a deep copy of the current profile.
func (s *Store) Snapshot() *Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile.Clone()
}

// ActiveColors computes the coordinate-to-color set of the active layer.
// Disabled mappings stay dark.
func (s *Store) ActiveColors() map[device.Coordinate]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeColorsLocked()
}

func (s *Store) activeColorsLocked() map[device.Coordinate]string {
	layer := s.profile.Layers[s.stack[len(s.stack)-1]]
	colors := make(map[device.Coordinate]string, len(layer.Mappings))
	for coord, m := range layer.Mappings {
		if m.Enabled && m.Color != "" && m.Color != "off" {
			colors[coord] = m.Color
		}
	}
	return colors
}

func (s *Store) notifyRepaint() {
	s.mu.RLock()
	fn := s.repaint
	colors := s.activeColorsLocked()
	s.mu.RUnlock()
	if fn != nil {
		fn(colors)
	}
}

func (s *Store) notifyLayerChange() {
	s.mu.RLock()
	fns := append([]func(){}, s.layerChange...)
	s.mu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}
