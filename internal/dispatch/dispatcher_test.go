package dispatch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type recordingInjector struct {
	combos []Combo
	err    error
}

func (r *recordingInjector) Send(combo Combo) error {
	r.combos = append(r.combos, combo)
	return r.err
}

type recordingBridge struct {
	commands []string
	err      error
}

func (r *recordingBridge) Send(command string) error {
	r.commands = append(r.commands, command)
	return r.err
}

func TestDispatchKey(t *testing.T) {
	inj := &recordingInjector{}
	d := NewDispatcher(zap.NewNop(), inj, nil)

	d.Dispatch(KeyAction("ctrl+c"))
	assert.Equal(t, []Combo{{Mods: []string{"ctrl"}, Key: "c"}}, inj.combos)
}

func TestDispatchBridge(t *testing.T) {
	br := &recordingBridge{}
	d := NewDispatcher(zap.NewNop(), &recordingInjector{}, br)

	d.Dispatch(BridgeAction("set_exposure:0.5"))
	assert.Equal(t, []string{"set_exposure:0.5"}, br.commands)
}

// Failures are logged and swallowed; Dispatch never panics or propagates.
func TestDispatchSwallowsErrors(t *testing.T) {
	inj := &recordingInjector{err: errors.New("injector down")}
	br := &recordingBridge{err: errors.New("bridge down")}
	d := NewDispatcher(zap.NewNop(), inj, br)

	d.Dispatch(KeyAction("ctrl+c"))
	d.Dispatch(KeyAction("not a combo at all"))
	d.Dispatch(BridgeAction("set_exposure:0.5"))

	assert.Len(t, inj.combos, 1)
	assert.Len(t, br.commands, 1)
}

func TestDispatchBridgeUnconfigured(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), &recordingInjector{}, nil)
	d.Dispatch(BridgeAction("set_exposure:0.5"))
}
