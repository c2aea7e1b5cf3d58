package dispatch

import (
	"go.uber.org/zap"
)

// Injector is the OS key-injection sink: it issues a synthetic
// key-down/key-up pair for a parsed combo.
type Injector interface {
	Send(combo Combo) error
}

// BridgeSender delivers a line command to the external automation bridge.
type BridgeSender interface {
	Send(command string) error
}

// Dispatcher turns resolved actions into injector or bridge calls. Errors
// are logged and swallowed per action: a failed injection never blocks the
// press-state machine and never aborts an in-progress macro run.
type Dispatcher struct {
	log      *zap.Logger
	injector Injector
	bridge   BridgeSender
}

func NewDispatcher(log *zap.Logger, injector Injector, bridge BridgeSender) *Dispatcher {
	return &Dispatcher{
		log:      log.Named("dispatch"),
		injector: injector,
		bridge:   bridge,
	}
}

// Dispatch delivers one action to its sink.
func (d *Dispatcher) Dispatch(action ResolvedAction) {
	switch action.Kind {
	case KindKey:
		combo, err := ParseCombo(action.Combo)
		if err != nil {
			// Combos are validated at the configuration boundary;
			// reaching this means a legacy record slipped through.
			d.log.Warn("unparsable combo", zap.String("combo", action.Combo), zap.Error(err))
			return
		}
		if err := d.injector.Send(combo); err != nil {
			d.log.Warn("key injection failed", zap.String("combo", action.Combo), zap.Error(err))
		}
	case KindBridge:
		if d.bridge == nil {
			d.log.Warn("bridge action with no bridge configured", zap.String("command", action.Command))
			return
		}
		if err := d.bridge.Send(action.Command); err != nil {
			d.log.Warn("bridge send failed", zap.String("command", action.Command), zap.Error(err))
		}
	default:
		d.log.Warn("unknown action kind", zap.String("kind", string(action.Kind)))
	}
}
