package dispatch

// Kind is the payload variant of a resolved action.
type Kind string

const (
	KindKey    Kind = "key"    // synthetic keyboard shortcut
	KindBridge Kind = "bridge" // line command for the automation bridge
)

// ResolvedAction is the engine's answer to one pad event: a single payload
// ready for the key-injection sink or the automation bridge.
type ResolvedAction struct {
	Kind    Kind
	Combo   string // parsed key combo string for KindKey
	Command string // raw line for KindBridge, e.g. "set_exposure:0.35"
}

// KeyAction builds a key-combo action.
func KeyAction(combo string) ResolvedAction {
	return ResolvedAction{Kind: KindKey, Combo: combo}
}

// BridgeAction builds a bridge-command action.
func BridgeAction(command string) ResolvedAction {
	return ResolvedAction{Kind: KindBridge, Command: command}
}
