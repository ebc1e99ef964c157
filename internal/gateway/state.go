package gateway

// State is the gateway lifecycle state.
type State int32

// Lifecycle: uninitialized -> waiting -> ready | unavailable.
// Both ready and unavailable are terminal.
const (
	StateUninitialized State = iota
	StateWaiting
	StateReady
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateWaiting:
		return "waiting"
	case StateReady:
		return "ready"
	case StateUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Resolved reports whether s is terminal.
func (s State) Resolved() bool {
	return s == StateReady || s == StateUnavailable
}
