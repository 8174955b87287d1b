package stream

// State is the synchronizer's connection state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosedRetrying
	StateClosedTerminal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosedRetrying:
		return "closed-retrying"
	case StateClosedTerminal:
		return "closed-terminal"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
