package sequencer

// State is the sequencer lifecycle position.
type State int

const (
	StateIdle State = iota
	StateRendering
	StateGating
	StateAdvancing
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRendering:
		return "rendering"
	case StateGating:
		return "gating"
	case StateAdvancing:
		return "advancing"
	case StateCompleted:
		return "completed"
	}
	return "unknown"
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Running reports whether a gated run is in progress.
func (s State) Running() bool {
	return s == StateRendering || s == StateGating || s == StateAdvancing
}
