package domain

// State is the orchestrator's lifecycle phase.
type State int

const (
	StateInitial State = iota
	StateLoading
	StateRegistering
	StateCreating
	StateFarming
	StateSaving
	StateUpgrading
	StateFailure
)

// String returns the lowercase state name shown to the UI.
func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateLoading:
		return "loading"
	case StateRegistering:
		return "registering"
	case StateCreating:
		return "creating"
	case StateFarming:
		return "farming"
	case StateSaving:
		return "saving"
	case StateUpgrading:
		return "upgrading"
	case StateFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Invoking reports whether the state owns an outstanding remote operation.
func (s State) Invoking() bool {
	switch s {
	case StateLoading, StateCreating, StateSaving, StateUpgrading:
		return true
	}
	return false
}

// AllStates lists every state in declaration order.
func AllStates() []State {
	return []State{
		StateInitial,
		StateLoading,
		StateRegistering,
		StateCreating,
		StateFarming,
		StateSaving,
		StateUpgrading,
		StateFailure,
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
