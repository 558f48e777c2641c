package pipeship

import "github.com/bft-labs/pipeship/internal/app"

// State is the lifecycle state of a Pipeship instance.
type State int

const (
	// StateStopped is the initial state and the state after the input
	// drained or Stop returned.
	StateStopped State = iota

	// StateStarting is held while plugins initialize.
	StateStarting

	// StateRunning means the engine is moving bytes.
	StateRunning

	// StateStopping is held between Stop and the engine returning.
	StateStopping

	// StateCrashed means the last run ended with an error, see Err.
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

func convertState(s app.State) State {
	switch s {
	case app.StateStopped:
		return StateStopped
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateStopping:
		return StateStopping
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}
