package bridge

// State is the adapter's readiness state.
type State int

const (
	// StateUninitialized is the state before the first Initialize.
	StateUninitialized State = iota
	// StateInitializing covers the asynchronous surface preparation.
	StateInitializing
	// StateReady means the media is loaded and transport operations are
	// accepted.
	StateReady
	// StatePlayingRequested is the transient state while a play operation
	// is being delegated to the controller and surface.
	StatePlayingRequested
	// StatePlaying means the clock is advancing.
	StatePlaying
	// StatePaused means playback is frozen at the current position.
	StatePaused
	// StateError records a failed initialization or transport operation.
	// Recoverable through Initialize.
	StateError
	// StateDestroyed is terminal.
	StateDestroyed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StatePlayingRequested:
		return "playing-requested"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateError:
		return "error"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// AdapterStats is a point-in-time snapshot of adapter activity.
type AdapterStats struct {
	// Transitions counts state machine transitions.
	Transitions uint64
	// QueuedOps counts transport operations submitted to the operations
	// queue.
	QueuedOps uint64
	// RejectedOps counts operations refused because of the current state.
	RejectedOps uint64
	// CoordinationRejects counts play attempts refused because the poster
	// surface was still visible.
	CoordinationRejects uint64
	// Recoveries counts successful re-initializations out of the error
	// state.
	Recoveries uint64
}
