package playback

import "time"

// DefaultTickInterval is the render loop period when Config.TickInterval is
// zero. Roughly 30 frames per second.
const DefaultTickInterval = 33 * time.Millisecond

// Config controls a Controller.
type Config struct {
	// TickInterval is the render loop period. Zero selects
	// DefaultTickInterval.
	TickInterval time.Duration
	// AutoRewind returns the clock to zero after the ended event fires,
	// so the next Play starts from the beginning without an explicit
	// Seek.
	AutoRewind bool
}

// DefaultConfig returns the standard controller configuration.
func DefaultConfig() Config {
	return Config{TickInterval: DefaultTickInterval}
}

// PlaybackState is a point-in-time snapshot of the transport.
type PlaybackState struct {
	// CurrentTime is the clock position in seconds, clamped to
	// [0, Duration].
	CurrentTime float64
	// Duration is the composition duration in seconds.
	Duration float64
	// IsPlaying reports whether the clock is advancing.
	IsPlaying bool
	// IsReady reports whether the owner has marked the controller ready
	// for transport operations.
	IsReady bool
	// Err is the most recent renderer failure, nil when healthy.
	Err error
}

// ControllerStats is a point-in-time snapshot of loop activity.
type ControllerStats struct {
	// Ticks counts processed render ticks.
	Ticks uint64
	// DroppedTicks counts ticks skipped because an operation was still
	// in flight.
	DroppedTicks uint64
	// Seeks counts accepted Seek calls.
	Seeks uint64
	// EndedEvents counts natural end-of-composition events.
	EndedEvents uint64
	// StateChanges counts transport state transitions.
	StateChanges uint64
}
