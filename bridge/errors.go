package bridge

import "errors"

var (
	// ErrInitialization indicates the surface could not be prepared:
	// media unreachable, pipeline construction failure or initialization
	// timeout.
	ErrInitialization = errors.New("initialization failed")

	// ErrMediaLoad indicates the media loaded but is unusable, e.g. a
	// non-finite or zero duration.
	ErrMediaLoad = errors.New("media load failed")

	// ErrOperation indicates a transport operation that is invalid in the
	// adapter's current state, including any operation on a destroyed
	// adapter.
	ErrOperation = errors.New("operation not permitted")

	// ErrCoordination indicates a play attempt while the poster surface
	// is still the visible one. The state machine is left untouched.
	ErrCoordination = errors.New("surface coordination violation")
)
