package playback

import "errors"

var (
	// ErrNotReady indicates Play was called before the controller was
	// marked ready by its owner.
	ErrNotReady = errors.New("controller not ready")

	// ErrDestroyed indicates an operation on a destroyed controller.
	ErrDestroyed = errors.New("controller destroyed")
)
