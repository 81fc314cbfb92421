package playback

import "context"

// Renderer is the output device the controller drives. The live GStreamer
// surface implements it; tests use fakes.
//
// All methods are called with the controller's operation lock held, so a
// renderer never sees two transport calls at once.
type Renderer interface {
	// Start begins continuous output. The context is the controller's
	// lifecycle context and is cancelled on Destroy.
	Start(ctx context.Context) error

	// Stop halts continuous output. Called on Pause, on the ended event
	// and during Destroy.
	Stop() error

	// Seek repositions the renderer to t seconds. The value is already
	// clamped to the composition duration.
	Seek(t float64) error

	// RenderFrame produces a single frame at t while stopped. Used for
	// paused seeks so the display reflects the new position.
	RenderFrame(t float64) error

	// Position reports the renderer's own media position. ok is false
	// when the renderer has no authoritative position, in which case the
	// controller falls back to its reference clock.
	Position() (t float64, ok bool)
}
