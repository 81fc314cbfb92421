package bridge

import (
	"context"
	"image"

	"github.com/visiona/scene-bridge/playback"
)

// MediaInfo describes a prepared media item.
type MediaInfo struct {
	// Duration in seconds. Must be finite and positive for the adapter to
	// reach Ready.
	Duration float64
	// Width and Height of the video frames in pixels.
	Width  int
	Height int
	// HasVideo and HasAudio report the detected stream kinds.
	HasVideo bool
	HasAudio bool
	// Codec is the detected video format, e.g. "RGB" or "png".
	Codec string
}

// Surface is a rendering backend the adapter can drive. The GStreamer
// surface and the still-image surface implement it; tests use mocks.
//
// A Surface is exclusively owned by one adapter. Prepare runs once per
// Initialize; the embedded transport methods are called by the playback
// controller under its serialization lock.
type Surface interface {
	playback.Renderer

	// Prepare loads the media far enough to know its metadata. It must
	// respect ctx cancellation; the adapter bounds it with InitTimeout.
	Prepare(ctx context.Context) (MediaInfo, error)

	// FirstFrame returns the first decodable frame, used to populate the
	// poster surface.
	FirstFrame(ctx context.Context) (image.Image, error)

	// Close releases the surface's resources. Idempotent.
	Close() error
}

// errorSink is implemented by surfaces that report asynchronous failures
// (e.g. the live surface's bus monitor). The adapter routes those into its
// error state.
type errorSink interface {
	SetErrorSink(func(error))
}
