package bridge

import (
	"time"

	"github.com/visiona/scene-bridge/composition"
	"github.com/visiona/scene-bridge/playback"
)

// DefaultInitTimeout bounds Initialize when Config.InitTimeout is zero.
const DefaultInitTimeout = 10 * time.Second

// HardwareAccel selects the decode acceleration mode for the live surface.
type HardwareAccel int

const (
	// AccelAuto attempts hardware decode and falls back to software.
	AccelAuto HardwareAccel = iota
	// AccelVAAPI forces VAAPI hardware decode, failing fast when
	// unavailable.
	AccelVAAPI
	// AccelSoftware forces software decode.
	AccelSoftware
)

// String returns a human-readable acceleration mode name.
func (h HardwareAccel) String() string {
	switch h {
	case AccelAuto:
		return "auto"
	case AccelVAAPI:
		return "vaapi"
	case AccelSoftware:
		return "software"
	default:
		return "auto"
	}
}

// ParseAccel maps a mode name to a HardwareAccel. Unknown names select
// AccelAuto.
func ParseAccel(s string) HardwareAccel {
	switch s {
	case "vaapi":
		return AccelVAAPI
	case "software":
		return AccelSoftware
	default:
		return AccelAuto
	}
}

// Config configures an Adapter.
type Config struct {
	// MediaURL is the primary media item (required). When Graph is nil
	// the adapter seeds its composition with one source spanning the full
	// media duration.
	MediaURL string

	// Surface is the live rendering backend (required).
	Surface Surface

	// Poster holds the extracted first frame. Nil selects a bare poster
	// surface with no scaling and no cache file.
	Poster *PosterSurface

	// Graph is an optional pre-built composition. Nil creates an empty
	// graph owned by the adapter.
	Graph *composition.Graph

	// InitTimeout bounds Initialize. Zero selects DefaultInitTimeout;
	// expiry drives the adapter to the error state with
	// ErrInitialization.
	InitTimeout time.Duration

	// Playback configures the controller the adapter creates.
	Playback playback.Config
}
