package graph

import "fmt"

// MediaType identifies the kind of asset a source node references.
type MediaType int

const (
	// MediaVideo is a timed video asset.
	MediaVideo MediaType = iota
	// MediaImage is a still image presented for the node's timing window.
	MediaImage
)

// String returns a human-readable media type name.
func (m MediaType) String() string {
	switch m {
	case MediaVideo:
		return "video"
	case MediaImage:
		return "image"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

func (m MediaType) valid() bool {
	return m == MediaVideo || m == MediaImage
}

// ParseMediaType converts a config string into a MediaType.
func ParseMediaType(s string) (MediaType, error) {
	switch s {
	case "video":
		return MediaVideo, nil
	case "image":
		return MediaImage, nil
	default:
		return 0, fmt.Errorf("media type %q: %w", s, ErrUnsupportedMediaType)
	}
}

// EffectKind identifies a known effect definition.
type EffectKind int

const (
	// EffectZoomPan animates a slow zoom or pan across the source.
	EffectZoomPan EffectKind = iota
	// EffectBrightness adjusts luminance by a fixed level.
	EffectBrightness
	// EffectOpacity scales the source's alpha.
	EffectOpacity
)

// String returns a human-readable effect kind name.
func (k EffectKind) String() string {
	switch k {
	case EffectZoomPan:
		return "zoom-pan"
	case EffectBrightness:
		return "brightness"
	case EffectOpacity:
		return "opacity"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

func (k EffectKind) valid() bool {
	switch k {
	case EffectZoomPan, EffectBrightness, EffectOpacity:
		return true
	default:
		return false
	}
}

// EffectParams is implemented by the per-kind parameter structs. Params must
// report the kind they belong to so a mismatched pair is rejected up front.
type EffectParams interface {
	Kind() EffectKind
	Validate() error
}

// ZoomPanParams configures EffectZoomPan.
type ZoomPanParams struct {
	Mode  string  // "in", "out", "pan-left" or "pan-right"
	Speed float64 // relative motion per second, (0, 1]
}

// Kind implements EffectParams.
func (ZoomPanParams) Kind() EffectKind { return EffectZoomPan }

// Validate implements EffectParams.
func (p ZoomPanParams) Validate() error {
	switch p.Mode {
	case "in", "out", "pan-left", "pan-right":
	default:
		return fmt.Errorf("zoom-pan mode %q: %w", p.Mode, ErrValidation)
	}
	if p.Speed <= 0 || p.Speed > 1 {
		return fmt.Errorf("zoom-pan speed %.3f outside (0, 1]: %w", p.Speed, ErrValidation)
	}
	return nil
}

// BrightnessParams configures EffectBrightness.
type BrightnessParams struct {
	Level float64 // additive luminance, [-1, 1]
}

// Kind implements EffectParams.
func (BrightnessParams) Kind() EffectKind { return EffectBrightness }

// Validate implements EffectParams.
func (p BrightnessParams) Validate() error {
	if p.Level < -1 || p.Level > 1 {
		return fmt.Errorf("brightness level %.3f outside [-1, 1]: %w", p.Level, ErrValidation)
	}
	return nil
}

// OpacityParams configures EffectOpacity.
type OpacityParams struct {
	Value float64 // alpha multiplier, [0, 1]
}

// Kind implements EffectParams.
func (OpacityParams) Kind() EffectKind { return EffectOpacity }

// Validate implements EffectParams.
func (p OpacityParams) Validate() error {
	if p.Value < 0 || p.Value > 1 {
		return fmt.Errorf("opacity value %.3f outside [0, 1]: %w", p.Value, ErrValidation)
	}
	return nil
}

// TransitionKind identifies a known transition between two sources.
type TransitionKind int

const (
	// TransitionCrossfade blends A out while B blends in.
	TransitionCrossfade TransitionKind = iota
	// TransitionDipToBlack fades A to black, then black to B.
	TransitionDipToBlack
	// TransitionWipe reveals B across A with a moving edge.
	TransitionWipe
)

// String returns a human-readable transition kind name.
func (k TransitionKind) String() string {
	switch k {
	case TransitionCrossfade:
		return "crossfade"
	case TransitionDipToBlack:
		return "dip-to-black"
	case TransitionWipe:
		return "wipe"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

func (k TransitionKind) valid() bool {
	switch k {
	case TransitionCrossfade, TransitionDipToBlack, TransitionWipe:
		return true
	default:
		return false
	}
}

// SourceNode is a timed reference to one media asset within the composition.
// Nodes returned by Graph methods are snapshots; mutation goes back through
// the Graph API.
type SourceNode struct {
	// ID is the caller-supplied identifier, unique within the graph.
	ID string
	// MediaURL locates the asset. Resolution is a collaborator concern.
	MediaURL string
	// MediaType is the asset kind.
	MediaType MediaType
	// StartTime is the global-timeline start in seconds.
	StartTime float64
	// EndTime is the global-timeline end in seconds. StartTime < EndTime
	// once timing has been set.
	EndTime float64
}

// EffectNode applies one effect definition to a source.
type EffectNode struct {
	// ID is graph-generated.
	ID string
	// SourceID references the source this effect is wired to.
	SourceID string
	// Kind selects the effect definition.
	Kind EffectKind
	// Params carries the kind-specific parameters.
	Params EffectParams
}

// TransitionNode blends two sources over a time window.
type TransitionNode struct {
	// ID is graph-generated.
	ID string
	// SourceAID is the outgoing source.
	SourceAID string
	// SourceBID is the incoming source.
	SourceBID string
	// Kind selects the transition style.
	Kind TransitionKind
	// WindowStart is the global time the blend begins.
	WindowStart float64
	// WindowEnd is the global time the blend completes.
	WindowEnd float64
	// Mix is the blend strength, [0, 1].
	Mix float64
}
