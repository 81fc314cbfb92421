package composition

import "github.com/visiona/scene-bridge/composition/internal/graph"

// Public API - Re-export internal types as stable contract

// Graph owns the source/effect/transition nodes of one composition.
type Graph = graph.Graph

// GraphStats is a point-in-time snapshot of graph contents and activity.
type GraphStats = graph.GraphStats

// MediaType identifies the kind of asset a source node references.
type MediaType = graph.MediaType

const (
	// MediaVideo is a timed video asset.
	MediaVideo = graph.MediaVideo
	// MediaImage is a still image presented for the node's timing window.
	MediaImage = graph.MediaImage
)

// ParseMediaType converts a config string ("video", "image") into a MediaType.
func ParseMediaType(s string) (MediaType, error) {
	return graph.ParseMediaType(s)
}

// SourceNode is a timed reference to one media asset within the composition.
type SourceNode = graph.SourceNode

// EffectNode applies one effect definition to a source.
type EffectNode = graph.EffectNode

// TransitionNode blends two sources over a time window.
type TransitionNode = graph.TransitionNode

// EffectKind identifies a known effect definition.
type EffectKind = graph.EffectKind

const (
	// EffectZoomPan animates a slow zoom or pan across the source.
	EffectZoomPan = graph.EffectZoomPan
	// EffectBrightness adjusts luminance by a fixed level.
	EffectBrightness = graph.EffectBrightness
	// EffectOpacity scales the source's alpha.
	EffectOpacity = graph.EffectOpacity
)

// EffectParams is implemented by the per-kind parameter structs.
type EffectParams = graph.EffectParams

// ZoomPanParams configures EffectZoomPan.
type ZoomPanParams = graph.ZoomPanParams

// BrightnessParams configures EffectBrightness.
type BrightnessParams = graph.BrightnessParams

// OpacityParams configures EffectOpacity.
type OpacityParams = graph.OpacityParams

// TransitionKind identifies a known transition between two sources.
type TransitionKind = graph.TransitionKind

const (
	// TransitionCrossfade blends A out while B blends in.
	TransitionCrossfade = graph.TransitionCrossfade
	// TransitionDipToBlack fades A to black, then black to B.
	TransitionDipToBlack = graph.TransitionDipToBlack
	// TransitionWipe reveals B across A with a moving edge.
	TransitionWipe = graph.TransitionWipe
)

// Public API errors - Re-export internal errors as stable contract
var (
	ErrValidation           = graph.ErrValidation
	ErrDuplicateID          = graph.ErrDuplicateID
	ErrUnsupportedMediaType = graph.ErrUnsupportedMediaType
	ErrNodeNotFound         = graph.ErrNodeNotFound
	ErrGraphDestroyed       = graph.ErrGraphDestroyed
)
