// Package composition maintains the node graph of one video composition.
//
// # Overview
//
// A composition is a set of timed source nodes (video or image assets),
// effect nodes wired to a source, and transition nodes blending two sources
// over a time window. The graph owns every node in arena-style maps keyed by
// id and enforces referential integrity itself: removing a source
// cascade-deletes every effect and transition that references it.
//
// The composition duration is derived state, the maximum end time across
// all sources, recomputed on every timing mutation.
//
// # Basic Usage
//
// Create a graph and populate it:
//
//	g := composition.New()
//	defer g.Destroy()
//
//	if _, err := g.AddSource("intro", "file:///media/intro.mp4", composition.MediaVideo); err != nil {
//	    return err
//	}
//	if err := g.SetSourceTiming("intro", 0, 5); err != nil {
//	    return err
//	}
//	g.AddEffect("intro", composition.EffectZoomPan, composition.ZoomPanParams{Mode: "in", Speed: 0.2})
//
// # Failure Semantics
//
// Mutations return explicit errors. A duplicate source id is caller misuse
// and fails loudly with ErrDuplicateID. Dangling references (an effect or
// transition naming a missing source) fail with a nil handle and a logged
// ErrNodeNotFound, leaving the graph unchanged. Unknown effect or transition
// kinds fail with ErrValidation rather than silently doing nothing.
//
// # Thread Safety
//
// All operations are safe for concurrent use. The playback controller
// additionally serializes graph mutation against render ticks; see the
// playback package.
package composition
