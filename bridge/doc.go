// Package bridge mediates between a lightweight poster surface and a fully
// initialized live rendering surface.
//
// # Overview
//
// The Adapter is a readiness state machine around one media item: it runs the
// asynchronous surface initialization (metadata probe, first-frame poster
// extraction), owns a composition graph and its playback controller, and
// serializes every transport operation through a single operations goroutine
// so that concurrent calls queue instead of interleaving.
//
// States:
//
//	Uninitialized → Initializing → Ready → PlayingRequested → Playing ⇄ Paused
//
// Error is reachable from any state and is recoverable: a later successful
// Initialize returns the adapter to Ready without rebuilding it. Destroyed is
// terminal.
//
// # Surface Coordination
//
// The poster surface holds the extracted first frame and is the visible
// surface until the owner calls ShowLiveSurface. Play issued while the poster
// is still visible fails with ErrCoordination and leaves the state machine
// untouched; the visibility check and the state check happen atomically when
// the queued operation is evaluated.
//
// # Basic Usage
//
//	surface, err := bridge.NewGStreamerSurface(bridge.LiveConfig{URI: url})
//	if err != nil {
//		log.Fatal(err)
//	}
//	adapter, err := bridge.New(bridge.Config{MediaURL: url, Surface: surface})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer adapter.Destroy()
//
//	if err := adapter.Initialize(ctx); err != nil {
//		log.Fatal(err)
//	}
//	adapter.ShowLiveSurface()
//	if err := adapter.Play(ctx); err != nil {
//		log.Fatal(err)
//	}
package bridge
