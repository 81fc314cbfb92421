// Package playback drives a composition graph through time.
//
// # Overview
//
// The Controller owns one composition.Graph and advances a playback clock
// over it: a cooperative render loop ticks at a fixed interval, reads the
// media position from the attached Renderer (falling back to a wall-clock
// reference), notifies time observers, and fires a single ended event when
// the clock reaches the composition duration.
//
// # Basic Usage
//
//	g := composition.New()
//	ctrl, err := playback.New(g, playback.DefaultConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer ctrl.Destroy()
//
//	ctrl.Attach(renderer) // e.g. a live surface
//	ctrl.OnTime(func(t float64) { ... })
//	ctrl.OnEnded(func() { ... })
//
//	ctrl.SetReady(true)
//	if err := ctrl.Play(); err != nil {
//		log.Fatal(err)
//	}
//
// # Concurrency Model
//
// One mutex serializes everything: transport calls, graph edits submitted
// through Do, and render ticks. The loop runs at most one tick at a time and
// drops ticks that would otherwise queue behind a long-running operation, so
// a slow renderer degrades frame rate instead of building a backlog.
// Observer callbacks are invoked synchronously, in registration order, and
// always outside the controller's lock.
package playback
