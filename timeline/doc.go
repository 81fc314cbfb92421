// Package timeline computes scene intervals and transition windows for
// multi-scene compositions.
//
// # Overview
//
// The scheduler takes an ordered scene list, derives cumulative [start, end)
// intervals (a scene without an explicit duration gets the 5-second default),
// and resolves a global play-time to the active scene index. The upper bound
// is half-open everywhere except the composition's very end, which resolves
// to the last scene.
//
// Applying a scheduler to a composition graph is always a full rebuild:
// previously scheduled sources are removed, one source per scene is re-added
// with its interval timing, and every adjacent scene pair gets a fixed
// 1-second overlap crossfade window (prevEnd-1 to nextStart+1). Nothing is
// patched incrementally, so scene reordering can never leave stale timing
// behind.
//
// # Basic Usage
//
//	sched := timeline.New()
//	sched.SetScenes([]timeline.Scene{
//	    {ID: "a", MediaURL: "file:///a.mp4", MediaType: composition.MediaVideo, Duration: 5},
//	    {ID: "b", MediaURL: "file:///b.mp4", MediaType: composition.MediaVideo, Duration: 8},
//	    {ID: "c", MediaURL: "file:///c.jpg", MediaType: composition.MediaImage, Duration: 4},
//	})
//
//	idx := sched.ResolveActiveScene(10) // 1: inside [5, 13)
//
//	g := composition.New()
//	if err := sched.Apply(g); err != nil {
//	    return err
//	}
package timeline
