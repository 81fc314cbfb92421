// Package trim converts screen-space pointer gestures into time-domain
// edits: trim bounds and seek positions.
//
// # Overview
//
// A trim timeline models a horizontal track with two trim handles (start,
// end) and an optional position indicator. Pointer events are fed in raw
// (press/move/release with pixel coordinates); the timeline hit-tests the
// press, runs the appropriate gesture session, and reports edits through
// callbacks.
//
// Handle drags are draft-based: pointer moves update only the ephemeral
// draft bounds and fire OnTrimChange (cheap, continuous). The committed
// bounds change exactly once, on release, via OnTrimChangeEnd, which is the
// hook for expensive downstream work. Dragging the position indicator seeks
// on every move, with no draft phase, and a press+release on the bare track
// with no motion in between seeks to the click position.
//
// # Invariants
//
// Committed bounds always satisfy End - Start >= MinGap (default 0.5s). A
// drag that would push a handle past the gap boundary is ignored: the handle
// stops moving rather than being clamped and committed. Pointer positions
// are normalized against the track width and clamped to [0, 1] before being
// scaled to time, so positions outside the track can never produce
// out-of-range times.
//
// # Basic Usage
//
//	tl, err := trim.New(trim.Config{
//	    Duration:   30,
//	    TrackX:     0,
//	    TrackWidth: 600,
//	    MinGap:     trim.DefaultMinGap,
//	    Indicator:  true,
//	    Callbacks: trim.Callbacks{
//	        OnTrimChange:    func(start, end float64) { preview(start, end) },
//	        OnTrimChangeEnd: func(start, end float64) { reprocess(start, end) },
//	        OnSeek:          func(t float64) { player.Seek(t) },
//	    },
//	})
//	if err != nil {
//	    return err
//	}
//
//	tl.Handle(trim.PointerEvent{Action: trim.ActionPress, Button: trim.ButtonPrimary, X: 120})
//	tl.Handle(trim.PointerEvent{Action: trim.ActionMove, X: 180})
//	tl.Handle(trim.PointerEvent{Action: trim.ActionRelease, X: 180})
package trim
