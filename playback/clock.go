package playback

import "time"

// referenceClock derives the playback position from wall time: position is
// the anchor position plus the wall time elapsed since the anchor was set.
// It is the fallback when the renderer has no authoritative position, and
// the only clock for renderer-less (clock-only) playback.
//
// Not safe for concurrent use; the controller guards it with its own lock.
type referenceClock struct {
	anchorAt  time.Time
	anchorPos float64
	running   bool
}

func (c *referenceClock) start(now time.Time) {
	if c.running {
		return
	}
	c.anchorAt = now
	c.running = true
}

func (c *referenceClock) pause(now time.Time) {
	if !c.running {
		return
	}
	c.anchorPos = c.position(now)
	c.running = false
}

// set re-anchors the clock at pos without changing the running state.
func (c *referenceClock) set(now time.Time, pos float64) {
	c.anchorAt = now
	c.anchorPos = pos
}

func (c *referenceClock) position(now time.Time) float64 {
	if !c.running {
		return c.anchorPos
	}
	return c.anchorPos + now.Sub(c.anchorAt).Seconds()
}
