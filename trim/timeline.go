package trim

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
)

// ErrInvalidRange indicates trim bounds or geometry outside the legal range.
var ErrInvalidRange = errors.New("invalid trim range")

// TrimState is a point-in-time snapshot of committed and draft bounds.
type TrimState struct {
	// Start and End are the committed bounds in seconds. They always
	// satisfy End - Start >= MinGap.
	Start float64
	End   float64
	// DraftStart and DraftEnd mirror the committed bounds except during a
	// handle drag, when they carry the in-progress edit.
	DraftStart float64
	DraftEnd   float64
	// Position is the indicator position in seconds.
	Position float64
	// Dragging reports whether a handle drag session is active.
	Dragging bool
}

// TrimStats is a point-in-time snapshot of gesture activity.
type TrimStats struct {
	// HandleDrags counts started handle drag sessions.
	HandleDrags uint64
	// Commits counts committed handle drags.
	Commits uint64
	// Seeks counts OnSeek invocations (indicator moves and track clicks).
	Seeks uint64
	// IgnoredMoves counts handle moves rejected by the min-gap bound.
	IgnoredMoves uint64
	// TrackClicks counts bare-track click seeks.
	TrackClicks uint64
}

type grabTarget int

const (
	grabNone grabTarget = iota
	grabStartHandle
	grabEndHandle
	grabIndicator
	grabTrack
)

// Timeline is the gesture state machine for one trim track.
type Timeline struct {
	mu sync.Mutex

	duration   float64
	start, end float64 // committed
	draftStart float64
	draftEnd   float64
	position   float64

	minGap     float64
	hitSlop    float64
	clickTol   float64
	trackX     float64
	trackWidth float64
	indicator  bool

	grab   grabTarget
	pressX float64
	moved  bool

	cb    Callbacks
	stats TrimStats
}

// New creates a trim timeline. The committed bounds start at
// [cfg.Start, cfg.End] (End zero means the full duration) and must respect
// the minimum gap.
func New(cfg Config) (*Timeline, error) {
	if cfg.Duration <= 0 || math.IsNaN(cfg.Duration) || math.IsInf(cfg.Duration, 0) {
		return nil, fmt.Errorf("duration %v must be a positive finite number: %w", cfg.Duration, ErrInvalidRange)
	}
	if cfg.TrackWidth <= 0 {
		return nil, fmt.Errorf("track width %v must be positive: %w", cfg.TrackWidth, ErrInvalidRange)
	}

	minGap := cfg.MinGap
	if minGap == 0 {
		minGap = DefaultMinGap
	}
	if minGap < 0 {
		return nil, fmt.Errorf("min gap %v must not be negative: %w", minGap, ErrInvalidRange)
	}
	if cfg.Duration < minGap {
		return nil, fmt.Errorf("duration %v shorter than min gap %v: %w", cfg.Duration, minGap, ErrInvalidRange)
	}

	hitSlop := cfg.HandleHitSlopPx
	if hitSlop == 0 {
		hitSlop = DefaultHandleHitSlopPx
	}
	clickTol := cfg.ClickTolerancePx
	if clickTol == 0 {
		clickTol = DefaultClickTolerancePx
	}

	start := cfg.Start
	end := cfg.End
	if end == 0 {
		end = cfg.Duration
	}
	if start < 0 || end > cfg.Duration || end-start < minGap {
		return nil, fmt.Errorf("bounds [%v, %v] within duration %v violate min gap %v: %w",
			start, end, cfg.Duration, minGap, ErrInvalidRange)
	}

	t := &Timeline{
		duration:   cfg.Duration,
		start:      start,
		end:        end,
		draftStart: start,
		draftEnd:   end,
		position:   start,
		minGap:     minGap,
		hitSlop:    hitSlop,
		clickTol:   clickTol,
		trackX:     cfg.TrackX,
		trackWidth: cfg.TrackWidth,
		indicator:  cfg.Indicator,
		cb:         cfg.Callbacks,
	}
	slog.Debug("trim: timeline created",
		"duration", cfg.Duration, "start", start, "end", end, "min_gap", minGap)
	return t, nil
}

// Handle feeds one pointer event into the gesture machine. Callbacks fire
// synchronously, outside the timeline's lock.
func (t *Timeline) Handle(ev PointerEvent) {
	t.mu.Lock()
	var fire []func()
	switch ev.Action {
	case ActionPress:
		t.pressLocked(ev)
	case ActionMove:
		fire = t.moveLocked(ev)
	case ActionRelease:
		fire = t.releaseLocked(ev)
	}
	t.mu.Unlock()

	for _, f := range fire {
		f()
	}
}

func (t *Timeline) pressLocked(ev PointerEvent) {
	if t.grab != grabNone {
		return // a session is already active
	}
	if ev.Button != ButtonPrimary {
		return
	}

	startPx := t.timeToPxLocked(t.start)
	endPx := t.timeToPxLocked(t.end)
	dStart := math.Abs(ev.X - startPx)
	dEnd := math.Abs(ev.X - endPx)

	switch {
	case dStart <= t.hitSlop || dEnd <= t.hitSlop:
		// Overlapping handles: grab the nearer one, ties go to start.
		if dStart <= dEnd {
			t.grab = grabStartHandle
		} else {
			t.grab = grabEndHandle
		}
		t.draftStart = t.start
		t.draftEnd = t.end
		t.stats.HandleDrags++
		slog.Debug("trim: handle drag started",
			"handle", t.grab.name(), "start", t.start, "end", t.end)

	case t.indicator && math.Abs(ev.X-t.timeToPxLocked(t.position)) <= t.hitSlop:
		t.grab = grabIndicator
		slog.Debug("trim: indicator drag started", "position", t.position)

	default:
		t.grab = grabTrack
		t.pressX = ev.X
		t.moved = false
	}
}

func (t *Timeline) moveLocked(ev PointerEvent) []func() {
	switch t.grab {
	case grabStartHandle:
		nt := t.pxToTimeLocked(ev.X)
		if nt > t.draftEnd-t.minGap {
			// Past the gap boundary: the handle does not move further.
			t.stats.IgnoredMoves++
			return nil
		}
		t.draftStart = nt
		return t.trimChangeLocked()

	case grabEndHandle:
		nt := t.pxToTimeLocked(ev.X)
		if nt < t.draftStart+t.minGap {
			t.stats.IgnoredMoves++
			return nil
		}
		t.draftEnd = nt
		return t.trimChangeLocked()

	case grabIndicator:
		t.position = t.pxToTimeLocked(ev.X)
		return t.seekLocked(t.position)

	case grabTrack:
		if math.Abs(ev.X-t.pressX) > t.clickTol {
			t.moved = true
		}
		return nil

	default:
		return nil
	}
}

func (t *Timeline) releaseLocked(ev PointerEvent) []func() {
	grab := t.grab
	t.grab = grabNone

	switch grab {
	case grabStartHandle, grabEndHandle:
		t.start = t.draftStart
		t.end = t.draftEnd
		t.stats.Commits++
		slog.Debug("trim: bounds committed", "start", t.start, "end", t.end)
		if t.cb.OnTrimChangeEnd == nil {
			return nil
		}
		start, end := t.start, t.end
		return []func(){func() { t.cb.OnTrimChangeEnd(start, end) }}

	case grabIndicator:
		return nil // seeks already fired per move

	case grabTrack:
		if t.moved {
			return nil // a drag on the bare track edits nothing
		}
		clickT := t.pxToTimeLocked(t.pressX)
		t.position = clickT
		t.stats.TrackClicks++
		slog.Debug("trim: track click seek", "t", clickT)
		return t.seekLocked(clickT)

	default:
		return nil
	}
}

// trimChangeLocked prepares the continuous draft callback. Caller holds t.mu.
func (t *Timeline) trimChangeLocked() []func() {
	if t.cb.OnTrimChange == nil {
		return nil
	}
	start, end := t.draftStart, t.draftEnd
	return []func(){func() { t.cb.OnTrimChange(start, end) }}
}

// seekLocked prepares a seek callback. Caller holds t.mu.
func (t *Timeline) seekLocked(at float64) []func() {
	t.stats.Seeks++
	if t.cb.OnSeek == nil {
		return nil
	}
	return []func(){func() { t.cb.OnSeek(at) }}
}

// pxToTimeLocked converts a pixel position into seconds. The normalized
// position is clamped to [0, 1] before scaling, so pointer positions outside
// the track bounds can never produce out-of-range times. Caller holds t.mu.
func (t *Timeline) pxToTimeLocked(x float64) float64 {
	norm := (x - t.trackX) / t.trackWidth
	if norm < 0 {
		norm = 0
	}
	if norm > 1 {
		norm = 1
	}
	return norm * t.duration
}

// timeToPxLocked converts seconds into a pixel position. Caller holds t.mu.
func (t *Timeline) timeToPxLocked(at float64) float64 {
	return t.trackX + (at/t.duration)*t.trackWidth
}

// State returns a snapshot of the current trim state.
func (t *Timeline) State() TrimState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TrimState{
		Start:      t.start,
		End:        t.end,
		DraftStart: t.draftStart,
		DraftEnd:   t.draftEnd,
		Position:   t.position,
		Dragging:   t.grab == grabStartHandle || t.grab == grabEndHandle,
	}
}

// Stats returns a snapshot of gesture activity.
func (t *Timeline) Stats() TrimStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// SetBounds commits trim bounds programmatically. An active handle drag is
// not disturbed: its draft continues and the release commit wins.
func (t *Timeline) SetBounds(start, end float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if math.IsNaN(start) || math.IsNaN(end) {
		return fmt.Errorf("bounds (%v, %v) must be numbers: %w", start, end, ErrInvalidRange)
	}
	if start < 0 || end > t.duration || end-start < t.minGap {
		return fmt.Errorf("bounds [%v, %v] within duration %v violate min gap %v: %w",
			start, end, t.duration, t.minGap, ErrInvalidRange)
	}

	t.start = start
	t.end = end
	if t.grab != grabStartHandle && t.grab != grabEndHandle {
		t.draftStart = start
		t.draftEnd = end
	}
	return nil
}

// SetDuration updates the media duration, pulling the committed bounds back
// inside it while preserving the min-gap invariant.
func (t *Timeline) SetDuration(d float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return fmt.Errorf("duration %v must be a positive finite number: %w", d, ErrInvalidRange)
	}
	if d < t.minGap {
		return fmt.Errorf("duration %v shorter than min gap %v: %w", d, t.minGap, ErrInvalidRange)
	}

	t.duration = d
	// Committed end >= minGap always holds, so pulling end to min(end, d)
	// keeps end - minGap >= 0 and the clamped start stays non-negative.
	if t.end > d {
		t.end = d
	}
	if t.start > t.end-t.minGap {
		t.start = t.end - t.minGap
	}
	if t.draftEnd > d {
		t.draftEnd = d
	}
	if t.draftStart > t.draftEnd-t.minGap {
		t.draftStart = t.draftEnd - t.minGap
	}
	if t.position > d {
		t.position = d
	}
	return nil
}

// SetGeometry updates the track's pixel placement, e.g. after a layout
// change.
func (t *Timeline) SetGeometry(x, width float64) error {
	if width <= 0 {
		return fmt.Errorf("track width %v must be positive: %w", width, ErrInvalidRange)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.trackX = x
	t.trackWidth = width
	return nil
}

// SetPosition moves the indicator, clamped to [0, duration]. Used by owners
// that mirror playback progress onto the track.
func (t *Timeline) SetPosition(at float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if at < 0 {
		at = 0
	}
	if at > t.duration {
		at = t.duration
	}
	t.position = at
}

func (g grabTarget) name() string {
	switch g {
	case grabStartHandle:
		return "start"
	case grabEndHandle:
		return "end"
	case grabIndicator:
		return "indicator"
	case grabTrack:
		return "track"
	default:
		return "none"
	}
}
