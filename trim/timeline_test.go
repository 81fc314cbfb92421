package trim

import (
	"errors"
	"math"
	"testing"
)

// recorder collects callback invocations for assertions.
type recorder struct {
	changes [][2]float64
	commits [][2]float64
	seeks   []float64
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnTrimChange:    func(s, e float64) { r.changes = append(r.changes, [2]float64{s, e}) },
		OnTrimChangeEnd: func(s, e float64) { r.commits = append(r.commits, [2]float64{s, e}) },
		OnSeek:          func(t float64) { r.seeks = append(r.seeks, t) },
	}
}

// newTestTimeline builds a 10s timeline mapped onto a 100px track, so one
// second is ten pixels.
func newTestTimeline(t *testing.T, rec *recorder) *Timeline {
	t.Helper()
	tl, err := New(Config{
		Duration:   10,
		TrackWidth: 100,
		Indicator:  true,
		Callbacks:  rec.callbacks(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tl
}

func press(x float64) PointerEvent {
	return PointerEvent{Action: ActionPress, Button: ButtonPrimary, X: x}
}

func move(x float64) PointerEvent {
	return PointerEvent{Action: ActionMove, Button: ButtonPrimary, X: x}
}

func release(x float64) PointerEvent {
	return PointerEvent{Action: ActionRelease, Button: ButtonPrimary, X: x}
}

func TestTimeline_HandleDrag_DraftThenCommit(t *testing.T) {
	rec := &recorder{}
	tl := newTestTimeline(t, rec)

	tl.Handle(press(100)) // end handle
	tl.Handle(move(80))

	st := tl.State()
	if !st.Dragging {
		t.Fatal("expected an active drag session")
	}
	if st.Start != 0 || st.End != 10 {
		t.Fatalf("committed bounds changed mid-drag: [%v, %v]", st.Start, st.End)
	}
	if st.DraftStart != 0 || st.DraftEnd != 8 {
		t.Fatalf("draft = [%v, %v], want [0, 8]", st.DraftStart, st.DraftEnd)
	}
	if len(rec.changes) != 1 || rec.changes[0] != [2]float64{0, 8} {
		t.Fatalf("changes = %v, want one (0, 8)", rec.changes)
	}
	if len(rec.commits) != 0 {
		t.Fatalf("commit fired before release: %v", rec.commits)
	}

	tl.Handle(release(80))

	st = tl.State()
	if st.Dragging {
		t.Fatal("drag session survived release")
	}
	if st.Start != 0 || st.End != 8 {
		t.Fatalf("committed = [%v, %v], want [0, 8]", st.Start, st.End)
	}
	if len(rec.commits) != 1 || rec.commits[0] != [2]float64{0, 8} {
		t.Fatalf("commits = %v, want exactly one (0, 8)", rec.commits)
	}
}

func TestTimeline_MinGap_MovesIgnoredNotClamped(t *testing.T) {
	rec := &recorder{}
	tl := newTestTimeline(t, rec)

	tl.Handle(press(100)) // end handle
	tl.Handle(move(60))   // legal: end draft 6
	tl.Handle(move(2))    // 0.2s < start+0.5: ignored
	tl.Handle(move(4))    // 0.4s: still ignored

	st := tl.State()
	if st.DraftEnd != 6 {
		t.Fatalf("draft end = %v, want frozen at 6", st.DraftEnd)
	}
	if got := tl.Stats().IgnoredMoves; got != 2 {
		t.Fatalf("ignored moves = %d, want 2", got)
	}

	tl.Handle(release(4))

	st = tl.State()
	if st.Start != 0 || st.End != 6 {
		t.Fatalf("committed = [%v, %v], want last legal [0, 6]", st.Start, st.End)
	}
	if st.End-st.Start < DefaultMinGap {
		t.Fatalf("committed gap %v below minimum", st.End-st.Start)
	}
}

func TestTimeline_MinGap_ExactGapAllowed(t *testing.T) {
	rec := &recorder{}
	tl := newTestTimeline(t, rec)

	tl.Handle(press(100))
	tl.Handle(move(5)) // 0.5s, exactly the gap
	tl.Handle(release(5))

	st := tl.State()
	if st.Start != 0 || st.End != 0.5 {
		t.Fatalf("committed = [%v, %v], want [0, 0.5]", st.Start, st.End)
	}
}

func TestTimeline_IndicatorDrag_SeeksPerMove(t *testing.T) {
	rec := &recorder{}
	tl := newTestTimeline(t, rec)
	tl.SetPosition(4) // away from both handles

	tl.Handle(press(40))
	tl.Handle(move(50))
	tl.Handle(move(70))
	tl.Handle(release(70))

	want := []float64{5, 7}
	if len(rec.seeks) != len(want) {
		t.Fatalf("seeks = %v, want %v", rec.seeks, want)
	}
	for i := range want {
		if rec.seeks[i] != want[i] {
			t.Fatalf("seek[%d] = %v, want %v", i, rec.seeks[i], want[i])
		}
	}
	if len(rec.changes) != 0 || len(rec.commits) != 0 {
		t.Fatal("indicator drag must not edit trim bounds")
	}
}

func TestTimeline_TrackClick_Seeks(t *testing.T) {
	rec := &recorder{}
	tl := newTestTimeline(t, rec)

	tl.Handle(press(40)) // bare track, clear of handles and indicator
	tl.Handle(release(41))

	if len(rec.seeks) != 1 || rec.seeks[0] != 4 {
		t.Fatalf("seeks = %v, want one seek to 4", rec.seeks)
	}
	if got := tl.State().Position; got != 4 {
		t.Fatalf("position = %v, want 4", got)
	}
}

func TestTimeline_TrackDrag_EditsNothing(t *testing.T) {
	rec := &recorder{}
	tl := newTestTimeline(t, rec)

	tl.Handle(press(40))
	tl.Handle(move(60)) // beyond click tolerance
	tl.Handle(release(60))

	if len(rec.seeks) != 0 || len(rec.changes) != 0 || len(rec.commits) != 0 {
		t.Fatalf("track drag fired callbacks: seeks=%v changes=%v commits=%v",
			rec.seeks, rec.changes, rec.commits)
	}
	st := tl.State()
	if st.Start != 0 || st.End != 10 {
		t.Fatalf("bounds moved: [%v, %v]", st.Start, st.End)
	}
}

func TestTimeline_PointerBeyondTrack_Clamps(t *testing.T) {
	rec := &recorder{}
	tl := newTestTimeline(t, rec)

	tl.Handle(press(100))
	tl.Handle(move(80))
	tl.Handle(move(250)) // far off the right edge
	tl.Handle(release(250))

	st := tl.State()
	if st.End != 10 {
		t.Fatalf("end = %v, want clamped to duration 10", st.End)
	}

	tl.Handle(press(0))
	tl.Handle(move(50))
	tl.Handle(move(-90)) // far off the left edge
	tl.Handle(release(-90))

	st = tl.State()
	if st.Start != 0 {
		t.Fatalf("start = %v, want clamped to 0", st.Start)
	}
}

func TestTimeline_OverlappingHandles_StartWinsTie(t *testing.T) {
	rec := &recorder{}
	tl, err := New(Config{
		Duration:   10,
		TrackWidth: 100,
		Start:      5,
		End:        5.5,
		Callbacks:  rec.callbacks(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tl.Handle(press(52.5)) // equidistant from both handles
	tl.Handle(move(30))
	tl.Handle(release(30))

	st := tl.State()
	if st.Start != 3 || st.End != 5.5 {
		t.Fatalf("committed = [%v, %v], want start handle moved to [3, 5.5]", st.Start, st.End)
	}
}

func TestTimeline_Geometry_OffsetTrack(t *testing.T) {
	rec := &recorder{}
	tl, err := New(Config{
		Duration:   20,
		TrackX:     100,
		TrackWidth: 200,
		Callbacks:  rec.callbacks(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tl.Handle(press(200)) // halfway down the track
	tl.Handle(release(200))

	if len(rec.seeks) != 1 || rec.seeks[0] != 10 {
		t.Fatalf("seeks = %v, want one seek to 10", rec.seeks)
	}
}

func TestTimeline_SetBounds(t *testing.T) {
	tl := newTestTimeline(t, &recorder{})

	if err := tl.SetBounds(2, 8); err != nil {
		t.Fatalf("SetBounds(2, 8): %v", err)
	}
	st := tl.State()
	if st.Start != 2 || st.End != 8 || st.DraftStart != 2 || st.DraftEnd != 8 {
		t.Fatalf("state after SetBounds = %+v", st)
	}

	cases := []struct {
		name       string
		start, end float64
	}{
		{"below_min_gap", 4, 4.2},
		{"negative_start", -1, 5},
		{"end_past_duration", 0, 11},
		{"nan_start", math.NaN(), 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tl.SetBounds(tc.start, tc.end); !errors.Is(err, ErrInvalidRange) {
				t.Fatalf("SetBounds(%v, %v) = %v, want ErrInvalidRange", tc.start, tc.end, err)
			}
		})
	}
}

func TestTimeline_SetDuration_PullsBoundsIn(t *testing.T) {
	tl := newTestTimeline(t, &recorder{})
	if err := tl.SetBounds(2, 9.5); err != nil {
		t.Fatalf("SetBounds: %v", err)
	}

	if err := tl.SetDuration(5); err != nil {
		t.Fatalf("SetDuration(5): %v", err)
	}
	st := tl.State()
	if st.Start != 2 || st.End != 5 {
		t.Fatalf("bounds = [%v, %v], want [2, 5]", st.Start, st.End)
	}

	if err := tl.SetDuration(2.2); err != nil {
		t.Fatalf("SetDuration(2.2): %v", err)
	}
	st = tl.State()
	if st.End != 2.2 || st.Start != 2.2-DefaultMinGap {
		t.Fatalf("bounds = [%v, %v], want min gap preserved below new duration", st.Start, st.End)
	}

	if err := tl.SetDuration(0.1); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("SetDuration(0.1) = %v, want ErrInvalidRange", err)
	}
}

func TestTimeline_New_Validation(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"zero_duration", Config{TrackWidth: 100}},
		{"nan_duration", Config{Duration: math.NaN(), TrackWidth: 100}},
		{"zero_width", Config{Duration: 10}},
		{"bounds_below_gap", Config{Duration: 10, TrackWidth: 100, Start: 5, End: 5.2}},
		{"duration_below_gap", Config{Duration: 0.3, TrackWidth: 100}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.cfg); !errors.Is(err, ErrInvalidRange) {
				t.Fatalf("New(%+v) = %v, want ErrInvalidRange", tc.cfg, err)
			}
		})
	}
}
