package timeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/visiona/scene-bridge/composition"
)

const (
	// DefaultSceneDuration is applied to scenes without an explicit duration.
	DefaultSceneDuration = 5.0

	// TransitionOverlap is the fixed half-width of the blend window around a
	// scene boundary: a boundary at t yields the window [t-1, t+1].
	TransitionOverlap = 1.0
)

var (
	// ErrSceneNotFound indicates an operation naming an unknown scene id.
	ErrSceneNotFound = errors.New("scene not found")

	// ErrBadIndex indicates a move target outside the scene list.
	ErrBadIndex = errors.New("index out of range")
)

// Scene is one entry of the ordered scene list.
type Scene struct {
	// ID is the scene identifier; it becomes the source node id when the
	// scheduler is applied to a graph.
	ID string
	// MediaURL locates the scene's asset.
	MediaURL string
	// MediaType is the asset kind.
	MediaType composition.MediaType
	// Duration is the scene length in seconds; zero selects
	// DefaultSceneDuration.
	Duration float64
}

// SceneInterval is the derived [Start, End) window a scene occupies on the
// global timeline.
type SceneInterval struct {
	Start float64
	End   float64
}

// SchedulerStats is a point-in-time snapshot of scheduler activity.
type SchedulerStats struct {
	// Scenes is the current scene count.
	Scenes int
	// TotalDuration is the summed effective duration in seconds.
	TotalDuration float64
	// Recomputes counts interval recomputations.
	Recomputes uint64
	// Applies counts successful graph rebuilds.
	Applies uint64
}

// Scheduler derives per-scene intervals and transition windows from an
// ordered scene list and rebuilds a composition graph from them.
type Scheduler struct {
	mu        sync.RWMutex
	scenes    []Scene
	intervals []SceneInterval
	total     float64

	// appliedIDs remembers the source ids of the previous Apply so the next
	// rebuild can clear them before re-adding.
	appliedIDs []string

	recomputes uint64
	applies    uint64
}

// New creates an empty scheduler.
func New() *Scheduler {
	return &Scheduler{}
}

// SetScenes replaces the scene list and recomputes all intervals.
func (s *Scheduler) SetScenes(scenes []Scene) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scenes = make([]Scene, len(scenes))
	copy(s.scenes, scenes)
	s.recomputeLocked()
}

// Scenes returns a copy of the current scene list.
func (s *Scheduler) Scenes() []Scene {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Scene, len(s.scenes))
	copy(out, s.scenes)
	return out
}

// UpdateSceneDuration sets one scene's duration (zero restores the default)
// and recomputes all intervals.
func (s *Scheduler) UpdateSceneDuration(id string, duration float64) error {
	if duration < 0 {
		return fmt.Errorf("duration %.3f must not be negative: %w", duration, composition.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.scenes {
		if s.scenes[i].ID == id {
			s.scenes[i].Duration = duration
			s.recomputeLocked()
			return nil
		}
	}
	return fmt.Errorf("scene %q: %w", id, ErrSceneNotFound)
}

// MoveScene moves the scene with the given id to a new position and
// recomputes all intervals.
func (s *Scheduler) MoveScene(id string, toIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if toIndex < 0 || toIndex >= len(s.scenes) {
		return fmt.Errorf("move to %d of %d scenes: %w", toIndex, len(s.scenes), ErrBadIndex)
	}

	from := -1
	for i := range s.scenes {
		if s.scenes[i].ID == id {
			from = i
			break
		}
	}
	if from == -1 {
		return fmt.Errorf("scene %q: %w", id, ErrSceneNotFound)
	}
	if from == toIndex {
		return nil
	}

	moved := s.scenes[from]
	s.scenes = append(s.scenes[:from], s.scenes[from+1:]...)
	s.scenes = append(s.scenes[:toIndex], append([]Scene{moved}, s.scenes[toIndex:]...)...)
	s.recomputeLocked()
	return nil
}

// RemoveScene deletes the scene with the given id and recomputes all
// intervals.
func (s *Scheduler) RemoveScene(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.scenes {
		if s.scenes[i].ID == id {
			s.scenes = append(s.scenes[:i], s.scenes[i+1:]...)
			s.recomputeLocked()
			return nil
		}
	}
	return fmt.Errorf("scene %q: %w", id, ErrSceneNotFound)
}

// Intervals returns a copy of the derived scene intervals.
func (s *Scheduler) Intervals() []SceneInterval {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]SceneInterval, len(s.intervals))
	copy(out, s.intervals)
	return out
}

// TotalDuration returns the end of the last interval, zero when empty.
func (s *Scheduler) TotalDuration() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}

// ResolveActiveScene returns the index of the scene whose interval contains
// t. Intervals are [start, end); t equal to the very end of the timeline
// resolves to the last scene. Times outside the timeline return -1.
func (s *Scheduler) ResolveActiveScene(t float64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.intervals) == 0 || t < 0 || t > s.total {
		return -1
	}
	for i, iv := range s.intervals {
		if iv.Start <= t && t < iv.End {
			return i
		}
	}
	// t == total: closed upper bound only at the composition's end.
	return len(s.intervals) - 1
}

// Apply rebuilds the graph from the current scene list: previously scheduled
// sources are removed (cascading their transitions), every scene is re-added
// with its interval timing, and each adjacent pair gets a crossfade over the
// fixed overlap window. The rebuild is always from scratch.
func (s *Scheduler) Apply(g *composition.Graph) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.appliedIDs {
		g.RemoveSource(id)
	}
	s.appliedIDs = s.appliedIDs[:0]

	for i, sc := range s.scenes {
		iv := s.intervals[i]
		if _, err := g.AddSource(sc.ID, sc.MediaURL, sc.MediaType); err != nil {
			return fmt.Errorf("timeline: add scene %q: %w", sc.ID, err)
		}
		s.appliedIDs = append(s.appliedIDs, sc.ID)
		if err := g.SetSourceTiming(sc.ID, iv.Start, iv.End); err != nil {
			return fmt.Errorf("timeline: schedule scene %q: %w", sc.ID, err)
		}
	}

	for i := 0; i+1 < len(s.scenes); i++ {
		boundary := s.intervals[i].End
		windowStart := boundary - TransitionOverlap
		if windowStart < 0 {
			windowStart = 0
		}
		windowEnd := s.intervals[i+1].Start + TransitionOverlap
		_, err := g.AddTransition(
			s.scenes[i].ID, s.scenes[i+1].ID,
			composition.TransitionCrossfade,
			windowStart, windowEnd, 1.0,
		)
		if err != nil {
			return fmt.Errorf("timeline: transition %q-%q: %w", s.scenes[i].ID, s.scenes[i+1].ID, err)
		}
	}

	s.applies++
	slog.Info("timeline: schedule applied",
		"scenes", len(s.scenes), "total_duration", s.total)
	return nil
}

// Stats returns a snapshot of scheduler activity.
func (s *Scheduler) Stats() SchedulerStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return SchedulerStats{
		Scenes:        len(s.scenes),
		TotalDuration: s.total,
		Recomputes:    s.recomputes,
		Applies:       s.applies,
	}
}

// effectiveDuration returns the scene duration with the default applied.
func effectiveDuration(sc Scene) float64 {
	if sc.Duration > 0 {
		return sc.Duration
	}
	return DefaultSceneDuration
}

// recomputeLocked rederives every interval from the scene list in order.
// Caller holds s.mu.
func (s *Scheduler) recomputeLocked() {
	s.intervals = make([]SceneInterval, len(s.scenes))
	cursor := 0.0
	for i, sc := range s.scenes {
		d := effectiveDuration(sc)
		s.intervals[i] = SceneInterval{Start: cursor, End: cursor + d}
		cursor += d
	}
	s.total = cursor
	s.recomputes++

	slog.Debug("timeline: intervals recomputed",
		"scenes", len(s.scenes), "total_duration", s.total)
}
