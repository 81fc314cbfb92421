package graph

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Graph owns every node of one composition and their wiring.
//
// All node state lives in arena-style maps keyed by id. Mutation goes through
// Graph methods only; node values handed back to callers are snapshots.
// Referential integrity is graph-owned: removing a source cascades to every
// effect and transition that references it.
type Graph struct {
	mu sync.RWMutex

	sources     map[string]*SourceNode
	effects     map[string]*EffectNode
	transitions map[string]*TransitionNode

	// Dependency indexes for cascade deletes. A transition is indexed under
	// both of its sources.
	effectsBySource     map[string]map[string]struct{}
	transitionsBySource map[string]map[string]struct{}

	duration  float64
	destroyed bool

	stats GraphStats
}

// GraphStats is a point-in-time snapshot of graph contents and activity.
type GraphStats struct {
	// Sources is the current number of source nodes.
	Sources int
	// Effects is the current number of effect nodes.
	Effects int
	// Transitions is the current number of transition nodes.
	Transitions int
	// Duration is the current composition duration in seconds.
	Duration float64
	// SourcesAdded counts successful AddSource calls.
	SourcesAdded uint64
	// SourcesRemoved counts sources deleted via RemoveSource.
	SourcesRemoved uint64
	// EffectsAdded counts successful AddEffect calls.
	EffectsAdded uint64
	// TransitionsAdded counts successful AddTransition calls.
	TransitionsAdded uint64
	// TimingUpdates counts successful SetSourceTiming calls.
	TimingUpdates uint64
	// CascadedDeletes counts effect/transition nodes deleted as a side
	// effect of RemoveSource.
	CascadedDeletes uint64
	// Destroyed reports whether Destroy has run.
	Destroyed bool
}

// New creates an empty composition graph.
func New() *Graph {
	return &Graph{
		sources:             make(map[string]*SourceNode),
		effects:             make(map[string]*EffectNode),
		transitions:         make(map[string]*TransitionNode),
		effectsBySource:     make(map[string]map[string]struct{}),
		transitionsBySource: make(map[string]map[string]struct{}),
	}
}

// AddSource creates a source node under the caller-supplied id.
//
// A duplicate id fails loudly with ErrDuplicateID: it indicates caller
// misuse, not a recoverable condition. The new node has zero timing until
// SetSourceTiming runs.
func (g *Graph) AddSource(id, mediaURL string, mt MediaType) (*SourceNode, error) {
	if id == "" {
		return nil, fmt.Errorf("source id must not be empty: %w", ErrValidation)
	}
	if !mt.valid() {
		return nil, fmt.Errorf("media type %s: %w", mt, ErrUnsupportedMediaType)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.destroyed {
		return nil, ErrGraphDestroyed
	}
	if _, exists := g.sources[id]; exists {
		slog.Error("composition: duplicate source id", "id", id)
		return nil, fmt.Errorf("source %q: %w", id, ErrDuplicateID)
	}

	node := &SourceNode{ID: id, MediaURL: mediaURL, MediaType: mt}
	g.sources[id] = node
	g.stats.SourcesAdded++

	slog.Debug("composition: source added", "id", id, "type", mt.String())
	snapshot := *node
	return &snapshot, nil
}

// RemoveSource disconnects and deletes the source and every effect and
// transition that references it. Removing an unknown id is a no-op.
func (g *Graph) RemoveSource(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.destroyed {
		return
	}
	if _, exists := g.sources[id]; !exists {
		slog.Debug("composition: remove of unknown source ignored", "id", id)
		return
	}

	cascaded := g.cascadeLocked(id)
	delete(g.sources, id)
	g.stats.SourcesRemoved++
	g.recomputeDurationLocked()

	slog.Info("composition: source removed", "id", id, "cascaded", cascaded)
}

// cascadeLocked deletes every effect and transition wired to sourceID and
// returns how many nodes it removed. Caller holds g.mu.
func (g *Graph) cascadeLocked(sourceID string) int {
	removed := 0

	for eid := range g.effectsBySource[sourceID] {
		delete(g.effects, eid)
		removed++
	}
	delete(g.effectsBySource, sourceID)

	for tid := range g.transitionsBySource[sourceID] {
		t, ok := g.transitions[tid]
		if !ok {
			continue
		}
		// Unindex from the other endpoint too.
		other := t.SourceAID
		if other == sourceID {
			other = t.SourceBID
		}
		if idx, ok := g.transitionsBySource[other]; ok {
			delete(idx, tid)
			if len(idx) == 0 {
				delete(g.transitionsBySource, other)
			}
		}
		delete(g.transitions, tid)
		removed++
	}
	delete(g.transitionsBySource, sourceID)

	g.stats.CascadedDeletes += uint64(removed)
	return removed
}

// SetSourceTiming updates the global-timeline window of a source and
// recomputes the composition duration.
func (g *Graph) SetSourceTiming(id string, start, end float64) error {
	if math.IsNaN(start) || math.IsNaN(end) || math.IsInf(start, 0) || math.IsInf(end, 0) {
		return fmt.Errorf("timing (%v, %v) must be finite: %w", start, end, ErrValidation)
	}
	if start < 0 {
		return fmt.Errorf("start %.3f before timeline origin: %w", start, ErrValidation)
	}
	if start >= end {
		return fmt.Errorf("start %.3f must precede end %.3f: %w", start, end, ErrValidation)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.destroyed {
		return ErrGraphDestroyed
	}
	node, exists := g.sources[id]
	if !exists {
		slog.Warn("composition: timing update for unknown source", "id", id)
		return fmt.Errorf("source %q: %w", id, ErrNodeNotFound)
	}

	node.StartTime = start
	node.EndTime = end
	g.stats.TimingUpdates++
	g.recomputeDurationLocked()

	slog.Debug("composition: source timing set",
		"id", id, "start", start, "end", end, "duration", g.duration)
	return nil
}

// AddEffect creates an effect node wired to sourceID. A missing source fails
// with a logged ErrNodeNotFound and a nil handle; the graph is unchanged.
func (g *Graph) AddEffect(sourceID string, kind EffectKind, params EffectParams) (*EffectNode, error) {
	if !kind.valid() {
		return nil, fmt.Errorf("effect kind %s: %w", kind, ErrValidation)
	}
	if params == nil {
		return nil, fmt.Errorf("effect %s requires params: %w", kind, ErrValidation)
	}
	if params.Kind() != kind {
		return nil, fmt.Errorf("params belong to %s, not %s: %w", params.Kind(), kind, ErrValidation)
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("effect %s: %w", kind, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.destroyed {
		return nil, ErrGraphDestroyed
	}
	if _, exists := g.sources[sourceID]; !exists {
		slog.Warn("composition: effect references unknown source",
			"source_id", sourceID, "kind", kind.String())
		return nil, fmt.Errorf("effect source %q: %w", sourceID, ErrNodeNotFound)
	}

	node := &EffectNode{
		ID:       uuid.New().String(),
		SourceID: sourceID,
		Kind:     kind,
		Params:   params,
	}
	g.effects[node.ID] = node
	idx, ok := g.effectsBySource[sourceID]
	if !ok {
		idx = make(map[string]struct{})
		g.effectsBySource[sourceID] = idx
	}
	idx[node.ID] = struct{}{}
	g.stats.EffectsAdded++

	slog.Debug("composition: effect added", "id", node.ID, "source_id", sourceID, "kind", kind.String())
	snapshot := *node
	return &snapshot, nil
}

// AddTransition creates a transition blending source a into source b over
// [windowStart, windowEnd]. Both sources must be live; a missing source fails
// with a logged ErrNodeNotFound and a nil handle.
func (g *Graph) AddTransition(aID, bID string, kind TransitionKind, windowStart, windowEnd, mix float64) (*TransitionNode, error) {
	if !kind.valid() {
		return nil, fmt.Errorf("transition kind %s: %w", kind, ErrValidation)
	}
	if aID == bID {
		return nil, fmt.Errorf("transition endpoints must differ (%q): %w", aID, ErrValidation)
	}
	if math.IsNaN(windowStart) || math.IsNaN(windowEnd) ||
		math.IsInf(windowStart, 0) || math.IsInf(windowEnd, 0) {
		return nil, fmt.Errorf("window (%v, %v) must be finite: %w", windowStart, windowEnd, ErrValidation)
	}
	if windowStart >= windowEnd {
		return nil, fmt.Errorf("window start %.3f must precede end %.3f: %w", windowStart, windowEnd, ErrValidation)
	}
	if mix < 0 || mix > 1 {
		return nil, fmt.Errorf("mix %.3f outside [0, 1]: %w", mix, ErrValidation)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.destroyed {
		return nil, ErrGraphDestroyed
	}
	for _, sid := range []string{aID, bID} {
		if _, exists := g.sources[sid]; !exists {
			slog.Warn("composition: transition references unknown source",
				"source_id", sid, "kind", kind.String())
			return nil, fmt.Errorf("transition source %q: %w", sid, ErrNodeNotFound)
		}
	}

	node := &TransitionNode{
		ID:          uuid.New().String(),
		SourceAID:   aID,
		SourceBID:   bID,
		Kind:        kind,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Mix:         mix,
	}
	g.transitions[node.ID] = node
	for _, sid := range []string{aID, bID} {
		idx, ok := g.transitionsBySource[sid]
		if !ok {
			idx = make(map[string]struct{})
			g.transitionsBySource[sid] = idx
		}
		idx[node.ID] = struct{}{}
	}
	g.stats.TransitionsAdded++

	slog.Debug("composition: transition added",
		"id", node.ID, "a", aID, "b", bID, "kind", kind.String(),
		"window_start", windowStart, "window_end", windowEnd)
	snapshot := *node
	return &snapshot, nil
}

// RemoveEffect disconnects and deletes an effect. Unknown ids are a no-op.
func (g *Graph) RemoveEffect(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.destroyed {
		return
	}
	node, exists := g.effects[id]
	if !exists {
		return
	}
	if idx, ok := g.effectsBySource[node.SourceID]; ok {
		delete(idx, id)
		if len(idx) == 0 {
			delete(g.effectsBySource, node.SourceID)
		}
	}
	delete(g.effects, id)
	slog.Debug("composition: effect removed", "id", id)
}

// RemoveTransition disconnects and deletes a transition. Unknown ids are a
// no-op.
func (g *Graph) RemoveTransition(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.destroyed {
		return
	}
	node, exists := g.transitions[id]
	if !exists {
		return
	}
	for _, sid := range []string{node.SourceAID, node.SourceBID} {
		if idx, ok := g.transitionsBySource[sid]; ok {
			delete(idx, id)
			if len(idx) == 0 {
				delete(g.transitionsBySource, sid)
			}
		}
	}
	delete(g.transitions, id)
	slog.Debug("composition: transition removed", "id", id)
}

// Duration returns the composition duration: the maximum EndTime across all
// sources, zero for an empty graph.
func (g *Graph) Duration() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.duration
}

// Source returns a snapshot of the source with the given id.
func (g *Graph) Source(id string) (*SourceNode, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	node, exists := g.sources[id]
	if !exists {
		return nil, false
	}
	snapshot := *node
	return &snapshot, true
}

// Sources returns snapshots of every source, ordered by start time then id
// so render iteration is stable.
func (g *Graph) Sources() []*SourceNode {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*SourceNode, 0, len(g.sources))
	for _, node := range g.sources {
		snapshot := *node
		out = append(out, &snapshot)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// EffectsFor returns snapshots of the effects wired to sourceID.
func (g *Graph) EffectsFor(sourceID string) []*EffectNode {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := g.effectsBySource[sourceID]
	out := make([]*EffectNode, 0, len(ids))
	for id := range ids {
		if node, ok := g.effects[id]; ok {
			snapshot := *node
			out = append(out, &snapshot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Transitions returns snapshots of every transition ordered by window start.
func (g *Graph) Transitions() []*TransitionNode {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*TransitionNode, 0, len(g.transitions))
	for _, node := range g.transitions {
		snapshot := *node
		out = append(out, &snapshot)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WindowStart != out[j].WindowStart {
			return out[i].WindowStart < out[j].WindowStart
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// TransitionsFor returns snapshots of the transitions referencing sourceID.
func (g *Graph) TransitionsFor(sourceID string) []*TransitionNode {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := g.transitionsBySource[sourceID]
	out := make([]*TransitionNode, 0, len(ids))
	for id := range ids {
		if node, ok := g.transitions[id]; ok {
			snapshot := *node
			out = append(out, &snapshot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ActiveAt returns snapshots of the sources whose window contains t. Windows
// are [start, end), except that t equal to the composition's very end matches
// the sources ending there.
func (g *Graph) ActiveAt(t float64) []*SourceNode {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []*SourceNode
	for _, node := range g.sources {
		if node.StartTime >= node.EndTime {
			continue // timing never set
		}
		inWindow := node.StartTime <= t && t < node.EndTime
		atEnd := t == g.duration && node.EndTime == g.duration && node.StartTime <= t
		if inWindow || atEnd {
			snapshot := *node
			out = append(out, &snapshot)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ActiveTransitionsAt returns snapshots of the transitions whose window
// contains t (closed on both ends: a blend is active at its boundaries).
func (g *Graph) ActiveTransitionsAt(t float64) []*TransitionNode {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []*TransitionNode
	for _, node := range g.transitions {
		if node.WindowStart <= t && t <= node.WindowEnd {
			snapshot := *node
			out = append(out, &snapshot)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WindowStart != out[j].WindowStart {
			return out[i].WindowStart < out[j].WindowStart
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Destroy releases every node. Safe to call multiple times; mutations after
// Destroy fail with ErrGraphDestroyed.
func (g *Graph) Destroy() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.destroyed {
		slog.Debug("composition: destroy called again")
		return
	}
	g.destroyed = true
	g.stats.Destroyed = true

	g.sources = make(map[string]*SourceNode)
	g.effects = make(map[string]*EffectNode)
	g.transitions = make(map[string]*TransitionNode)
	g.effectsBySource = make(map[string]map[string]struct{})
	g.transitionsBySource = make(map[string]map[string]struct{})
	g.duration = 0

	slog.Info("composition: graph destroyed")
}

// Stats returns a snapshot of graph contents and counters.
func (g *Graph) Stats() GraphStats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s := g.stats
	s.Sources = len(g.sources)
	s.Effects = len(g.effects)
	s.Transitions = len(g.transitions)
	s.Duration = g.duration
	return s
}

// recomputeDurationLocked rederives duration from all source end times.
// Caller holds g.mu.
func (g *Graph) recomputeDurationLocked() {
	max := 0.0
	for _, node := range g.sources {
		if node.EndTime > max {
			max = node.EndTime
		}
	}
	g.duration = max
}
