package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/visiona/scene-bridge/composition"
	"github.com/visiona/scene-bridge/internal/notify"
)

// shutdownWait bounds how long Destroy blocks on the render loop.
const shutdownWait = 3 * time.Second

// Controller advances a playback clock over one composition graph. It owns
// the graph exclusively: collaborators mutate it only through Do, which
// serializes edits against render ticks.
type Controller struct {
	mu       sync.Mutex
	graph    *composition.Graph
	cfg      Config
	renderer Renderer
	clock    referenceClock
	playing  bool
	ready    bool
	lastErr  error

	runCtx    context.Context
	runCancel context.CancelFunc
	wg        sync.WaitGroup
	destroyed atomic.Bool

	timeObs  notify.List[func(float64)]
	endObs   notify.List[func()]
	stateObs notify.List[func(PlaybackState)]

	obsMu    sync.Mutex
	nextObs  int64
	removals map[int64]func()

	counters struct {
		ticks        atomic.Uint64
		droppedTicks atomic.Uint64
		seeks        atomic.Uint64
		endedEvents  atomic.Uint64
		stateChanges atomic.Uint64
	}
}

// New creates a controller over graph. The graph must not be mutated behind
// the controller's back; use Do for edits after this point.
func New(graph *composition.Graph, cfg Config) (*Controller, error) {
	if graph == nil {
		return nil, errors.New("playback: graph must not be nil")
	}
	if cfg.TickInterval < 0 {
		return nil, fmt.Errorf("playback: tick interval %v must not be negative", cfg.TickInterval)
	}
	if cfg.TickInterval == 0 {
		cfg.TickInterval = DefaultTickInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		graph:     graph,
		cfg:       cfg,
		runCtx:    ctx,
		runCancel: cancel,
		removals:  make(map[int64]func()),
	}
	c.wg.Add(1)
	go c.loop()

	slog.Info("playback: controller created", "tick_interval", cfg.TickInterval)
	return c, nil
}

// Attach sets the output renderer. A nil renderer is legal: the controller
// then runs clock-only, which is how tests and the mock demo drive it.
// Attach before Play; swapping mid-playback is the owner's responsibility.
func (c *Controller) Attach(r Renderer) {
	c.mu.Lock()
	c.renderer = r
	c.mu.Unlock()
}

// SetReady marks the controller ready (or not) for transport operations.
// The bridge adapter flips this when its surface finishes preparing.
func (c *Controller) SetReady(ready bool) {
	if c.destroyed.Load() {
		return
	}
	c.mu.Lock()
	if c.ready == ready {
		c.mu.Unlock()
		return
	}
	c.ready = ready
	st := c.stateLocked(time.Now())
	c.mu.Unlock()

	c.counters.stateChanges.Add(1)
	slog.Debug("playback: readiness changed", "ready", ready)
	c.notifyState(st)
}

// Play starts the clock. Resuming at the composition end restarts from zero.
func (c *Controller) Play() error {
	if c.destroyed.Load() {
		return fmt.Errorf("playback: play: %w", ErrDestroyed)
	}
	c.mu.Lock()
	if !c.ready {
		c.mu.Unlock()
		return fmt.Errorf("playback: play: %w", ErrNotReady)
	}
	if c.playing {
		c.mu.Unlock()
		return nil
	}

	now := time.Now()
	dur := c.graph.Duration()
	if dur > 0 && c.clock.position(now) >= dur {
		c.clock.set(now, 0)
		if c.renderer != nil {
			if err := c.renderer.Seek(0); err != nil {
				slog.Warn("playback: rewind seek failed", "error", err)
			}
		}
	}
	if c.renderer != nil {
		if err := c.renderer.Start(c.runCtx); err != nil {
			c.lastErr = err
			c.mu.Unlock()
			return fmt.Errorf("playback: renderer start: %w", err)
		}
	}
	c.playing = true
	c.clock.start(now)
	st := c.stateLocked(now)
	c.mu.Unlock()

	c.counters.stateChanges.Add(1)
	slog.Info("playback: playing", "position", st.CurrentTime, "duration", st.Duration)
	c.notifyState(st)
	return nil
}

// Pause freezes the clock. Pausing a paused controller is a no-op.
func (c *Controller) Pause() error {
	if c.destroyed.Load() {
		return fmt.Errorf("playback: pause: %w", ErrDestroyed)
	}
	c.mu.Lock()
	if !c.playing {
		c.mu.Unlock()
		return nil
	}

	now := time.Now()
	c.playing = false
	c.clock.pause(now)
	var rerr error
	if c.renderer != nil {
		if rerr = c.renderer.Stop(); rerr != nil {
			c.lastErr = rerr
		}
	}
	st := c.stateLocked(now)
	c.mu.Unlock()

	c.counters.stateChanges.Add(1)
	slog.Info("playback: paused", "position", st.CurrentTime)
	c.notifyState(st)
	if rerr != nil {
		return fmt.Errorf("playback: renderer stop: %w", rerr)
	}
	return nil
}

// Seek moves the clock to t, clamped to [0, Duration]. Time observers always
// receive the clamped value. While paused, the renderer is asked for one
// frame at the new position so the display follows the scrub.
func (c *Controller) Seek(t float64) error {
	if c.destroyed.Load() {
		return fmt.Errorf("playback: seek: %w", ErrDestroyed)
	}
	if math.IsNaN(t) {
		return fmt.Errorf("playback: seek target is not a number: %w", composition.ErrValidation)
	}

	c.mu.Lock()
	now := time.Now()
	dur := c.graph.Duration()
	clamped := t
	if clamped < 0 {
		clamped = 0
	}
	if clamped > dur {
		clamped = dur
	}
	if clamped != t {
		slog.Debug("playback: seek clamped", "requested", t, "clamped", clamped)
	}
	c.clock.set(now, clamped)
	var rerr error
	if c.renderer != nil {
		rerr = c.renderer.Seek(clamped)
		if rerr == nil && !c.playing {
			rerr = c.renderer.RenderFrame(clamped)
		}
		if rerr != nil {
			c.lastErr = rerr
		}
	}
	c.mu.Unlock()

	c.counters.seeks.Add(1)
	c.notifyTime(clamped)
	if rerr != nil {
		return fmt.Errorf("playback: seek renderer: %w", rerr)
	}
	return nil
}

// Do runs fn on the controller's serialization lock, so graph edits never
// interleave with a render tick. It runs inline on the caller's goroutine.
func (c *Controller) Do(fn func(*composition.Graph)) error {
	if fn == nil {
		return errors.New("playback: do: fn must not be nil")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed.Load() {
		return fmt.Errorf("playback: do: %w", ErrDestroyed)
	}
	fn(c.graph)
	return nil
}

// CurrentTime returns the clock position, clamped to [0, Duration].
func (c *Controller) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked(time.Now()).CurrentTime
}

// Duration returns the composition duration.
func (c *Controller) Duration() float64 {
	return c.graph.Duration()
}

// State returns a transport snapshot.
func (c *Controller) State() PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked(time.Now())
}

// Stats returns a snapshot of loop activity.
func (c *Controller) Stats() ControllerStats {
	return ControllerStats{
		Ticks:        c.counters.ticks.Load(),
		DroppedTicks: c.counters.droppedTicks.Load(),
		Seeks:        c.counters.seeks.Load(),
		EndedEvents:  c.counters.endedEvents.Load(),
		StateChanges: c.counters.stateChanges.Load(),
	}
}

// OnTime registers a time observer, invoked once per processed tick and on
// every seek with the (clamped) position.
func (c *Controller) OnTime(fn func(float64)) int64 {
	tok := c.timeObs.Add(fn)
	return c.track(func() { c.timeObs.Remove(tok) })
}

// OnEnded registers an end-of-composition observer.
func (c *Controller) OnEnded(fn func()) int64 {
	tok := c.endObs.Add(fn)
	return c.track(func() { c.endObs.Remove(tok) })
}

// OnStateChange registers a transport state observer.
func (c *Controller) OnStateChange(fn func(PlaybackState)) int64 {
	tok := c.stateObs.Add(fn)
	return c.track(func() { c.stateObs.Remove(tok) })
}

// RemoveObserver unregisters any observer by the id its On* call returned.
// Unknown ids are ignored.
func (c *Controller) RemoveObserver(id int64) {
	c.obsMu.Lock()
	detach := c.removals[id]
	delete(c.removals, id)
	c.obsMu.Unlock()
	if detach != nil {
		detach()
	}
}

// Destroy stops the render loop, detaches every observer and freezes the
// transport. Idempotent; no observer callback runs after it returns.
func (c *Controller) Destroy() {
	if !c.destroyed.CompareAndSwap(false, true) {
		return
	}

	c.runCancel()
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownWait):
		slog.Warn("playback: destroy timed out waiting for render loop")
	}

	c.mu.Lock()
	c.playing = false
	if c.renderer != nil {
		if err := c.renderer.Stop(); err != nil {
			slog.Warn("playback: renderer stop on destroy", "error", err)
		}
	}
	c.mu.Unlock()

	c.obsMu.Lock()
	c.removals = make(map[int64]func())
	c.obsMu.Unlock()
	c.timeObs.Clear()
	c.endObs.Clear()
	c.stateObs.Clear()

	slog.Info("playback: controller destroyed")
}

func (c *Controller) track(detach func()) int64 {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.nextObs++
	c.removals[c.nextObs] = detach
	return c.nextObs
}

func (c *Controller) loop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.runCtx.Done():
			return
		case <-ticker.C:
			c.step()
		}
	}
}

// step processes one render tick. A tick that would queue behind an
// in-flight operation is dropped, keeping exactly one unit of work in
// flight.
func (c *Controller) step() {
	if !c.mu.TryLock() {
		c.counters.droppedTicks.Add(1)
		return
	}
	if c.destroyed.Load() || !c.playing {
		c.mu.Unlock()
		return
	}

	now := time.Now()
	dur := c.graph.Duration()
	pos, havePos := 0.0, false
	if c.renderer != nil {
		if p, ok := c.renderer.Position(); ok {
			// The renderer's position is authoritative; re-anchor the
			// reference clock to it.
			c.clock.set(now, p)
			pos, havePos = p, true
		}
	}
	if !havePos {
		pos = c.clock.position(now)
	}
	c.counters.ticks.Add(1)

	ended := dur > 0 && pos >= dur
	var st PlaybackState
	if ended {
		pos = dur
		c.playing = false
		c.clock.pause(now)
		c.clock.set(now, dur)
		if c.cfg.AutoRewind {
			c.clock.set(now, 0)
		}
		if c.renderer != nil {
			if err := c.renderer.Stop(); err != nil {
				c.lastErr = err
				slog.Warn("playback: renderer stop at end", "error", err)
			}
		}
		st = c.stateLocked(now)
	}
	c.mu.Unlock()

	c.notifyTime(pos)
	if ended {
		c.counters.endedEvents.Add(1)
		c.counters.stateChanges.Add(1)
		slog.Info("playback: ended", "duration", dur)
		c.endObs.Each(func(cb func()) { cb() })
		c.notifyState(st)
	}
}

// stateLocked builds a snapshot. Caller holds c.mu.
func (c *Controller) stateLocked(now time.Time) PlaybackState {
	dur := c.graph.Duration()
	pos := c.clock.position(now)
	if pos < 0 {
		pos = 0
	}
	if pos > dur {
		pos = dur
	}
	return PlaybackState{
		CurrentTime: pos,
		Duration:    dur,
		IsPlaying:   c.playing,
		IsReady:     c.ready,
		Err:         c.lastErr,
	}
}

func (c *Controller) notifyTime(t float64) {
	c.timeObs.Each(func(cb func(float64)) { cb(t) })
}

func (c *Controller) notifyState(st PlaybackState) {
	c.stateObs.Each(func(cb func(PlaybackState)) { cb(st) })
}
