package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/visiona/scene-bridge/composition"
	"github.com/visiona/scene-bridge/internal/notify"
	"github.com/visiona/scene-bridge/playback"
)

// primarySourceID names the source the adapter seeds into an empty graph.
const primarySourceID = "primary"

type opKind int

const (
	opPlay opKind = iota
	opPause
	opSeek
)

func (k opKind) String() string {
	switch k {
	case opPlay:
		return "play"
	case opPause:
		return "pause"
	case opSeek:
		return "seek"
	default:
		return "unknown"
	}
}

// op is one queued transport operation. The reply channel is buffered so the
// operations goroutine never blocks on an abandoned caller.
type op struct {
	kind   opKind
	seekTo float64
	trace  string
	reply  chan error
}

// Adapter is the playback bridge state machine. See the package
// documentation for the state diagram and coordination rules.
type Adapter struct {
	id     string
	cfg    Config
	poster *PosterSurface

	mu          sync.Mutex
	state       State
	lastErr     error
	liveVisible bool
	info        MediaInfo

	graph *composition.Graph
	ctrl  *playback.Controller

	ops       chan *op
	runCtx    context.Context
	runCancel context.CancelFunc
	opsWG     sync.WaitGroup
	active    atomic.Bool

	stateObs notify.List[func(State)]
	timeObs  notify.List[func(float64)]
	endObs   notify.List[func()]
	errObs   notify.List[func(error)]

	obsMu    sync.Mutex
	nextObs  int64
	removals map[int64]func()

	counters struct {
		transitions         atomic.Uint64
		queuedOps           atomic.Uint64
		rejectedOps         atomic.Uint64
		coordinationRejects atomic.Uint64
		recoveries          atomic.Uint64
	}
}

// New creates an adapter with fail-fast configuration validation. Ownership
// of the surface, poster and graph transfers to the adapter; all three are
// released by Destroy.
func New(cfg Config) (*Adapter, error) {
	if cfg.MediaURL == "" {
		return nil, errors.New("bridge: media URL is required")
	}
	if cfg.Surface == nil {
		return nil, errors.New("bridge: surface is required")
	}
	if cfg.InitTimeout < 0 {
		return nil, fmt.Errorf("bridge: init timeout %v must not be negative", cfg.InitTimeout)
	}
	if cfg.InitTimeout == 0 {
		cfg.InitTimeout = DefaultInitTimeout
	}

	poster := cfg.Poster
	if poster == nil {
		var err error
		poster, err = NewPosterSurface(PosterConfig{})
		if err != nil {
			return nil, err
		}
	}
	graph := cfg.Graph
	if graph == nil {
		graph = composition.New()
	}
	ctrl, err := playback.New(graph, cfg.Playback)
	if err != nil {
		return nil, fmt.Errorf("bridge: controller: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &Adapter{
		id:        uuid.New().String(),
		cfg:       cfg,
		poster:    poster,
		state:     StateUninitialized,
		graph:     graph,
		ctrl:      ctrl,
		ops:       make(chan *op, 8),
		runCtx:    ctx,
		runCancel: cancel,
		removals:  make(map[int64]func()),
	}
	a.active.Store(true)

	ctrl.OnEnded(a.handleEnded)
	ctrl.OnTime(a.handleTime)
	if sink, ok := cfg.Surface.(errorSink); ok {
		sink.SetErrorSink(a.handleSurfaceError)
	}

	a.opsWG.Add(1)
	go a.opsLoop()

	slog.Info("bridge: adapter created",
		"id", a.id,
		"media_url", cfg.MediaURL,
		"init_timeout", cfg.InitTimeout,
	)
	return a, nil
}

// Initialize prepares the surface and loads the media metadata. Legal from
// Uninitialized and from Error (recovery). The wait is bounded by
// InitTimeout; expiry drives the adapter to Error with ErrInitialization.
func (a *Adapter) Initialize(ctx context.Context) error {
	if !a.active.Load() {
		return fmt.Errorf("bridge: initialize: adapter destroyed: %w", ErrOperation)
	}

	a.mu.Lock()
	recovering := a.state == StateError
	switch a.state {
	case StateUninitialized, StateError:
	case StateInitializing:
		a.mu.Unlock()
		a.counters.rejectedOps.Add(1)
		return fmt.Errorf("bridge: initialization already in progress: %w", ErrOperation)
	default:
		st := a.state
		a.mu.Unlock()
		a.counters.rejectedOps.Add(1)
		return fmt.Errorf("bridge: initialize in state %s: %w", st, ErrOperation)
	}
	fire := a.transitionLocked(StateInitializing)
	a.mu.Unlock()
	fire()

	info, err := a.prepareSurface(ctx)
	if err == nil && !usableDuration(info.Duration) {
		err = fmt.Errorf("bridge: media duration %v is not a positive finite number: %w",
			info.Duration, ErrMediaLoad)
	}
	if err != nil {
		return a.failInitialization(err)
	}

	// Poster extraction is best-effort: a media item without a decodable
	// first frame still plays.
	if frame, ferr := a.cfg.Surface.FirstFrame(ctx); ferr != nil {
		slog.Warn("bridge: first frame extraction failed", "id", a.id, "error", ferr)
	} else if frame != nil {
		if serr := a.poster.SetFrame(frame); serr != nil {
			slog.Warn("bridge: poster update failed", "id", a.id, "error", serr)
		}
	}

	a.mu.Lock()
	if !a.active.Load() {
		a.mu.Unlock()
		return fmt.Errorf("bridge: initialize: adapter destroyed: %w", ErrOperation)
	}
	a.info = info
	a.lastErr = nil
	a.seedGraphLocked(info)
	if recovering {
		a.counters.recoveries.Add(1)
	}
	fire = a.transitionLocked(StateReady)
	a.mu.Unlock()

	a.ctrl.Attach(a.cfg.Surface)
	a.ctrl.SetReady(true)
	fire()

	slog.Info("bridge: media ready",
		"id", a.id,
		"duration", info.Duration,
		"resolution", fmt.Sprintf("%dx%d", info.Width, info.Height),
		"recovered", recovering,
	)
	return nil
}

// prepareSurface runs the surface preparation under the init timeout. A
// destroy while preparing cancels the wait.
func (a *Adapter) prepareSurface(ctx context.Context) (MediaInfo, error) {
	initCtx, cancel := context.WithTimeout(ctx, a.cfg.InitTimeout)
	defer cancel()
	stop := context.AfterFunc(a.runCtx, cancel)
	defer stop()

	info, err := a.cfg.Surface.Prepare(initCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return MediaInfo{}, fmt.Errorf("bridge: initialization timed out after %v: %w",
				a.cfg.InitTimeout, ErrInitialization)
		}
		return MediaInfo{}, fmt.Errorf("bridge: surface prepare: %v: %w", err, ErrInitialization)
	}
	return info, nil
}

func (a *Adapter) failInitialization(err error) error {
	a.mu.Lock()
	if !a.active.Load() {
		a.mu.Unlock()
		return err
	}
	a.lastErr = err
	fire := a.transitionLocked(StateError)
	a.mu.Unlock()
	fire()

	slog.Error("bridge: initialization failed", "id", a.id, "error", err)
	a.notifyError(err)
	return err
}

// seedGraphLocked adds the primary source to an empty graph. A pre-built
// graph (scene timeline) is left untouched. Caller holds a.mu.
func (a *Adapter) seedGraphLocked(info MediaInfo) {
	if len(a.graph.Sources()) > 0 {
		return
	}
	if _, err := a.graph.AddSource(primarySourceID, a.cfg.MediaURL, composition.MediaVideo); err != nil {
		slog.Warn("bridge: graph seed failed", "id", a.id, "error", err)
		return
	}
	if err := a.graph.SetSourceTiming(primarySourceID, 0, info.Duration); err != nil {
		slog.Warn("bridge: graph seed timing failed", "id", a.id, "error", err)
	}
}

// ShowLiveSurface makes the live surface the visible one. Owner-driven; the
// adapter never switches surfaces on its own.
func (a *Adapter) ShowLiveSurface() {
	if !a.active.Load() {
		return
	}
	a.mu.Lock()
	if !a.liveVisible {
		a.liveVisible = true
		slog.Info("bridge: live surface visible", "id", a.id)
	}
	a.mu.Unlock()
}

// ShowPoster makes the poster surface the visible one again.
func (a *Adapter) ShowPoster() {
	if !a.active.Load() {
		return
	}
	a.mu.Lock()
	if a.liveVisible {
		a.liveVisible = false
		slog.Info("bridge: poster surface visible", "id", a.id)
	}
	a.mu.Unlock()
}

// PosterVisible reports whether the poster is the visible surface.
func (a *Adapter) PosterVisible() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.liveVisible
}

// Play requests playback. The call is serialized through the operations
// queue: a Play issued while another operation is in flight queues behind it
// and observes the resulting state.
func (a *Adapter) Play(ctx context.Context) error {
	return a.submit(ctx, &op{kind: opPlay})
}

// Pause requests a pause. Idempotent when already paused.
func (a *Adapter) Pause(ctx context.Context) error {
	return a.submit(ctx, &op{kind: opPause})
}

// Seek requests a clamped seek to t seconds.
func (a *Adapter) Seek(ctx context.Context, t float64) error {
	return a.submit(ctx, &op{kind: opSeek, seekTo: t})
}

func (a *Adapter) submit(ctx context.Context, o *op) error {
	if !a.active.Load() {
		a.counters.rejectedOps.Add(1)
		return fmt.Errorf("bridge: %s: adapter destroyed: %w", o.kind, ErrOperation)
	}
	o.trace = uuid.New().String()
	o.reply = make(chan error, 1)
	a.counters.queuedOps.Add(1)
	slog.Debug("bridge: operation queued", "id", a.id, "op", o.kind.String(), "trace", o.trace)

	select {
	case a.ops <- o:
	case <-a.runCtx.Done():
		a.counters.rejectedOps.Add(1)
		return fmt.Errorf("bridge: %s: adapter destroyed: %w", o.kind, ErrOperation)
	case <-ctx.Done():
		return fmt.Errorf("bridge: %s: %w", o.kind, ctx.Err())
	}

	select {
	case err := <-o.reply:
		return err
	case <-ctx.Done():
		return fmt.Errorf("bridge: %s abandoned by caller: %w", o.kind, ctx.Err())
	}
}

func (a *Adapter) opsLoop() {
	defer a.opsWG.Done()
	for {
		select {
		case <-a.runCtx.Done():
			a.drainOps()
			return
		case o := <-a.ops:
			o.reply <- a.execute(o)
		}
	}
}

// drainOps refuses everything still queued at shutdown, so no submitter is
// left waiting on a reply.
func (a *Adapter) drainOps() {
	for {
		select {
		case o := <-a.ops:
			a.counters.rejectedOps.Add(1)
			o.reply <- fmt.Errorf("bridge: %s: adapter destroyed: %w", o.kind, ErrOperation)
		default:
			return
		}
	}
}

func (a *Adapter) execute(o *op) error {
	slog.Debug("bridge: operation evaluating",
		"id", a.id, "op", o.kind.String(), "trace", o.trace, "state", a.State().String())
	switch o.kind {
	case opPlay:
		return a.execPlay(o)
	case opPause:
		return a.execPause(o)
	case opSeek:
		return a.execSeek(o)
	default:
		return fmt.Errorf("bridge: unknown operation %d: %w", int(o.kind), ErrOperation)
	}
}

func (a *Adapter) execPlay(o *op) error {
	a.mu.Lock()
	switch a.state {
	case StatePlaying:
		a.mu.Unlock()
		return nil
	case StateReady, StatePaused:
	default:
		st := a.state
		a.mu.Unlock()
		a.counters.rejectedOps.Add(1)
		return fmt.Errorf("bridge: play in state %s: %w", st, ErrOperation)
	}
	// Visibility is checked under the same lock as the state: a play that
	// races a surface switch either sees the poster and is rejected with
	// the state untouched, or sees the live surface and proceeds.
	if !a.liveVisible {
		a.mu.Unlock()
		a.counters.coordinationRejects.Add(1)
		slog.Warn("bridge: play refused, poster surface visible", "id", a.id, "trace", o.trace)
		return fmt.Errorf("bridge: play while poster surface visible: %w", ErrCoordination)
	}
	fire := a.transitionLocked(StatePlayingRequested)
	a.mu.Unlock()
	fire()

	err := a.ctrl.Play()

	a.mu.Lock()
	if !a.active.Load() || a.state != StatePlayingRequested {
		a.mu.Unlock()
		if err != nil {
			return fmt.Errorf("bridge: play: %w", err)
		}
		return nil
	}
	if err != nil {
		a.lastErr = err
		fire = a.transitionLocked(StateError)
		a.mu.Unlock()
		fire()
		a.notifyError(err)
		return fmt.Errorf("bridge: play: %w", err)
	}
	fire = a.transitionLocked(StatePlaying)
	a.mu.Unlock()
	fire()
	return nil
}

func (a *Adapter) execPause(o *op) error {
	a.mu.Lock()
	switch a.state {
	case StateReady, StatePaused:
		a.mu.Unlock()
		return nil
	case StatePlaying:
	default:
		st := a.state
		a.mu.Unlock()
		a.counters.rejectedOps.Add(1)
		return fmt.Errorf("bridge: pause in state %s: %w", st, ErrOperation)
	}
	a.mu.Unlock()

	err := a.ctrl.Pause()

	a.mu.Lock()
	if !a.active.Load() || a.state != StatePlaying {
		a.mu.Unlock()
		if err != nil {
			return fmt.Errorf("bridge: pause: %w", err)
		}
		return nil
	}
	if err != nil {
		a.lastErr = err
		fire := a.transitionLocked(StateError)
		a.mu.Unlock()
		fire()
		a.notifyError(err)
		return fmt.Errorf("bridge: pause: %w", err)
	}
	fire := a.transitionLocked(StatePaused)
	a.mu.Unlock()
	fire()
	return nil
}

func (a *Adapter) execSeek(o *op) error {
	a.mu.Lock()
	switch a.state {
	case StateReady, StatePlaying, StatePaused:
	default:
		st := a.state
		a.mu.Unlock()
		a.counters.rejectedOps.Add(1)
		return fmt.Errorf("bridge: seek in state %s: %w", st, ErrOperation)
	}
	a.mu.Unlock()

	if err := a.ctrl.Seek(o.seekTo); err != nil {
		// An invalid seek target is the caller's mistake, not a broken
		// pipeline: reject without leaving the current state.
		if errors.Is(err, composition.ErrValidation) {
			return fmt.Errorf("bridge: seek: %w", err)
		}
		a.mu.Lock()
		if a.active.Load() && a.state != StateDestroyed {
			a.lastErr = err
			fire := a.transitionLocked(StateError)
			a.mu.Unlock()
			fire()
			a.notifyError(err)
		} else {
			a.mu.Unlock()
		}
		return fmt.Errorf("bridge: seek: %w", err)
	}
	return nil
}

// handleEnded runs on the controller's loop goroutine when the clock reaches
// the composition end.
func (a *Adapter) handleEnded() {
	if !a.active.Load() {
		return
	}
	a.mu.Lock()
	var fire func()
	if a.state == StatePlaying {
		fire = a.transitionLocked(StatePaused)
	}
	a.mu.Unlock()
	if fire != nil {
		fire()
	}
	a.endObs.Each(func(cb func()) { cb() })
}

func (a *Adapter) handleTime(t float64) {
	if !a.active.Load() {
		return
	}
	a.timeObs.Each(func(cb func(float64)) { cb(t) })
}

// handleSurfaceError routes asynchronous surface failures (bus errors from
// the live pipeline) into the error state.
func (a *Adapter) handleSurfaceError(err error) {
	if err == nil || !a.active.Load() {
		return
	}
	a.mu.Lock()
	if a.state == StateDestroyed {
		a.mu.Unlock()
		return
	}
	a.lastErr = err
	fire := a.transitionLocked(StateError)
	a.mu.Unlock()
	fire()

	if perr := a.ctrl.Pause(); perr != nil {
		slog.Debug("bridge: pause after surface error", "id", a.id, "error", perr)
	}
	slog.Error("bridge: surface error", "id", a.id, "error", err)
	a.notifyError(err)
}

// State returns the machine state.
func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Snapshot returns the transport snapshot, with the adapter's last error
// filled in when the controller has none of its own.
func (a *Adapter) Snapshot() playback.PlaybackState {
	st := a.ctrl.State()
	a.mu.Lock()
	if st.Err == nil {
		st.Err = a.lastErr
	}
	a.mu.Unlock()
	return st
}

// LastError returns the most recent failure, nil when healthy.
func (a *Adapter) LastError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

// Info returns the media metadata loaded by Initialize.
func (a *Adapter) Info() MediaInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.info
}

// Poster returns the poster surface.
func (a *Adapter) Poster() *PosterSurface {
	return a.poster
}

// Do runs fn against the adapter's composition graph on the playback
// serialization lock, so edits never interleave with render ticks.
func (a *Adapter) Do(fn func(*composition.Graph)) error {
	if !a.active.Load() {
		return fmt.Errorf("bridge: do: adapter destroyed: %w", ErrOperation)
	}
	if err := a.ctrl.Do(fn); err != nil {
		return fmt.Errorf("bridge: do: %w", err)
	}
	return nil
}

// Stats returns a snapshot of adapter activity.
func (a *Adapter) Stats() AdapterStats {
	return AdapterStats{
		Transitions:         a.counters.transitions.Load(),
		QueuedOps:           a.counters.queuedOps.Load(),
		RejectedOps:         a.counters.rejectedOps.Load(),
		CoordinationRejects: a.counters.coordinationRejects.Load(),
		Recoveries:          a.counters.recoveries.Load(),
	}
}

// OnStateChange registers a machine state observer.
func (a *Adapter) OnStateChange(fn func(State)) int64 {
	tok := a.stateObs.Add(fn)
	return a.track(func() { a.stateObs.Remove(tok) })
}

// OnTime registers a playback time observer.
func (a *Adapter) OnTime(fn func(float64)) int64 {
	tok := a.timeObs.Add(fn)
	return a.track(func() { a.timeObs.Remove(tok) })
}

// OnEnded registers an end-of-composition observer.
func (a *Adapter) OnEnded(fn func()) int64 {
	tok := a.endObs.Add(fn)
	return a.track(func() { a.endObs.Remove(tok) })
}

// OnError registers a failure observer.
func (a *Adapter) OnError(fn func(error)) int64 {
	tok := a.errObs.Add(fn)
	return a.track(func() { a.errObs.Remove(tok) })
}

// RemoveObserver unregisters any observer by the id its On* call returned.
func (a *Adapter) RemoveObserver(id int64) {
	a.obsMu.Lock()
	detach := a.removals[id]
	delete(a.removals, id)
	a.obsMu.Unlock()
	if detach != nil {
		detach()
	}
}

func (a *Adapter) track(detach func()) int64 {
	a.obsMu.Lock()
	defer a.obsMu.Unlock()
	a.nextObs++
	a.removals[a.nextObs] = detach
	return a.nextObs
}

// Destroy tears the adapter down: refuses queued operations, destroys the
// controller, closes both surfaces (removing poster cache files), clears
// every observer and destroys the graph. Idempotent; zero pending callbacks
// after return.
func (a *Adapter) Destroy() error {
	if !a.active.CompareAndSwap(true, false) {
		return nil
	}
	slog.Info("bridge: destroying adapter", "id", a.id)

	a.mu.Lock()
	fire := a.transitionLocked(StateDestroyed)
	a.mu.Unlock()
	fire()

	a.runCancel()
	a.opsWG.Wait()

	a.ctrl.Destroy()

	if err := a.cfg.Surface.Close(); err != nil {
		slog.Warn("bridge: surface close failed", "id", a.id, "error", err)
	}
	if err := a.poster.Close(); err != nil {
		slog.Warn("bridge: poster close failed", "id", a.id, "error", err)
	}

	a.stateObs.Clear()
	a.timeObs.Clear()
	a.endObs.Clear()
	a.errObs.Clear()
	a.obsMu.Lock()
	a.removals = make(map[int64]func())
	a.obsMu.Unlock()

	a.graph.Destroy()

	slog.Info("bridge: adapter destroyed", "id", a.id)
	return nil
}

// transitionLocked moves the machine to next and returns the observer
// notification to invoke after the lock is released. Caller holds a.mu.
func (a *Adapter) transitionLocked(next State) func() {
	prev := a.state
	a.state = next
	a.counters.transitions.Add(1)
	slog.Info("bridge: state transition",
		"id", a.id, "from", prev.String(), "to", next.String())
	return func() {
		a.stateObs.Each(func(cb func(State)) { cb(next) })
	}
}

func (a *Adapter) notifyError(err error) {
	a.errObs.Each(func(cb func(error)) { cb(err) })
}

func usableDuration(d float64) bool {
	return !math.IsNaN(d) && !math.IsInf(d, 0) && d > 0
}
