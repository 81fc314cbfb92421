package bridge

import (
	"context"
	"errors"
	"image"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/visiona/scene-bridge/composition"
	"github.com/visiona/scene-bridge/playback"
)

// mockSurface is a scriptable Surface for adapter tests.
type mockSurface struct {
	mu         sync.Mutex
	info       MediaInfo
	prepErr    error
	prepDelay  time.Duration
	startErr   error
	startDelay time.Duration
	frame      image.Image
	errSink    func(error)

	started int
	stopped int
	closed  int
	seeks   []float64
	frames  []float64
	pos     float64
	posOK   bool
}

func newMockSurface(duration float64) *mockSurface {
	return &mockSurface{
		info: MediaInfo{
			Duration: duration,
			Width:    640,
			Height:   480,
			HasVideo: true,
			Codec:    "h264",
		},
		frame: image.NewRGBA(image.Rect(0, 0, 4, 4)),
	}
}

func (m *mockSurface) Prepare(ctx context.Context) (MediaInfo, error) {
	m.mu.Lock()
	delay := m.prepDelay
	m.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return MediaInfo{}, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prepErr != nil {
		return MediaInfo{}, m.prepErr
	}
	return m.info, nil
}

func (m *mockSurface) FirstFrame(ctx context.Context) (image.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frame, nil
}

func (m *mockSurface) Start(ctx context.Context) error {
	m.mu.Lock()
	delay := m.startDelay
	err := m.startErr
	m.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.started++
	m.mu.Unlock()
	return nil
}

func (m *mockSurface) Stop() error {
	m.mu.Lock()
	m.stopped++
	m.mu.Unlock()
	return nil
}

func (m *mockSurface) Seek(t float64) error {
	m.mu.Lock()
	m.seeks = append(m.seeks, t)
	m.mu.Unlock()
	return nil
}

func (m *mockSurface) RenderFrame(t float64) error {
	m.mu.Lock()
	m.frames = append(m.frames, t)
	m.mu.Unlock()
	return nil
}

func (m *mockSurface) Position() (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos, m.posOK
}

func (m *mockSurface) Close() error {
	m.mu.Lock()
	m.closed++
	m.mu.Unlock()
	return nil
}

func (m *mockSurface) SetErrorSink(fn func(error)) {
	m.mu.Lock()
	m.errSink = fn
	m.mu.Unlock()
}

func (m *mockSurface) setDuration(d float64) {
	m.mu.Lock()
	m.info.Duration = d
	m.mu.Unlock()
}

func (m *mockSurface) setPosition(pos float64, ok bool) {
	m.mu.Lock()
	m.pos = pos
	m.posOK = ok
	m.mu.Unlock()
}

func (m *mockSurface) sink() func(error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errSink
}

func (m *mockSurface) counts() (started, stopped, closed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started, m.stopped, m.closed
}

func (m *mockSurface) lastSeek() (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.seeks) == 0 {
		return 0, false
	}
	return m.seeks[len(m.seeks)-1], true
}

func newTestAdapter(t *testing.T, ms *mockSurface) *Adapter {
	t.Helper()
	a, err := New(Config{
		MediaURL: "file:///videos/demo.mp4",
		Surface:  ms,
		Playback: playback.Config{TickInterval: 5 * time.Millisecond},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { a.Destroy() })
	return a
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing_url", Config{Surface: newMockSurface(10)}},
		{"missing_surface", Config{MediaURL: "file:///a.mp4"}},
		{"negative_timeout", Config{MediaURL: "file:///a.mp4", Surface: newMockSurface(10), InitTimeout: -time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Fatalf("New(%s) expected error, got nil", tt.name)
			}
		})
	}
}

func TestAdapter_InitializeHappyPath(t *testing.T) {
	ms := newMockSurface(10)
	a := newTestAdapter(t, ms)

	if got := a.State(); got != StateUninitialized {
		t.Fatalf("initial state = %v, want %v", got, StateUninitialized)
	}
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if got := a.State(); got != StateReady {
		t.Fatalf("state after Initialize = %v, want %v", got, StateReady)
	}
	if got := a.Info().Duration; got != 10 {
		t.Errorf("Info().Duration = %v, want 10", got)
	}
	if a.Poster().Snapshot() == nil {
		t.Error("poster has no frame after Initialize")
	}
	if got := a.Snapshot().Duration; got != 10 {
		t.Errorf("Snapshot().Duration = %v, want 10 (graph not seeded?)", got)
	}
}

func TestAdapter_PlayWhilePosterVisibleRejected(t *testing.T) {
	ms := newMockSurface(10)
	a := newTestAdapter(t, ms)
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	err := a.Play(context.Background())
	if !errors.Is(err, ErrCoordination) {
		t.Fatalf("Play() with poster visible = %v, want ErrCoordination", err)
	}
	if got := a.State(); got != StateReady {
		t.Fatalf("state after rejected play = %v, want %v (unchanged)", got, StateReady)
	}
	if got := a.Stats().CoordinationRejects; got != 1 {
		t.Errorf("CoordinationRejects = %d, want 1", got)
	}

	a.ShowLiveSurface()
	if err := a.Play(context.Background()); err != nil {
		t.Fatalf("Play() after ShowLiveSurface error = %v", err)
	}
	if got := a.State(); got != StatePlaying {
		t.Fatalf("state after play = %v, want %v", got, StatePlaying)
	}
}

func TestAdapter_ConcurrentPlaysSerialized(t *testing.T) {
	ms := newMockSurface(10)
	ms.startDelay = 50 * time.Millisecond
	a := newTestAdapter(t, ms)
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	a.ShowLiveSurface()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = a.Play(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("Play #%d error = %v, want nil", i, err)
		}
	}
	started, _, _ := ms.counts()
	if started != 1 {
		t.Errorf("surface started %d times, want 1 (second play must observe the first)", started)
	}
	if got := a.State(); got != StatePlaying {
		t.Fatalf("state = %v, want %v", got, StatePlaying)
	}
}

func TestAdapter_PauseAndResume(t *testing.T) {
	ms := newMockSurface(10)
	a := newTestAdapter(t, ms)
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	a.ShowLiveSurface()

	if err := a.Play(context.Background()); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if err := a.Pause(context.Background()); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if got := a.State(); got != StatePaused {
		t.Fatalf("state after pause = %v, want %v", got, StatePaused)
	}
	// Pausing again is a no-op, not an error.
	if err := a.Pause(context.Background()); err != nil {
		t.Fatalf("second Pause() error = %v", err)
	}
	if err := a.Play(context.Background()); err != nil {
		t.Fatalf("resume Play() error = %v", err)
	}
	if got := a.State(); got != StatePlaying {
		t.Fatalf("state after resume = %v, want %v", got, StatePlaying)
	}
}

func TestAdapter_SeekClampsToDuration(t *testing.T) {
	ms := newMockSurface(10)
	a := newTestAdapter(t, ms)
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if err := a.Seek(context.Background(), 25); err != nil {
		t.Fatalf("Seek(25) error = %v", err)
	}
	if got, ok := ms.lastSeek(); !ok || got != 10 {
		t.Errorf("surface saw seek to %v (ok=%v), want clamped 10", got, ok)
	}
	if got := a.Snapshot().CurrentTime; got != 10 {
		t.Errorf("Snapshot().CurrentTime = %v, want 10", got)
	}
}

func TestAdapter_InitializeRejectsBadDuration(t *testing.T) {
	ms := newMockSurface(math.NaN())
	a := newTestAdapter(t, ms)

	err := a.Initialize(context.Background())
	if !errors.Is(err, ErrMediaLoad) {
		t.Fatalf("Initialize() with NaN duration = %v, want ErrMediaLoad", err)
	}
	if got := a.State(); got != StateError {
		t.Fatalf("state = %v, want %v", got, StateError)
	}
	if a.LastError() == nil {
		t.Error("LastError() = nil after failed initialization")
	}

	// Error is recoverable: fix the media and initialize again.
	ms.setDuration(10)
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("recovery Initialize() error = %v", err)
	}
	if got := a.State(); got != StateReady {
		t.Fatalf("state after recovery = %v, want %v", got, StateReady)
	}
	if got := a.Stats().Recoveries; got != 1 {
		t.Errorf("Recoveries = %d, want 1", got)
	}
}

func TestAdapter_InitializeTimeout(t *testing.T) {
	ms := newMockSurface(10)
	ms.prepDelay = 200 * time.Millisecond
	a, err := New(Config{
		MediaURL:    "file:///videos/slow.mp4",
		Surface:     ms,
		InitTimeout: 50 * time.Millisecond,
		Playback:    playback.Config{TickInterval: 5 * time.Millisecond},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Destroy()

	ierr := a.Initialize(context.Background())
	if !errors.Is(ierr, ErrInitialization) {
		t.Fatalf("Initialize() = %v, want ErrInitialization", ierr)
	}
	if got := a.State(); got != StateError {
		t.Fatalf("state = %v, want %v", got, StateError)
	}
}

func TestAdapter_OperationsBeforeInitializeRejected(t *testing.T) {
	ms := newMockSurface(10)
	a := newTestAdapter(t, ms)

	if err := a.Play(context.Background()); !errors.Is(err, ErrOperation) {
		t.Errorf("Play() before init = %v, want ErrOperation", err)
	}
	if err := a.Seek(context.Background(), 3); !errors.Is(err, ErrOperation) {
		t.Errorf("Seek() before init = %v, want ErrOperation", err)
	}
	if got := a.Stats().RejectedOps; got == 0 {
		t.Error("RejectedOps = 0, want > 0")
	}
}

func TestAdapter_NaturalEndPauses(t *testing.T) {
	ms := newMockSurface(10)
	a := newTestAdapter(t, ms)
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	a.ShowLiveSurface()

	ended := make(chan struct{}, 1)
	a.OnEnded(func() {
		select {
		case ended <- struct{}{}:
		default:
		}
	})

	if err := a.Play(context.Background()); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	// The surface reports a position past the composition end; the next
	// tick must end playback.
	ms.setPosition(11, true)

	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ended notification")
	}

	deadline := time.Now().Add(time.Second)
	for a.State() != StatePaused {
		if time.Now().After(deadline) {
			t.Fatalf("state = %v, want %v after natural end", a.State(), StatePaused)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := a.Snapshot().CurrentTime; got != 10 {
		t.Errorf("CurrentTime after end = %v, want 10", got)
	}
}

func TestAdapter_SurfaceErrorDrivesErrorState(t *testing.T) {
	ms := newMockSurface(10)
	a := newTestAdapter(t, ms)
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	var observed error
	a.OnError(func(err error) { observed = err })

	sink := ms.sink()
	if sink == nil {
		t.Fatal("adapter did not register an error sink on the surface")
	}
	boom := errors.New("pipeline broke")
	sink(boom)

	if got := a.State(); got != StateError {
		t.Fatalf("state = %v, want %v", got, StateError)
	}
	if !errors.Is(a.LastError(), boom) {
		t.Errorf("LastError() = %v, want %v", a.LastError(), boom)
	}
	if !errors.Is(observed, boom) {
		t.Errorf("error observer saw %v, want %v", observed, boom)
	}
}

func TestAdapter_DestroyIdempotent(t *testing.T) {
	ms := newMockSurface(10)
	a := newTestAdapter(t, ms)
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if err := a.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if err := a.Destroy(); err != nil {
		t.Fatalf("second Destroy() error = %v", err)
	}
	if got := a.State(); got != StateDestroyed {
		t.Fatalf("state = %v, want %v", got, StateDestroyed)
	}

	if err := a.Play(context.Background()); !errors.Is(err, ErrOperation) {
		t.Errorf("Play() after destroy = %v, want ErrOperation", err)
	}
	if err := a.Initialize(context.Background()); !errors.Is(err, ErrOperation) {
		t.Errorf("Initialize() after destroy = %v, want ErrOperation", err)
	}

	_, _, closed := ms.counts()
	if closed != 1 {
		t.Errorf("surface closed %d times, want 1", closed)
	}
}

func TestAdapter_DoEditsGraphWhileReady(t *testing.T) {
	ms := newMockSurface(10)
	a := newTestAdapter(t, ms)
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	var sources int
	if err := a.Do(func(g *composition.Graph) { sources = len(g.Sources()) }); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if sources != 1 {
		t.Errorf("seeded graph has %d sources, want 1", sources)
	}
}
