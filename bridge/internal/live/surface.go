// Package live implements the GStreamer playback surface: a uridecodebin
// pipeline decoding a media URI to clock-paced RGB frames, with preroll
// metadata probing and bus error classification.
package live

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

const (
	busPollInterval    = 50 * time.Millisecond
	durationProbeTries = 20
	durationProbeDelay = 100 * time.Millisecond
)

// Config holds the surface configuration.
type Config struct {
	// URI is the media location (file://, http://, https://).
	URI string

	// Width and Height scale the decoded output. Zero leaves the media at
	// its native resolution; both must be set together.
	Width  int
	Height int

	// Acceleration selects the decoder strategy (AccelAuto, AccelVAAPI,
	// AccelSoftware).
	Acceleration int

	// OnFrame receives decoded RGB frames while playing. Optional; frames
	// are counted and discarded when nil.
	OnFrame func(data []byte, width, height int)
}

// Info is the media metadata collected during preroll.
type Info struct {
	Duration float64 // seconds; 0 when the media reports none
	Width    int
	Height   int
	HasVideo bool
	HasAudio bool
	Format   string // negotiated raw format, e.g. "RGB"
}

// Stats is a snapshot of surface activity.
type Stats struct {
	// Frames is the number of samples pulled from the appsink.
	Frames uint64
	// BusErrors is the total number of pipeline bus errors.
	BusErrors uint64
	// SourceErrors counts bus errors classified as media access failures.
	SourceErrors uint64
	// DecodeErrors counts bus errors classified as decoder failures.
	DecodeErrors uint64
	// NegotiationErrors counts bus errors classified as caps failures.
	NegotiationErrors uint64
}

// Surface owns one decode pipeline. Transport methods (Start, Stop, Seek,
// RenderFrame, Position) are serialized by the caller; Close may race them.
type Surface struct {
	cfg Config

	mu            sync.Mutex
	parts         *pipelineParts
	prepared      bool
	info          Info
	firstFrame    *image.RGBA
	errSinkFn     func(error)
	monitorCancel context.CancelFunc

	wg     sync.WaitGroup
	closed atomic.Bool

	frames            atomic.Uint64
	busErrors         atomic.Uint64
	sourceErrors      atomic.Uint64
	decodeErrors      atomic.Uint64
	negotiationErrors atomic.Uint64
}

// New validates the configuration and verifies the GStreamer runtime. The
// pipeline itself is built by Prepare.
func New(cfg Config) (*Surface, error) {
	if cfg.URI == "" {
		return nil, errors.New("live: media URI is required")
	}
	if cfg.Width < 0 || cfg.Height < 0 {
		return nil, fmt.Errorf("live: invalid output size %dx%d", cfg.Width, cfg.Height)
	}
	if (cfg.Width == 0) != (cfg.Height == 0) {
		return nil, errors.New("live: output width and height must be set together")
	}

	if err := checkGStreamerAvailable(); err != nil {
		return nil, err
	}
	switch cfg.Acceleration {
	case AccelVAAPI:
		if !checkVAAPIAvailable() {
			return nil, errors.New("live: vaapi acceleration requested but no vaapi decoder found")
		}
	case AccelAuto:
		slog.Debug("live: vaapi decoders available", "available", checkVAAPIAvailable())
	}

	return &Surface{cfg: cfg}, nil
}

// SetErrorSink routes asynchronous bus errors to fn. Must be called before
// Prepare.
func (s *Surface) SetErrorSink(fn func(error)) {
	s.mu.Lock()
	s.errSinkFn = fn
	s.mu.Unlock()
}

// Prepare builds the pipeline, prerolls it in PAUSED and collects the media
// metadata. Re-preparing after a failure tears the old pipeline down first.
func (s *Surface) Prepare(ctx context.Context) (Info, error) {
	if s.closed.Load() {
		return Info{}, errors.New("live: surface closed")
	}
	s.teardown()

	parts, err := buildPipeline(s.cfg)
	if err != nil {
		return Info{}, err
	}

	parts.source.Connect("pad-added", func(self *gst.Element, srcPad *gst.Pad) {
		onPadAdded(srcPad, parts.convert)
	})
	parts.sink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: s.onNewSample,
	})

	if err := parts.pipeline.SetState(gst.StatePaused); err != nil {
		parts.pipeline.SetState(gst.StateNull)
		return Info{}, fmt.Errorf("live: failed to pause pipeline: %w", err)
	}
	if err := s.waitPreroll(ctx, parts); err != nil {
		parts.pipeline.SetState(gst.StateNull)
		return Info{}, err
	}

	info := s.collectInfo(ctx, parts)
	frame := s.pullPrerollFrame(parts, info)

	s.mu.Lock()
	s.parts = parts
	s.info = info
	s.firstFrame = frame
	s.prepared = true
	s.mu.Unlock()

	s.startMonitor(parts)

	slog.Info("live: surface prepared",
		"uri", s.cfg.URI,
		"duration", info.Duration,
		"resolution", fmt.Sprintf("%dx%d", info.Width, info.Height),
		"format", info.Format,
	)
	return info, nil
}

// waitPreroll polls the bus until the pipeline reports the preroll is
// complete, a pipeline error arrives, or ctx expires.
func (s *Surface) waitPreroll(ctx context.Context, parts *pipelineParts) error {
	bus := parts.pipeline.GetPipelineBus()
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("live: preroll interrupted: %w", err)
		}

		msg := bus.TimedPop(busPollInterval)
		if msg == nil {
			continue
		}
		switch msg.Type() {
		case gst.MessageError:
			gerr := msg.ParseError()
			cat := ClassifyBusError(gerr)
			s.countBusError(cat)
			return fmt.Errorf("live: pipeline error during preroll (%s): %s", cat, gerr.Error())

		case gst.MessageEOS:
			return errors.New("live: unexpected end of stream during preroll")

		case gst.MessageAsyncDone:
			return nil

		case gst.MessageStateChanged:
			if msg.Source() == parts.pipeline.GetName() {
				_, newState := msg.ParseStateChanged()
				if newState == gst.StatePaused {
					return nil
				}
			}
		}
	}
}

// collectInfo queries the prerolled pipeline for duration and output caps.
// Some demuxers settle the duration a moment after preroll, hence the retry.
func (s *Surface) collectInfo(ctx context.Context, parts *pipelineParts) Info {
	info := Info{HasVideo: true}

	for i := 0; i < durationProbeTries; i++ {
		q := gst.NewDurationQuery(gst.FormatTime)
		if parts.pipeline.Query(q) {
			_, ns := q.ParseDuration()
			if ns > 0 {
				info.Duration = float64(ns) / float64(time.Second)
				break
			}
		}
		select {
		case <-ctx.Done():
			return info
		case <-time.After(durationProbeDelay):
		}
	}
	if info.Duration == 0 {
		slog.Warn("live: media reports no duration", "uri", s.cfg.URI)
	}

	if pad := parts.sink.Element.GetStaticPad("sink"); pad != nil {
		if caps := pad.GetCurrentCaps(); caps != nil && caps.GetSize() > 0 {
			structure := caps.GetStructureAt(0)
			if val, err := structure.GetValue("width"); err == nil {
				if w, ok := val.(int); ok {
					info.Width = w
				}
			}
			if val, err := structure.GetValue("height"); err == nil {
				if h, ok := val.(int); ok {
					info.Height = h
				}
			}
			if val, err := structure.GetValue("format"); err == nil {
				if f, ok := val.(string); ok {
					info.Format = f
				}
			}
		}
	}
	return info
}

// pullPrerollFrame copies the preroll sample into an image. Best-effort: a
// media item whose first frame cannot be decoded still plays.
func (s *Surface) pullPrerollFrame(parts *pipelineParts, info Info) *image.RGBA {
	if info.Width <= 0 || info.Height <= 0 {
		slog.Warn("live: no output caps, skipping first frame")
		return nil
	}

	sample := parts.sink.PullPreroll()
	if sample == nil {
		slog.Warn("live: no preroll sample available")
		return nil
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		slog.Warn("live: preroll sample has no buffer")
		return nil
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		slog.Warn("live: empty preroll buffer")
		return nil
	}
	frameData := make([]byte, len(data))
	copy(frameData, data)
	buffer.Unmap()

	img, err := rgbToImage(frameData, info.Width, info.Height)
	if err != nil {
		slog.Warn("live: first frame conversion failed", "error", err)
		return nil
	}
	return img
}

// onNewSample is called by GStreamer for every decoded frame while playing.
// A single corrupt frame is skipped, never fatal.
func (s *Surface) onNewSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		slog.Warn("live: failed to pull sample from appsink, skipping frame")
		return gst.FlowOK
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		slog.Warn("live: failed to get buffer from sample, skipping frame")
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		slog.Warn("live: empty buffer received")
		return gst.FlowOK
	}

	s.frames.Add(1)

	cb := s.cfg.OnFrame
	if cb == nil {
		buffer.Unmap()
		return gst.FlowOK
	}

	// Copy before Unmap: GStreamer reuses the buffer.
	frameData := make([]byte, len(data))
	copy(frameData, data)
	buffer.Unmap()

	w, h := s.mediaSize()
	cb(frameData, w, h)
	return gst.FlowOK
}

func (s *Surface) mediaSize() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info.Width, s.info.Height
}

// FirstFrame returns the decoded preroll frame.
func (s *Surface) FirstFrame(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.prepared {
		return nil, errors.New("live: surface not prepared")
	}
	if s.firstFrame == nil {
		return nil, errors.New("live: no first frame decoded")
	}
	return s.firstFrame, nil
}

// Start moves the pipeline to PLAYING.
func (s *Surface) Start(ctx context.Context) error {
	parts, err := s.requireParts()
	if err != nil {
		return err
	}
	if err := parts.pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("live: failed to start pipeline: %w", err)
	}
	slog.Debug("live: pipeline playing", "uri", s.cfg.URI)
	return nil
}

// Stop moves the pipeline back to PAUSED, holding the current frame.
func (s *Surface) Stop() error {
	parts, err := s.requireParts()
	if err != nil {
		return err
	}
	if err := parts.pipeline.SetState(gst.StatePaused); err != nil {
		return fmt.Errorf("live: failed to pause pipeline: %w", err)
	}
	slog.Debug("live: pipeline paused", "uri", s.cfg.URI)
	return nil
}

// Seek issues a flushing accurate seek to t seconds.
func (s *Surface) Seek(t float64) error {
	parts, err := s.requireParts()
	if err != nil {
		return err
	}

	ns := int64(t * float64(time.Second))
	ev := gst.NewSeekEvent(1.0, gst.FormatTime,
		gst.SeekFlagFlush|gst.SeekFlagAccurate,
		gst.SeekTypeSet, ns, gst.SeekTypeNone, -1)
	if !parts.pipeline.SendEvent(ev) {
		return fmt.Errorf("live: seek to %.3fs refused by pipeline", t)
	}
	slog.Debug("live: seek issued", "position", t)
	return nil
}

// RenderFrame delivers the frame a paused seek landed on. The flushing seek
// re-prerolls the sink, so pulling the preroll sample is enough.
func (s *Surface) RenderFrame(t float64) error {
	parts, err := s.requireParts()
	if err != nil {
		return err
	}

	sample := parts.sink.PullPreroll()
	if sample == nil {
		slog.Debug("live: no preroll sample after seek", "position", t)
		return nil
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		return nil
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		return nil
	}

	s.frames.Add(1)

	cb := s.cfg.OnFrame
	if cb == nil {
		buffer.Unmap()
		return nil
	}
	frameData := make([]byte, len(data))
	copy(frameData, data)
	buffer.Unmap()

	w, h := s.mediaSize()
	cb(frameData, w, h)
	return nil
}

// Position reports the pipeline position. ok is false when the pipeline has
// no position yet (before the first state change settles).
func (s *Surface) Position() (float64, bool) {
	s.mu.Lock()
	parts := s.parts
	prepared := s.prepared
	s.mu.Unlock()
	if !prepared || parts == nil {
		return 0, false
	}

	q := gst.NewPositionQuery(gst.FormatTime)
	if !parts.pipeline.Query(q) {
		return 0, false
	}
	_, ns := q.ParsePosition()
	if ns < 0 {
		return 0, false
	}
	return float64(ns) / float64(time.Second), true
}

// Close tears the pipeline down. Idempotent.
func (s *Surface) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.teardown()
	slog.Info("live: surface closed",
		"uri", s.cfg.URI,
		"frames", s.frames.Load(),
		"bus_errors", s.busErrors.Load(),
	)
	return nil
}

// Stats returns a snapshot of surface activity.
func (s *Surface) Stats() Stats {
	return Stats{
		Frames:            s.frames.Load(),
		BusErrors:         s.busErrors.Load(),
		SourceErrors:      s.sourceErrors.Load(),
		DecodeErrors:      s.decodeErrors.Load(),
		NegotiationErrors: s.negotiationErrors.Load(),
	}
}

func (s *Surface) requireParts() (*pipelineParts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.prepared || s.parts == nil {
		return nil, errors.New("live: surface not prepared")
	}
	return s.parts, nil
}

func (s *Surface) startMonitor(parts *pipelineParts) {
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.monitorCancel = cancel
	sink := s.errSinkFn
	s.mu.Unlock()

	s.wg.Add(1)
	go s.monitor(ctx, parts, sink)
}

// monitor polls the bus until torn down, classifying errors and forwarding
// them to the error sink.
func (s *Surface) monitor(ctx context.Context, parts *pipelineParts, sink func(error)) {
	defer s.wg.Done()
	bus := parts.pipeline.GetPipelineBus()
	slog.Debug("live: bus monitor started")

	for {
		select {
		case <-ctx.Done():
			slog.Debug("live: bus monitor stopped")
			return
		default:
		}

		msg := bus.TimedPop(busPollInterval)
		if msg == nil {
			continue
		}
		switch msg.Type() {
		case gst.MessageEOS:
			// The reference clock decides when playback ends; EOS only
			// means the decoder ran dry.
			slog.Info("live: end of stream reached", "uri", s.cfg.URI)

		case gst.MessageError:
			gerr := msg.ParseError()
			cat := ClassifyBusError(gerr)
			s.countBusError(cat)
			slog.Error("live: pipeline error",
				"category", cat.String(),
				"error", gerr.Error(),
				"debug", gerr.DebugString(),
			)
			if sink != nil {
				sink(fmt.Errorf("live: pipeline error (%s): %s", cat, gerr.Error()))
			}

		case gst.MessageStateChanged:
			if msg.Source() == parts.pipeline.GetName() {
				old, newState := msg.ParseStateChanged()
				slog.Debug("live: pipeline state changed", "from", old, "to", newState)
			}
		}
	}
}

func (s *Surface) countBusError(cat ErrorCategory) {
	s.busErrors.Add(1)
	switch cat {
	case ErrCategorySource:
		s.sourceErrors.Add(1)
	case ErrCategoryDecode:
		s.decodeErrors.Add(1)
	case ErrCategoryNegotiation:
		s.negotiationErrors.Add(1)
	}
}

// teardown stops the monitor and nulls the pipeline. Safe to call with no
// pipeline built.
func (s *Surface) teardown() {
	s.mu.Lock()
	cancel := s.monitorCancel
	parts := s.parts
	s.monitorCancel = nil
	s.parts = nil
	s.prepared = false
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()

	if parts != nil {
		if err := parts.pipeline.SetState(gst.StateNull); err != nil {
			slog.Warn("live: failed to null pipeline", "error", err)
		}
		slog.Debug("live: pipeline torn down")
	}
}
