package bridge

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/visiona/scene-bridge/bridge/internal/live"
)

// LiveConfig configures the GStreamer playback surface.
type LiveConfig struct {
	// URI is the media location (file://, http://, https://).
	URI string

	// Width and Height scale the decoded output. Zero keeps the native
	// resolution; both must be set together.
	Width  int
	Height int

	// Acceleration selects the decoder strategy.
	Acceleration HardwareAccel

	// OnFrame receives decoded RGB frames while playing. Optional.
	OnFrame func(data []byte, width, height int)
}

// LiveStats is a snapshot of the live pipeline's activity.
type LiveStats struct {
	// Frames is the number of decoded frames pulled from the pipeline.
	Frames uint64
	// BusErrors is the total number of pipeline bus errors.
	BusErrors uint64
	// SourceErrors counts errors classified as media access failures.
	SourceErrors uint64
	// DecodeErrors counts errors classified as decoder failures.
	DecodeErrors uint64
	// NegotiationErrors counts errors classified as caps failures.
	NegotiationErrors uint64
}

// GStreamerSurface is the live Surface backed by a GStreamer uridecodebin
// pipeline.
type GStreamerSurface struct {
	inner *live.Surface
}

// NewGStreamerSurface creates a live surface. The pipeline is built lazily
// by Prepare, so construction only verifies the configuration and the
// GStreamer runtime.
func NewGStreamerSurface(cfg LiveConfig) (*GStreamerSurface, error) {
	inner, err := live.New(live.Config{
		URI:          cfg.URI,
		Width:        cfg.Width,
		Height:       cfg.Height,
		Acceleration: int(cfg.Acceleration),
		OnFrame:      cfg.OnFrame,
	})
	if err != nil {
		return nil, fmt.Errorf("bridge: %w", err)
	}
	return &GStreamerSurface{inner: inner}, nil
}

// Prepare builds and prerolls the pipeline and returns the media metadata.
func (g *GStreamerSurface) Prepare(ctx context.Context) (MediaInfo, error) {
	info, err := g.inner.Prepare(ctx)
	if err != nil {
		return MediaInfo{}, err
	}
	return MediaInfo{
		Duration: info.Duration,
		Width:    info.Width,
		Height:   info.Height,
		HasVideo: info.HasVideo,
		HasAudio: info.HasAudio,
		Codec:    info.Format,
	}, nil
}

// FirstFrame returns the decoded preroll frame.
func (g *GStreamerSurface) FirstFrame(ctx context.Context) (image.Image, error) {
	return g.inner.FirstFrame(ctx)
}

// Start moves the pipeline to PLAYING.
func (g *GStreamerSurface) Start(ctx context.Context) error { return g.inner.Start(ctx) }

// Stop moves the pipeline back to PAUSED.
func (g *GStreamerSurface) Stop() error { return g.inner.Stop() }

// Seek issues a flushing accurate seek to t seconds.
func (g *GStreamerSurface) Seek(t float64) error { return g.inner.Seek(t) }

// RenderFrame delivers the frame a paused seek landed on.
func (g *GStreamerSurface) RenderFrame(t float64) error { return g.inner.RenderFrame(t) }

// Position reports the pipeline position when it has one.
func (g *GStreamerSurface) Position() (float64, bool) { return g.inner.Position() }

// Close tears the pipeline down. Idempotent.
func (g *GStreamerSurface) Close() error { return g.inner.Close() }

// SetErrorSink routes asynchronous pipeline errors to fn.
func (g *GStreamerSurface) SetErrorSink(fn func(error)) { g.inner.SetErrorSink(fn) }

// PipelineStats returns a snapshot of pipeline activity.
func (g *GStreamerSurface) PipelineStats() LiveStats {
	st := g.inner.Stats()
	return LiveStats{
		Frames:            st.Frames,
		BusErrors:         st.BusErrors,
		SourceErrors:      st.SourceErrors,
		DecodeErrors:      st.DecodeErrors,
		NegotiationErrors: st.NegotiationErrors,
	}
}

// ProbeMedia prepares a throwaway surface for url and returns its metadata.
// Used to fill in scene durations without keeping a pipeline around.
func ProbeMedia(ctx context.Context, url string, timeout time.Duration) (MediaInfo, error) {
	if timeout <= 0 {
		timeout = DefaultInitTimeout
	}
	surface, err := NewGStreamerSurface(LiveConfig{URI: url})
	if err != nil {
		return MediaInfo{}, err
	}
	defer surface.Close()

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return surface.Prepare(probeCtx)
}
