package bridge

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	_ "image/jpeg"
	_ "image/png"
)

// StillSurface is a Surface for image scenes: one decoded frame shown for a
// configured duration, with the reference clock doing the timekeeping. All
// transport methods are no-ops.
type StillSurface struct {
	path     string
	duration float64

	mu    sync.Mutex
	frame image.Image

	closed atomic.Bool
}

// NewStillSurface creates a surface for the image at path, displayed for
// duration seconds.
func NewStillSurface(path string, duration float64) (*StillSurface, error) {
	if path == "" {
		return nil, errors.New("bridge: image path is required")
	}
	if duration <= 0 {
		return nil, fmt.Errorf("bridge: image duration %v must be positive", duration)
	}
	return &StillSurface{path: path, duration: duration}, nil
}

// Prepare decodes the image and synthesizes the media metadata from the
// configured duration.
func (s *StillSurface) Prepare(ctx context.Context) (MediaInfo, error) {
	if s.closed.Load() {
		return MediaInfo{}, errors.New("bridge: still surface closed")
	}
	if err := ctx.Err(); err != nil {
		return MediaInfo{}, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return MediaInfo{}, fmt.Errorf("bridge: open image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return MediaInfo{}, fmt.Errorf("bridge: decode image %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.frame = img
	s.mu.Unlock()

	bounds := img.Bounds()
	slog.Debug("bridge: still image decoded",
		"path", s.path,
		"format", format,
		"resolution", fmt.Sprintf("%dx%d", bounds.Dx(), bounds.Dy()),
	)
	return MediaInfo{
		Duration: s.duration,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		HasVideo: true,
		Codec:    format,
	}, nil
}

// FirstFrame returns the decoded image.
func (s *StillSurface) FirstFrame(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frame == nil {
		return nil, errors.New("bridge: still surface not prepared")
	}
	return s.frame, nil
}

// Start is a no-op; the clock advances time over the still frame.
func (s *StillSurface) Start(ctx context.Context) error { return nil }

// Stop is a no-op.
func (s *StillSurface) Stop() error { return nil }

// Seek is a no-op; every position shows the same frame.
func (s *StillSurface) Seek(t float64) error { return nil }

// RenderFrame is a no-op.
func (s *StillSurface) RenderFrame(t float64) error { return nil }

// Position reports no authoritative position, leaving the reference clock in
// charge.
func (s *StillSurface) Position() (float64, bool) { return 0, false }

// Close releases the decoded frame. Idempotent.
func (s *StillSurface) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.mu.Lock()
	s.frame = nil
	s.mu.Unlock()
	return nil
}
