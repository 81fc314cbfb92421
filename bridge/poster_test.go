package bridge

import (
	"image"
	"os"
	"testing"
)

func TestFitRect(t *testing.T) {
	tests := []struct {
		name                   string
		srcW, srcH, maxW, maxH int
		want                   image.Rectangle
	}{
		{"landscape_letterboxed", 1920, 1080, 640, 480, image.Rect(0, 60, 640, 420)},
		{"portrait_pillarboxed", 1080, 1920, 640, 480, image.Rect(185, 0, 455, 480)},
		{"exact_fit", 640, 480, 640, 480, image.Rect(0, 0, 640, 480)},
		{"square_upscaled", 100, 100, 640, 480, image.Rect(80, 0, 560, 480)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fitRect(tt.srcW, tt.srcH, tt.maxW, tt.maxH)
			if got != tt.want {
				t.Errorf("fitRect(%d,%d,%d,%d) = %v, want %v",
					tt.srcW, tt.srcH, tt.maxW, tt.maxH, got, tt.want)
			}
		})
	}
}

func TestNewPosterSurface_Validation(t *testing.T) {
	if _, err := NewPosterSurface(PosterConfig{Width: -1, Height: 100}); err == nil {
		t.Error("negative width accepted")
	}
	if _, err := NewPosterSurface(PosterConfig{Width: 100}); err == nil {
		t.Error("width without height accepted")
	}
}

func TestPosterSurface_ScalesIntoViewport(t *testing.T) {
	p, err := NewPosterSurface(PosterConfig{Width: 320, Height: 240})
	if err != nil {
		t.Fatalf("NewPosterSurface() error = %v", err)
	}
	defer p.Close()

	if err := p.SetFrame(image.NewRGBA(image.Rect(0, 0, 640, 480))); err != nil {
		t.Fatalf("SetFrame() error = %v", err)
	}
	got := p.Snapshot()
	if got == nil {
		t.Fatal("Snapshot() = nil after SetFrame")
	}
	if b := got.Bounds(); b.Dx() != 320 || b.Dy() != 240 {
		t.Errorf("snapshot bounds = %dx%d, want 320x240", b.Dx(), b.Dy())
	}
}

func TestPosterSurface_NativeSizeWhenUnconfigured(t *testing.T) {
	p, err := NewPosterSurface(PosterConfig{})
	if err != nil {
		t.Fatalf("NewPosterSurface() error = %v", err)
	}
	defer p.Close()

	if err := p.SetFrame(image.NewRGBA(image.Rect(0, 0, 64, 48))); err != nil {
		t.Fatalf("SetFrame() error = %v", err)
	}
	if b := p.Snapshot().Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Errorf("snapshot bounds = %dx%d, want 64x48", b.Dx(), b.Dy())
	}
	if p.CachePath() != "" {
		t.Errorf("CachePath() = %q, want empty with caching disabled", p.CachePath())
	}
}

func TestPosterSurface_NilFrameRejected(t *testing.T) {
	p, err := NewPosterSurface(PosterConfig{})
	if err != nil {
		t.Fatalf("NewPosterSurface() error = %v", err)
	}
	if err := p.SetFrame(nil); err == nil {
		t.Error("SetFrame(nil) accepted")
	}
}

func TestPosterSurface_CacheLifecycle(t *testing.T) {
	dir := t.TempDir()
	p, err := NewPosterSurface(PosterConfig{CacheDir: dir})
	if err != nil {
		t.Fatalf("NewPosterSurface() error = %v", err)
	}

	if err := p.SetFrame(image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("SetFrame() error = %v", err)
	}
	first := p.CachePath()
	if first == "" {
		t.Fatal("CachePath() empty after SetFrame with CacheDir set")
	}
	if _, err := os.Stat(first); err != nil {
		t.Fatalf("cache file missing: %v", err)
	}

	// A new frame replaces the cache file.
	if err := p.SetFrame(image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("second SetFrame() error = %v", err)
	}
	second := p.CachePath()
	if second == "" || second == first {
		t.Fatalf("cache path not rotated: first=%q second=%q", first, second)
	}
	if _, err := os.Stat(first); !os.IsNotExist(err) {
		t.Errorf("old cache file still present: %v", err)
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(second); !os.IsNotExist(err) {
		t.Errorf("cache file survives Close: %v", err)
	}
	if p.CachePath() != "" {
		t.Errorf("CachePath() = %q after Close, want empty", p.CachePath())
	}
}
