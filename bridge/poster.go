package bridge

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"sync"

	xdraw "golang.org/x/image/draw"
)

// PosterConfig configures a PosterSurface.
type PosterConfig struct {
	// Width and Height are the viewport the frame is scaled into,
	// preserving aspect ratio. Zero keeps the source frame size.
	Width  int
	Height int
	// CacheDir, when set, makes the surface write each frame to a PNG
	// cache file in that directory. The file is replaced on every
	// SetFrame and removed on Close.
	CacheDir string
}

// PosterSurface holds the extracted first frame of a media item. It is the
// cheap placeholder shown while the live surface initializes, and again
// whenever the owner switches back with ShowPoster.
type PosterSurface struct {
	mu        sync.Mutex
	cfg       PosterConfig
	frame     *image.RGBA
	cachePath string
}

// NewPosterSurface creates a poster surface.
func NewPosterSurface(cfg PosterConfig) (*PosterSurface, error) {
	if cfg.Width < 0 || cfg.Height < 0 {
		return nil, fmt.Errorf("bridge: poster viewport %dx%d must not be negative", cfg.Width, cfg.Height)
	}
	if (cfg.Width == 0) != (cfg.Height == 0) {
		return nil, fmt.Errorf("bridge: poster viewport %dx%d must set both dimensions or neither", cfg.Width, cfg.Height)
	}
	return &PosterSurface{cfg: cfg}, nil
}

// SetFrame stores img as the poster frame, scaled into the configured
// viewport. A cache file write failure is logged and tolerated; the
// in-memory frame remains valid.
func (p *PosterSurface) SetFrame(img image.Image) error {
	if img == nil {
		return errors.New("bridge: poster frame must not be nil")
	}

	src := img.Bounds()
	var dst *image.RGBA
	if p.cfg.Width == 0 {
		dst = image.NewRGBA(image.Rect(0, 0, src.Dx(), src.Dy()))
		xdraw.Copy(dst, image.Point{}, img, src, xdraw.Src, nil)
	} else {
		dst = image.NewRGBA(image.Rect(0, 0, p.cfg.Width, p.cfg.Height))
		fit := fitRect(src.Dx(), src.Dy(), p.cfg.Width, p.cfg.Height)
		xdraw.ApproxBiLinear.Scale(dst, fit, img, src, xdraw.Src, nil)
	}

	p.mu.Lock()
	p.frame = dst
	oldCache := p.cachePath
	p.cachePath = ""
	p.mu.Unlock()

	if oldCache != "" {
		removeQuiet(oldCache)
	}
	if p.cfg.CacheDir != "" {
		if path, err := p.writeCache(dst); err != nil {
			slog.Warn("bridge: poster cache write failed", "dir", p.cfg.CacheDir, "error", err)
		} else {
			p.mu.Lock()
			p.cachePath = path
			p.mu.Unlock()
			slog.Debug("bridge: poster cached", "path", path)
		}
	}
	return nil
}

// Snapshot returns the current (scaled) poster frame, or nil before the
// first SetFrame.
func (p *PosterSurface) Snapshot() image.Image {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.frame == nil {
		return nil
	}
	return p.frame
}

// CachePath returns the current cache file path, empty when caching is
// disabled or no frame has been cached.
func (p *PosterSurface) CachePath() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cachePath
}

// Close drops the frame and removes the cache file. Idempotent.
func (p *PosterSurface) Close() error {
	p.mu.Lock()
	path := p.cachePath
	p.cachePath = ""
	p.frame = nil
	p.mu.Unlock()

	if path != "" {
		removeQuiet(path)
	}
	return nil
}

func (p *PosterSurface) writeCache(frame *image.RGBA) (string, error) {
	f, err := os.CreateTemp(p.cfg.CacheDir, "poster-*.png")
	if err != nil {
		return "", err
	}
	if err := png.Encode(f, frame); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func removeQuiet(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("bridge: poster cache remove failed", "path", path, "error", err)
	}
}

// fitRect computes the centered rectangle that fits a srcW x srcH frame
// into a maxW x maxH viewport preserving aspect ratio.
func fitRect(srcW, srcH, maxW, maxH int) image.Rectangle {
	if srcW <= 0 || srcH <= 0 || maxW <= 0 || maxH <= 0 {
		return image.Rectangle{}
	}
	w := maxW
	h := srcH * maxW / srcW
	if h > maxH {
		h = maxH
		w = srcW * maxH / srcH
	}
	x := (maxW - w) / 2
	y := (maxH - h) / 2
	return image.Rect(x, y, x+w, y+h)
}
