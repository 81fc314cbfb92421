package project

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gen2brain/go-fitz"
	"github.com/google/uuid"
)

// DefaultStoryboardDPI is the render resolution for storyboard pages.
const DefaultStoryboardDPI = 150.0

// ImportStoryboard renders every page of a PDF to a PNG in outDir and
// returns one image scene per page, each with the default duration. The
// returned scenes are ready to append to a project.
func ImportStoryboard(pdfPath, outDir string, dpi float64) ([]SceneConfig, error) {
	if dpi <= 0 {
		dpi = DefaultStoryboardDPI
	}

	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storyboard: %w", err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	if pages == 0 {
		return nil, errors.New("storyboard has no pages")
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	scenes := make([]SceneConfig, 0, pages)
	for n := 0; n < pages; n++ {
		img, err := doc.ImageDPI(n, dpi)
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", n+1, err)
		}

		name := filepath.Join(outDir, fmt.Sprintf("page-%03d.png", n+1))
		if err := writePNG(name, img); err != nil {
			return nil, err
		}

		scenes = append(scenes, SceneConfig{
			ID:       uuid.New().String(),
			Media:    name,
			Type:     SceneImage,
			Duration: DefaultSceneDuration,
		})
		slog.Debug("project: storyboard page rendered", "page", n+1, "file", name)
	}

	slog.Info("project: storyboard imported", "pdf", pdfPath, "pages", pages, "dpi", dpi)
	return scenes, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}
