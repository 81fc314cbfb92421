// Package project loads, saves and validates scene-bridge project files:
// the YAML description of an ordered scene list with viewport, playback and
// output settings.
package project

import (
	"bytes"
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/visiona/scene-bridge/composition"
	"github.com/visiona/scene-bridge/timeline"
)

const (
	// DefaultSceneDuration is applied to image scenes without an explicit
	// duration, in seconds.
	DefaultSceneDuration = 5.0

	// DefaultTickMS is the render tick interval when the project does not
	// set one.
	DefaultTickMS = 33
)

// Scene media types as written in project files.
const (
	SceneVideo = "video"
	SceneImage = "image"
)

// Project represents a complete scene-bridge project
type Project struct {
	Name     string         `yaml:"name"`
	Viewport ViewportConfig `yaml:"viewport"`
	Scenes   []SceneConfig  `yaml:"scenes"`
	Playback PlaybackConfig `yaml:"playback"`
	Output   OutputConfig   `yaml:"output"`
}

// ViewportConfig contains the output surface dimensions
type ViewportConfig struct {
	Width  int `yaml:"width"`  // pixels; 0 keeps native media resolution
	Height int `yaml:"height"` // pixels
}

// PlaybackConfig contains transport settings
type PlaybackConfig struct {
	TickMS     int  `yaml:"tick_ms"`     // render tick interval in milliseconds (default: 33)
	AutoRewind bool `yaml:"auto_rewind"` // rewind to zero when playback ends
}

// OutputConfig contains surface output settings
type OutputConfig struct {
	PosterDir string `yaml:"poster_dir,omitempty"` // directory for extracted poster frames
	Accel     string `yaml:"accel,omitempty"`      // auto, vaapi, software
}

// SceneConfig defines a single scene
type SceneConfig struct {
	ID       string      `yaml:"id,omitempty"`       // generated when empty
	Media    string      `yaml:"media"`              // media URI or image path
	Type     string      `yaml:"type"`               // video, image (default: video)
	Duration float64     `yaml:"duration,omitempty"` // seconds; probed from media when 0
	Trim     *TrimConfig `yaml:"trim,omitempty"`
}

// TrimConfig is a committed trim range in scene-local seconds.
type TrimConfig struct {
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
}

// EffectiveDuration returns the scene's playable length after trimming.
func (s *SceneConfig) EffectiveDuration() float64 {
	d := s.Duration
	if s.Trim != nil && s.Trim.End > s.Trim.Start {
		td := s.Trim.End - s.Trim.Start
		if d == 0 || td < d {
			return td
		}
	}
	return d
}

// Load reads and parses a YAML project file. Unknown keys are rejected so a
// typoed field fails loudly instead of silently using a default.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Project
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to parse project: %w", err)
	}

	if err := Validate(&p); err != nil {
		return nil, fmt.Errorf("invalid project: %w", err)
	}
	return &p, nil
}

// Save writes the project as YAML.
func Save(p *Project, path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode project: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write project file: %w", err)
	}
	return nil
}

// Validate checks the project and fills in defaults. Scene IDs are generated
// when empty.
func Validate(p *Project) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(p.Scenes) == 0 {
		return fmt.Errorf("at least one scene is required")
	}

	if p.Viewport.Width < 0 || p.Viewport.Height < 0 {
		return fmt.Errorf("viewport %dx%d must not be negative", p.Viewport.Width, p.Viewport.Height)
	}
	if (p.Viewport.Width == 0) != (p.Viewport.Height == 0) {
		return fmt.Errorf("viewport must set both dimensions or neither")
	}

	if p.Playback.TickMS < 0 {
		return fmt.Errorf("playback.tick_ms must not be negative")
	}
	if p.Playback.TickMS == 0 {
		p.Playback.TickMS = DefaultTickMS
	}

	switch p.Output.Accel {
	case "", "auto", "vaapi", "software":
	default:
		return fmt.Errorf("output.accel %q must be auto, vaapi or software", p.Output.Accel)
	}

	seen := make(map[string]struct{}, len(p.Scenes))
	for i := range p.Scenes {
		sc := &p.Scenes[i]
		if sc.Media == "" {
			return fmt.Errorf("scene %d: media is required", i)
		}

		switch sc.Type {
		case "":
			sc.Type = SceneVideo
		case SceneVideo, SceneImage:
		default:
			return fmt.Errorf("scene %d: unknown type %q (must be %q or %q)",
				i, sc.Type, SceneVideo, SceneImage)
		}

		if sc.Duration < 0 {
			return fmt.Errorf("scene %d: duration %v must not be negative", i, sc.Duration)
		}
		// Video durations can be probed later; images have no metadata to
		// probe, so they default here.
		if sc.Type == SceneImage && sc.Duration == 0 {
			sc.Duration = DefaultSceneDuration
		}

		if sc.ID == "" {
			sc.ID = uuid.New().String()
		}
		if _, dup := seen[sc.ID]; dup {
			return fmt.Errorf("scene %d: duplicate id %q", i, sc.ID)
		}
		seen[sc.ID] = struct{}{}

		if sc.Trim != nil {
			if sc.Trim.Start < 0 || sc.Trim.End < 0 {
				return fmt.Errorf("scene %d: trim range must not be negative", i)
			}
			if sc.Trim.End > 0 && sc.Trim.End <= sc.Trim.Start {
				return fmt.Errorf("scene %d: trim end %v must be after start %v",
					i, sc.Trim.End, sc.Trim.Start)
			}
			if sc.Duration > 0 && sc.Trim.End > sc.Duration {
				return fmt.Errorf("scene %d: trim end %v past duration %v",
					i, sc.Trim.End, sc.Duration)
			}
		}
	}
	return nil
}

// BuildTimeline converts the project's scenes into scheduler input, with
// trims folded into the effective durations.
func BuildTimeline(p *Project) ([]timeline.Scene, error) {
	scenes := make([]timeline.Scene, 0, len(p.Scenes))
	for i := range p.Scenes {
		sc := &p.Scenes[i]
		mt, err := composition.ParseMediaType(sc.Type)
		if err != nil {
			return nil, fmt.Errorf("scene %s: %w", sc.ID, err)
		}
		scenes = append(scenes, timeline.Scene{
			ID:        sc.ID,
			MediaURL:  sc.Media,
			MediaType: mt,
			Duration:  sc.EffectiveDuration(),
		})
	}
	return scenes, nil
}
