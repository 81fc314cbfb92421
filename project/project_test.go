package project

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/visiona/scene-bridge/composition"
)

const sampleProject = `
name: demo-reel
viewport:
  width: 1280
  height: 720
scenes:
  - id: intro
    media: file:///media/intro.mp4
    type: video
    duration: 10
    trim:
      start: 2
      end: 8
  - media: file:///media/chart.png
    type: image
  - media: file:///media/outro.mp4
playback:
  auto_rewind: true
`

func writeProject(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "project.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write project file: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	p, err := Load(writeProject(t, sampleProject))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if p.Name != "demo-reel" {
		t.Errorf("Name = %q, want demo-reel", p.Name)
	}
	if p.Playback.TickMS != DefaultTickMS {
		t.Errorf("TickMS = %d, want default %d", p.Playback.TickMS, DefaultTickMS)
	}
	if !p.Playback.AutoRewind {
		t.Error("AutoRewind not parsed")
	}

	if len(p.Scenes) != 3 {
		t.Fatalf("len(Scenes) = %d, want 3", len(p.Scenes))
	}
	if p.Scenes[0].ID != "intro" {
		t.Errorf("explicit scene id overwritten: %q", p.Scenes[0].ID)
	}
	for i, sc := range p.Scenes {
		if sc.ID == "" {
			t.Errorf("scene %d: id not generated", i)
		}
	}
	if got := p.Scenes[1].Duration; got != DefaultSceneDuration {
		t.Errorf("image scene duration = %v, want default %v", got, DefaultSceneDuration)
	}
	if got := p.Scenes[2].Type; got != SceneVideo {
		t.Errorf("untyped scene type = %q, want %q", got, SceneVideo)
	}
	if got := p.Scenes[2].Duration; got != 0 {
		t.Errorf("video scene duration = %v, want 0 (left for probing)", got)
	}
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	content := `
name: typo-demo
scenes:
  - media: file:///a.mp4
    durration: 10
`
	if _, err := Load(writeProject(t, content)); err == nil {
		t.Fatal("Load() accepted a project with an unknown key")
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	p, err := Load(writeProject(t, sampleProject))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	out := filepath.Join(t.TempDir(), "saved.yaml")
	if err := Save(p, out); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	reloaded, err := Load(out)
	if err != nil {
		t.Fatalf("Load() of saved project error = %v", err)
	}

	if len(reloaded.Scenes) != len(p.Scenes) {
		t.Fatalf("reloaded scene count = %d, want %d", len(reloaded.Scenes), len(p.Scenes))
	}
	for i := range p.Scenes {
		if reloaded.Scenes[i].ID != p.Scenes[i].ID {
			t.Errorf("scene %d id changed across round trip: %q != %q",
				i, reloaded.Scenes[i].ID, p.Scenes[i].ID)
		}
	}
}

func TestValidate_Rejections(t *testing.T) {
	base := func() *Project {
		return &Project{
			Name:   "p",
			Scenes: []SceneConfig{{Media: "file:///a.mp4"}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Project)
		wantSub string
	}{
		{"missing_name", func(p *Project) { p.Name = "" }, "name"},
		{"no_scenes", func(p *Project) { p.Scenes = nil }, "scene"},
		{"missing_media", func(p *Project) { p.Scenes[0].Media = "" }, "media"},
		{"unknown_type", func(p *Project) { p.Scenes[0].Type = "audio" }, "type"},
		{"negative_duration", func(p *Project) { p.Scenes[0].Duration = -1 }, "duration"},
		{"viewport_one_dimension", func(p *Project) { p.Viewport.Width = 640 }, "viewport"},
		{"bad_accel", func(p *Project) { p.Output.Accel = "cuda" }, "accel"},
		{"trim_inverted", func(p *Project) {
			p.Scenes[0].Duration = 10
			p.Scenes[0].Trim = &TrimConfig{Start: 5, End: 5}
		}, "trim"},
		{"trim_past_duration", func(p *Project) {
			p.Scenes[0].Duration = 10
			p.Scenes[0].Trim = &TrimConfig{Start: 0, End: 12}
		}, "trim"},
		{"duplicate_ids", func(p *Project) {
			p.Scenes = []SceneConfig{
				{ID: "dup", Media: "file:///a.mp4"},
				{ID: "dup", Media: "file:///b.mp4"},
			}
		}, "duplicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base()
			tt.mutate(p)
			err := Validate(p)
			if err == nil {
				t.Fatalf("Validate() accepted %s", tt.name)
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestSceneConfig_EffectiveDuration(t *testing.T) {
	tests := []struct {
		name  string
		scene SceneConfig
		want  float64
	}{
		{"no_trim", SceneConfig{Duration: 10}, 10},
		{"trim_window", SceneConfig{Duration: 10, Trim: &TrimConfig{Start: 2, End: 8}}, 6},
		{"trim_on_unprobed", SceneConfig{Trim: &TrimConfig{Start: 1, End: 4}}, 3},
		{"trim_wider_than_media", SceneConfig{Duration: 5, Trim: &TrimConfig{Start: 0, End: 9}}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.scene.EffectiveDuration(); got != tt.want {
				t.Errorf("EffectiveDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProbe_FillsMissingVideoDurations(t *testing.T) {
	scenes := []SceneConfig{
		{ID: "a", Media: "file:///a.mp4", Type: SceneVideo},
		{ID: "b", Media: "file:///b.mp4", Type: SceneVideo, Duration: 7},
		{ID: "c", Media: "file:///c.png", Type: SceneImage, Duration: 5},
	}

	var probed []string
	var mu sync.Mutex
	prober := func(ctx context.Context, url string) (float64, error) {
		mu.Lock()
		probed = append(probed, url)
		mu.Unlock()
		return 12.5, nil
	}

	if err := Probe(context.Background(), scenes, prober, 2); err != nil {
		t.Fatalf("Probe() error = %v", err)
	}

	if len(probed) != 1 || probed[0] != "file:///a.mp4" {
		t.Errorf("probed %v, want only the zero-duration video", probed)
	}
	if scenes[0].Duration != 12.5 {
		t.Errorf("scene a duration = %v, want 12.5", scenes[0].Duration)
	}
	if scenes[1].Duration != 7 {
		t.Errorf("scene b duration = %v, want untouched 7", scenes[1].Duration)
	}
	if scenes[2].Duration != 5 {
		t.Errorf("image scene duration = %v, want untouched 5", scenes[2].Duration)
	}
}

func TestProbe_FirstErrorCancelsRest(t *testing.T) {
	scenes := []SceneConfig{
		{ID: "bad", Media: "file:///bad.mp4", Type: SceneVideo},
		{ID: "slow", Media: "file:///slow.mp4", Type: SceneVideo},
	}

	boom := errors.New("no such file")
	prober := func(ctx context.Context, url string) (float64, error) {
		if strings.Contains(url, "bad") {
			return 0, boom
		}
		// The slow probe should be cancelled by the failing one.
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(5 * time.Second):
			return 99, nil
		}
	}

	err := Probe(context.Background(), scenes, prober, 4)
	if !errors.Is(err, boom) {
		t.Fatalf("Probe() = %v, want the probe failure", err)
	}
	if scenes[1].Duration == 99 {
		t.Error("slow probe completed despite cancellation")
	}
}

func TestProbe_RespectsConcurrencyLimit(t *testing.T) {
	scenes := make([]SceneConfig, 6)
	for i := range scenes {
		scenes[i] = SceneConfig{ID: string(rune('a' + i)), Media: "file:///v.mp4", Type: SceneVideo}
	}

	var active, peak atomic.Int64
	prober := func(ctx context.Context, url string) (float64, error) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		active.Add(-1)
		return 3, nil
	}

	if err := Probe(context.Background(), scenes, prober, 2); err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if got := peak.Load(); got > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", got)
	}
}

func TestBuildTimeline_FoldsTrims(t *testing.T) {
	p := &Project{
		Name: "p",
		Scenes: []SceneConfig{
			{ID: "v", Media: "file:///v.mp4", Type: SceneVideo, Duration: 10,
				Trim: &TrimConfig{Start: 2, End: 5}},
			{ID: "i", Media: "file:///i.png", Type: SceneImage, Duration: 4},
		},
	}
	if err := Validate(p); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	scenes, err := BuildTimeline(p)
	if err != nil {
		t.Fatalf("BuildTimeline() error = %v", err)
	}
	if len(scenes) != 2 {
		t.Fatalf("len(scenes) = %d, want 2", len(scenes))
	}
	if scenes[0].Duration != 3 {
		t.Errorf("trimmed scene duration = %v, want 3", scenes[0].Duration)
	}
	if scenes[0].MediaType != composition.MediaVideo {
		t.Errorf("scene 0 media type = %v, want video", scenes[0].MediaType)
	}
	if scenes[1].MediaType != composition.MediaImage {
		t.Errorf("scene 1 media type = %v, want image", scenes[1].MediaType)
	}
}

func TestImportStoryboard_RendersPages(t *testing.T) {
	pdf := os.Getenv("SCENE_BRIDGE_STORYBOARD_PDF")
	if pdf == "" {
		t.Skip("Skipping integration test (set SCENE_BRIDGE_STORYBOARD_PDF to a sample PDF)")
	}

	outDir := t.TempDir()
	scenes, err := ImportStoryboard(pdf, outDir, 96)
	if err != nil {
		t.Fatalf("ImportStoryboard() error = %v", err)
	}
	if len(scenes) == 0 {
		t.Fatal("no scenes produced")
	}
	for i, sc := range scenes {
		if sc.Type != SceneImage {
			t.Errorf("scene %d type = %q, want image", i, sc.Type)
		}
		if sc.Duration != DefaultSceneDuration {
			t.Errorf("scene %d duration = %v, want default", i, sc.Duration)
		}
		if _, err := os.Stat(sc.Media); err != nil {
			t.Errorf("scene %d page file missing: %v", i, err)
		}
	}
}
