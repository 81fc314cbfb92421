// Command scene-player plays a scene project (or a single media URL)
// through the bridge adapter and its GStreamer live surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/visiona/scene-bridge/bridge"
	"github.com/visiona/scene-bridge/composition"
	"github.com/visiona/scene-bridge/internal/hostinfo"
	"github.com/visiona/scene-bridge/playback"
	"github.com/visiona/scene-bridge/project"
	"github.com/visiona/scene-bridge/timeline"
)

const version = "v0.1.0"

func main() {
	var (
		projectPath   = flag.String("project", "", "Path to a project YAML file")
		mediaURL      = flag.String("url", "", "Single media URL to play instead of a project")
		accelMode     = flag.String("accel", "", "Hardware acceleration: auto, vaapi, software (default: project setting or host suggestion)")
		initTimeout   = flag.Duration("timeout", bridge.DefaultInitTimeout, "Media initialization timeout")
		statsInterval = flag.Int("stats-interval", 10, "Statistics report interval in seconds")
		debug         = flag.Bool("debug", false, "Enable debug logging")
		showVersion   = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("scene-player %s\n", version)
		os.Exit(0)
	}

	if *projectPath == "" && *mediaURL == "" {
		fmt.Fprintln(os.Stderr, "Error: -project or -url flag is required")
		fmt.Fprintln(os.Stderr, "\nUsage examples:")
		fmt.Fprintln(os.Stderr, `  scene-player -project demo-reel.yaml`)
		fmt.Fprintln(os.Stderr, `  scene-player -url "file:///videos/intro.mp4" -accel software`)
		fmt.Fprintln(os.Stderr, `  scene-player -project demo-reel.yaml -debug -stats-interval 5`)
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *projectPath != "" && *mediaURL != "" {
		fmt.Fprintln(os.Stderr, "Error: -project and -url are mutually exclusive")
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	var proj *project.Project
	if *projectPath != "" {
		p, err := project.Load(*projectPath)
		if err != nil {
			log.Fatalf("Failed to load project: %v", err)
		}
		proj = p
	}

	host := hostinfo.Snapshot()
	mode := *accelMode
	if mode == "" && proj != nil {
		mode = proj.Output.Accel
	}
	if mode == "" {
		mode = host.SuggestAcceleration()
	}
	switch mode {
	case "auto", "vaapi", "software":
	default:
		log.Fatalf("Invalid acceleration mode: %s (use auto, vaapi, or software)", mode)
	}
	accel := bridge.ParseAccel(mode)

	fmt.Println("╔════════════════════════════════════════════════════════╗")
	fmt.Println("║                  Scene Bridge Player                   ║")
	fmt.Println("╚════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("Configuration:\n")
	if proj != nil {
		fmt.Printf("  Project:         %s (%s, %d scenes)\n", *projectPath, proj.Name, len(proj.Scenes))
	} else {
		fmt.Printf("  Media URL:       %s\n", *mediaURL)
	}
	fmt.Printf("  Acceleration:    %s\n", accel)
	fmt.Printf("  Init timeout:    %s\n", *initTimeout)
	fmt.Printf("  Stats interval:  %ds\n", *statsInterval)
	fmt.Printf("  Debug logging:   %v\n", *debug)
	fmt.Println()
	fmt.Printf("Host:\n")
	fmt.Printf("  Platform:        %s/%s\n", host.OS, host.Arch)
	if host.CPUModel != "" {
		fmt.Printf("  CPU:             %s (%d cores)\n", host.CPUModel, host.Cores)
	}
	if host.TotalMB > 0 {
		fmt.Printf("  Memory:          %d MB total, %d MB available\n", host.TotalMB, host.AvailMB)
	}
	fmt.Printf("  Suggested accel: %s\n", host.SuggestAcceleration())
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var (
		cfg   bridge.Config
		sched *timeline.Scheduler
		err   error
	)
	if proj != nil {
		cfg, sched, err = assembleProject(ctx, proj, accel, *initTimeout)
		if err != nil {
			log.Fatalf("Failed to assemble project: %v", err)
		}
	} else {
		surface, serr := bridge.NewGStreamerSurface(bridge.LiveConfig{
			URI:          *mediaURL,
			Acceleration: accel,
		})
		if serr != nil {
			log.Fatalf("Failed to create live surface: %v", serr)
		}
		cfg = bridge.Config{
			MediaURL:    *mediaURL,
			Surface:     surface,
			InitTimeout: *initTimeout,
		}
	}

	adapter, err := bridge.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create bridge adapter: %v", err)
	}

	ended := make(chan struct{}, 1)
	adapter.OnStateChange(func(st bridge.State) {
		slog.Info("player: state changed", "state", st)
	})
	adapter.OnEnded(func() {
		select {
		case ended <- struct{}{}:
		default:
		}
	})
	adapter.OnError(func(err error) {
		slog.Error("player: bridge error", "error", err)
	})

	slog.Info("player: initializing media")
	if err := adapter.Initialize(ctx); err != nil {
		adapter.Destroy()
		log.Fatalf("Failed to initialize: %v", err)
	}
	info := adapter.Info()
	fmt.Printf("✓ Media initialized: %.1fs %dx%d\n", info.Duration, info.Width, info.Height)

	adapter.ShowLiveSurface()
	if err := adapter.Play(ctx); err != nil {
		adapter.Destroy()
		log.Fatalf("Failed to start playback: %v", err)
	}
	fmt.Println("✓ Playback started")
	fmt.Println()
	fmt.Println("Playing... (Press Ctrl+C to stop)")
	fmt.Println()

	statsTicker := time.NewTicker(time.Duration(*statsInterval) * time.Second)
	defer statsTicker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-statsTicker.C:
				snap := adapter.Snapshot()
				stats := adapter.Stats()
				fmt.Println("╭─────────────────────────────────────────╮")
				fmt.Printf("│ Position:         %-21s │\n", fmt.Sprintf("%.1fs / %.1fs", snap.CurrentTime, snap.Duration))
				if sched != nil {
					fmt.Printf("│ Active scene:     %-21s │\n", sceneLabel(sched, snap.CurrentTime))
				}
				fmt.Printf("│ State:            %-21s │\n", adapter.State())
				fmt.Printf("│ Transitions:      %-21d │\n", stats.Transitions)
				fmt.Printf("│ Queued ops:       %-21d │\n", stats.QueuedOps)
				fmt.Printf("│ Rejected ops:     %-21d │\n", stats.RejectedOps)
				if gs, ok := cfg.Surface.(*bridge.GStreamerSurface); ok {
					ps := gs.PipelineStats()
					fmt.Printf("│ Frames decoded:   %-21d │\n", ps.Frames)
					fmt.Printf("│ Bus errors:       %-21d │\n", ps.BusErrors)
				}
				fmt.Println("╰─────────────────────────────────────────╯")
			}
		}
	}()

	select {
	case sig := <-sigChan:
		fmt.Printf("\n⚠ Received signal: %v\n", sig)
	case <-ended:
		fmt.Println("\n✓ Composition ended")
	}

	fmt.Println("\nShutting down...")
	finalStats := adapter.Stats()
	finalSnap := adapter.Snapshot()
	var pipeline bridge.LiveStats
	hasPipeline := false
	if gs, ok := cfg.Surface.(*bridge.GStreamerSurface); ok {
		pipeline = gs.PipelineStats()
		hasPipeline = true
	}

	cancel()
	if err := adapter.Destroy(); err != nil {
		slog.Error("player: destroy failed", "error", err)
	}

	fmt.Println("\n═══════════════════════════════════════════")
	fmt.Println("  Final Statistics")
	fmt.Println("═══════════════════════════════════════════")
	fmt.Printf("  Final position:        %.1fs / %.1fs\n", finalSnap.CurrentTime, finalSnap.Duration)
	fmt.Printf("  State transitions:     %d\n", finalStats.Transitions)
	fmt.Printf("  Operations queued:     %d\n", finalStats.QueuedOps)
	fmt.Printf("  Operations rejected:   %d\n", finalStats.RejectedOps)
	fmt.Printf("  Coordination rejects:  %d\n", finalStats.CoordinationRejects)
	fmt.Printf("  Error recoveries:      %d\n", finalStats.Recoveries)
	if hasPipeline {
		fmt.Printf("  Frames decoded:        %d\n", pipeline.Frames)
		fmt.Printf("  Pipeline bus errors:   %d\n", pipeline.BusErrors)
	}
	fmt.Println("═══════════════════════════════════════════")
	fmt.Println("\n✓ Player stopped cleanly")
}

// assembleProject probes missing scene durations, lays the scenes onto a
// composition graph, and builds the adapter configuration around the first
// scene's media.
func assembleProject(ctx context.Context, p *project.Project, accel bridge.HardwareAccel, timeout time.Duration) (bridge.Config, *timeline.Scheduler, error) {
	prober := func(ctx context.Context, url string) (float64, error) {
		info, err := bridge.ProbeMedia(ctx, url, timeout)
		if err != nil {
			return 0, err
		}
		return info.Duration, nil
	}
	slog.Info("player: probing scene durations", "scenes", len(p.Scenes))
	if err := project.Probe(ctx, p.Scenes, prober, project.DefaultProbeLimit); err != nil {
		return bridge.Config{}, nil, err
	}

	scenes, err := project.BuildTimeline(p)
	if err != nil {
		return bridge.Config{}, nil, err
	}
	sched := timeline.New()
	sched.SetScenes(scenes)

	graph := composition.New()
	if err := sched.Apply(graph); err != nil {
		return bridge.Config{}, nil, err
	}
	slog.Info("player: timeline applied", "scenes", len(scenes), "total_duration", sched.TotalDuration())

	primary := p.Scenes[0]
	var surface bridge.Surface
	if primary.Type == project.SceneImage {
		surface, err = bridge.NewStillSurface(primary.Media, primary.EffectiveDuration())
	} else {
		surface, err = bridge.NewGStreamerSurface(bridge.LiveConfig{
			URI:          primary.Media,
			Width:        p.Viewport.Width,
			Height:       p.Viewport.Height,
			Acceleration: accel,
		})
	}
	if err != nil {
		return bridge.Config{}, nil, err
	}

	var poster *bridge.PosterSurface
	if p.Output.PosterDir != "" || p.Viewport.Width > 0 {
		poster, err = bridge.NewPosterSurface(bridge.PosterConfig{
			Width:    p.Viewport.Width,
			Height:   p.Viewport.Height,
			CacheDir: p.Output.PosterDir,
		})
		if err != nil {
			return bridge.Config{}, nil, err
		}
	}

	cfg := bridge.Config{
		MediaURL:    primary.Media,
		Surface:     surface,
		Poster:      poster,
		Graph:       graph,
		InitTimeout: timeout,
		Playback: playback.Config{
			TickInterval: time.Duration(p.Playback.TickMS) * time.Millisecond,
			AutoRewind:   p.Playback.AutoRewind,
		},
	}
	return cfg, sched, nil
}

// sceneLabel renders "index/count (id prefix)" for the scene under the
// playhead.
func sceneLabel(sched *timeline.Scheduler, t float64) string {
	idx := sched.ResolveActiveScene(t)
	if idx < 0 {
		return "none"
	}
	scenes := sched.Scenes()
	if idx >= len(scenes) {
		return "none"
	}
	id := scenes[idx].ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%d/%d (%s)", idx+1, len(scenes), id)
}
