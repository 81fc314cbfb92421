// Command scene-scrub is a terminal trim editor. It renders a trim track,
// translates mouse gestures into timeline edits, and previews the trimmed
// window with a mock playhead.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/visiona/scene-bridge/trim"
)

const version = "v0.1.0"

const (
	trackMarginX = 2
	playTick     = 50 * time.Millisecond
)

func main() {
	var (
		mediaLabel  = flag.String("media", "clip.mp4", "Media label shown in the header")
		duration    = flag.Float64("duration", 30, "Media duration in seconds")
		trimStart   = flag.Float64("start", 0, "Initial trim start in seconds")
		trimEnd     = flag.Float64("end", 0, "Initial trim end in seconds (0 = full duration)")
		minGap      = flag.Float64("min-gap", trim.DefaultMinGap, "Minimum trim window in seconds")
		logPath     = flag.String("log", "", "Write debug logs to this file (default: discarded)")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("scene-scrub %s\n", version)
		os.Exit(0)
	}

	// The terminal belongs to the UI, so logs go to a file or nowhere.
	var logSink io.Writer = io.Discard
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer f.Close()
		logSink = f
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(logSink, &slog.HandlerOptions{Level: slog.LevelDebug})))

	ui := &scrubUI{media: *mediaLabel, duration: *duration}

	// Geometry is a placeholder until the screen reports its size.
	tl, err := trim.New(trim.Config{
		Duration:   *duration,
		Start:      *trimStart,
		End:        *trimEnd,
		MinGap:     *minGap,
		TrackX:     float64(trackMarginX),
		TrackWidth: 60,
		Indicator:  true,
		Callbacks: trim.Callbacks{
			OnTrimChange: func(start, end float64) {
				ui.lastEvent = fmt.Sprintf("draft [%.2fs, %.2fs]", start, end)
			},
			OnTrimChangeEnd: func(start, end float64) {
				ui.lastEvent = fmt.Sprintf("committed [%.2fs, %.2fs]", start, end)
				slog.Debug("scrub: trim committed", "start", start, "end", end)
			},
			OnSeek: func(t float64) {
				ui.lastEvent = fmt.Sprintf("seek to %.2fs", t)
			},
		},
	})
	if err != nil {
		log.Fatalf("Failed to create trim timeline: %v", err)
	}
	ui.tl = tl

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatalf("Failed to create screen: %v", err)
	}
	if err := screen.Init(); err != nil {
		log.Fatalf("Failed to initialize screen: %v", err)
	}
	defer screen.Fini()
	screen.EnableMouse()
	screen.SetStyle(tcell.StyleDefault)

	ui.screen = screen
	ui.layout()

	// Wake the event loop periodically so the playhead can advance.
	go func() {
		ticker := time.NewTicker(playTick)
		defer ticker.Stop()
		for range ticker.C {
			_ = screen.PostEvent(tcell.NewEventInterrupt(nil))
		}
	}()

	held := false
	for {
		ui.draw()

		switch ev := screen.PollEvent().(type) {
		case *tcell.EventResize:
			ui.layout()
			screen.Sync()

		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC:
				return
			case ev.Key() == tcell.KeyRune && ev.Rune() == 'q':
				return
			case ev.Key() == tcell.KeyRune && ev.Rune() == ' ':
				ui.playing = !ui.playing
			case ev.Key() == tcell.KeyRune && ev.Rune() == 'r':
				tl.SetPosition(tl.State().Start)
			}

		case *tcell.EventMouse:
			x, y := ev.Position()
			pressed := ev.Buttons()&tcell.Button1 != 0
			switch {
			case pressed && !held:
				held = true
				tl.Handle(trim.PointerEvent{
					Action: trim.ActionPress,
					Button: trim.ButtonPrimary,
					X:      float64(x),
					Y:      float64(y),
				})
			case !pressed && held:
				held = false
				tl.Handle(trim.PointerEvent{
					Action: trim.ActionRelease,
					Button: trim.ButtonPrimary,
					X:      float64(x),
					Y:      float64(y),
				})
			case pressed:
				tl.Handle(trim.PointerEvent{
					Action: trim.ActionMove,
					Button: trim.ButtonPrimary,
					X:      float64(x),
					Y:      float64(y),
				})
			}

		case *tcell.EventInterrupt:
			ui.advance(playTick)
		}
	}
}

type scrubUI struct {
	screen   tcell.Screen
	tl       *trim.Timeline
	media    string
	duration float64

	trackX int
	trackY int
	trackW int

	playing   bool
	lastEvent string
}

// layout recomputes the track placement from the screen size and tells the
// timeline about it.
func (u *scrubUI) layout() {
	w, h := u.screen.Size()
	u.trackX = trackMarginX
	u.trackW = w - 2*trackMarginX
	if u.trackW < 10 {
		u.trackW = 10
	}
	u.trackY = 6
	if h < 12 {
		u.trackY = h / 2
	}
	if err := u.tl.SetGeometry(float64(u.trackX), float64(u.trackW)); err != nil {
		slog.Debug("scrub: geometry rejected", "error", err)
	}
}

// advance moves the mock playhead while playing, looping inside the
// committed trim window.
func (u *scrubUI) advance(dt time.Duration) {
	if !u.playing {
		return
	}
	st := u.tl.State()
	pos := st.Position + dt.Seconds()
	if pos >= st.End || pos < st.Start {
		pos = st.Start
	}
	u.tl.SetPosition(pos)
}

func (u *scrubUI) draw() {
	u.screen.Clear()
	st := u.tl.State()
	stats := u.tl.Stats()

	u.putText(1, 1, fmt.Sprintf("scene-scrub %s   %s (%.1fs)", version, u.media, u.duration),
		tcell.StyleDefault.Bold(true))

	mode := "paused"
	if u.playing {
		mode = "playing"
	}
	u.putText(trackMarginX, 3,
		fmt.Sprintf("Trim %6.2fs to %6.2fs   position %6.2fs   %s", st.Start, st.End, st.Position, mode),
		tcell.StyleDefault)
	if st.Dragging {
		u.putText(trackMarginX, 4,
			fmt.Sprintf("Draft %5.2fs to %6.2fs", st.DraftStart, st.DraftEnd),
			tcell.StyleDefault.Foreground(tcell.ColorYellow))
	} else if u.lastEvent != "" {
		u.putText(trackMarginX, 4, u.lastEvent, tcell.StyleDefault.Foreground(tcell.ColorTeal))
	}

	u.drawTrack(st)

	u.putText(trackMarginX, u.trackY+2,
		"drag handles: trim   click track: seek   space: play/pause   r: rewind   q: quit",
		tcell.StyleDefault.Dim(true))
	u.putText(trackMarginX, u.trackY+4,
		fmt.Sprintf("drags %d   commits %d   seeks %d   ignored %d   clicks %d",
			stats.HandleDrags, stats.Commits, stats.Seeks, stats.IgnoredMoves, stats.TrackClicks),
		tcell.StyleDefault.Dim(true))

	u.screen.Show()
}

func (u *scrubUI) drawTrack(st trim.TrimState) {
	window := tcell.StyleDefault.Foreground(tcell.ColorGreen)
	handle := tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	cursor := tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)

	startPx := u.timeToPx(st.DraftStart)
	endPx := u.timeToPx(st.DraftEnd)
	posPx := u.timeToPx(st.Position)

	for i := 0; i < u.trackW; i++ {
		x := u.trackX + i
		ch, style := '─', tcell.StyleDefault
		if x > startPx && x < endPx {
			ch, style = '═', window
		}
		u.screen.SetContent(x, u.trackY, ch, nil, style)
	}
	u.screen.SetContent(startPx, u.trackY, '█', nil, handle)
	u.screen.SetContent(endPx, u.trackY, '█', nil, handle)
	if posPx != startPx && posPx != endPx {
		u.screen.SetContent(posPx, u.trackY, '┃', nil, cursor)
	}
}

// timeToPx maps a time onto a track cell, clamped to the track.
func (u *scrubUI) timeToPx(t float64) int {
	if u.duration <= 0 {
		return u.trackX
	}
	px := u.trackX + int(t/u.duration*float64(u.trackW-1)+0.5)
	if px < u.trackX {
		px = u.trackX
	}
	if px > u.trackX+u.trackW-1 {
		px = u.trackX + u.trackW - 1
	}
	return px
}

func (u *scrubUI) putText(x, y int, s string, style tcell.Style) {
	col := x
	for _, r := range s {
		u.screen.SetContent(col, y, r, nil, style)
		col++
	}
}
