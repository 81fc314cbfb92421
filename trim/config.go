package trim

const (
	// DefaultMinGap is the minimum committed distance between the trim
	// bounds, in seconds.
	DefaultMinGap = 0.5

	// DefaultHandleHitSlopPx is how close (in pixels) a press must land to a
	// handle's center to grab it.
	DefaultHandleHitSlopPx = 6.0

	// DefaultClickTolerancePx is the maximum pointer travel for a
	// press+release on the bare track to still count as a click.
	DefaultClickTolerancePx = 3.0
)

// Callbacks reports edits to the owner. Any field may be nil.
type Callbacks struct {
	// OnTrimChange receives the draft bounds continuously during a handle
	// drag. Keep it cheap; expensive work belongs in OnTrimChangeEnd.
	OnTrimChange func(start, end float64)

	// OnTrimChangeEnd fires once per handle drag, on release, with the
	// committed bounds.
	OnTrimChangeEnd func(start, end float64)

	// OnSeek fires for every indicator-drag move and for track clicks.
	OnSeek func(t float64)
}

// Config configures a trim timeline. Start from DefaultConfig and fill in
// the required fields; zero MinGap and hit tolerances are replaced with the
// package defaults at construction.
type Config struct {
	// Duration is the media duration in seconds. Required, > 0.
	Duration float64

	// Start and End are the initial committed bounds. A zero End means
	// "Duration".
	Start float64
	End   float64

	// MinGap is the minimum committed End-Start distance in seconds.
	MinGap float64

	// TrackX is the track's left edge in pixels.
	TrackX float64
	// TrackWidth is the track's width in pixels. Required, > 0.
	TrackWidth float64

	// HandleHitSlopPx is the handle grab radius in pixels.
	HandleHitSlopPx float64
	// ClickTolerancePx is the click-vs-drag travel threshold in pixels.
	ClickTolerancePx float64

	// Indicator enables the draggable position indicator.
	Indicator bool

	// Callbacks receive the edits.
	Callbacks Callbacks
}

// DefaultConfig returns a Config with every tunable at its default. Duration
// and TrackWidth must still be provided by the caller.
func DefaultConfig() Config {
	return Config{
		MinGap:           DefaultMinGap,
		HandleHitSlopPx:  DefaultHandleHitSlopPx,
		ClickTolerancePx: DefaultClickTolerancePx,
		Indicator:        true,
	}
}
