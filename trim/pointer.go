package trim

import "fmt"

// PointerAction identifies what a pointer event describes.
type PointerAction int

const (
	// ActionPress is a button-down at a position.
	ActionPress PointerAction = iota
	// ActionMove is a position change, with or without a button held.
	ActionMove
	// ActionRelease is a button-up at a position.
	ActionRelease
)

// String returns a human-readable action name.
func (a PointerAction) String() string {
	switch a {
	case ActionPress:
		return "press"
	case ActionMove:
		return "move"
	case ActionRelease:
		return "release"
	default:
		return fmt.Sprintf("unknown(%d)", int(a))
	}
}

// PointerButton identifies which button a press carries.
type PointerButton int

const (
	// ButtonNone means no button, used for hover moves.
	ButtonNone PointerButton = iota
	// ButtonPrimary is the main (usually left) button. Only primary presses
	// start gesture sessions.
	ButtonPrimary
	// ButtonSecondary is the context (usually right) button.
	ButtonSecondary
)

// String returns a human-readable button name.
func (b PointerButton) String() string {
	switch b {
	case ButtonNone:
		return "none"
	case ButtonPrimary:
		return "primary"
	case ButtonSecondary:
		return "secondary"
	default:
		return fmt.Sprintf("unknown(%d)", int(b))
	}
}

// PointerEvent is one pointer sample in screen-space pixels.
type PointerEvent struct {
	// Action is the event type.
	Action PointerAction
	// Button matters for ActionPress only.
	Button PointerButton
	// X is the horizontal position in pixels (same space as Config.TrackX).
	X float64
	// Y is the vertical position in pixels. The timeline is horizontal, so Y
	// is carried for callers but not hit-tested.
	Y float64
}
