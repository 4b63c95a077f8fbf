package logic

import "time"

// ButtonAction is the direction of a button edge.
type ButtonAction string

const (
	ButtonDown ButtonAction = "DOWN"
	ButtonUp   ButtonAction = "UP"
)

// ButtonEvent is one logical edge of the gate button.
type ButtonEvent struct {
	Action ButtonAction
	Time   time.Time
}

// ButtonPressed reports whether e satisfies the button condition.
// Only DOWN counts; UP is ignored.
func ButtonPressed(e ButtonEvent) bool {
	return e.Action == ButtonDown
}

// PressFilter turns a raw edge stream into one DOWN per physical press by
// dropping DOWN edges that arrive without an intervening UP (key repeat,
// contact bounce past the kernel debounce). Not safe for concurrent use.
type PressFilter struct {
	held bool
}

// Accept reports whether e should be forwarded.
func (f *PressFilter) Accept(e ButtonEvent) bool {
	switch e.Action {
	case ButtonDown:
		if f.held {
			return false
		}
		f.held = true
		return true
	case ButtonUp:
		if !f.held {
			return false
		}
		f.held = false
		return true
	}
	return false
}
