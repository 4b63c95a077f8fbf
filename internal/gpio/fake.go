package gpio

import (
	"time"

	"github.com/sweeney/unlock-gate/internal/logic"
)

// FakeButton is a test double driven by Press and Release.
type FakeButton struct {
	d *dispatcher

	// Level is returned by Pressed.
	Level bool

	// ReadError, if set, will be returned by Pressed.
	ReadError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeButton creates a released FakeButton.
func NewFakeButton() *FakeButton {
	return &FakeButton{d: newDispatcher()}
}

// Press emits a DOWN edge at t. It reports whether the edge was delivered.
func (f *FakeButton) Press(t time.Time) bool {
	f.Level = true
	return f.d.dispatch(logic.ButtonEvent{Action: logic.ButtonDown, Time: t})
}

// Release emits an UP edge at t.
func (f *FakeButton) Release(t time.Time) bool {
	f.Level = false
	return f.d.dispatch(logic.ButtonEvent{Action: logic.ButtonUp, Time: t})
}

// Events returns the edge channel.
func (f *FakeButton) Events() <-chan logic.ButtonEvent {
	return f.d.events
}

// Pressed returns Level.
func (f *FakeButton) Pressed() (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}
	return f.Level, nil
}

// Close closes the event channel.
func (f *FakeButton) Close() error {
	f.Closed = true
	f.d.close()
	return nil
}
