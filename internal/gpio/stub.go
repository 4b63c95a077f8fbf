//go:build !linux

package gpio

import (
	"errors"
	"time"

	"github.com/sweeney/unlock-gate/internal/logic"
)

// RealButton is not available on non-Linux platforms.
type RealButton struct{}

// NewRealButton returns an error on non-Linux platforms.
func NewRealButton(chipName string, pin int, debounce time.Duration) (*RealButton, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Events returns nil; a nil channel never delivers.
func (b *RealButton) Events() <-chan logic.ButtonEvent {
	return nil
}

// Pressed is not implemented on non-Linux platforms.
func (b *RealButton) Pressed() (bool, error) {
	return false, errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (b *RealButton) Close() error {
	return nil
}
