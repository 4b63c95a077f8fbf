//go:build linux

package gpio

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/unlock-gate/internal/logic"
)

// RealButton reads the button from actual hardware using the Linux GPIO
// character device. The line is active-low with the internal pull-up, so a
// button wired to ground reads active while held.
type RealButton struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
	d    *dispatcher
}

// NewRealButton requests pin on chipName with kernel debounce and edge
// detection on both edges.
func NewRealButton(chipName string, pin int, debounce time.Duration) (*RealButton, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	b := &RealButton{chip: chip, d: newDispatcher()}
	line, err := chip.RequestLine(pin,
		gpiocdev.AsInput,
		gpiocdev.AsActiveLow,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithDebounce(debounce),
		gpiocdev.WithEventHandler(b.handle),
	)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request button pin %d: %w", pin, err)
	}
	b.line = line
	return b, nil
}

func (b *RealButton) handle(evt gpiocdev.LineEvent) {
	var action logic.ButtonAction
	switch evt.Type {
	case gpiocdev.LineEventRisingEdge:
		action = logic.ButtonDown
	case gpiocdev.LineEventFallingEdge:
		action = logic.ButtonUp
	default:
		return
	}
	b.d.dispatch(logic.ButtonEvent{Action: action, Time: time.Now()})
}

// Events returns the edge channel.
func (b *RealButton) Events() <-chan logic.ButtonEvent {
	return b.d.events
}

// Pressed returns the logical level: true while the button is held.
func (b *RealButton) Pressed() (bool, error) {
	v, err := b.line.Value()
	if err != nil {
		return false, fmt.Errorf("read button pin: %w", err)
	}
	return v == 1, nil
}

// Close releases GPIO resources.
// The line is returned to input with pull-down (Pi boot default) before
// closing so external hardware sees a clean state across reboot.
func (b *RealButton) Close() error {
	var errs []error

	if b.line != nil {
		if err := b.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure button pin: %w", err))
		}
		if err := b.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close button pin: %w", err))
		}
	}
	b.d.close()
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
