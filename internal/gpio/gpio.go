// Package gpio provides the gate button with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"sync"
	"time"

	"github.com/sweeney/unlock-gate/internal/logic"
)

// Button delivers one DOWN per physical press and one UP per release.
type Button interface {
	// Events returns the edge channel. It is closed by Close.
	Events() <-chan logic.ButtonEvent

	// Pressed reads the current logical level.
	Pressed() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Defaults (BCM numbering)
const (
	DefaultChip     = "gpiochip0"
	PinButton       = 17
	DefaultDebounce = 20 * time.Millisecond
	eventBuffer     = 8
)

// dispatcher filters raw edges and hands them to the consumer without
// blocking the edge source.
type dispatcher struct {
	mu      sync.Mutex
	filter  logic.PressFilter
	events  chan logic.ButtonEvent
	closed  bool
	dropped int
}

func newDispatcher() *dispatcher {
	return &dispatcher{events: make(chan logic.ButtonEvent, eventBuffer)}
}

// dispatch reports whether e was delivered. Repeats are filtered; when the
// consumer lags the event is dropped rather than stalling the source.
func (d *dispatcher) dispatch(e logic.ButtonEvent) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || !d.filter.Accept(e) {
		return false
	}
	select {
	case d.events <- e:
		return true
	default:
		d.dropped++
		return false
	}
}

func (d *dispatcher) close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	close(d.events)
}
