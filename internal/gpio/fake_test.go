package gpio

import (
	"errors"
	"testing"
	"time"

	"github.com/sweeney/unlock-gate/internal/logic"
)

func TestFakeButtonPressRelease(t *testing.T) {
	b := NewFakeButton()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if !b.Press(now) {
		t.Fatal("press should be delivered")
	}
	if pressed, _ := b.Pressed(); !pressed {
		t.Error("expected Pressed=true while held")
	}
	if !b.Release(now.Add(100 * time.Millisecond)) {
		t.Fatal("release should be delivered")
	}

	e := <-b.Events()
	if e.Action != logic.ButtonDown || !e.Time.Equal(now) {
		t.Errorf("first event: got %+v", e)
	}
	e = <-b.Events()
	if e.Action != logic.ButtonUp {
		t.Errorf("second event: got %+v", e)
	}
}

func TestFakeButtonKeyRepeatFiltered(t *testing.T) {
	b := NewFakeButton()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	b.Press(now)
	for i := 1; i <= 3; i++ {
		if b.Press(now.Add(time.Duration(i) * 50 * time.Millisecond)) {
			t.Errorf("repeat %d should be filtered", i)
		}
	}
	if len(b.Events()) != 1 {
		t.Errorf("expected 1 queued event, got %d", len(b.Events()))
	}
}

func TestFakeButtonDropsWhenConsumerLags(t *testing.T) {
	b := NewFakeButton()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	delivered := 0
	for i := 0; i < eventBuffer; i++ {
		if b.Press(now) {
			delivered++
		}
		if b.Release(now) {
			delivered++
		}
	}
	if delivered != eventBuffer {
		t.Errorf("expected %d delivered, got %d", eventBuffer, delivered)
	}
	if b.d.dropped != eventBuffer {
		t.Errorf("expected %d dropped, got %d", eventBuffer, b.d.dropped)
	}
}

func TestFakeButtonReadError(t *testing.T) {
	b := NewFakeButton()
	b.ReadError = errors.New("simulated error")

	_, err := b.Pressed()
	if err == nil || err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFakeButtonClose(t *testing.T) {
	b := NewFakeButton()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if err := b.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.Closed {
		t.Error("should be closed after Close()")
	}
	if _, ok := <-b.Events(); ok {
		t.Error("events channel should be closed")
	}
	if b.Press(now) {
		t.Error("press after close should not be delivered")
	}
	// Second close is safe
	if err := b.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}
