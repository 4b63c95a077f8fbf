package logic

import (
	"testing"
	"time"
)

func newTestHysteresis() *Hysteresis {
	return NewHysteresis(RequiredPositiveDetections, MaxNegativeCount, DetectionCooldown)
}

// feed pushes verdicts one second apart starting at start and returns the
// indexes that emitted.
func feed(h *Hysteresis, start time.Time, verdicts ...bool) []int {
	var emitted []int
	for i, v := range verdicts {
		if h.Process(v, start.Add(time.Duration(i)*time.Second)) {
			emitted = append(emitted, i)
		}
	}
	return emitted
}

func TestHysteresisConfirmsAfterFourPositives(t *testing.T) {
	h := newTestHysteresis()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if h.Process(true, now.Add(time.Duration(i)*100*time.Millisecond)) {
			t.Fatalf("frame %d: should not confirm before 4 positives", i)
		}
	}
	if !h.Process(true, now.Add(300*time.Millisecond)) {
		t.Fatal("4th positive should confirm")
	}

	st := h.State()
	if st.PositiveStreak != 4 {
		t.Errorf("expected streak 4 after emit, got %d", st.PositiveStreak)
	}
	if !st.LastConfirmed.Equal(now.Add(300 * time.Millisecond)) {
		t.Errorf("unexpected LastConfirmed: %v", st.LastConfirmed)
	}
}

func TestHysteresisCooldownSuppressesReEmit(t *testing.T) {
	h := newTestHysteresis()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	// 4 positives at 100ms spacing: emit at 300ms
	for i := 0; i < 4; i++ {
		h.Process(true, now.Add(time.Duration(i)*100*time.Millisecond))
	}

	// 5th positive within the cooldown
	if h.Process(true, now.Add(400*time.Millisecond)) {
		t.Error("5th positive inside cooldown should not emit")
	}
	// Just before cooldown ends
	if h.Process(true, now.Add(5299*time.Millisecond)) {
		t.Error("should not emit 1ms before cooldown ends")
	}
	// Exactly at cooldown
	if !h.Process(true, now.Add(5300*time.Millisecond)) {
		t.Error("continuous positive should re-emit once cooldown elapsed")
	}
}

func TestHysteresisExactlyOneEmitAtOneFPS(t *testing.T) {
	h := newTestHysteresis()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	// 8 positives at 1s: emit at index 3, cooldown blocks 4..7 (1s..4s after)
	got := feed(h, now, true, true, true, true, true, true, true, true)
	if len(got) != 1 || got[0] != 3 {
		t.Fatalf("expected single emit at frame 3, got %v", got)
	}

	// 9th frame lands 5s after the emission
	if !h.Process(true, now.Add(8*time.Second)) {
		t.Error("expected re-emit 5s after first confirmation")
	}
}

func TestHysteresisSingleMissKeepsStreak(t *testing.T) {
	h := newTestHysteresis()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	got := feed(h, now, true, true, true, false, true)
	if len(got) != 1 || got[0] != 4 {
		t.Fatalf("one miss should not erase confidence, emits=%v", got)
	}
}

func TestHysteresisTwoMissesResetStreak(t *testing.T) {
	h := newTestHysteresis()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	got := feed(h, now, true, true, true, false, false)
	if len(got) != 0 {
		t.Fatalf("unexpected emit: %v", got)
	}
	if st := h.State(); st.PositiveStreak != 0 {
		t.Fatalf("expected positive streak reset, got %d", st.PositiveStreak)
	}
	if st := h.State(); st.NegativeStreak != 2 {
		t.Fatalf("expected negative streak 2, got %d", st.NegativeStreak)
	}

	// Three more positives are not enough
	later := now.Add(10 * time.Second)
	if got := feed(h, later, true, true, true); len(got) != 0 {
		t.Fatalf("3 positives after reset should not emit, got %v", got)
	}
	if !h.Process(true, later.Add(3*time.Second)) {
		t.Error("4th consecutive positive after reset should emit")
	}
}

func TestHysteresisNegativeStreakOnlyResetsOnPositive(t *testing.T) {
	h := newTestHysteresis()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	feed(h, now, false, false, false)
	if st := h.State(); st.NegativeStreak != 3 {
		t.Errorf("expected negative streak 3, got %d", st.NegativeStreak)
	}
	h.Process(true, now.Add(3*time.Second))
	if st := h.State(); st.NegativeStreak != 0 || st.PositiveStreak != 1 {
		t.Errorf("unexpected state after positive: %+v", st)
	}
}

func TestHysteresisReset(t *testing.T) {
	h := newTestHysteresis()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	feed(h, now, true, true, true, true)

	h.Reset()

	st := h.State()
	if st.PositiveStreak != 0 || st.NegativeStreak != 0 || !st.LastConfirmed.IsZero() {
		t.Fatalf("expected zero state after reset, got %+v", st)
	}

	// Cooldown anchor is gone: 4 positives right away emit again
	if got := feed(h, now.Add(5*time.Second), true, true, true, true); len(got) != 1 {
		t.Fatalf("expected emit after reset, got %v", got)
	}
}
