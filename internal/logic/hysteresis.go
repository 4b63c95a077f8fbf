package logic

import "time"

// HysteresisState tracks streaks of per-frame verdicts.
type HysteresisState struct {
	PositiveStreak int
	NegativeStreak int
	LastConfirmed  time.Time // zero = never confirmed
}

// Hysteresis turns a noisy per-frame verdict into confirmed detections.
// A single miss keeps the positive streak; maxNegative consecutive misses
// clear it. Not safe for concurrent use: frames must be fed in order from
// one goroutine.
type Hysteresis struct {
	required    int
	maxNegative int
	cooldown    time.Duration
	state       HysteresisState
}

// NewHysteresis creates a filter that confirms after required consecutive
// positives, resets after maxNegative consecutive negatives, and emits at
// most once per cooldown.
func NewHysteresis(required, maxNegative int, cooldown time.Duration) *Hysteresis {
	return &Hysteresis{
		required:    required,
		maxNegative: maxNegative,
		cooldown:    cooldown,
	}
}

// NewHysteresisFromThresholds builds the filter from th.
func NewHysteresisFromThresholds(th Thresholds) *Hysteresis {
	return NewHysteresis(th.RequiredPositive, th.MaxNegative, th.Cooldown)
}

// Process feeds one verdict observed at now and reports whether a confirmed
// detection should be emitted. The positive streak keeps growing after an
// emission, so a continuously black feed re-emits once per cooldown.
func (h *Hysteresis) Process(isBlack bool, now time.Time) bool {
	if !isBlack {
		h.state.NegativeStreak++
		if h.state.NegativeStreak >= h.maxNegative {
			h.state.PositiveStreak = 0
		}
		return false
	}

	h.state.PositiveStreak++
	h.state.NegativeStreak = 0
	if h.state.PositiveStreak < h.required {
		return false
	}
	if !h.state.LastConfirmed.IsZero() && now.Sub(h.state.LastConfirmed) < h.cooldown {
		return false
	}
	h.state.LastConfirmed = now
	return true
}

// State returns a copy of the current streaks.
func (h *Hysteresis) State() HysteresisState {
	return h.state
}

// Reset clears streaks and the cooldown anchor.
func (h *Hysteresis) Reset() {
	h.state = HysteresisState{}
}
