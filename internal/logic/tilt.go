package logic

import (
	"math"
	"time"
)

// Axis selects a tilt axis.
type Axis int

const (
	AxisX Axis = iota
	AxisY
)

func (a Axis) String() string {
	if a == AxisX {
		return "x"
	}
	return "y"
}

// TiltAngle converts a linear acceleration on one axis to a tilt angle in degrees.
func TiltAngle(value, gravity float64) float64 {
	return math.Atan(value/gravity) * 180 / math.Pi
}

// AxisState is the sticky detection state of one axis.
type AxisState struct {
	Detected  bool
	LastValue float64
}

// TiltTracker latches each axis independently once its tilt angle reaches
// the minimum. Not safe for concurrent use.
type TiltTracker struct {
	minAngle float64
	gravity  float64
	x, y     AxisState
}

// NewTiltTracker creates a tracker for the given minimum angle (degrees).
func NewTiltTracker(minAngle, gravity float64) *TiltTracker {
	return &TiltTracker{minAngle: minAngle, gravity: gravity}
}

// Observe evaluates one acceleration sample and reports whether both axes
// have been detected at some point.
func (t *TiltTracker) Observe(x, y float64) bool {
	t.observeAxis(&t.x, x)
	t.observeAxis(&t.y, y)
	return t.Met()
}

func (t *TiltTracker) observeAxis(st *AxisState, value float64) {
	st.LastValue = value
	if st.Detected {
		return
	}
	if math.Abs(TiltAngle(value, t.gravity)) >= t.minAngle {
		st.Detected = true
	}
}

// Met reports whether both axes have been detected.
func (t *TiltTracker) Met() bool {
	return t.x.Detected && t.y.Detected
}

// Axis returns the state of one axis.
func (t *TiltTracker) Axis(a Axis) AxisState {
	if a == AxisX {
		return t.x
	}
	return t.y
}

// Reset clears both axes.
func (t *TiltTracker) Reset() {
	t.x = AxisState{}
	t.y = AxisState{}
}

// RateLimiter admits at most one sample per interval.
type RateLimiter struct {
	interval time.Duration
	last     time.Time
}

// NewRateLimiter creates a limiter. The first sample is always admitted.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{interval: interval}
}

// Allow reports whether a sample at now should be evaluated.
func (r *RateLimiter) Allow(now time.Time) bool {
	if !r.last.IsZero() && now.Sub(r.last) < r.interval {
		return false
	}
	r.last = now
	return true
}

// Reset forgets the last admitted sample.
func (r *RateLimiter) Reset() {
	r.last = time.Time{}
}
