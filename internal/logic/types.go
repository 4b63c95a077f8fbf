// Package logic contains the pure decision rules of the unlock gate.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// ConditionID identifies one of the six gate conditions.
type ConditionID string

const (
	ConditionSpeech  ConditionID = "SPEECH"
	ConditionTilt    ConditionID = "TILT"
	ConditionCompass ConditionID = "COMPASS"
	ConditionButton  ConditionID = "BUTTON"
	ConditionWifi    ConditionID = "WIFI"
	ConditionColor   ConditionID = "COLOR"
)

// Conditions lists every condition in display order. Order carries no meaning.
var Conditions = [...]ConditionID{
	ConditionSpeech,
	ConditionTilt,
	ConditionCompass,
	ConditionButton,
	ConditionWifi,
	ConditionColor,
}

// ConditionCount is the fixed number of gate conditions.
const ConditionCount = len(Conditions)

// Index returns the display position of c, or -1 for an unknown id.
func (c ConditionID) Index() int {
	for i, id := range Conditions {
		if id == c {
			return i
		}
	}
	return -1
}

// Label returns a short human-readable name.
func (c ConditionID) Label() string {
	switch c {
	case ConditionSpeech:
		return "Say \"open\" three times"
	case ConditionTilt:
		return "Tilt on both axes"
	case ConditionCompass:
		return "Point north"
	case ConditionButton:
		return "Press the button"
	case ConditionWifi:
		return "WiFi networks"
	case ConditionColor:
		return "Show something black"
	}
	return string(c)
}

// Event is emitted once per real latch transition.
type Event struct {
	Timestamp time.Time
	Session   string
	Condition ConditionID
	Detail    string // diagnostic payload, e.g. "azimuth=5.0"
	MetCount  int    // latches set after this transition
	AllMet    bool
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
}

// Heartbeat decides when a periodic status event is due.
type Heartbeat struct {
	startTime     time.Time
	lastHeartbeat time.Time
}

// NewHeartbeat creates a heartbeat clock anchored at startTime.
func NewHeartbeat(startTime time.Time) *Heartbeat {
	return &Heartbeat{startTime: startTime, lastHeartbeat: startTime}
}

// Check returns heartbeat data if the interval has elapsed since the last
// heartbeat (or startup). Returns nil if the interval has not elapsed, or if
// interval is <= 0 (disabled).
func (h *Heartbeat) Check(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}
	if now.Sub(h.lastHeartbeat) < interval {
		return nil
	}
	h.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(h.startTime),
	}
}
