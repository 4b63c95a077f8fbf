// Package status provides a thread-safe status tracker for the unlock-gate daemon.
// It is read by the HTTP handlers and by the heartbeat publisher.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/unlock-gate/internal/gate"
	"github.com/sweeney/unlock-gate/internal/logic"
	"github.com/sweeney/unlock-gate/internal/sensor"
)

// NetworkInfo contains network state as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	HeartbeatMs int64
	Broker      string
	HTTPPort    string
	WSBroker    string // Websocket broker URL for browser MQTT (empty = disabled)
	ButtonPin   int    // -1 = no GPIO button
	WifiSource  string
	WifiTarget  string
	WifiMin     int
	SpeechToken string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Gate          gate.State
	Details       [logic.ConditionCount]string
	UnlockedAt    time.Time // zero until all conditions met
	Color         sensor.ColorStats
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Unlocked reports whether the gate opened in this session.
func (s Snapshot) Unlocked() bool {
	return !s.UnlockedAt.IsZero()
}

// Tracker holds mutable daemon state behind an RWMutex.
// Gate and color state are pulled from their owners at snapshot time.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot

	gateFn  func() gate.State
	colorFn func() sensor.ColorStats
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// SetSources registers the live gate and color state readers.
// Either may be nil.
func (t *Tracker) SetSources(gateFn func() gate.State, colorFn func() sensor.ColorStats) {
	t.mu.Lock()
	t.gateFn = gateFn
	t.colorFn = colorFn
	t.mu.Unlock()
}

// RecordEvent stores the diagnostic detail of a condition transition.
func (t *Tracker) RecordEvent(ev logic.Event) {
	idx := ev.Condition.Index()
	if idx < 0 {
		return
	}
	t.mu.Lock()
	t.snap.Details[idx] = ev.Detail
	if ev.AllMet {
		t.snap.UnlockedAt = ev.Timestamp
	}
	t.mu.Unlock()
}

// ResetSession forgets per-session details.
func (t *Tracker) ResetSession() {
	t.mu.Lock()
	t.snap.Details = [logic.ConditionCount]string{}
	t.snap.UnlockedAt = time.Time{}
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	gateFn, colorFn := t.gateFn, t.colorFn
	t.mu.RUnlock()

	if gateFn != nil {
		s.Gate = gateFn()
	}
	if colorFn != nil {
		s.Color = colorFn()
	}
	s.Now = time.Now()
	return s
}
