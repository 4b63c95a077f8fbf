package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/unlock-gate/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string          `json:"event,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	Session       string          `json:"session"`
	Unlocked      bool            `json:"unlocked"`
	UnlockedAt    string          `json:"unlocked_at,omitempty"`
	Met           int             `json:"met"`
	Total         int             `json:"total"`
	Conditions    []ConditionJSON `json:"conditions"`
	Sensors       SensorsJSON     `json:"sensors"`
	Color         ColorJSON       `json:"color"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	StartTime     string          `json:"start_time"`
	Timestamp     string          `json:"timestamp"`
	MQTT          MQTTStatus      `json:"mqtt"`
	Network       *NetworkJSON    `json:"network,omitempty"`
	Config        ConfigJSON      `json:"config"`
}

// ConditionJSON is one latch.
type ConditionJSON struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Met    bool   `json:"met"`
	MetAt  string `json:"met_at,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// AxisJSON is the sticky state of one tilt axis.
type AxisJSON struct {
	Detected  bool    `json:"detected"`
	LastValue float64 `json:"last_value"`
}

// WifiJSON is the last scan result.
type WifiJSON struct {
	Networks    int  `json:"networks"`
	TargetFound bool `json:"target_found"`
	MinReached  bool `json:"min_reached"`
}

// SensorsJSON carries per-source progress.
type SensorsJSON struct {
	SpeechCount int       `json:"speech_count"`
	TiltX       AxisJSON  `json:"tilt_x"`
	TiltY       AxisJSON  `json:"tilt_y"`
	Azimuth     *float64  `json:"azimuth,omitempty"`
	Wifi        *WifiJSON `json:"wifi,omitempty"`
}

// VerdictJSON is the last frame classification.
type VerdictJSON struct {
	IsBlack          bool    `json:"is_black"`
	BlackPercentage  float64 `json:"black_pct"`
	AvgBrightness    float64 `json:"avg_brightness"`
	BrightPercentage float64 `json:"bright_pct"`
}

// ColorJSON reports the detection pipeline.
type ColorJSON struct {
	Running        bool         `json:"running"`
	PositiveStreak int          `json:"positive_streak"`
	NegativeStreak int          `json:"negative_streak"`
	Confirmations  int          `json:"confirmations"`
	Last           *VerdictJSON `json:"last,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPPort    string `json:"http_port"`
	WSBroker    string `json:"ws_broker,omitempty"`
	ButtonPin   int    `json:"button_pin"`
	WifiSource  string `json:"wifi_source"`
	WifiTarget  string `json:"wifi_target,omitempty"`
	WifiMin     int    `json:"wifi_min"`
	SpeechToken string `json:"speech_token"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func buildInner(snap Snapshot) StatusInner {
	g := snap.Gate
	inner := StatusInner{
		Session:       g.Session,
		Unlocked:      snap.Unlocked(),
		UnlockedAt:    formatTime(snap.UnlockedAt),
		Met:           g.MetCount,
		Total:         logic.ConditionCount,
		Conditions:    make([]ConditionJSON, 0, logic.ConditionCount),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Sensors: SensorsJSON{
			SpeechCount: g.SpeechCount,
			TiltX:       AxisJSON{Detected: g.TiltX.Detected, LastValue: g.TiltX.LastValue},
			TiltY:       AxisJSON{Detected: g.TiltY.Detected, LastValue: g.TiltY.LastValue},
			Azimuth:     g.Azimuth,
		},
		Color: ColorJSON{
			Running:        snap.Color.Running,
			PositiveStreak: snap.Color.Hysteresis.PositiveStreak,
			NegativeStreak: snap.Color.Hysteresis.NegativeStreak,
			Confirmations:  snap.Color.Confirmations,
		},
		Config: ConfigJSON{
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPPort:    snap.Config.HTTPPort,
			WSBroker:    snap.Config.WSBroker,
			ButtonPin:   snap.Config.ButtonPin,
			WifiSource:  snap.Config.WifiSource,
			WifiTarget:  snap.Config.WifiTarget,
			WifiMin:     snap.Config.WifiMin,
			SpeechToken: snap.Config.SpeechToken,
		},
	}

	for i, id := range logic.Conditions {
		inner.Conditions = append(inner.Conditions, ConditionJSON{
			ID:     string(id),
			Label:  id.Label(),
			Met:    g.Latches[i],
			MetAt:  formatTime(g.MetAt[i]),
			Detail: snap.Details[i],
		})
	}
	if g.Wifi != nil {
		inner.Sensors.Wifi = &WifiJSON{
			Networks:    g.Wifi.NetworkCount,
			TargetFound: g.Wifi.TargetFound,
			MinReached:  g.Wifi.MinReached,
		}
	}
	if v := snap.Color.Last; v != nil {
		inner.Color.Last = &VerdictJSON{
			IsBlack:          v.IsBlack,
			BlackPercentage:  v.BlackPercentage,
			AvgBrightness:    v.AvgBrightness,
			BrightPercentage: v.BrightPercentage,
		}
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
