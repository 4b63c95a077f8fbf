// Package mqtt provides MQTT publishing and subscription with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/unlock-gate/internal/logic"
)

// Topic is the MQTT topic for gate condition events.
const Topic = "unlock/gate/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "unlock/gate/system"

// Sensor ingress topics.
const (
	TopicMotion      = "unlock/sensor/motion"
	TopicOrientation = "unlock/sensor/orientation"
	TopicSpeech      = "unlock/sensor/speech"
	TopicButton      = "unlock/sensor/button"
	TopicWifi        = "unlock/sensor/wifi"
	TopicFrame       = "unlock/sensor/camera/frame"
)

// EventConditionMet is the event name on Topic.
const EventConditionMet = "CONDITION_MET"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a gate event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// MessageHandler processes one inbound message.
type MessageHandler func(topic string, payload []byte) error

// Subscriber registers handlers for inbound topics.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler MessageHandler) error
	Unsubscribe(topics ...string) error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "UNLOCKED"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Gate GatePayload `json:"gate"`
}

// GatePayload contains the condition event details.
type GatePayload struct {
	Timestamp string `json:"timestamp"`
	Session   string `json:"session"`
	Event     string `json:"event"`
	Condition string `json:"condition"`
	Detail    string `json:"detail,omitempty"`
	Met       int    `json:"met"`
	Total     int    `json:"total"`
	AllMet    bool   `json:"all_met"`
}

// FormatPayload creates the JSON payload for a gate event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Gate: GatePayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Session:   event.Session,
			Event:     EventConditionMet,
			Condition: string(event.Condition),
			Detail:    event.Detail,
			Met:       event.MetCount,
			Total:     logic.ConditionCount,
			AllMet:    event.AllMet,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
