package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/unlock-gate/internal/logic"
	"github.com/sweeney/unlock-gate/internal/metrics"
)

// Sink receives decoded sensor messages.
type Sink interface {
	Motion(x, y float64, at time.Time)
	Azimuth(degrees float64)
	Orientation(accel, magnetic [3]float64)
	Utterance(alternatives []string)
	Button(e logic.ButtonEvent)
	Scan(ssids []string)
	Frame(data []byte)
}

// MotionMessage is the payload on TopicMotion.
type MotionMessage struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Timestamp string  `json:"timestamp,omitempty"` // RFC3339, optional
}

// OrientationMessage is the payload on TopicOrientation: either a
// precomputed azimuth or raw accelerometer and magnetometer readings.
type OrientationMessage struct {
	Azimuth  *float64    `json:"azimuth,omitempty"`
	Accel    *[3]float64 `json:"accel,omitempty"`
	Magnetic *[3]float64 `json:"magnetic,omitempty"`
}

// SpeechMessage is the payload on TopicSpeech.
type SpeechMessage struct {
	Text         string   `json:"text,omitempty"`
	Alternatives []string `json:"alternatives,omitempty"`
}

// ButtonMessage is the payload on TopicButton.
type ButtonMessage struct {
	Action string `json:"action"` // "DOWN" or "UP"
}

// WifiMessage is the payload on TopicWifi.
type WifiMessage struct {
	SSIDs []string `json:"ssids"`
}

var errEmptyPayload = errors.New("empty payload")

// Router subscribes to the sensor topics and forwards decoded messages to
// a Sink. Malformed messages are counted and rejected; they never reach
// the sink.
type Router struct {
	sub     Subscriber
	sink    Sink
	now     func() time.Time
	logger  *zap.Logger
	metrics *metrics.Metrics

	buttonMu sync.Mutex
	button   logic.PressFilter
}

// NewRouter creates a router. now may be nil.
func NewRouter(sub Subscriber, sink Sink, now func() time.Time, logger *zap.Logger, m *metrics.Metrics) *Router {
	if now == nil {
		now = time.Now
	}
	return &Router{sub: sub, sink: sink, now: now, logger: logger, metrics: m}
}

// Topics lists the sensor topics the router handles.
func Topics() []string {
	return []string{TopicMotion, TopicOrientation, TopicSpeech, TopicButton, TopicWifi, TopicFrame}
}

// Start subscribes to every sensor topic.
func (r *Router) Start() error {
	for _, topic := range Topics() {
		// Frames are best-effort; everything else is at-least-once.
		var qos byte = 1
		if topic == TopicFrame {
			qos = 0
		}
		if err := r.sub.Subscribe(topic, qos, r.handle); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	r.logger.Info("sensor router started", zap.Strings("topics", Topics()))
	return nil
}

// Stop unsubscribes from every sensor topic.
func (r *Router) Stop() error {
	if err := r.sub.Unsubscribe(Topics()...); err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}
	r.logger.Info("sensor router stopped")
	return nil
}

func (r *Router) handle(topic string, payload []byte) error {
	r.metrics.SensorMessages.Add(1)
	if err := r.dispatch(topic, payload); err != nil {
		r.metrics.SensorMessageErrors.Add(1)
		r.logger.Debug("sensor message rejected", zap.String("topic", topic), zap.Error(err))
		return err
	}
	return nil
}

func (r *Router) dispatch(topic string, payload []byte) error {
	if len(payload) == 0 {
		return errEmptyPayload
	}

	switch topic {
	case TopicMotion:
		var m MotionMessage
		if err := json.Unmarshal(payload, &m); err != nil {
			return fmt.Errorf("parse motion: %w", err)
		}
		at := r.now()
		if m.Timestamp != "" {
			t, err := time.Parse(time.RFC3339Nano, m.Timestamp)
			if err != nil {
				return fmt.Errorf("parse motion timestamp: %w", err)
			}
			at = t
		}
		r.sink.Motion(m.X, m.Y, at)

	case TopicOrientation:
		var m OrientationMessage
		if err := json.Unmarshal(payload, &m); err != nil {
			return fmt.Errorf("parse orientation: %w", err)
		}
		switch {
		case m.Azimuth != nil:
			r.sink.Azimuth(*m.Azimuth)
		case m.Accel != nil && m.Magnetic != nil:
			r.sink.Orientation(*m.Accel, *m.Magnetic)
		default:
			return fmt.Errorf("orientation: need azimuth or accel+magnetic")
		}

	case TopicSpeech:
		var m SpeechMessage
		if err := json.Unmarshal(payload, &m); err != nil {
			return fmt.Errorf("parse speech: %w", err)
		}
		alts := m.Alternatives
		if len(alts) == 0 && m.Text != "" {
			alts = []string{m.Text}
		}
		if len(alts) == 0 {
			return fmt.Errorf("speech: no text")
		}
		r.sink.Utterance(alts)

	case TopicButton:
		var m ButtonMessage
		if err := json.Unmarshal(payload, &m); err != nil {
			return fmt.Errorf("parse button: %w", err)
		}
		action := logic.ButtonAction(strings.ToUpper(m.Action))
		if action != logic.ButtonDown && action != logic.ButtonUp {
			return fmt.Errorf("button: unknown action %q", m.Action)
		}
		e := logic.ButtonEvent{Action: action, Time: r.now()}
		r.buttonMu.Lock()
		accept := r.button.Accept(e)
		r.buttonMu.Unlock()
		if accept {
			r.sink.Button(e)
		}

	case TopicWifi:
		var m WifiMessage
		if err := json.Unmarshal(payload, &m); err != nil {
			return fmt.Errorf("parse wifi: %w", err)
		}
		r.sink.Scan(m.SSIDs)

	case TopicFrame:
		r.sink.Frame(payload)

	default:
		return fmt.Errorf("unexpected topic %s", topic)
	}
	return nil
}
