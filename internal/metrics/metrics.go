package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all gate counters. Fields are updated directly by the
// components that own them and read by the Prometheus collectors.
type Metrics struct {
	// Color pipeline
	FramesSubmitted    atomic.Uint64
	FramesDropped      atomic.Uint64
	FramesClassified   atomic.Uint64
	FramesBlack        atomic.Uint64
	DecodeErrors       atomic.Uint64
	ColorConfirmations atomic.Uint64
	ClassifyLatencyUs  atomic.Uint64 // last frame, microseconds

	// Other sources
	SpeechResults  atomic.Uint64
	SpeechErrors   atomic.Uint64
	WifiScans      atomic.Uint64
	WifiScanErrors atomic.Uint64
	ButtonEvents   atomic.Uint64

	// MQTT ingress
	SensorMessages      atomic.Uint64
	SensorMessageErrors atomic.Uint64

	// Gate
	ConditionsMet atomic.Uint64 // current session
	Unlocks       atomic.Uint64

	registry *prometheus.Registry
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) counter(name, help string, v *atomic.Uint64) {
	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{Name: name, Help: help},
		func() float64 { return float64(v.Load()) },
	))
}

func (m *Metrics) gauge(name, help string, v *atomic.Uint64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Name: name, Help: help},
		func() float64 { return float64(v.Load()) },
	))
}

func (m *Metrics) registerPrometheusMetrics() {
	m.counter("unlock_gate_frames_submitted_total", "Frames handed to the color detector", &m.FramesSubmitted)
	m.counter("unlock_gate_frames_dropped_total", "Frames replaced in the slot before classification", &m.FramesDropped)
	m.counter("unlock_gate_frames_classified_total", "Frames classified", &m.FramesClassified)
	m.counter("unlock_gate_frames_black_total", "Frames with a black verdict", &m.FramesBlack)
	m.counter("unlock_gate_frame_decode_errors_total", "Frames that failed to decode", &m.DecodeErrors)
	m.counter("unlock_gate_color_confirmations_total", "Confirmed black detections", &m.ColorConfirmations)
	m.gauge("unlock_gate_classify_latency_us", "Classification time of the last frame in microseconds", &m.ClassifyLatencyUs)

	m.counter("unlock_gate_speech_results_total", "Recognized utterances", &m.SpeechResults)
	m.counter("unlock_gate_speech_errors_total", "Recognizer errors", &m.SpeechErrors)
	m.counter("unlock_gate_wifi_scans_total", "Completed network scans", &m.WifiScans)
	m.counter("unlock_gate_wifi_scan_errors_total", "Failed network scans", &m.WifiScanErrors)
	m.counter("unlock_gate_button_events_total", "Button edges received", &m.ButtonEvents)

	m.counter("unlock_gate_sensor_messages_total", "Sensor messages received over MQTT", &m.SensorMessages)
	m.counter("unlock_gate_sensor_message_errors_total", "Sensor messages that failed to parse", &m.SensorMessageErrors)

	m.gauge("unlock_gate_conditions_met", "Conditions latched in the current session", &m.ConditionsMet)
	m.counter("unlock_gate_unlocks_total", "Sessions that reached all conditions", &m.Unlocks)
}

// UpdateClassifyLatency records how long the last classification took.
func (m *Metrics) UpdateClassifyLatency(d time.Duration) {
	m.ClassifyLatencyUs.Store(uint64(d.Microseconds()))
}

// Handler returns the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
