package gate

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sweeney/unlock-gate/internal/logic"
)

// State is a point-in-time view of a session.
type State struct {
	Session     string
	Latches     [logic.ConditionCount]bool
	MetAt       [logic.ConditionCount]time.Time
	MetCount    int
	AllMet      bool
	SpeechCount int
	TiltX       logic.AxisState
	TiltY       logic.AxisState
	Azimuth     *float64 // nil until a heading has been seen
	Wifi        *logic.WifiMatch
}

// Session routes raw observations through the per-source rules and latches
// the aggregator. Each source has its own lock, so a slow or failing source
// never blocks another.
type Session struct {
	th     logic.Thresholds
	agg    *Aggregator
	logger *zap.Logger
	newID  func() string

	speechMu sync.Mutex
	speech   *logic.SpeechCounter

	tiltMu    sync.Mutex
	tilt      *logic.TiltTracker
	tiltLimit *logic.RateLimiter

	compassMu sync.Mutex
	azimuth   *float64

	wifiMu sync.Mutex
	wifi   *logic.WifiMatch
}

// NewSession starts a session with a fresh id. now may be nil.
func NewSession(th logic.Thresholds, logger *zap.Logger, now func() time.Time, hooks Hooks) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		th:        th,
		logger:    logger,
		newID:     func() string { return uuid.NewString() },
		speech:    logic.NewSpeechCounter(th.SpeechToken, th.SpeechCount),
		tilt:      logic.NewTiltTracker(th.TiltAngle, th.Gravity),
		tiltLimit: logic.NewRateLimiter(th.TiltInterval),
	}
	s.agg = NewAggregator(s.newID(), now, hooks)
	s.logger.Info("session started", zap.String("session", s.agg.Session()))
	return s
}

// Aggregator exposes the underlying latches.
func (s *Session) Aggregator() *Aggregator {
	return s.agg
}

// ID returns the current session id.
func (s *Session) ID() string {
	return s.agg.Session()
}

// Thresholds returns the tuning the session was built with.
func (s *Session) Thresholds() logic.Thresholds {
	return s.th
}

func (s *Session) notify(id logic.ConditionID, detail string) {
	if s.agg.Notify(id, detail) {
		s.logger.Info("condition met",
			zap.String("condition", string(id)),
			zap.String("detail", detail),
			zap.Int("met", s.agg.MetCount()),
		)
	}
}

// ObserveUtterance counts one recognized utterance.
func (s *Session) ObserveUtterance(text string) bool {
	s.speechMu.Lock()
	met := s.speech.Observe(text)
	count := s.speech.Count()
	s.speechMu.Unlock()

	s.logger.Debug("utterance", zap.String("text", text), zap.Int("count", count))
	if met {
		s.notify(logic.ConditionSpeech, fmt.Sprintf("count=%d", count))
	}
	return met
}

// ObserveMotion evaluates one linear-acceleration sample taken at now.
// Samples arriving faster than the tilt interval are dropped.
func (s *Session) ObserveMotion(x, y float64, now time.Time) bool {
	s.tiltMu.Lock()
	if !s.tiltLimit.Allow(now) {
		met := s.tilt.Met()
		s.tiltMu.Unlock()
		return met
	}
	met := s.tilt.Observe(x, y)
	s.tiltMu.Unlock()

	if met {
		s.notify(logic.ConditionTilt, fmt.Sprintf("x=%.2f y=%.2f", x, y))
	}
	return met
}

// ObserveAzimuth evaluates a heading in degrees.
func (s *Session) ObserveAzimuth(azimuth float64) bool {
	az := logic.NormalizeAzimuth(azimuth)
	s.compassMu.Lock()
	s.azimuth = &az
	s.compassMu.Unlock()

	if logic.IsNorth(az, s.th.NorthTolerance) {
		s.notify(logic.ConditionCompass, fmt.Sprintf("azimuth=%.1f", az))
		return true
	}
	return false
}

// ObserveOrientation derives the heading from raw accelerometer and
// magnetometer readings. Unusable readings are ignored.
func (s *Session) ObserveOrientation(accel, magnetic [3]float64) bool {
	az, ok := logic.Azimuth(accel, magnetic)
	if !ok {
		return false
	}
	return s.ObserveAzimuth(az)
}

// ObserveButton latches the button condition on a DOWN edge.
func (s *Session) ObserveButton(e logic.ButtonEvent) bool {
	if !logic.ButtonPressed(e) {
		return false
	}
	s.notify(logic.ConditionButton, "pressed")
	return true
}

// ObserveScan evaluates one network scan.
func (s *Session) ObserveScan(ssids []string) logic.WifiMatch {
	m := logic.EvaluateScan(ssids, s.th.WifiTarget, s.th.WifiMinNetworks)
	s.wifiMu.Lock()
	s.wifi = &m
	s.wifiMu.Unlock()

	if m.Met() {
		s.notify(logic.ConditionWifi, fmt.Sprintf("networks=%d target=%t", m.NetworkCount, m.TargetFound))
	}
	return m
}

// ConfirmColor latches the color condition from a confirmed detection.
func (s *Session) ConfirmColor(v logic.Verdict) {
	s.notify(logic.ConditionColor, fmt.Sprintf("black=%.1f%% avg=%.1f bright=%.1f%%",
		v.BlackPercentage, v.AvgBrightness, v.BrightPercentage))
}

// Reset clears every latch and sub-state and starts a new session id.
func (s *Session) Reset() {
	s.speechMu.Lock()
	s.speech.Reset()
	s.speechMu.Unlock()

	s.tiltMu.Lock()
	s.tilt.Reset()
	s.tiltLimit.Reset()
	s.tiltMu.Unlock()

	s.compassMu.Lock()
	s.azimuth = nil
	s.compassMu.Unlock()

	s.wifiMu.Lock()
	s.wifi = nil
	s.wifiMu.Unlock()

	id := s.newID()
	s.agg.Reset(id)
	s.logger.Info("session reset", zap.String("session", id))
}

// State returns a consistent-per-source snapshot.
func (s *Session) State() State {
	st := State{
		Session:  s.agg.Session(),
		Latches:  s.agg.Latches(),
		MetCount: s.agg.MetCount(),
		AllMet:   s.agg.IsAllMet(),
	}
	for i, id := range logic.Conditions {
		st.MetAt[i] = s.agg.MetAt(id)
	}

	s.speechMu.Lock()
	st.SpeechCount = s.speech.Count()
	s.speechMu.Unlock()

	s.tiltMu.Lock()
	st.TiltX = s.tilt.Axis(logic.AxisX)
	st.TiltY = s.tilt.Axis(logic.AxisY)
	s.tiltMu.Unlock()

	s.compassMu.Lock()
	if s.azimuth != nil {
		az := *s.azimuth
		st.Azimuth = &az
	}
	s.compassMu.Unlock()

	s.wifiMu.Lock()
	if s.wifi != nil {
		w := *s.wifi
		st.Wifi = &w
	}
	s.wifiMu.Unlock()

	return st
}
