package main

import (
	"os"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/unlock-gate/internal/gate"
	"github.com/sweeney/unlock-gate/internal/logic"
	"github.com/sweeney/unlock-gate/internal/metrics"
	"github.com/sweeney/unlock-gate/internal/mqtt"
	"github.com/sweeney/unlock-gate/internal/sensor"
	"github.com/sweeney/unlock-gate/internal/status"
)

// gateEvents moves aggregator transitions off the notifying goroutine so
// sources never wait on MQTT.
type gateEvents struct {
	met      chan logic.Event
	unlocked chan logic.Event
	logger   *zap.Logger
}

func newGateEvents(logger *zap.Logger) *gateEvents {
	return &gateEvents{
		met:      make(chan logic.Event, 2*logic.ConditionCount),
		unlocked: make(chan logic.Event, 2),
		logger:   logger,
	}
}

func (g *gateEvents) hooks() gate.Hooks {
	return gate.Hooks{
		OnMet: func(e logic.Event) {
			select {
			case g.met <- e:
			default:
				g.logger.Warn("gate event dropped", zap.String("condition", string(e.Condition)))
			}
		},
		OnUnlock: func(e logic.Event) {
			select {
			case g.unlocked <- e:
			default:
				g.logger.Warn("unlock event dropped")
			}
		},
	}
}

// sensorSink routes decoded MQTT sensor messages to their sources.
type sensorSink struct {
	session  *gate.Session
	detector *sensor.ColorDetector
	speech   *sensor.SpeechFeed
	scans    *sensor.ScanFeed // nil when scans come from nmcli
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func (s *sensorSink) Motion(x, y float64, at time.Time) { s.session.ObserveMotion(x, y, at) }

func (s *sensorSink) Azimuth(degrees float64) { s.session.ObserveAzimuth(degrees) }

func (s *sensorSink) Orientation(accel, magnetic [3]float64) {
	s.session.ObserveOrientation(accel, magnetic)
}

func (s *sensorSink) Utterance(alternatives []string) { s.speech.Push(alternatives) }

func (s *sensorSink) Button(e logic.ButtonEvent) {
	s.metrics.ButtonEvents.Add(1)
	s.session.ObserveButton(e)
}

func (s *sensorSink) Scan(ssids []string) {
	if s.scans == nil {
		s.logger.Debug("ignoring mqtt scan, source is nmcli", zap.Int("networks", len(ssids)))
		return
	}
	s.scans.Push(ssids)
}

func (s *sensorSink) Frame(data []byte) { s.detector.SubmitEncoded(data) }

// broadcaster pushes payloads to live UI clients.
type broadcaster interface {
	Broadcast(payload []byte)
}

// loop holds what runLoop reads and writes.
type loop struct {
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus // may be nil
	tracker    *status.Tracker       // may be nil
	session    *gate.Session
	buttons    <-chan logic.ButtonEvent // nil = no GPIO button
	met        <-chan logic.Event
	unlocked   <-chan logic.Event
	heartbeat  time.Duration
	logger     *zap.Logger
	metrics    *metrics.Metrics
	live       broadcaster // may be nil
}

func runLoop(l *loop, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	hb := logic.NewHeartbeat(now())
	buttons := l.buttons

	for {
		select {
		case s := <-sig:
			if s == syscall.SIGHUP {
				l.startSession(now())
				continue
			}
			l.logger.Info("shutting down", zap.Stringer("signal", s))
			l.drain()
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if l.tracker != nil {
				l.refreshConnection()
				event.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "SHUTDOWN", signalName)
			}
			if err := l.publisher.PublishSystem(event); err != nil {
				l.logger.Warn("failed to publish shutdown event", zap.Error(err))
			} else {
				l.logger.Info("published shutdown event")
			}
			return nil

		case e, ok := <-buttons:
			if !ok {
				l.logger.Warn("button event channel closed")
				buttons = nil
				continue
			}
			l.metrics.ButtonEvents.Add(1)
			l.logger.Debug("button", zap.String("action", string(e.Action)))
			l.session.ObserveButton(e)

		case e := <-l.met:
			l.handleMet(e)

		case e := <-l.unlocked:
			// OnMet fires before OnUnlock, so the final condition is already queued.
			l.flushMet()
			l.handleUnlock(e, now())

		case <-tick:
			t := now()
			if hbData := hb.Check(t, l.heartbeat); hbData != nil {
				l.logger.Info("heartbeat", zap.Duration("uptime", hbData.Uptime))
				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if l.tracker != nil {
					l.refreshConnection()
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						l.tracker.SetNetwork(net)
					}
					hbEvent.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "HEARTBEAT", "")
				}
				if err := l.publisher.PublishSystem(hbEvent); err != nil {
					l.logger.Warn("heartbeat publish error", zap.Error(err))
				}
			}
			l.refreshConnection()
		}
	}
}

func (l *loop) handleMet(e logic.Event) {
	l.metrics.ConditionsMet.Store(uint64(e.MetCount))
	if l.tracker != nil {
		l.tracker.RecordEvent(e)
	}
	if err := l.publisher.Publish(e); err != nil {
		l.logger.Warn("publish error", zap.String("condition", string(e.Condition)), zap.Error(err))
	}
	if l.live != nil {
		if payload, err := mqtt.FormatPayload(e); err == nil {
			l.live.Broadcast(payload)
		}
	}
}

func (l *loop) handleUnlock(e logic.Event, t time.Time) {
	l.metrics.Unlocks.Add(1)
	l.logger.Info("gate unlocked", zap.String("session", e.Session))
	event := mqtt.SystemEvent{
		Timestamp: t,
		Event:     "UNLOCKED",
		Retained:  true,
	}
	if l.tracker != nil {
		// The final OnMet may still be queued.
		l.tracker.RecordEvent(e)
		event.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "UNLOCKED", "")
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		l.logger.Warn("failed to publish unlock event", zap.Error(err))
	}
}

// startSession publishes what the old session still has queued, then
// clears every latch under a new session id.
func (l *loop) startSession(t time.Time) {
	l.drain()
	l.session.Reset()
	l.metrics.ConditionsMet.Store(0)
	event := mqtt.SystemEvent{
		Timestamp: t,
		Event:     "SESSION_START",
		Reason:    l.session.ID(),
		Retained:  true,
	}
	if l.tracker != nil {
		l.tracker.ResetSession()
		l.refreshConnection()
		event.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "SESSION_START", l.session.ID())
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		l.logger.Warn("failed to publish session start", zap.Error(err))
	}
}

func (l *loop) flushMet() {
	for {
		select {
		case e := <-l.met:
			l.handleMet(e)
		default:
			return
		}
	}
}

// drain publishes transitions still queued at shutdown.
func (l *loop) drain() {
	l.flushMet()
	for {
		select {
		case e := <-l.unlocked:
			l.handleUnlock(e, e.Timestamp)
		default:
			return
		}
	}
}

func (l *loop) refreshConnection() {
	if l.tracker != nil && l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
}
