// Command unlock-gate collects six independent sensor conditions and
// publishes each one, and the final unlock, to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sweeney/unlock-gate/internal/gate"
	"github.com/sweeney/unlock-gate/internal/gpio"
	"github.com/sweeney/unlock-gate/internal/logger"
	"github.com/sweeney/unlock-gate/internal/logic"
	"github.com/sweeney/unlock-gate/internal/metrics"
	"github.com/sweeney/unlock-gate/internal/mqtt"
	"github.com/sweeney/unlock-gate/internal/sensor"
	"github.com/sweeney/unlock-gate/internal/status"
	"github.com/sweeney/unlock-gate/internal/web"
)

const serviceName = "unlock-gate"

// Network scan sources.
const (
	wifiSourceNmcli = "nmcli"
	wifiSourceMQTT  = "mqtt"
)

type options struct {
	poll        time.Duration
	heartbeat   time.Duration
	broker      string
	wsBroker    string
	httpAddr    string
	chip        string
	pin         int
	debounce    time.Duration
	wifiTarget  string
	wifiMin     int
	wifiSource  string
	speechToken string
	printState  bool
}

func main() {
	var opts options
	flag.DurationVar(&opts.poll, "poll", time.Second, "Status refresh interval")
	flag.DurationVar(&opts.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.StringVar(&opts.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	wsBroker := flag.String("ws-broker", "=broker", `MQTT websocket URL for live UI ("=broker" derives from --broker, "off" disables)`)
	flag.StringVar(&opts.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	flag.StringVar(&opts.chip, "chip", gpio.DefaultChip, "GPIO chip for the button")
	flag.IntVar(&opts.pin, "pin", gpio.PinButton, "BCM pin number for the button (-1 to disable)")
	flag.DurationVar(&opts.debounce, "debounce", gpio.DefaultDebounce, "Button debounce period")
	flag.StringVar(&opts.wifiTarget, "wifi-target", "robco", "Network name that satisfies the WiFi condition (empty to disable)")
	flag.IntVar(&opts.wifiMin, "wifi-min", logic.DefaultWifiMinNetworks, "Visible network count that satisfies the WiFi condition")
	flag.StringVar(&opts.wifiSource, "wifi-source", wifiSourceNmcli, `Network scan source: "nmcli" or "mqtt"`)
	flag.StringVar(&opts.speechToken, "speech-token", logic.DefaultSpeechToken, "Word that must be heard")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logFormat := flag.String("log-format", "json", "Log format: json or console")
	flag.BoolVar(&opts.printState, "print-state", false, "Print the button level and exit")

	flag.Parse()

	zl, err := logger.NewLogger(*logLevel, *logFormat, serviceName)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zl.Sync()

	opts.wsBroker = resolveWSBroker(*wsBroker, opts.broker, zl)
	if err := run(opts, zl); err != nil {
		zl.Fatal("fatal", zap.Error(err))
	}
}

func thresholdsFor(opts options) logic.Thresholds {
	th := logic.DefaultThresholds()
	th.WifiTarget = opts.wifiTarget
	th.WifiMinNetworks = opts.wifiMin
	if opts.speechToken != "" {
		th.SpeechToken = opts.speechToken
	}
	return th
}

func run(opts options, zl *zap.Logger) error {
	if opts.wifiSource != wifiSourceNmcli && opts.wifiSource != wifiSourceMQTT {
		return fmt.Errorf("unknown wifi source %q", opts.wifiSource)
	}

	// Print state mode
	if opts.printState {
		if opts.pin < 0 {
			return errors.New("print-state needs a button pin")
		}
		btn, err := gpio.NewRealButton(opts.chip, opts.pin, opts.debounce)
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		defer btn.Close()
		return printState(btn, os.Stdout)
	}

	// A missing button only disables the button condition.
	var buttons <-chan logic.ButtonEvent
	if opts.pin >= 0 {
		btn, err := gpio.NewRealButton(opts.chip, opts.pin, opts.debounce)
		if err != nil {
			zl.Warn("button disabled", zap.String("chip", opts.chip), zap.Int("pin", opts.pin), zap.Error(err))
		} else {
			defer btn.Close()
			buttons = btn.Events()
		}
	}

	m := metrics.New()
	th := thresholdsFor(opts)
	events := newGateEvents(zl)
	session := gate.NewSession(th, zl, nil, events.hooks())

	sources := newWorkers(context.Background())
	defer sources.stop()

	detector := sensor.NewColorDetector(th, session.ConfirmColor, nil, zl, m)
	detector.Start(sources.ctx)
	defer detector.Stop()

	// Initialize MQTT
	client := mqtt.NewRealClient(opts.broker, serviceName+"-"+uuid.NewString()[:8], zl)
	defer client.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		HeartbeatMs: opts.heartbeat.Milliseconds(),
		Broker:      opts.broker,
		HTTPPort:    opts.httpAddr,
		WSBroker:    opts.wsBroker,
		ButtonPin:   opts.pin,
		WifiSource:  opts.wifiSource,
		WifiTarget:  opts.wifiTarget,
		WifiMin:     opts.wifiMin,
		SpeechToken: th.SpeechToken,
	})
	tracker.SetSources(session.State, detector.Stats)
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Sensor sources
	speech := sensor.NewSpeechFeed(4)
	listener := sensor.NewSpeechListener(speech, func(text string) { session.ObserveUtterance(text) }, th.SpeechRetry, zl, m)
	sources.run(listener.Run)

	var scans *sensor.ScanFeed
	var scanner sensor.Scanner = sensor.NewNmcliScanner()
	if opts.wifiSource == wifiSourceMQTT {
		scans = sensor.NewScanFeed()
		scanner = scans
	}
	watcher := sensor.NewWifiWatcher(scanner, func(ssids []string) bool {
		return session.ObserveScan(ssids).Met()
	}, th.WifiScanInterval, zl, m)
	sources.run(watcher.Run)

	router := mqtt.NewRouter(client, &sensorSink{
		session:  session,
		detector: detector,
		speech:   speech,
		scans:    scans,
		logger:   zl,
		metrics:  m,
	}, nil, zl, m)
	if err := router.Start(); err != nil {
		return fmt.Errorf("start sensor router: %w", err)
	}
	defer router.Stop()

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := client.PublishSystem(startupEvent); err != nil {
		zl.Warn("failed to publish startup event", zap.Error(err))
	} else {
		zl.Info("published startup event")
	}

	// Start HTTP status server
	var live *web.Hub
	if opts.httpAddr != "" {
		live = web.NewHub(zl)
		defer live.Close()
		srv := web.New(opts.httpAddr, tracker, m.Handler(), live)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				zl.Error("http server error", zap.Error(err))
			}
		}()
		defer srv.Shutdown(context.Background())
		zl.Info("http status server listening", zap.String("addr", opts.httpAddr))
	}

	zl.Info("started",
		zap.String("session", session.ID()),
		zap.String("broker", opts.broker),
		zap.Duration("heartbeat", opts.heartbeat),
		zap.String("wifi_source", opts.wifiSource),
		zap.Bool("button", buttons != nil),
	)

	ticker := time.NewTicker(opts.poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	l := &loop{
		publisher:  client,
		mqttStatus: client,
		tracker:    tracker,
		session:    session,
		buttons:    buttons,
		met:        events.met,
		unlocked:   events.unlocked,
		heartbeat:  opts.heartbeat,
		logger:     zl,
		metrics:    m,
	}
	if live != nil {
		l.live = live
	}
	return runLoop(l, time.Now, ticker.C, sigCh)
}

// workers runs the sensor loops under one context. stop cancels it and
// waits for every loop to return.
type workers struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newWorkers(parent context.Context) *workers {
	ctx, cancel := context.WithCancel(parent)
	return &workers{ctx: ctx, cancel: cancel}
}

func (w *workers) run(fn func(context.Context)) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		fn(w.ctx)
	}()
}

func (w *workers) stop() {
	w.cancel()
	w.wg.Wait()
}

// printState reads the button level once.
func printState(btn gpio.Button, w io.Writer) error {
	pressed, err := btn.Pressed()
	if err != nil {
		return fmt.Errorf("read gpio: %w", err)
	}
	level := "RELEASED"
	if pressed {
		level = "PRESSED"
	}
	fmt.Fprintf(w, "BUTTON: %s\n", level)
	return nil
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

// resolveWSBroker converts the --ws-broker flag value into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; empty disables.
func resolveWSBroker(ws, broker string, zl *zap.Logger) string {
	if ws == "off" {
		return ""
	}
	if ws != "=broker" {
		return ws
	}
	u, err := url.Parse(broker)
	if err != nil {
		zl.Warn("ws-broker: cannot parse broker", zap.String("broker", broker), zap.Error(err))
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}
