package sensor

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/unlock-gate/internal/logic"
	"github.com/sweeney/unlock-gate/internal/metrics"
)

// frame is either a decoded image or encoded bytes still to be decoded.
type frame struct {
	img  image.Image
	data []byte
}

// ColorStats is a snapshot of the detection pipeline.
type ColorStats struct {
	Running       bool
	Last          *logic.Verdict
	Hysteresis    logic.HysteresisState
	Confirmations int
}

// ColorDetector classifies camera frames on one worker goroutine and
// reports confirmed black detections.
//
// Producers call Submit or SubmitEncoded, which never block: the detector
// holds at most one pending frame and a newer frame replaces it. The
// worker owns the hysteresis filter; nothing else touches it while running.
type ColorDetector struct {
	th        logic.Thresholds
	onConfirm func(logic.Verdict)
	now       func() time.Time
	logger    *zap.Logger
	metrics   *metrics.Metrics

	slot    chan frame
	running atomic.Bool

	mu     sync.Mutex // guards lifecycle
	wctx   context.Context
	cancel context.CancelFunc
	done   chan struct{}

	hyst *logic.Hysteresis

	statsMu sync.Mutex
	stats   ColorStats
}

// NewColorDetector creates a stopped detector. onConfirm is called on the
// worker goroutine and must not call Stop. now may be nil.
func NewColorDetector(th logic.Thresholds, onConfirm func(logic.Verdict), now func() time.Time, logger *zap.Logger, m *metrics.Metrics) *ColorDetector {
	if now == nil {
		now = time.Now
	}
	return &ColorDetector{
		th:        th,
		onConfirm: onConfirm,
		now:       now,
		logger:    logger,
		metrics:   m,
		slot:      make(chan frame, 1),
		hyst:      logic.NewHysteresisFromThresholds(th),
	}
}

// Start launches the worker. Calling Start on a running detector is a no-op.
// A worker whose parent context was cancelled counts as stopped and is
// replaced.
func (d *ColorDetector) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done != nil {
		if d.running.Load() && d.wctx.Err() == nil {
			return
		}
		d.cancel()
		<-d.done
	}

	select {
	case <-d.slot:
	default:
	}
	d.hyst.Reset()
	d.statsMu.Lock()
	d.stats = ColorStats{Running: true}
	d.statsMu.Unlock()

	d.wctx, d.cancel = context.WithCancel(ctx)
	d.done = make(chan struct{})
	d.running.Store(true)
	go d.worker(d.wctx, d.done)
	d.logger.Info("color detector started")
}

// Stop cancels the worker and waits for it to exit. Pending frames are
// discarded and the streaks cleared. Stopping a stopped detector is a no-op.
func (d *ColorDetector) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done == nil {
		return
	}

	d.running.Store(false)
	d.cancel()
	<-d.done
	d.done = nil

	select {
	case <-d.slot:
	default:
	}
	d.hyst.Reset()

	d.statsMu.Lock()
	d.stats.Running = false
	d.stats.Hysteresis = logic.HysteresisState{}
	d.statsMu.Unlock()
	d.logger.Info("color detector stopped")
}

// Running reports whether the worker is active.
func (d *ColorDetector) Running() bool {
	return d.running.Load()
}

// Submit offers a decoded frame. It returns false when the detector is
// stopped.
func (d *ColorDetector) Submit(img image.Image) bool {
	return d.offer(frame{img: img})
}

// SubmitEncoded offers an encoded frame; decoding happens on the worker.
func (d *ColorDetector) SubmitEncoded(data []byte) bool {
	return d.offer(frame{data: data})
}

func (d *ColorDetector) offer(f frame) bool {
	if !d.running.Load() {
		return false
	}
	d.metrics.FramesSubmitted.Add(1)
	for {
		select {
		case d.slot <- f:
			return true
		default:
		}
		// Slot full: discard the stale frame and retry.
		select {
		case <-d.slot:
			d.metrics.FramesDropped.Add(1)
		default:
		}
	}
}

func (d *ColorDetector) worker(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			d.statsMu.Lock()
			d.stats.Running = false
			d.statsMu.Unlock()
			d.running.Store(false)
			return
		case f := <-d.slot:
			d.process(f)
		}
	}
}

func (d *ColorDetector) process(f frame) {
	img := f.img
	if img == nil {
		var err error
		img, _, err = DecodeFrame(f.data)
		if err != nil {
			d.metrics.DecodeErrors.Add(1)
			d.logger.Warn("dropping undecodable frame", zap.Error(err), zap.Int("bytes", len(f.data)))
			return
		}
	}

	start := time.Now()
	v := logic.ClassifyImage(img, d.th)
	d.metrics.UpdateClassifyLatency(time.Since(start))
	if v.IsBlack {
		d.metrics.FramesBlack.Add(1)
	}

	confirmed := d.hyst.Process(v.IsBlack, d.now())

	d.statsMu.Lock()
	d.stats.Last = &v
	d.stats.Hysteresis = d.hyst.State()
	if confirmed {
		d.stats.Confirmations++
	}
	d.statsMu.Unlock()
	d.metrics.FramesClassified.Add(1)

	d.logger.Debug("frame classified",
		zap.Bool("black", v.IsBlack),
		zap.Float64("black_pct", v.BlackPercentage),
		zap.Float64("avg_brightness", v.AvgBrightness),
		zap.Float64("bright_pct", v.BrightPercentage),
	)

	if confirmed {
		d.metrics.ColorConfirmations.Add(1)
		d.logger.Info("black detection confirmed", zap.Float64("black_pct", v.BlackPercentage))
		d.onConfirm(v)
	}
}

// Stats returns a snapshot of the pipeline.
func (d *ColorDetector) Stats() ColorStats {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	st := d.stats
	if st.Last != nil {
		v := *st.Last
		st.Last = &v
	}
	return st
}
