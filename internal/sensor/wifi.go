package sensor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/unlock-gate/internal/metrics"
)

// Scanner returns the SSIDs visible in one scan.
type Scanner interface {
	Scan(ctx context.Context) ([]string, error)
}

// WifiWatcher rescans on a fixed interval until the scan callback reports
// the condition met.
type WifiWatcher struct {
	scanner  Scanner
	onScan   func([]string) bool
	interval time.Duration
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewWifiWatcher creates a watcher. onScan returns true once no further
// scans are needed.
func NewWifiWatcher(scanner Scanner, onScan func([]string) bool, interval time.Duration, logger *zap.Logger, m *metrics.Metrics) *WifiWatcher {
	return &WifiWatcher{scanner: scanner, onScan: onScan, interval: interval, logger: logger, metrics: m}
}

// Run scans immediately and then every interval. It returns when onScan
// reports done or ctx ends.
func (w *WifiWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if w.scanOnce(ctx) {
			w.logger.Info("wifi watcher done")
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *WifiWatcher) scanOnce(ctx context.Context) bool {
	ssids, err := w.scanner.Scan(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.metrics.WifiScanErrors.Add(1)
			w.logger.Warn("wifi scan failed", zap.Error(err))
		}
		return false
	}
	w.metrics.WifiScans.Add(1)
	w.logger.Debug("wifi scan", zap.Int("networks", len(ssids)))
	return w.onScan(ssids)
}
