// Package sensor runs the asynchronous signal sources: the speech listener,
// the network scan watcher and the color detection worker.
package sensor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/unlock-gate/internal/metrics"
)

// Recognizer returns the alternatives for one recognized utterance, best
// first. Listen blocks until a result is available or ctx is done.
type Recognizer interface {
	Listen(ctx context.Context) ([]string, error)
}

// SpeechListener keeps a Recognizer listening for the whole session.
type SpeechListener struct {
	rec     Recognizer
	onText  func(string)
	retry   time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewSpeechListener creates a listener that passes the top alternative of
// every result to onText and waits retry after a recognizer error.
func NewSpeechListener(rec Recognizer, onText func(string), retry time.Duration, logger *zap.Logger, m *metrics.Metrics) *SpeechListener {
	return &SpeechListener{rec: rec, onText: onText, retry: retry, logger: logger, metrics: m}
}

// Run listens until ctx is done. Errors never stop the loop.
func (l *SpeechListener) Run(ctx context.Context) {
	for ctx.Err() == nil {
		alts, err := l.rec.Listen(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			l.metrics.SpeechErrors.Add(1)
			l.logger.Warn("speech recognition failed, retrying", zap.Error(err), zap.Duration("backoff", l.retry))
			if !sleepCtx(ctx, l.retry) {
				return
			}
			continue
		}
		if len(alts) == 0 {
			continue
		}
		l.metrics.SpeechResults.Add(1)
		l.onText(alts[0])
	}
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
