package sensor

import (
	"context"
	"sync"
)

// SpeechFeed is a Recognizer fed by an external publisher. Results pushed
// while nobody is listening are queued up to the buffer size; beyond that
// the oldest is dropped.
type SpeechFeed struct {
	ch chan []string
}

// NewSpeechFeed creates a feed holding up to size pending results.
func NewSpeechFeed(size int) *SpeechFeed {
	if size < 1 {
		size = 1
	}
	return &SpeechFeed{ch: make(chan []string, size)}
}

// Push enqueues one result without blocking.
func (f *SpeechFeed) Push(alternatives []string) {
	for {
		select {
		case f.ch <- alternatives:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}

// Listen implements Recognizer.
func (f *SpeechFeed) Listen(ctx context.Context) ([]string, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case alts := <-f.ch:
		return alts, nil
	}
}

// ScanFeed is a Scanner fed by an external publisher. Scan returns the most
// recent list pushed since the previous Scan, waiting for one if needed.
type ScanFeed struct {
	mu     sync.Mutex
	latest []string
	fresh  bool
	ready  chan struct{} // closed when fresh becomes true
}

// NewScanFeed creates an empty feed.
func NewScanFeed() *ScanFeed {
	return &ScanFeed{ready: make(chan struct{})}
}

// Push replaces the pending scan.
func (f *ScanFeed) Push(ssids []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latest = append([]string(nil), ssids...)
	if !f.fresh {
		f.fresh = true
		close(f.ready)
	}
}

// Scan implements Scanner.
func (f *ScanFeed) Scan(ctx context.Context) ([]string, error) {
	for {
		f.mu.Lock()
		if f.fresh {
			ssids := f.latest
			f.fresh = false
			f.ready = make(chan struct{})
			f.mu.Unlock()
			return ssids, nil
		}
		ready := f.ready
		f.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ready:
		}
	}
}
