// Package gate holds the six condition latches and the session that feeds
// them from the per-source rules in the logic package.
package gate

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sweeney/unlock-gate/internal/logic"
)

// Hooks receive aggregator transitions. Both are optional and are invoked
// synchronously on the goroutine that caused the transition.
type Hooks struct {
	OnMet    func(logic.Event)
	OnUnlock func(logic.Event)
}

// Aggregator is the AND gate over the six condition latches.
//
// Each latch is a write-once atomic flag; Notify may be called concurrently
// from any number of sources. Reset takes the write side of resetMu so it
// never interleaves with an in-flight Notify.
type Aggregator struct {
	resetMu sync.RWMutex
	session string

	latches [logic.ConditionCount]atomic.Bool
	metAt   [logic.ConditionCount]atomic.Int64 // unix nanos, 0 = not met
	count   atomic.Int32

	now   func() time.Time
	hooks Hooks
}

// NewAggregator creates an aggregator with all latches clear.
// now may be nil, in which case time.Now is used.
func NewAggregator(session string, now func() time.Time, hooks Hooks) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{session: session, now: now, hooks: hooks}
}

// Notify latches id. It returns true only for the call that actually moved
// the latch from false to true; repeated or unknown ids are no-ops.
func (a *Aggregator) Notify(id logic.ConditionID, detail string) bool {
	idx := id.Index()
	if idx < 0 {
		return false
	}

	a.resetMu.RLock()
	if !a.latches[idx].CompareAndSwap(false, true) {
		a.resetMu.RUnlock()
		return false
	}
	now := a.now()
	a.metAt[idx].Store(now.UnixNano())
	met := int(a.count.Add(1))
	ev := logic.Event{
		Timestamp: now,
		Session:   a.session,
		Condition: id,
		Detail:    detail,
		MetCount:  met,
		AllMet:    met == logic.ConditionCount,
	}
	a.resetMu.RUnlock()

	if a.hooks.OnMet != nil {
		a.hooks.OnMet(ev)
	}
	// Only the goroutine that set the last latch sees met == ConditionCount.
	if ev.AllMet && a.hooks.OnUnlock != nil {
		a.hooks.OnUnlock(ev)
	}
	return true
}

// IsMet reports the latch for id.
func (a *Aggregator) IsMet(id logic.ConditionID) bool {
	idx := id.Index()
	if idx < 0 {
		return false
	}
	return a.latches[idx].Load()
}

// MetAt returns when id latched, or the zero time.
func (a *Aggregator) MetAt(id logic.ConditionID) time.Time {
	idx := id.Index()
	if idx < 0 {
		return time.Time{}
	}
	ns := a.metAt[idx].Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}

// IsAllMet reports whether every latch is set.
func (a *Aggregator) IsAllMet() bool {
	for i := range a.latches {
		if !a.latches[i].Load() {
			return false
		}
	}
	return true
}

// MetCount returns the number of latches set.
func (a *Aggregator) MetCount() int {
	return int(a.count.Load())
}

// Latches returns a copy of every latch in logic.Conditions order.
func (a *Aggregator) Latches() [logic.ConditionCount]bool {
	var out [logic.ConditionCount]bool
	for i := range a.latches {
		out[i] = a.latches[i].Load()
	}
	return out
}

// Session returns the id of the current session.
func (a *Aggregator) Session() string {
	a.resetMu.RLock()
	defer a.resetMu.RUnlock()
	return a.session
}

// Reset clears every latch and starts a new session.
func (a *Aggregator) Reset(session string) {
	a.resetMu.Lock()
	defer a.resetMu.Unlock()
	for i := range a.latches {
		a.latches[i].Store(false)
		a.metAt[i].Store(0)
	}
	a.count.Store(0)
	a.session = session
}
