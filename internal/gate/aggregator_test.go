package gate

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/unlock-gate/internal/logic"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestAggregatorAllCombinations(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for mask := 0; mask < 1<<logic.ConditionCount; mask++ {
		agg := NewAggregator("s", fixedClock(now), Hooks{})
		want := 0
		for i, id := range logic.Conditions {
			if mask&(1<<i) != 0 {
				agg.Notify(id, "")
				want++
			}
		}

		assert.Equal(t, mask == 1<<logic.ConditionCount-1, agg.IsAllMet(), "mask %06b", mask)
		assert.Equal(t, want, agg.MetCount(), "mask %06b", mask)
		latches := agg.Latches()
		for i := range logic.Conditions {
			assert.Equal(t, mask&(1<<i) != 0, latches[i], "mask %06b latch %d", mask, i)
		}
	}
}

func TestAggregatorNotifyIdempotent(t *testing.T) {
	var events []logic.Event
	agg := NewAggregator("s", nil, Hooks{OnMet: func(e logic.Event) { events = append(events, e) }})

	assert.True(t, agg.Notify(logic.ConditionButton, "pressed"))
	for i := 0; i < 5; i++ {
		assert.False(t, agg.Notify(logic.ConditionButton, "pressed"))
	}

	assert.Equal(t, 1, agg.MetCount())
	require.Len(t, events, 1)
	assert.Equal(t, logic.ConditionButton, events[0].Condition)
	assert.Equal(t, "s", events[0].Session)
	assert.Equal(t, 1, events[0].MetCount)
	assert.False(t, events[0].AllMet)
}

func TestAggregatorMonotonic(t *testing.T) {
	agg := NewAggregator("s", nil, Hooks{})
	agg.Notify(logic.ConditionCompass, "")

	for _, id := range logic.Conditions {
		agg.Notify(id, "")
		agg.Notify(id, "")
		assert.True(t, agg.IsMet(logic.ConditionCompass))
	}
	assert.True(t, agg.IsAllMet())
}

func TestAggregatorUnknownCondition(t *testing.T) {
	agg := NewAggregator("s", nil, Hooks{})
	assert.False(t, agg.Notify("BOGUS", ""))
	assert.False(t, agg.IsMet("BOGUS"))
	assert.True(t, agg.MetAt("BOGUS").IsZero())
	assert.Equal(t, 0, agg.MetCount())
}

func TestAggregatorUnlockFiresOnce(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var unlocks []logic.Event
	agg := NewAggregator("s", fixedClock(now), Hooks{
		OnUnlock: func(e logic.Event) { unlocks = append(unlocks, e) },
	})

	for i, id := range logic.Conditions {
		agg.Notify(id, "")
		if i < logic.ConditionCount-1 {
			assert.Empty(t, unlocks, "unlocked after %d conditions", i+1)
			assert.False(t, agg.IsAllMet())
		}
	}
	for _, id := range logic.Conditions {
		agg.Notify(id, "")
	}

	require.Len(t, unlocks, 1)
	assert.True(t, unlocks[0].AllMet)
	assert.Equal(t, logic.ConditionColor, unlocks[0].Condition)
	assert.Equal(t, logic.ConditionCount, unlocks[0].MetCount)
	assert.Equal(t, now, unlocks[0].Timestamp)
}

func TestAggregatorMetAt(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	agg := NewAggregator("s", fixedClock(now), Hooks{})

	assert.True(t, agg.MetAt(logic.ConditionWifi).IsZero())
	agg.Notify(logic.ConditionWifi, "")
	assert.True(t, agg.MetAt(logic.ConditionWifi).Equal(now))
}

func TestAggregatorConcurrentNotify(t *testing.T) {
	var metEvents, unlocks atomic.Int32
	agg := NewAggregator("s", nil, Hooks{
		OnMet:    func(logic.Event) { metEvents.Add(1) },
		OnUnlock: func(logic.Event) { unlocks.Add(1) },
	})

	var wg sync.WaitGroup
	start := make(chan struct{})
	for g := 0; g < 8; g++ {
		for _, id := range logic.Conditions {
			wg.Add(1)
			go func(id logic.ConditionID) {
				defer wg.Done()
				<-start
				for i := 0; i < 50; i++ {
					agg.Notify(id, "")
				}
			}(id)
		}
	}
	close(start)
	wg.Wait()

	assert.True(t, agg.IsAllMet())
	assert.Equal(t, logic.ConditionCount, agg.MetCount())
	assert.Equal(t, int32(logic.ConditionCount), metEvents.Load())
	assert.Equal(t, int32(1), unlocks.Load())
}

func TestAggregatorReset(t *testing.T) {
	var unlocks int
	agg := NewAggregator("first", nil, Hooks{OnUnlock: func(logic.Event) { unlocks++ }})
	for _, id := range logic.Conditions {
		agg.Notify(id, "")
	}
	require.True(t, agg.IsAllMet())

	agg.Reset("second")

	assert.False(t, agg.IsAllMet())
	assert.Equal(t, 0, agg.MetCount())
	assert.Equal(t, "second", agg.Session())
	for _, id := range logic.Conditions {
		assert.False(t, agg.IsMet(id))
		assert.True(t, agg.MetAt(id).IsZero())
	}

	// A new session can unlock again
	for _, id := range logic.Conditions {
		agg.Notify(id, "")
	}
	assert.Equal(t, 2, unlocks)
}
