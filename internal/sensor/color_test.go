package sensor

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sweeney/unlock-gate/internal/logic"
	"github.com/sweeney/unlock-gate/internal/metrics"
)

// blackOnWhite is 50% black, 10% bright at stride 4.
func blackOnWhite() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			c := color.RGBA{60, 60, 60, 255}
			if x < 20 {
				c = color.RGBA{0, 0, 0, 255}
			} else if x < 24 {
				c = color.RGBA{255, 255, 255, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func grayFrame() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 128, 128, 128, 255
	}
	return img
}

type confirmations struct {
	mu sync.Mutex
	vs []logic.Verdict
}

func (c *confirmations) add(v logic.Verdict) {
	c.mu.Lock()
	c.vs = append(c.vs, v)
	c.mu.Unlock()
}

func (c *confirmations) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.vs)
}

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func setupDetector(t *testing.T) (*ColorDetector, *confirmations, *stepClock, *metrics.Metrics) {
	t.Helper()
	conf := &confirmations{}
	clock := &stepClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	m := metrics.New()
	d := NewColorDetector(logic.DefaultThresholds(), conf.add, clock.Now, zap.NewNop(), m)
	t.Cleanup(d.Stop)
	return d, conf, clock, m
}

// submitAndWait submits one frame and waits until the worker classified it.
func submitAndWait(t *testing.T, d *ColorDetector, m *metrics.Metrics, img image.Image) {
	t.Helper()
	before := m.FramesClassified.Load()
	require.True(t, d.Submit(img))
	require.Eventually(t, func() bool { return m.FramesClassified.Load() > before },
		time.Second, time.Millisecond)
}

func TestColorDetectorConfirmsAfterFourFrames(t *testing.T) {
	d, conf, clock, m := setupDetector(t)
	d.Start(context.Background())

	for i := 0; i < 3; i++ {
		submitAndWait(t, d, m, blackOnWhite())
		clock.Advance(time.Second)
	}
	assert.Equal(t, 0, conf.len())

	submitAndWait(t, d, m, blackOnWhite())
	require.Eventually(t, func() bool { return conf.len() == 1 }, time.Second, time.Millisecond)

	st := d.Stats()
	assert.True(t, st.Running)
	assert.Equal(t, 1, st.Confirmations)
	assert.Equal(t, 4, st.Hysteresis.PositiveStreak)
	require.NotNil(t, st.Last)
	assert.True(t, st.Last.IsBlack)
	assert.Equal(t, uint64(4), m.FramesBlack.Load())
	assert.Equal(t, uint64(1), m.ColorConfirmations.Load())

	// Within cooldown: no second confirmation
	clock.Advance(time.Second)
	submitAndWait(t, d, m, blackOnWhite())
	assert.Equal(t, 1, conf.len())
}

func TestColorDetectorGrayNeverConfirms(t *testing.T) {
	d, conf, clock, m := setupDetector(t)
	d.Start(context.Background())

	for i := 0; i < 6; i++ {
		submitAndWait(t, d, m, grayFrame())
		clock.Advance(time.Second)
	}
	assert.Equal(t, 0, conf.len())
	assert.Equal(t, 6, d.Stats().Hysteresis.NegativeStreak)
}

func TestColorDetectorEncodedFrames(t *testing.T) {
	d, conf, _, m := setupDetector(t)
	d.Start(context.Background())

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, blackOnWhite()))

	before := m.FramesClassified.Load()
	require.True(t, d.SubmitEncoded([]byte("not an image")))
	require.Eventually(t, func() bool { return m.DecodeErrors.Load() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, before, m.FramesClassified.Load())

	for i := 0; i < 4; i++ {
		before := m.FramesClassified.Load()
		require.True(t, d.SubmitEncoded(buf.Bytes()))
		require.Eventually(t, func() bool { return m.FramesClassified.Load() > before }, time.Second, time.Millisecond)
	}
	require.Eventually(t, func() bool { return conf.len() == 1 }, time.Second, time.Millisecond)
}

func TestColorDetectorLatestFrameWins(t *testing.T) {
	d, _, _, m := setupDetector(t)
	// Mark running without a worker so the slot is never consumed.
	d.running.Store(true)
	defer d.running.Store(false)

	first, second, third := grayFrame(), grayFrame(), blackOnWhite()
	assert.True(t, d.Submit(first))
	assert.True(t, d.Submit(second))
	assert.True(t, d.Submit(third))

	assert.Equal(t, uint64(3), m.FramesSubmitted.Load())
	assert.Equal(t, uint64(2), m.FramesDropped.Load())
	require.Len(t, d.slot, 1)
	f := <-d.slot
	assert.Same(t, third, f.img)
}

func TestColorDetectorSubmitWhenStopped(t *testing.T) {
	d, _, _, m := setupDetector(t)
	assert.False(t, d.Submit(grayFrame()))
	assert.False(t, d.SubmitEncoded([]byte{1}))
	assert.Equal(t, uint64(0), m.FramesSubmitted.Load())
}

func TestColorDetectorStartStopReentrant(t *testing.T) {
	d, conf, clock, m := setupDetector(t)

	d.Stop() // stop when never started
	d.Start(context.Background())
	d.Start(context.Background()) // second start is a no-op
	assert.True(t, d.Running())

	for i := 0; i < 3; i++ {
		submitAndWait(t, d, m, blackOnWhite())
		clock.Advance(time.Second)
	}
	assert.Equal(t, 3, d.Stats().Hysteresis.PositiveStreak)

	d.Stop()
	d.Stop()
	assert.False(t, d.Running())
	assert.False(t, d.Stats().Running)
	assert.Equal(t, 0, d.Stats().Hysteresis.PositiveStreak)

	// Streaks start over after restart: 3 more frames are not enough
	d.Start(context.Background())
	for i := 0; i < 3; i++ {
		submitAndWait(t, d, m, blackOnWhite())
		clock.Advance(time.Second)
	}
	assert.Equal(t, 0, conf.len())
	submitAndWait(t, d, m, blackOnWhite())
	require.Eventually(t, func() bool { return conf.len() == 1 }, time.Second, time.Millisecond)
}

func TestColorDetectorParentContextCancel(t *testing.T) {
	d, _, _, _ := setupDetector(t)
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	cancel()

	// Stop still returns once the worker has exited on its own
	done := make(chan struct{})
	go func() {
		d.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestColorDetectorRestartAfterParentCancel(t *testing.T) {
	d, _, _, m := setupDetector(t)
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	cancel()

	require.Eventually(t, func() bool { return !d.Running() }, time.Second, time.Millisecond)
	assert.False(t, d.Stats().Running)
	assert.False(t, d.Submit(grayFrame()), "stopped worker must refuse frames")

	d.Start(context.Background())
	require.True(t, d.Running())
	assert.True(t, d.Stats().Running)
	submitAndWait(t, d, m, blackOnWhite())
	assert.Equal(t, uint64(1), m.FramesClassified.Load())
}

func TestColorDetectorStartRightAfterParentCancel(t *testing.T) {
	d, _, _, m := setupDetector(t)
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	cancel()
	// no wait: the cancelled worker is replaced even if it has not exited yet
	d.Start(context.Background())
	require.True(t, d.Running())
	submitAndWait(t, d, m, blackOnWhite())
}
