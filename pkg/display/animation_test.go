package display

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

// autoClock advances itself by whatever is waited for, so holds return
// immediately while the fake time still moves.
type autoClock struct {
	*clockwork.FakeClock
	waits   []time.Duration
	onAfter func(d time.Duration)
}

func newAutoClock() *autoClock {
	return &autoClock{FakeClock: clockwork.NewFakeClock()}
}

func (c *autoClock) After(d time.Duration) <-chan time.Time {
	c.waits = append(c.waits, d)
	if c.onAfter != nil {
		c.onAfter(d)
	}
	c.FakeClock.Advance(d)
	return c.FakeClock.After(0)
}

func testAnimation(clk clockwork.Clock) (*Animation, []*gpiotest.Pin, []*gpiotest.Pin) {
	hourPins, hours := testPins("h0", "h1")
	minutePins, minutes := testPins("m0", "m1", "m2")
	anim := NewAnimation([]Step{
		{Output: hours[1], Hold: 150 * time.Millisecond},
		{Output: minutes[0], Hold: 50 * time.Millisecond},
		{Output: minutes[2], Hold: 200 * time.Millisecond},
		{Output: hours[0], Hold: 50 * time.Millisecond},
	}, hours, minutes)
	anim.Clock = clk
	return anim, hourPins, minutePins
}

func litNames(pins ...[]*gpiotest.Pin) (names []string) {
	for _, group := range pins {
		for _, p := range group {
			if p.Read() == gpio.High {
				names = append(names, p.Name())
			}
		}
	}
	return
}

func TestAnimationAdvanceLightsOneStep(t *testing.T) {
	clk := newAutoClock()
	anim, hourPins, minutePins := testAnimation(clk)
	var lit [][]string
	clk.onAfter = func(time.Duration) {
		lit = append(lit, litNames(hourPins, minutePins))
	}

	require.NoError(t, anim.Advance(context.Background()))
	assert.Equal(t, []time.Duration{DefaultOn, 150 * time.Millisecond}, clk.waits)
	assert.Equal(t, [][]string{{"h1"}, nil}, lit)
	assert.Empty(t, litNames(hourPins, minutePins))
	assert.Equal(t, 1, anim.Next())
}

func TestAnimationClearsBanksBeforeStep(t *testing.T) {
	clk := newAutoClock()
	anim, hourPins, minutePins := testAnimation(clk)
	require.NoError(t, Render(3, anim.Banks[0]))
	require.NoError(t, Render(7, anim.Banks[1]))
	var lit []string
	clk.onAfter = func(d time.Duration) {
		if lit == nil {
			lit = litNames(hourPins, minutePins)
		}
	}
	require.NoError(t, anim.Advance(context.Background()))
	assert.Equal(t, []string{"h1"}, lit)
}

func TestAnimationPlayWrapsAround(t *testing.T) {
	clk := newAutoClock()
	anim, hourPins, minutePins := testAnimation(clk)
	var order []string
	clk.onAfter = func(d time.Duration) {
		if d == DefaultOn {
			order = append(order, litNames(hourPins, minutePins)...)
		}
	}
	start := clk.Now()

	require.NoError(t, anim.Play(context.Background()))
	assert.Equal(t, []string{"h1", "m0", "m2", "h0"}, order)
	assert.Equal(t, 0, anim.Next())
	assert.Equal(t, anim.Duration(), clk.Since(start))
	assert.Equal(t, 850*time.Millisecond, anim.Duration())

	require.NoError(t, anim.Advance(context.Background()))
	require.NoError(t, anim.Play(context.Background()))
	assert.Equal(t, []string{"h1", "m0", "m2", "h0", "h1", "m0", "m2", "h0"}, order)
}

func TestAnimationCancelLeavesOutputsLow(t *testing.T) {
	clk := clockwork.NewFakeClock()
	anim, hourPins, minutePins := testAnimation(clk)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- anim.Advance(ctx) }()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second)
	defer waitCancel()
	require.NoError(t, clk.BlockUntilContext(waitCtx, 1))
	cancel()

	select {
	case err := <-done:
		assert.Equal(t, context.Canceled, err)
	case <-time.After(time.Second):
		t.Fatal("animation did not stop")
	}
	assert.Empty(t, litNames(hourPins, minutePins))
	assert.Equal(t, 0, anim.Next())
}

func TestAnimationWithoutSteps(t *testing.T) {
	anim := NewAnimation(nil)
	assert.NoError(t, anim.Advance(context.Background()))
	assert.NoError(t, anim.Play(context.Background()))
	assert.Zero(t, anim.Duration())
}
