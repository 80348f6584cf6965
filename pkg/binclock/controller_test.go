package binclock

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"github.com/robotalks/binclock/pkg/board"
	"github.com/robotalks/binclock/pkg/display"
	fx "github.com/robotalks/binclock/pkg/framework"
	"github.com/robotalks/binclock/pkg/serial"
	"github.com/robotalks/binclock/pkg/timesync"
)

// autoClock advances itself by whatever is waited for.
type autoClock struct {
	*clockwork.FakeClock
}

func (c *autoClock) After(d time.Duration) <-chan time.Time {
	c.FakeClock.Advance(d)
	return c.FakeClock.After(0)
}

type testRig struct {
	clk     *autoClock
	ctl     *Controller
	loop    *fx.Loop
	lines   *serial.LineReader
	out     *bytes.Buffer
	pins    map[string]*gpiotest.Pin
	history []Status
}

func newTestRig(t *testing.T) *testRig {
	r := &testRig{
		clk:  &autoClock{FakeClock: clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC))},
		pins: make(map[string]*gpiotest.Pin),
		out:  &bytes.Buffer{},
	}
	b, err := board.Default().Open(func(name string) gpio.PinIO {
		p := &gpiotest.Pin{N: name}
		r.pins[name] = p
		return p
	})
	require.NoError(t, err)
	r.ctl = NewController(b, r.clk)
	r.lines = serial.NewLineReader(nil, 4)
	r.ctl.Lines = r.lines
	r.ctl.Console = serial.NewConsole(r.out)
	r.ctl.OnStatus = func(s Status) { r.history = append(r.history, s) }
	r.loop = fx.NewLoop()
	r.loop.Clock = r.clk
	r.loop.Add(r.ctl)
	return r
}

func (r *testRig) send(t *testing.T, lines ...string) {
	for _, line := range lines {
		require.NoError(t, r.lines.Inject(context.Background(), line))
	}
}

func (r *testRig) step() {
	r.loop.Step(context.Background())
}

func (r *testRig) bank(b display.Bank) (v uint) {
	for n, out := range b {
		if r.pins[out.Name()].Read() == gpio.High {
			v |= 1 << uint(n)
		}
	}
	return
}

func TestHour12(t *testing.T) {
	expected := []int{12, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
	for h, v := range expected {
		assert.Equal(t, v, Hour12(h), "hour %d", h)
	}
}

func TestGreet(t *testing.T) {
	r := newTestRig(t)
	require.NoError(t, r.ctl.Greet())
	assert.Equal(t, timesync.Banner+"\r\n", r.out.String())
}

func TestAnimatesUntilSynchronized(t *testing.T) {
	r := newTestRig(t)
	for i := 0; i < 12; i++ {
		r.step()
	}
	assert.Equal(t, ModeUnsynchronized, r.ctl.Mode())
	assert.Equal(t, 2, r.ctl.Animation.Next())
	assert.Zero(t, r.bank(r.ctl.Hours))
	assert.Zero(t, r.bank(r.ctl.Minutes))
	assert.Empty(t, r.out.String())
}

func TestSyncShowsBinaryTime(t *testing.T) {
	r := newTestRig(t)
	r.step()
	r.send(t, "1435\r")
	r.step()
	assert.Equal(t, ModeSynchronized, r.ctl.Mode())
	assert.Equal(t, "Time synchronized to: 14:35\r\n", r.out.String())
	assert.Equal(t, uint(2), r.bank(r.ctl.Hours))
	assert.Equal(t, uint(35), r.bank(r.ctl.Minutes))

	require.Len(t, r.history, 1)
	assert.True(t, r.history[0].Synchronized)
	assert.Equal(t, time.Date(2024, 5, 1, 14, 35, 0, 0, time.UTC), r.history[0].Time)

	// time keeps running.
	r.clk.Advance(30 * time.Minute)
	r.step()
	assert.Equal(t, uint(3), r.bank(r.ctl.Hours))
	assert.Equal(t, uint(5), r.bank(r.ctl.Minutes))
}

func TestMidnightAndNoonShowTwelve(t *testing.T) {
	for _, line := range []string{"0000", "1200"} {
		r := newTestRig(t)
		r.send(t, line)
		r.step()
		assert.Equal(t, uint(12), r.bank(r.ctl.Hours), line)
		assert.Zero(t, r.bank(r.ctl.Minutes), line)
	}
}

func TestInvalidLinesLeaveClockUnchanged(t *testing.T) {
	r := newTestRig(t)
	r.send(t, "abcd")
	r.step()
	r.send(t, "2560")
	r.step()
	assert.Equal(t, ModeUnsynchronized, r.ctl.Mode())
	assert.False(t, r.ctl.State.Synchronized())
	assert.Equal(t, timesync.MsgInvalidInput+"\r\n"+timesync.MsgInvalidTime+"\r\n", r.out.String())
	require.Len(t, r.history, 2)
	assert.Equal(t, timesync.MsgInvalidTime, r.history[1].Message)
	assert.False(t, r.history[1].Synchronized)
}

func TestSynchronizationIsPermanent(t *testing.T) {
	r := newTestRig(t)
	r.send(t, "0905")
	r.step()
	r.send(t, "9999")
	r.step()
	assert.Equal(t, ModeSynchronized, r.ctl.Mode())
	assert.Equal(t, uint(9), r.bank(r.ctl.Hours))
	assert.Equal(t, uint(5), r.bank(r.ctl.Minutes))
}

func TestOneLinePerTick(t *testing.T) {
	r := newTestRig(t)
	r.send(t, "0101", "0202", "0303")
	r.step()
	assert.Equal(t, 2, r.lines.Pending())
	assert.Equal(t, uint(1), r.bank(r.ctl.Minutes))
	r.step()
	r.step()
	assert.Zero(t, r.lines.Pending())
	assert.Equal(t, uint(3), r.bank(r.ctl.Hours))
	assert.Equal(t, uint(3), r.bank(r.ctl.Minutes))
}

func TestLenientParsing(t *testing.T) {
	r := newTestRig(t)
	r.ctl.Parser.Lenient = true
	r.send(t, "ab12")
	r.step()
	assert.Equal(t, "Time synchronized to: 00:12\r\n", r.out.String())
	assert.Equal(t, uint(12), r.bank(r.ctl.Hours))
	assert.Equal(t, uint(12), r.bank(r.ctl.Minutes))
}
