// Package binclock shows the time of day in binary on two LED banks once
// it has been synchronized over a line based console, and plays a loading
// animation until then.
package binclock

import (
	"context"
	"time"

	"github.com/golang/glog"
	"github.com/jonboulle/clockwork"

	"github.com/robotalks/binclock/pkg/board"
	"github.com/robotalks/binclock/pkg/clock"
	"github.com/robotalks/binclock/pkg/display"
	fx "github.com/robotalks/binclock/pkg/framework"
	"github.com/robotalks/binclock/pkg/timesync"
)

// Mode is the display mode.
type Mode int

// Modes.
const (
	ModeUnsynchronized Mode = iota
	ModeSynchronized
)

func (m Mode) String() string {
	if m == ModeSynchronized {
		return "synchronized"
	}
	return "unsynchronized"
}

// Hour12 converts an hour of day to the 12-hour dial, 1 to 12.
func Hour12(h int) int {
	if h %= 12; h == 0 {
		return 12
	}
	return h
}

// LineSource provides received lines without blocking.
type LineSource interface {
	TryReadLine() (string, bool)
}

// Printer writes console responses.
type Printer interface {
	Println(line string) error
}

// Line is the loop message carrying a received line.
type Line string

// Status describes the clock after a line has been processed.
type Status struct {
	Synchronized bool
	Time         time.Time
	Message      string
}

// Controller runs the clock on a Loop.
type Controller struct {
	Hours     display.Bank
	Minutes   display.Bank
	Animation *display.Animation
	State     *clock.State
	Parser    timesync.Parser
	Lines     LineSource
	Console   Printer
	// OnStatus is called after every processed line.
	OnStatus func(Status)

	mode Mode
}

// NewController creates a Controller on the outputs of a board.
func NewController(b *board.Board, clk clockwork.Clock) *Controller {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	anim := display.NewAnimation(b.Animation, b.Banks()...)
	anim.Clock = clk
	if b.On > 0 {
		anim.On = b.On
	}
	return &Controller{
		Hours:     b.Hours,
		Minutes:   b.Minutes,
		Animation: anim,
		State:     clock.NewState(clk),
	}
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode {
	return c.mode
}

// Greet prints the startup banner.
func (c *Controller) Greet() error {
	return c.println(timesync.Banner)
}

// Status returns the current status.
func (c *Controller) Status() Status {
	s := Status{Synchronized: c.State.Synchronized()}
	if s.Synchronized {
		s.Time = c.State.Now()
	}
	return s
}

// AddToLoop implements framework.LoopAdder.
func (c *Controller) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvSense, fx.ControlFunc(c.sense))
	loop.AddController(fx.PrLvControl, fx.ControlFunc(c.control))
	loop.AddController(fx.PrLvAcuate, fx.ControlFunc(c.actuate))
	if runner, ok := c.Lines.(fx.Runnable); ok {
		loop.AddRunnable(runner)
	}
}

func (c *Controller) sense(cc fx.ControlContext) error {
	if c.Lines == nil {
		return nil
	}
	if line, ok := c.Lines.TryReadLine(); ok {
		cc.Messages().AddMessages(Line(line))
	}
	return nil
}

func (c *Controller) control(cc fx.ControlContext) (err error) {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
		if line, ok := mctx.CurrentMessage().(Line); ok {
			mctx.MessageTaken()
			err = c.HandleLine(string(line))
		}
	}))
	return
}

// HandleLine parses a line and applies it. The response is printed on the
// console and the returned error only reports console failures.
func (c *Controller) HandleLine(line string) error {
	var msg string
	cmd, err := c.Parser.ParseLine(line)
	if err != nil {
		glog.Warningf("rejected %q: %v", line, err)
		msg = timesync.Diagnostic(err)
	} else {
		c.State.Apply(cmd)
		if c.mode != ModeSynchronized {
			glog.Infof("clock synchronized")
		}
		c.mode = ModeSynchronized
		msg = timesync.FormatSynchronized(cmd)
		glog.V(2).Infof("time set to %s", cmd)
	}
	if c.OnStatus != nil {
		s := c.Status()
		s.Message = msg
		c.OnStatus(s)
	}
	return c.println(msg)
}

func (c *Controller) actuate(cc fx.ControlContext) error {
	if c.mode == ModeSynchronized {
		now := c.State.Now()
		var errs fx.AggregatedError
		errs.Add(display.Render(uint(Hour12(now.Hour())), c.Hours))
		errs.Add(display.Render(uint(now.Minute()), c.Minutes))
		return errs.Aggregate()
	}
	if c.Animation == nil {
		return nil
	}
	err := c.Animation.Advance(cc.Context())
	if err == context.Canceled || err == context.DeadlineExceeded {
		return nil
	}
	return err
}

func (c *Controller) println(line string) error {
	if c.Console == nil {
		return nil
	}
	return c.Console.Println(line)
}
