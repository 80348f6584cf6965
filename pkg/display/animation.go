package display

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3/gpio"
)

// DefaultOn is how long the output of a step stays lit.
const DefaultOn = 100 * time.Millisecond

// Step is one entry of an animation table: the output to light and the
// pause after it has been switched off again.
type Step struct {
	Output gpio.PinOut
	Hold   time.Duration
}

// Animation lights the outputs of a fixed table one at a time, wrapping
// around after the last step.
type Animation struct {
	Steps []Step
	// Banks are cleared before each step.
	Banks []Bank
	On    time.Duration
	Clock clockwork.Clock

	next int
}

// NewAnimation creates an Animation with the default on time.
func NewAnimation(steps []Step, banks ...Bank) *Animation {
	return &Animation{
		Steps: steps,
		Banks: banks,
		On:    DefaultOn,
		Clock: clockwork.NewRealClock(),
	}
}

// Next returns the index of the step played by the next Advance.
func (a *Animation) Next() int {
	return a.next
}

// Advance plays the step under the cursor and moves the cursor on. If ctx
// is cancelled while the step is lit, all banks are cleared and the cursor
// stays where it was.
func (a *Animation) Advance(ctx context.Context) error {
	if len(a.Steps) == 0 {
		return nil
	}
	step := a.Steps[a.next]
	if err := Clear(a.Banks...); err != nil {
		return err
	}
	if err := drive(step.Output, gpio.High); err != nil {
		return err
	}
	if err := a.hold(ctx, a.on()); err != nil {
		drive(step.Output, gpio.Low)
		Clear(a.Banks...)
		return err
	}
	if err := drive(step.Output, gpio.Low); err != nil {
		return err
	}
	if err := a.hold(ctx, step.Hold); err != nil {
		return err
	}
	a.next = (a.next + 1) % len(a.Steps)
	return nil
}

// Play runs the animation until the end of the current cycle.
func (a *Animation) Play(ctx context.Context) error {
	for remains := len(a.Steps) - a.next; remains > 0; remains-- {
		if err := a.Advance(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Duration returns how long one full cycle takes.
func (a *Animation) Duration() (d time.Duration) {
	for _, step := range a.Steps {
		d += a.on() + step.Hold
	}
	return
}

func (a *Animation) on() time.Duration {
	if a.On <= 0 {
		return DefaultOn
	}
	return a.On
}

func (a *Animation) hold(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	clock := a.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-clock.After(d):
		return nil
	}
}
