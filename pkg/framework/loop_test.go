package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingController struct {
	name  string
	trace *[]string
	err   error
}

func (c *recordingController) Control(cc ControlContext) error {
	*c.trace = append(*c.trace, c.name)
	return c.err
}

func TestLoopStepRunsControllersInPriorityOrder(t *testing.T) {
	var trace []string
	loop := NewLoop()
	loop.AddController(PrLvAcuate, &recordingController{name: "acuate", trace: &trace})
	loop.AddController(PrLvSense, &recordingController{name: "sense", trace: &trace})
	loop.AddController(PrLvControl,
		&recordingController{name: "control1", trace: &trace, err: errors.New("ignored")},
		&recordingController{name: "control2", trace: &trace})

	loop.Step(context.Background())
	assert.Equal(t, []string{"sense", "control1", "control2", "acuate"}, trace)

	loop.Step(context.Background())
	assert.Len(t, trace, 8)
}

func TestLoopStepMessagesFlowWithinIteration(t *testing.T) {
	var received []Message
	var leftover int
	loop := NewLoop()
	loop.AddController(PrLvSense, ControlFunc(func(cc ControlContext) error {
		cc.Messages().AddMessages("a", 1, "b")
		return nil
	}))
	loop.AddController(PrLvControl, ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mctx MessageProcessingContext) {
			if s, ok := mctx.CurrentMessage().(string); ok {
				mctx.MessageTaken()
				received = append(received, s)
			}
		}))
		return nil
	}))
	loop.AddController(PrLvAcuate, ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mctx MessageProcessingContext) {
			leftover++
		}))
		return nil
	}))

	loop.Step(context.Background())
	assert.Equal(t, []Message{"a", "b"}, received)
	assert.Equal(t, 1, leftover)

	// messages never leak into the next iteration.
	received, leftover = nil, 0
	loop.controllers[PrLvSense] = nil
	loop.Step(context.Background())
	assert.Empty(t, received)
	assert.Zero(t, leftover)
}

func TestLoopStopProcessing(t *testing.T) {
	var seen int
	loop := NewLoop()
	loop.AddController(PrLvSense, ControlFunc(func(cc ControlContext) error {
		cc.Messages().AddMessages(1, 2, 3)
		return nil
	}))
	loop.AddController(PrLvControl, ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mctx MessageProcessingContext) {
			seen++
			mctx.MessageTaken()
			mctx.StopProcessing()
		}))
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mctx MessageProcessingContext) {
			seen += 10
		}))
		return nil
	}))
	loop.Step(context.Background())
	assert.Equal(t, 21, seen)
}

func TestLoopRunTicksWithClock(t *testing.T) {
	clk := clockwork.NewFakeClock()
	loop := NewLoop()
	loop.Clock = clk
	ticks := make(chan time.Time, 10)
	loop.AddController(PrLvControl, ControlFunc(func(cc ControlContext) error {
		ticks <- cc.Time()
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second)
	defer waitCancel()
	require.NoError(t, clk.BlockUntilContext(waitCtx, 1))

	clk.Advance(DefaultInterval)
	select {
	case <-ticks:
	case <-time.After(time.Second):
		t.Fatal("no iteration after one interval")
	}

	cancel()
	select {
	case err := <-done:
		assert.Equal(t, context.Canceled, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	assert.NoError(t, errs.Add(nil).Aggregate())
	errs.Add(errors.New("one"))
	assert.EqualError(t, errs.Aggregate(), "one")
	errs.Add(errors.New("two"), nil)
	assert.EqualError(t, errs.Aggregate(), "Multiple errors:\none\ntwo")
}
