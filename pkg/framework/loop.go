package framework

import (
	"context"
	"time"

	"github.com/golang/glog"
	"github.com/jonboulle/clockwork"
)

// DefaultInterval is the tick period used when Loop.Interval is zero.
const DefaultInterval = 100 * time.Millisecond

// Loop is a cooperative scheduler: once per Interval it runs every
// registered controller in priority order on a single goroutine.
type Loop struct {
	Interval time.Duration
	Clock    clockwork.Clock

	controllers [PriorityLevels][]Controller
	runners     []Runnable
}

// LoopAdder provides specific logic to add components to loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}

type loopIteration struct {
	ctx           context.Context
	time          time.Time
	priorityLevel int
	messages      []Message
}

// NewLoop creates a Loop.
func NewLoop() *Loop {
	return &Loop{Interval: DefaultInterval, Clock: clockwork.NewRealClock()}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddController registers controllers to the loop.
func (l *Loop) AddController(priorityLevel int, ctls ...Controller) *Loop {
	l.controllers[priorityLevel] = append(l.controllers[priorityLevel], ctls...)
	for _, ctl := range ctls {
		if runner, ok := ctl.(Runnable); ok {
			l.runners = append(l.runners, runner)
		}
	}
	return l
}

// AddRunnable adds Runnable implementions.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

// Run implements Runnable.
func (l *Loop) Run(ctx context.Context) error {
	runner := NewRunnerWith(ctx)
	runner.Go(l.runners...)
	defer func() {
		if err := runner.Wait(); err != nil {
			glog.Errorf("loop runners: %v", err)
		}
	}()

	ticker := l.clock().NewTicker(l.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			l.Step(ctx)
		}
	}
}

// RunOrFail is intended to be used in main to simply run the loop.
func (l *Loop) RunOrFail(ctx context.Context) {
	if err := l.Run(ctx); err != nil && err != context.Canceled {
		glog.Fatalln(err)
	}
}

// Step runs exactly one iteration synchronously. Run calls it once per
// tick; tests call it directly.
func (l *Loop) Step(ctx context.Context) {
	iter := &loopIteration{time: l.clock().Now(), ctx: ctx}
	for i := 0; i < PriorityLevels; i++ {
		iter.priorityLevel = i
		for _, ctl := range l.controllers[i] {
			if err := ctl.Control(iter); err != nil {
				glog.Errorf("controller error: %v", err)
			}
		}
	}
}

func (l *Loop) clock() clockwork.Clock {
	if l.Clock == nil {
		l.Clock = clockwork.NewRealClock()
	}
	return l.Clock
}

func (l *Loop) interval() time.Duration {
	if l.Interval <= 0 {
		return DefaultInterval
	}
	return l.Interval
}

func (t *loopIteration) Context() context.Context {
	return t.ctx
}

func (t *loopIteration) Time() time.Time {
	return t.time
}

func (t *loopIteration) PriorityLevel() int {
	return t.priorityLevel
}

func (t *loopIteration) Messages() MessageStore {
	return t
}

type messageContext struct {
	msg   Message
	taken bool
	stop  bool
}

func (c *messageContext) CurrentMessage() Message { return c.msg }
func (c *messageContext) MessageTaken()           { c.taken = true }
func (c *messageContext) StopProcessing()         { c.stop = true }

func (t *loopIteration) ProcessMessages(proc MessageProcessor) {
	msgs := t.messages
	t.messages = nil
	remains := make([]Message, 0, len(msgs))
	for n, msg := range msgs {
		mctx := &messageContext{msg: msg}
		proc.ProcessMessage(mctx)
		if !mctx.taken {
			remains = append(remains, msg)
		}
		if mctx.stop {
			remains = append(remains, msgs[n+1:]...)
			break
		}
	}
	t.messages = append(remains, t.messages...)
}

func (t *loopIteration) AddMessages(msgs ...Message) {
	t.messages = append(t.messages, msgs...)
}
