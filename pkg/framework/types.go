package framework

import (
	"context"
	"time"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// Message is anything handed from one controller to another
// within a single iteration.
type Message interface{}

// Controller defines the abstract controlling logic.
type Controller interface {
	Control(ControlContext) error
}

// TimeSource provides the time for controlling logic.
type TimeSource interface {
	Time() time.Time
}

// ControlContext provides the context of current control
// iteration.
type ControlContext interface {
	TimeSource
	// Context retrieves context.Context.
	Context() context.Context
	// PriorityLevel gets the current priority level.
	PriorityLevel() int
	// Messages retrieves the messages produced during
	// this iteration.
	Messages() MessageStore
}

// PriorityLevels is the total levels of priorities.
const PriorityLevels int = 16

// Predefine priority levels
const (
	PrLvTop    int = 0
	PrLvHigh   int = 4
	PrLvNormal int = 8
	PrLvLow    int = 12
	PrLvIdle   int = PriorityLevels - 1

	// PrLvSense is the alias of priority level for sensors.
	PrLvSense = PrLvHigh
	// PrLvControl is the alias of priority level for controllers.
	PrLvControl = PrLvNormal
	// PrLvAcuate is the alias of priority level for acuators.
	PrLvAcuate = PrLvLow
)

// MessageStore provides read/write access to a list of messages.
type MessageStore interface {
	// ProcessMessages uses a processor to process all messages.
	ProcessMessages(MessageProcessor)

	MessageAppender
}

// MessageAppender appends message to store.
type MessageAppender interface {
	// AddMessages appends messages for controllers at later
	// priority levels in the same iteration.
	AddMessages(msgs ...Message)
}

// MessageProcessor is used by MessageStore to process messages.
type MessageProcessor interface {
	ProcessMessage(MessageProcessingContext)
}

// ProcessMessageFunc is the func form of MessageProcessor.
type ProcessMessageFunc func(MessageProcessingContext)

// ProcessMessage implements MessageProcessor.
func (f ProcessMessageFunc) ProcessMessage(mc MessageProcessingContext) {
	f(mc)
}

// MessageProcessingContext provides context for current message.
type MessageProcessingContext interface {
	// CurrentMessage gets the current message being processed.
	CurrentMessage() Message
	// MessageTaken indicates the message has been processed and
	// should be removed from store.
	MessageTaken()
	// StopProcessing indicates no need to examine further messages.
	StopProcessing()
}

// ControlFunc defines the func form of Controller.
type ControlFunc func(ControlContext) error

// Control implements Controller.
func (f ControlFunc) Control(ctx ControlContext) error {
	return f(ctx)
}
