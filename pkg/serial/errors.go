package serial

import "errors"

var (
	// ErrQueueClosed indicates the line reader has stopped.
	ErrQueueClosed = errors.New("line queue closed")
)
