package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrQueueFull = errors.New("trigger queue full")
	ErrClosed    = errors.New("trigger queue closed")
)
