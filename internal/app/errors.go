package service

import "errors"

// Sentinel kinds for query and lifecycle errors.
var (
	ErrModelNotFound   = errors.New("model not found")
	ErrUnknownCategory = errors.New("unknown category")
	ErrInvalidLimit    = errors.New("invalid limit")
	ErrInvalidSchedule = errors.New("invalid consolidation schedule")
	ErrPassAborted     = errors.New("consolidation pass aborted")
	ErrNoScores        = errors.New("no category could be scored")
)
