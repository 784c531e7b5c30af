package scoring

import "errors"

// Sentinel kinds for scoring errors.
var (
	ErrEmptyBundle = errors.New("bundle has no source records")
)
