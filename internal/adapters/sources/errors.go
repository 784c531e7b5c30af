package sources

import "errors"

// Sentinel kinds for source failures. Callers absorb them as reduced coverage.
var (
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrMalformedPayload  = errors.New("malformed source payload")
	ErrUpstreamStatus    = errors.New("unexpected upstream status")
)
