package probe

import "errors"

// Sentinel kinds for probe failures.
var (
	ErrUnhealthy        = errors.New("service unhealthy")
	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrPassTimeout      = errors.New("no new pass published in time")
	ErrVerification     = errors.New("verification failed")
)
