package dashboard

import "errors"

var (
	// ErrNoDevice is returned by command methods when no device is attached.
	ErrNoDevice = errors.New("dashboard: no device command channel")

	errRelayFull = errors.New("dashboard: relay queue full")
)
