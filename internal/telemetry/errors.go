package telemetry

import "errors"

var (
	// ErrDecode is returned when a frame cannot be parsed.
	ErrDecode = errors.New("telemetry: decode failed")

	// ErrUnsupportedKind is returned for well-formed frames carrying a
	// payload outside the supported event set.
	ErrUnsupportedKind = errors.New("telemetry: unsupported event kind")

	// ErrInvalidEvent is returned when an Event's payload does not match its Kind.
	ErrInvalidEvent = errors.New("telemetry: invalid event")
)
