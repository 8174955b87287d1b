package stream

import "errors"

var (
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("stream: closed")

	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("stream: already started")

	// ErrDial wraps transport dial failures.
	ErrDial = errors.New("stream: dial failed")
)
