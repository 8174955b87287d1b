package rpc

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport is returned when the HTTP request itself fails.
	ErrTransport = errors.New("rpc: transport failed")

	// ErrStatus is returned for non-2xx HTTP responses.
	ErrStatus = errors.New("rpc: unexpected status")

	// ErrMalformedResponse is returned when the response is not valid JSON-RPC.
	ErrMalformedResponse = errors.New("rpc: malformed response")
)

// RemoteError is a JSON-RPC error object returned by the device.
type RemoteError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Method  string `json:"-"`
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("rpc: %s failed: %s (code %d)", e.Method, e.Message, e.Code)
}
