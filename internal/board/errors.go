package board

import "errors"

var (
	// ErrDecode is returned when a board document cannot be decoded.
	ErrDecode = errors.New("board: decode failed")

	// ErrNoSource is returned when neither a file nor a device is available.
	ErrNoSource = errors.New("board: no definition source")
)
