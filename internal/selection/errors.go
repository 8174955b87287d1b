package selection

import "errors"

var (
	// ErrUnknownKey is returned by ParseKey for keys the controller ignores.
	ErrUnknownKey = errors.New("selection: unknown key")

	// ErrNoLayout is returned when an operation needs a layout and none is set.
	ErrNoLayout = errors.New("selection: no layout")
)
