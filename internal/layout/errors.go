package layout

import "errors"

// Domain errors for the layout package.
var (
	// ErrEmptyLayout is returned by extent queries on a layout with no electrodes.
	ErrEmptyLayout = errors.New("layout: no electrodes")

	// ErrInvalidDefinition is returned when a board definition cannot be decoded.
	ErrInvalidDefinition = errors.New("layout: invalid definition")

	// ErrDuplicatePin is returned by Validate when a pin appears more than once.
	ErrDuplicatePin = errors.New("layout: duplicate pin")

	// ErrInvalidPitch is returned by Validate when a grid pitch is not positive.
	ErrInvalidPitch = errors.New("layout: invalid pitch")

	// ErrInvalidPolygon is returned by Validate when a peripheral electrode
	// has fewer than three polygon points.
	ErrInvalidPolygon = errors.New("layout: invalid polygon")
)
