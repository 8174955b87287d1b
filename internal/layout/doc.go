// Package layout provides the board geometry engine for dropdash.
//
// A board is an ordered list of rectangular pin grids plus an ordered list
// of peripherals (irregular electrode groups described by explicit
// polygons). A Layout is built once from a Definition and never mutated:
// a changed board definition always produces a new Layout.
//
// # Coordinate System
//
// All derived geometry is expressed in board coordinates. A grid cell at
// (col, row) covers the square
//
//	[col*pitch+originX, col*pitch+originX+pitch] x [row*pitch+originY, row*pitch+originY+pitch]
//
// Peripheral electrodes are translated by peripheral.Origin+electrode.Origin
// and then rotated about peripheral.Origin by the peripheral's Rotation.
//
// # Derived State
//
// The polygon list, per-pin area map and bounding extent are computed
// lazily on first use and cached for the lifetime of the Layout. They are
// safe for concurrent readers.
//
// # Scoping
//
// PinAtPos, FindPinLocation and BrushPins only consider grids. Peripheral
// pins have no lattice position, so brush expansion of a peripheral pin
// falls back to the pin itself and keyboard moves never involve them.
// Contains performs polygon hit-testing over every electrode, including
// peripherals.
package layout
