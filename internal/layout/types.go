package layout

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Pin identifies a single electrode. Pins are unique across a board.
type Pin int

// Point is a position in board coordinates.
//
// On the wire a point is either a two-element array [x, y] (the form used
// by device board files) or an object {"x": .., "y": ..}.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// UnmarshalJSON accepts both the array and the object encoding.
func (p *Point) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var xy []float64
		if err := json.Unmarshal(data, &xy); err != nil {
			return err
		}
		if len(xy) != 2 {
			return fmt.Errorf("%w: point has %d coordinates", ErrInvalidDefinition, len(xy))
		}
		p.X, p.Y = xy[0], xy[1]
		return nil
	}
	type plain Point
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Point(v)
	return nil
}

// Grid is a regular rectangular lattice of electrodes.
// Pins[row][col] is nil where the cell has no electrode.
type Grid struct {
	Origin Point    `json:"origin"`
	Pitch  float64  `json:"pitch"`
	Pins   [][]*Pin `json:"pins"`
}

// Electrode is a single free-form electrode of a peripheral.
type Electrode struct {
	Pin     Pin     `json:"pin"`
	Origin  Point   `json:"origin"`
	Polygon []Point `json:"polygon"`
}

// Peripheral is an irregular electrode group, such as a sample inlet.
type Peripheral struct {
	Origin     Point       `json:"origin"`
	Rotation   *float64    `json:"rotation,omitempty"`
	Electrodes []Electrode `json:"electrodes"`
}

// Definition is the decoded board layout as delivered by the device.
type Definition struct {
	Grids       []Grid       `json:"grids"`
	Peripherals []Peripheral `json:"peripherals"`
}

// UnmarshalJSON decodes a definition. Besides the multi-grid form it accepts
// the single-grid board file form {"grid": [[...]], "extra": [...]}, which
// maps to one grid at the origin with unit pitch.
func (d *Definition) UnmarshalJSON(data []byte) error {
	var raw struct {
		Grids []struct {
			Origin Point    `json:"origin"`
			Pitch  *float64 `json:"pitch"`
			Pins   [][]*Pin `json:"pins"`
		} `json:"grids"`
		Peripherals []Peripheral `json:"peripherals"`
		Grid        [][]*Pin     `json:"grid"`
		Extra       []Peripheral `json:"extra"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}

	d.Grids = nil
	if raw.Grid != nil {
		d.Grids = append(d.Grids, Grid{Pitch: 1, Pins: raw.Grid})
	}
	// A missing pitch means unit pitch; an explicit one is kept for Validate.
	for _, g := range raw.Grids {
		pitch := 1.0
		if g.Pitch != nil {
			pitch = *g.Pitch
		}
		d.Grids = append(d.Grids, Grid{Origin: g.Origin, Pitch: pitch, Pins: g.Pins})
	}
	d.Peripherals = append(raw.Peripherals, raw.Extra...)
	return nil
}

// minPolygonPoints is the fewest points that enclose an area.
const minPolygonPoints = 3

// Validate checks structural invariants that New relies on: positive pitch,
// globally unique pins and peripheral polygons with an area.
func (d Definition) Validate() error {
	seen := make(map[Pin]struct{})
	check := func(p Pin) error {
		if _, dup := seen[p]; dup {
			return fmt.Errorf("%w: %d", ErrDuplicatePin, p)
		}
		seen[p] = struct{}{}
		return nil
	}

	for gi, g := range d.Grids {
		if g.Pitch <= 0 {
			return fmt.Errorf("%w: grid %d has pitch %v", ErrInvalidPitch, gi, g.Pitch)
		}
		for _, row := range g.Pins {
			for _, p := range row {
				if p == nil {
					continue
				}
				if err := check(*p); err != nil {
					return err
				}
			}
		}
	}
	for _, per := range d.Peripherals {
		for _, e := range per.Electrodes {
			if err := check(e.Pin); err != nil {
				return err
			}
			if len(e.Polygon) < minPolygonPoints {
				return fmt.Errorf("%w: pin %d has %d points", ErrInvalidPolygon, e.Pin, len(e.Polygon))
			}
		}
	}
	return nil
}

// Polygon is an electrode outline in board coordinates. Points are closed:
// the first point is repeated at the end.
type Polygon struct {
	Pin    Pin     `json:"pin"`
	Points []Point `json:"points"`
}

// Extent is the axis-aligned bounding box of a layout.
type Extent struct {
	MinX float64 `json:"minX"`
	MaxX float64 `json:"maxX"`
	MinY float64 `json:"minY"`
	MaxY float64 `json:"maxY"`
}

// Width returns MaxX-MinX.
func (e Extent) Width() float64 { return e.MaxX - e.MinX }

// Height returns MaxY-MinY.
func (e Extent) Height() float64 { return e.MaxY - e.MinY }

// Position is a cell coordinate within a grid.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Location is where a pin sits in the grid lattice.
type Location struct {
	Position  Position `json:"position"`
	GridIndex int      `json:"gridIndex"`
}

// PinPtr returns a pointer to p. It is a convenience for building grids.
func PinPtr(p Pin) *Pin { return &p }

// Row builds a grid row; negative values mark empty cells.
func Row(pins ...int) []*Pin {
	row := make([]*Pin, len(pins))
	for i, p := range pins {
		if p >= 0 {
			row[i] = PinPtr(Pin(p))
		}
	}
	return row
}
