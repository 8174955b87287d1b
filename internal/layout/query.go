package layout

// PinAtPos returns the pin at cell (x, y) of grid gridIndex. Only that grid
// is searched. Out-of-range indices and empty cells report false.
func (l *Layout) PinAtPos(x, y, gridIndex int) (Pin, bool) {
	if gridIndex < 0 || gridIndex >= len(l.grids) {
		return 0, false
	}
	pins := l.grids[gridIndex].Pins
	if y < 0 || y >= len(pins) {
		return 0, false
	}
	row := pins[y]
	if x < 0 || x >= len(row) || row[x] == nil {
		return 0, false
	}
	return *row[x], true
}

// FindPinLocation scans the grids in order for pin.
// Peripheral pins are never found.
func (l *Layout) FindPinLocation(pin Pin) (Location, bool) {
	for gi, g := range l.grids {
		for y, row := range g.Pins {
			for x, p := range row {
				if p != nil && *p == pin {
					return Location{Position: Position{X: x, Y: y}, GridIndex: gi}, true
				}
			}
		}
	}
	return Location{}, false
}

// BrushPins returns the pins covered by a w by h brush whose top-left cell
// is pin. Empty cells are dropped. The result is empty when pin has no grid
// location; callers that must never deselect the origin use BrushOrSelf.
func (l *Layout) BrushPins(pin Pin, w, h int) []Pin {
	loc, ok := l.FindPinLocation(pin)
	if !ok {
		return nil
	}
	var out []Pin
	for dx := 0; dx < w; dx++ {
		for dy := 0; dy < h; dy++ {
			if p, ok := l.PinAtPos(loc.Position.X+dx, loc.Position.Y+dy, loc.GridIndex); ok {
				out = append(out, p)
			}
		}
	}
	return out
}

// BrushOrSelf is BrushPins with a fallback to []Pin{pin} when the brush
// resolves to nothing.
func (l *Layout) BrushOrSelf(pin Pin, w, h int) []Pin {
	if pins := l.BrushPins(pin, w, h); len(pins) > 0 {
		return pins
	}
	return []Pin{pin}
}

// Contains returns the pin whose polygon contains (x, y), searching grids
// and peripherals. When polygons overlap the last one in Polygons order wins,
// matching paint order.
func (l *Layout) Contains(x, y float64) (Pin, bool) {
	polys := l.Polygons()
	for i := len(polys) - 1; i >= 0; i-- {
		if pointInPolygon(x, y, polys[i].Points) {
			return polys[i].Pin, true
		}
	}
	return 0, false
}

// pointInPolygon is the even-odd ray casting test.
func pointInPolygon(x, y float64, pts []Point) bool {
	in := false
	n := len(pts)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := pts[i], pts[j]
		if (pi.Y > y) != (pj.Y > y) &&
			x < (pj.X-pi.X)*(y-pi.Y)/(pj.Y-pi.Y)+pi.X {
			in = !in
		}
	}
	return in
}
