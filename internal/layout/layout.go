package layout

import (
	"math"
	"sort"
	"sync"
)

// Layout is an immutable board geometry snapshot.
//
// Derived state is computed once on first access. Layout must not be
// copied after first use.
type Layout struct {
	grids       []Grid
	peripherals []Peripheral

	polyOnce sync.Once
	polygons []Polygon
	byPin    map[Pin]int

	areaOnce sync.Once
	areas    map[Pin]float64

	extentOnce sync.Once
	extent     Extent
	extentErr  error
}

// New builds a Layout from def. The definition's slices are deep-copied
// so later changes to def are not observed.
func New(def Definition) *Layout {
	l := &Layout{
		grids:       make([]Grid, len(def.Grids)),
		peripherals: make([]Peripheral, len(def.Peripherals)),
	}

	for i, g := range def.Grids {
		pins := make([][]*Pin, len(g.Pins))
		for r, row := range g.Pins {
			pins[r] = make([]*Pin, len(row))
			for c, p := range row {
				if p != nil {
					pins[r][c] = PinPtr(*p)
				}
			}
		}
		l.grids[i] = Grid{Origin: g.Origin, Pitch: g.Pitch, Pins: pins}
	}

	for i, per := range def.Peripherals {
		cp := Peripheral{Origin: per.Origin}
		if per.Rotation != nil {
			r := *per.Rotation
			cp.Rotation = &r
		}
		cp.Electrodes = make([]Electrode, len(per.Electrodes))
		for j, e := range per.Electrodes {
			cp.Electrodes[j] = Electrode{
				Pin:     e.Pin,
				Origin:  e.Origin,
				Polygon: append([]Point(nil), e.Polygon...),
			}
		}
		l.peripherals[i] = cp
	}

	return l
}

// Grids returns the number of grids in the layout.
func (l *Layout) Grids() int { return len(l.grids) }

// Grid returns a copy of grid i.
func (l *Layout) Grid(i int) (Grid, bool) {
	if i < 0 || i >= len(l.grids) {
		return Grid{}, false
	}
	g := l.grids[i]
	pins := make([][]*Pin, len(g.Pins))
	for r, row := range g.Pins {
		pins[r] = append([]*Pin(nil), row...)
	}
	g.Pins = pins
	return g, true
}

// Polygons returns the electrode outlines in board coordinates: grid cells
// first in grid/row/column order, then peripheral electrodes. The returned
// slice is shared and must not be modified.
func (l *Layout) Polygons() []Polygon {
	l.polyOnce.Do(l.buildPolygons)
	return l.polygons
}

func (l *Layout) buildPolygons() {
	var polys []Polygon

	for _, g := range l.grids {
		for row, cells := range g.Pins {
			for col, p := range cells {
				if p == nil {
					continue
				}
				x := float64(col)*g.Pitch + g.Origin.X
				y := float64(row)*g.Pitch + g.Origin.Y
				polys = append(polys, Polygon{
					Pin: *p,
					Points: []Point{
						{x, y},
						{x + g.Pitch, y},
						{x + g.Pitch, y + g.Pitch},
						{x, y + g.Pitch},
						{x, y},
					},
				})
			}
		}
	}

	for _, per := range l.peripherals {
		for _, e := range per.Electrodes {
			ox := per.Origin.X + e.Origin.X
			oy := per.Origin.Y + e.Origin.Y
			pts := make([]Point, 0, len(e.Polygon)+1)
			for _, p := range e.Polygon {
				pts = append(pts, Point{p.X + ox, p.Y + oy})
			}
			if len(pts) > 0 && pts[0] != pts[len(pts)-1] {
				pts = append(pts, pts[0])
			}
			if per.Rotation != nil {
				pts = rotate(per.Origin, pts, *per.Rotation)
			}
			polys = append(polys, Polygon{Pin: e.Pin, Points: pts})
		}
	}

	l.byPin = make(map[Pin]int, len(polys))
	for i, p := range polys {
		l.byPin[p.Pin] = i
	}
	l.polygons = polys
}

func rotate(center Point, pts []Point, degrees float64) []Point {
	rad := degrees * math.Pi / 180
	s, c := math.Sin(rad), math.Cos(rad)
	out := make([]Point, len(pts))
	for i, p := range pts {
		x := p.X - center.X
		y := p.Y - center.Y
		out[i] = Point{
			X: c*x - s*y + center.X,
			Y: s*x + c*y + center.Y,
		}
	}
	return out
}

// PinPolygon returns the outline of pin.
func (l *Layout) PinPolygon(pin Pin) ([]Point, bool) {
	l.Polygons()
	i, ok := l.byPin[pin]
	if !ok {
		return nil, false
	}
	return l.polygons[i].Points, true
}

// Pins returns every pin in the layout in ascending order.
func (l *Layout) Pins() []Pin {
	polys := l.Polygons()
	pins := make([]Pin, len(polys))
	for i, p := range polys {
		pins[i] = p.Pin
	}
	sort.Slice(pins, func(i, j int) bool { return pins[i] < pins[j] })
	return pins
}

// ElectrodeCount returns the number of electrodes on the board.
func (l *Layout) ElectrodeCount() int {
	return len(l.Polygons())
}

// Extent returns the bounding box of every polygon point.
// It returns ErrEmptyLayout when the layout has no electrode points.
func (l *Layout) Extent() (Extent, error) {
	l.extentOnce.Do(func() {
		polys := l.Polygons()
		if len(polys) == 0 {
			l.extentErr = ErrEmptyLayout
			return
		}
		e := Extent{
			MinX: math.Inf(1), MinY: math.Inf(1),
			MaxX: math.Inf(-1), MaxY: math.Inf(-1),
		}
		points := 0
		for _, poly := range polys {
			points += len(poly.Points)
			for _, p := range poly.Points {
				e.MinX = math.Min(e.MinX, p.X)
				e.MaxX = math.Max(e.MaxX, p.X)
				e.MinY = math.Min(e.MinY, p.Y)
				e.MaxY = math.Max(e.MaxY, p.Y)
			}
		}
		if points == 0 {
			l.extentErr = ErrEmptyLayout
			return
		}
		l.extent = e
	})
	return l.extent, l.extentErr
}

// PinArea returns the electrode area of pin: pitch squared for grid pins,
// the polygon area for peripheral pins, and 0 for unknown pins.
func (l *Layout) PinArea(pin Pin) float64 {
	l.areaOnce.Do(l.buildAreas)
	return l.areas[pin]
}

// Areas returns a copy of the pin to area map.
func (l *Layout) Areas() map[Pin]float64 {
	l.areaOnce.Do(l.buildAreas)
	out := make(map[Pin]float64, len(l.areas))
	for k, v := range l.areas {
		out[k] = v
	}
	return out
}

func (l *Layout) buildAreas() {
	areas := make(map[Pin]float64)
	for _, g := range l.grids {
		for _, row := range g.Pins {
			for _, p := range row {
				if p != nil {
					areas[*p] = g.Pitch * g.Pitch
				}
			}
		}
	}
	for _, per := range l.peripherals {
		for _, e := range per.Electrodes {
			areas[e.Pin] = shoelace(e.Polygon)
		}
	}
	l.areas = areas
}

// shoelace returns the absolute area of a simple polygon. Closure is
// implicit, so a repeated final point contributes nothing.
func shoelace(pts []Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	var sum float64
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return math.Abs(sum) / 2
}
