// Package transform maps board coordinates to display coordinates with 3x3
// homogeneous matrices.
//
// A registration transform (typically a camera calibration) may be
// perspective, so every mapping divides by the third homogeneous component.
// When no registration is known, DefaultFit centres the board extent in the
// target box.
package transform

import (
	"errors"
	"fmt"
	"math"

	"github.com/nerrad567/dropdash/internal/layout"
)

// DefaultMargin is the fraction of the target box left empty on each side
// by DefaultFit.
const DefaultMargin = 0.1

var (
	// ErrSingular is returned when inverting a matrix with zero determinant.
	ErrSingular = errors.New("transform: singular matrix")

	// ErrBadLength is returned by FromSlice for anything other than 9 values.
	ErrBadLength = errors.New("transform: matrix needs 9 values")
)

// Matrix is a row-major 3x3 homogeneous transform.
type Matrix [3][3]float64

// Identity returns the identity transform.
func Identity() Matrix {
	return Matrix{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// FromSlice builds a matrix from its 9-element row-major wire form.
// An empty slice means "no transform" and returns (nil, nil).
func FromSlice(v []float64) (*Matrix, error) {
	if len(v) == 0 {
		return nil, nil
	}
	if len(v) != 9 {
		return nil, fmt.Errorf("%w: got %d", ErrBadLength, len(v))
	}
	var m Matrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m[i][j] = v[i*3+j]
		}
	}
	return &m, nil
}

// Slice returns the row-major wire form of m.
func (m Matrix) Slice() []float64 {
	out := make([]float64, 0, 9)
	for i := 0; i < 3; i++ {
		out = append(out, m[i][0], m[i][1], m[i][2])
	}
	return out
}

// Apply maps a single point, dividing by the homogeneous z component.
func (m Matrix) Apply(p layout.Point) layout.Point {
	x := m[0][0]*p.X + m[0][1]*p.Y + m[0][2]
	y := m[1][0]*p.X + m[1][1]*p.Y + m[1][2]
	z := m[2][0]*p.X + m[2][1]*p.Y + m[2][2]
	return layout.Point{X: x / z, Y: y / z}
}

// MapPoints maps every point through m.
func MapPoints(points []layout.Point, m Matrix) []layout.Point {
	out := make([]layout.Point, len(points))
	for i, p := range points {
		out[i] = m.Apply(p)
	}
	return out
}

// Mul returns m*n, the transform that applies n first.
func (m Matrix) Mul(n Matrix) Matrix {
	var out Matrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				out[i][j] += m[i][k] * n[k][j]
			}
		}
	}
	return out
}

// Invert returns the inverse of m.
func (m Matrix) Invert() (Matrix, error) {
	a, b, c := m[0][0], m[0][1], m[0][2]
	d, e, f := m[1][0], m[1][1], m[1][2]
	g, h, i := m[2][0], m[2][1], m[2][2]

	A := e*i - f*h
	B := -(d*i - f*g)
	C := d*h - e*g
	det := a*A + b*B + c*C
	if math.Abs(det) < 1e-12 {
		return Matrix{}, ErrSingular
	}

	inv := Matrix{
		{A, -(b*i - c*h), b*f - c*e},
		{B, a*i - c*g, -(a*f - c*d)},
		{C, -(a*h - b*g), a*e - b*d},
	}
	for r := 0; r < 3; r++ {
		for col := 0; col < 3; col++ {
			inv[r][col] /= det
		}
	}
	return inv, nil
}

// DefaultFit scales and translates extent so it is centred in a targetW by
// targetH box with margin left on each side.
func DefaultFit(extent layout.Extent, targetW, targetH, margin float64) Matrix {
	bw, bh := extent.Width(), extent.Height()
	scale := math.Min(targetW/bw, targetH/bh) * (1 - 2*margin)
	dx := -extent.MinX*scale + (targetW-bw*scale)/2
	dy := -extent.MinY*scale + (targetH-bh*scale)/2
	return Matrix{
		{scale, 0, dx},
		{0, scale, dy},
		{0, 0, 1},
	}
}

// Resolve returns registration when set, and DefaultFit with
// DefaultMargin otherwise.
func Resolve(registration *Matrix, extent layout.Extent, targetW, targetH float64) Matrix {
	if registration != nil {
		return *registration
	}
	return DefaultFit(extent, targetW, targetH, DefaultMargin)
}
