package transform

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nerrad567/dropdash/internal/layout"
)

var approx = cmp.Comparer(func(a, b float64) bool { return math.Abs(a-b) < 1e-9 })

func TestMapPointsAffine(t *testing.T) {
	m := Matrix{{2, 0, 1}, {0, 3, -1}, {0, 0, 1}}
	got := MapPoints([]layout.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}, m)
	want := []layout.Point{{X: 1, Y: -1}, {X: 3, Y: 2}}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("MapPoints mismatch (-want +got):\n%s", diff)
	}
}

func TestMapPointsPerspectiveDivides(t *testing.T) {
	// z = x + 1
	m := Matrix{{1, 0, 0}, {0, 1, 0}, {1, 0, 1}}
	got := MapPoints([]layout.Point{{X: 1, Y: 4}, {X: 3, Y: 8}}, m)
	want := []layout.Point{{X: 0.5, Y: 2}, {X: 0.75, Y: 2}}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("MapPoints mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultFit(t *testing.T) {
	tests := []struct {
		name   string
		extent layout.Extent
		w, h   float64
		margin float64
		// expected mapping of the extent corners
		wantMin, wantMax layout.Point
	}{
		{
			name:    "square board in wide box",
			extent:  layout.Extent{MinX: 0, MaxX: 2, MinY: 0, MaxY: 2},
			w:       200, h: 100, margin: 0.1,
			wantMin: layout.Point{X: 60, Y: 10},
			wantMax: layout.Point{X: 140, Y: 90},
		},
		{
			name:    "offset extent no margin",
			extent:  layout.Extent{MinX: 10, MaxX: 20, MinY: -5, MaxY: 0},
			w:       100, h: 100, margin: 0,
			wantMin: layout.Point{X: 0, Y: 25},
			wantMax: layout.Point{X: 100, Y: 75},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := DefaultFit(tt.extent, tt.w, tt.h, tt.margin)
			got := MapPoints([]layout.Point{
				{X: tt.extent.MinX, Y: tt.extent.MinY},
				{X: tt.extent.MaxX, Y: tt.extent.MaxY},
			}, m)
			if diff := cmp.Diff([]layout.Point{tt.wantMin, tt.wantMax}, got, approx); diff != "" {
				t.Errorf("corners mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolvePrefersRegistration(t *testing.T) {
	ext := layout.Extent{MinX: 0, MaxX: 1, MinY: 0, MaxY: 1}
	reg := Matrix{{5, 0, 0}, {0, 5, 0}, {0, 0, 1}}

	if got := Resolve(&reg, ext, 100, 100); got != reg {
		t.Errorf("Resolve(reg) = %v, want registration", got)
	}
	if got, want := Resolve(nil, ext, 100, 100), DefaultFit(ext, 100, 100, DefaultMargin); got != want {
		t.Errorf("Resolve(nil) = %v, want %v", got, want)
	}
}

func TestFromSlice(t *testing.T) {
	m, err := FromSlice(nil)
	if err != nil || m != nil {
		t.Errorf("FromSlice(nil) = (%v, %v), want (nil, nil)", m, err)
	}

	if _, err := FromSlice([]float64{1, 2, 3}); !errors.Is(err, ErrBadLength) {
		t.Errorf("FromSlice(3 values) error = %v, want ErrBadLength", err)
	}

	v := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}
	m, err = FromSlice(v)
	if err != nil {
		t.Fatalf("FromSlice error = %v", err)
	}
	if m[1][0] != 4 || m[2][2] != 9 {
		t.Errorf("FromSlice row-major layout wrong: %v", *m)
	}
	if diff := cmp.Diff(v, m.Slice()); diff != "" {
		t.Errorf("Slice mismatch (-want +got):\n%s", diff)
	}
}

func TestInvert(t *testing.T) {
	m := Matrix{{2, 0.3, 5}, {0.1, 3, -2}, {0.001, 0.002, 1}}
	inv, err := m.Invert()
	if err != nil {
		t.Fatalf("Invert error = %v", err)
	}
	p := layout.Point{X: 3.5, Y: -1.25}
	back := inv.Apply(m.Apply(p))
	if diff := cmp.Diff(p, back, approx); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Identity(), m.Mul(inv), approx); diff != "" {
		t.Errorf("m*inv mismatch (-want +got):\n%s", diff)
	}

	if _, err := (Matrix{}).Invert(); !errors.Is(err, ErrSingular) {
		t.Errorf("Invert(zero) error = %v, want ErrSingular", err)
	}
}
