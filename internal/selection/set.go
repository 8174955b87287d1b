package selection

import (
	"encoding/json"
	"sort"

	"github.com/nerrad567/dropdash/internal/layout"
)

// Set is an immutable, sorted, duplicate-free set of pins.
type Set struct {
	pins []layout.Pin
}

// NewSet returns the set of pins.
func NewSet(pins ...layout.Pin) Set {
	if len(pins) == 0 {
		return Set{}
	}
	out := append([]layout.Pin(nil), pins...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return Set{pins: out[:n]}
}

// Pins returns a copy of the members in ascending order. It never returns
// nil, so an empty set encodes as [].
func (s Set) Pins() []layout.Pin {
	return append([]layout.Pin{}, s.pins...)
}

// Len returns the number of members.
func (s Set) Len() int { return len(s.pins) }

// Empty reports whether the set has no members.
func (s Set) Empty() bool { return len(s.pins) == 0 }

// Contains reports whether p is a member.
func (s Set) Contains(p layout.Pin) bool {
	i := sort.Search(len(s.pins), func(i int) bool { return s.pins[i] >= p })
	return i < len(s.pins) && s.pins[i] == p
}

// Union returns s ∪ pins.
func (s Set) Union(pins []layout.Pin) Set {
	return NewSet(append(append([]layout.Pin(nil), s.pins...), pins...)...)
}

// Minus returns s − pins.
func (s Set) Minus(pins []layout.Pin) Set {
	drop := NewSet(pins...)
	var out []layout.Pin
	for _, p := range s.pins {
		if !drop.Contains(p) {
			out = append(out, p)
		}
	}
	return Set{pins: out}
}

// Equal reports whether s and o have the same members.
func (s Set) Equal(o Set) bool {
	if len(s.pins) != len(o.pins) {
		return false
	}
	for i := range s.pins {
		if s.pins[i] != o.pins[i] {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the set as an ascending pin array.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Pins())
}

// UnmarshalJSON decodes a pin array.
func (s *Set) UnmarshalJSON(data []byte) error {
	var pins []layout.Pin
	if err := json.Unmarshal(data, &pins); err != nil {
		return err
	}
	*s = NewSet(pins...)
	return nil
}
