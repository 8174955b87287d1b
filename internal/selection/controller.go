// Package selection turns operator clicks and key presses into desired
// electrode activation sets.
//
// The controller never changes its own view of the active set when it
// produces a selection. The device applies the request and reports the
// authoritative state back through electrode-state telemetry, which the
// caller feeds in with UpdateActive.
package selection

import (
	"fmt"

	"github.com/nerrad567/dropdash/internal/layout"
)

// DefaultMaxBrush is the largest brush edge length.
const DefaultMaxBrush = 5

// Modifiers alter how a click combines with the active set.
type Modifiers struct {
	// Extend keeps the current active set as the base.
	Extend bool `json:"extend"`
	// Subtract removes the brush from the base instead of adding it.
	Subtract bool `json:"subtract"`
}

// ModifiersFromKeys maps keyboard modifier state to Modifiers: either
// modifier extends, shift subtracts.
func ModifiersFromKeys(ctrl, shift bool) Modifiers {
	return Modifiers{Extend: ctrl || shift, Subtract: shift}
}

// Key is a keyboard key the controller reacts to.
type Key string

const (
	KeyEscape     Key = "Escape"
	KeyArrowUp    Key = "ArrowUp"
	KeyArrowDown  Key = "ArrowDown"
	KeyArrowLeft  Key = "ArrowLeft"
	KeyArrowRight Key = "ArrowRight"
)

var arrowDelta = map[Key][2]int{
	KeyArrowDown:  {0, 1},
	KeyArrowUp:    {0, -1},
	KeyArrowLeft:  {-1, 0},
	KeyArrowRight: {1, 0},
}

// ParseKey validates a key name.
func ParseKey(s string) (Key, error) {
	k := Key(s)
	if k == KeyEscape {
		return k, nil
	}
	if _, ok := arrowDelta[k]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKey, s)
}

// Controller holds the layout, the last reported active set and the brush.
// It is not safe for concurrent use.
type Controller struct {
	layout   *layout.Layout
	active   Set
	brush    int
	maxBrush int
}

// New returns a Controller with brush size 1.
func New(l *layout.Layout, maxBrush int) *Controller {
	if maxBrush < 1 {
		maxBrush = DefaultMaxBrush
	}
	return &Controller{layout: l, brush: 1, maxBrush: maxBrush}
}

// SetLayout replaces the layout snapshot.
func (c *Controller) SetLayout(l *layout.Layout) {
	c.layout = l
}

// Layout returns the current layout snapshot.
func (c *Controller) Layout() *layout.Layout {
	return c.layout
}

// UpdateActive records the device-reported active set.
func (c *Controller) UpdateActive(s Set) {
	c.active = s
}

// Active returns the last device-reported active set.
func (c *Controller) Active() Set {
	return c.active
}

// BrushSize returns the brush edge length.
func (c *Controller) BrushSize() int {
	return c.brush
}

// MaxBrush returns the largest allowed brush.
func (c *Controller) MaxBrush() int {
	return c.maxBrush
}

// SetBrushSize clamps n to [1, MaxBrush] and returns the new size.
func (c *Controller) SetBrushSize(n int) int {
	c.brush = min(max(n, 1), c.maxBrush)
	return c.brush
}

// GrowBrush enlarges the brush by one step.
func (c *Controller) GrowBrush() int { return c.SetBrushSize(c.brush + 1) }

// ShrinkBrush reduces the brush by one step.
func (c *Controller) ShrinkBrush() int { return c.SetBrushSize(c.brush - 1) }

// Hover returns the pins the brush would cover if pin were clicked.
func (c *Controller) Hover(pin layout.Pin) []layout.Pin {
	if c.layout == nil {
		return []layout.Pin{pin}
	}
	return c.layout.BrushOrSelf(pin, c.brush, c.brush)
}

// Click returns the activation set requested by a click on pin.
func (c *Controller) Click(pin layout.Pin, mods Modifiers) Set {
	brush := c.Hover(pin)

	var base Set
	if mods.Extend {
		base = c.active
	}
	if mods.Subtract {
		return base.Minus(brush)
	}
	return base.Union(brush)
}

// Key returns the activation set requested by a key press. ok is false
// when the key produces no request: unknown keys, or a move that would
// push any active pin off its grid.
func (c *Controller) Key(k Key) (Set, bool) {
	if k == KeyEscape {
		return Set{}, true
	}
	d, ok := arrowDelta[k]
	if !ok {
		return Set{}, false
	}
	return c.Move(d[0], d[1])
}

// Move shifts every active pin by (dx, dy) within its own grid. It is all
// or nothing: if any pin lacks a neighbour there, ok is false.
func (c *Controller) Move(dx, dy int) (Set, bool) {
	if c.layout == nil {
		return Set{}, false
	}
	moved := make([]layout.Pin, 0, c.active.Len())
	for _, pin := range c.active.pins {
		loc, found := c.layout.FindPinLocation(pin)
		if !found {
			return Set{}, false
		}
		next, found := c.layout.PinAtPos(loc.Position.X+dx, loc.Position.Y+dy, loc.GridIndex)
		if !found {
			return Set{}, false
		}
		moved = append(moved, next)
	}
	return NewSet(moved...), true
}
