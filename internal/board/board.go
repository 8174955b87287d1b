// Package board loads electrode board definitions from the device or from
// a file on disk, and watches that file for edits.
//
// Every load produces a brand-new *layout.Layout. Layouts are never
// mutated after construction; consumers swap their reference.
package board

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/nerrad567/dropdash/internal/layout"
	"github.com/nerrad567/dropdash/internal/transform"
)

// Definition is the board document served by get_board_definition.
type Definition struct {
	Layout layout.Definition `json:"layout"`
	// Registration is either a row-major 3x3 board-to-image matrix or the
	// device's fiducial reference object.
	Registration json.RawMessage `json:"registration,omitempty"`
}

// Board is a decoded, validated definition.
type Board struct {
	Layout *layout.Layout
	// Registration is set when the document carried a matrix.
	Registration *transform.Matrix
	// Reference is set when the document carried a fiducial reference.
	Reference *Reference
}

// Reference locates the board in a camera image: labelled fiducial markers
// plus control points pairing grid and image coordinates. Fiducials are
// kept opaque; they come either as bare corner lists or as
// {"corners", "label"} objects.
type Reference struct {
	Fiducials  []json.RawMessage `json:"fiducials"`
	Electrodes []ControlPoint    `json:"electrodes"`
}

// ControlPoint pairs a grid position with its image position.
type ControlPoint struct {
	Grid  [2]float64 `json:"grid"`
	Image [2]float64 `json:"image"`
}

// Source fetches the raw board document from the device.
type Source interface {
	GetBoardDefinition(ctx context.Context) (json.RawMessage, error)
}

// Decode parses a board document. A document without a top-level "layout"
// key is taken to be the layout itself.
func Decode(data []byte) (*Board, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	var def Definition
	if _, ok := probe["layout"]; ok {
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
	} else if err := json.Unmarshal(data, &def.Layout); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return def.Build()
}

// Build validates the definition and constructs the layout snapshot.
func (d Definition) Build() (*Board, error) {
	if err := d.Layout.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	b := &Board{Layout: layout.New(d.Layout)}
	if err := decodeRegistration(d.Registration, b); err != nil {
		return nil, fmt.Errorf("%w: registration: %w", ErrDecode, err)
	}
	return b, nil
}

func decodeRegistration(raw json.RawMessage, b *Board) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	switch raw[0] {
	case '[':
		var vals []float64
		if err := json.Unmarshal(raw, &vals); err != nil {
			return err
		}
		m, err := transform.FromSlice(vals)
		if err != nil {
			return err
		}
		b.Registration = m
	case '{':
		var ref Reference
		if err := json.Unmarshal(raw, &ref); err != nil {
			return err
		}
		b.Reference = &ref
	default:
		return fmt.Errorf("unexpected %s", raw)
	}
	return nil
}

// FromRPC loads the board from the device.
func FromRPC(ctx context.Context, src Source) (*Board, error) {
	raw, err := src.GetBoardDefinition(ctx)
	if err != nil {
		return nil, fmt.Errorf("board: fetching definition: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, fmt.Errorf("%w: device returned no definition", ErrNoSource)
	}
	return Decode(raw)
}

// LoadFile loads a board document from path.
func LoadFile(path string) (*Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("board: reading %s: %w", path, err)
	}
	return Decode(data)
}

// Load prefers the file when path is set and falls back to the device.
func Load(ctx context.Context, path string, src Source) (*Board, error) {
	if path != "" {
		return LoadFile(path)
	}
	if src == nil {
		return nil, ErrNoSource
	}
	return FromRPC(ctx, src)
}
