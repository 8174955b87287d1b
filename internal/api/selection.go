package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/nerrad567/dropdash/internal/dashboard"
	"github.com/nerrad567/dropdash/internal/layout"
	"github.com/nerrad567/dropdash/internal/selection"
	"github.com/nerrad567/dropdash/internal/transform"
)

var (
	errNoTarget      = errors.New("either pin or x and y are required")
	errUnknownPin    = errors.New("unknown electrode")
	errNoElectrode   = errors.New("no electrode at point")
	errNotInvertible = errors.New("display transform is not invertible")
)

// ClickRequest selects electrodes by pin or by display position. Width and
// Height give the display size the position refers to; they default to the
// configured view size.
type ClickRequest struct {
	Pin      *layout.Pin `json:"pin,omitempty"`
	X        *float64    `json:"x,omitempty"`
	Y        *float64    `json:"y,omitempty"`
	Width    float64     `json:"width,omitempty"`
	Height   float64     `json:"height,omitempty"`
	Extend   bool        `json:"extend"`
	Subtract bool        `json:"subtract"`
}

// KeyRequest is a keyboard command.
type KeyRequest struct {
	Key string `json:"key"`
}

// BrushRequest sets the brush size.
type BrushRequest struct {
	Size int `json:"size"`
}

// SelectionResponse reports the set sent to the device. Emitted is false
// when the command produced nothing to send.
type SelectionResponse struct {
	Emitted   bool           `json:"emitted"`
	Pin       *layout.Pin    `json:"pin,omitempty"`
	Requested *selection.Set `json:"requested,omitempty"`
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	var req ClickRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Pin == nil && (req.X == nil || req.Y == nil) {
		writeBadRequest(w, errNoTarget.Error())
		return
	}
	if req.Width <= 0 || req.Height <= 0 {
		req.Width, req.Height = s.renderCfg.ViewWidth, s.renderCfg.ViewHeight
	}
	registration := s.dash.Snapshot().Registration

	var (
		pin    layout.Pin
		set    selection.Set
		hitErr error
	)
	err := s.loop.Do(r.Context(), func() {
		l := s.dash.Layout()
		pin, hitErr = resolveClickTarget(l, registration, req)
		if hitErr != nil {
			return
		}
		set = s.dash.Selection().Click(pin, selection.Modifiers{Extend: req.Extend, Subtract: req.Subtract})
	})
	if err != nil {
		writeUnavailable(w, "dashboard is not running")
		return
	}
	if hitErr != nil {
		writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, hitErr.Error())
		return
	}

	if err := s.dash.SendSelection(r.Context(), dashboard.SourceClick, set); err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, SelectionResponse{Emitted: true, Pin: &pin, Requested: &set})
}

// resolveClickTarget returns the pin named by req, hit-testing a display
// position through the inverse of the display transform.
func resolveClickTarget(l *layout.Layout, registration *transform.Matrix, req ClickRequest) (layout.Pin, error) {
	if l == nil {
		return 0, errUnknownPin
	}
	if req.Pin != nil {
		if _, ok := l.PinPolygon(*req.Pin); !ok {
			return 0, errUnknownPin
		}
		return *req.Pin, nil
	}

	ext, err := l.Extent()
	if err != nil {
		return 0, errNoElectrode
	}
	inv, err := transform.Resolve(registration, ext, req.Width, req.Height).Invert()
	if err != nil {
		return 0, errNotInvertible
	}
	p := inv.Apply(layout.Point{X: *req.X, Y: *req.Y})
	pin, ok := l.Contains(p.X, p.Y)
	if !ok {
		return 0, errNoElectrode
	}
	return pin, nil
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	var req KeyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	key, err := selection.ParseKey(req.Key)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	var (
		set  selection.Set
		emit bool
	)
	if err := s.loop.Do(r.Context(), func() { set, emit = s.dash.Selection().Key(key) }); err != nil {
		writeUnavailable(w, "dashboard is not running")
		return
	}
	if !emit {
		writeJSON(w, http.StatusOK, SelectionResponse{Emitted: false})
		return
	}

	if err := s.dash.SendSelection(r.Context(), dashboard.SourceKey, set); err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, SelectionResponse{Emitted: true, Requested: &set})
}

func (s *Server) handleSetBrush(w http.ResponseWriter, r *http.Request) {
	var req BrushRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	var size, maxSize int
	err := s.loop.Do(r.Context(), func() {
		sel := s.dash.Selection()
		size = sel.SetBrushSize(req.Size)
		maxSize = sel.MaxBrush()
	})
	if err != nil {
		writeUnavailable(w, "dashboard is not running")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"size": size, "max": maxSize})
}

// handleHover returns the electrodes a click on pin would affect.
func (s *Server) handleHover(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.URL.Query().Get("pin"))
	if err != nil {
		writeBadRequest(w, "pin query parameter must be an integer")
		return
	}

	var pins []layout.Pin
	if err := s.loop.Do(r.Context(), func() { pins = s.dash.Selection().Hover(layout.Pin(n)) }); err != nil {
		writeUnavailable(w, "dashboard is not running")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pins": selection.NewSet(pins...)})
}
