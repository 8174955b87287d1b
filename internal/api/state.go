package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/dropdash/internal/layout"
	"github.com/nerrad567/dropdash/internal/transform"
)

// LayoutResponse describes the board for drawing. Polygons are in board
// coordinates unless a display size was requested, in which case they are
// already mapped and Transform is the matrix used.
type LayoutResponse struct {
	Revision   uint64                 `json:"revision"`
	Electrodes int                    `json:"electrodes"`
	Extent     *layout.Extent         `json:"extent,omitempty"`
	Polygons   []layout.Polygon       `json:"polygons"`
	Areas      map[layout.Pin]float64 `json:"areas"`
	Transform  *transform.Matrix      `json:"transform,omitempty"`
	Width      float64                `json:"width,omitempty"`
	Height     float64                `json:"height,omitempty"`
}

func (s *Server) handleGetState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.dash.Snapshot())
}

func (s *Server) handleGetLayout(w http.ResponseWriter, r *http.Request) {
	width, height, sized, err := parseSize(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	l, ok := s.currentLayout(w, r)
	if !ok {
		return
	}
	st := s.dash.Snapshot()

	resp := LayoutResponse{
		Revision:   st.Revision,
		Electrodes: l.ElectrodeCount(),
		Polygons:   l.Polygons(),
		Areas:      l.Areas(),
	}
	ext, err := l.Extent()
	if err == nil {
		resp.Extent = &ext
	}

	if sized {
		if resp.Extent == nil {
			writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, "board has no electrodes to fit")
			return
		}
		m := transform.Resolve(st.Registration, ext, width, height)
		mapped := make([]layout.Polygon, len(resp.Polygons))
		for i, p := range resp.Polygons {
			mapped[i] = layout.Polygon{Pin: p.Pin, Points: transform.MapPoints(p.Points, m)}
		}
		resp.Polygons = mapped
		resp.Transform = &m
		resp.Width, resp.Height = width, height
	}

	writeJSON(w, http.StatusOK, resp)
}

// currentLayout fetches the layout on the event loop. Layouts are immutable,
// so the result may be used from the request goroutine.
func (s *Server) currentLayout(w http.ResponseWriter, r *http.Request) (*layout.Layout, bool) {
	var l *layout.Layout
	if err := s.loop.Do(r.Context(), func() { l = s.dash.Layout() }); err != nil {
		writeUnavailable(w, "dashboard is not running")
		return nil, false
	}
	if l == nil {
		writeUnavailable(w, "no board layout loaded")
		return nil, false
	}
	return l, true
}

// parseSize reads the optional width and height query parameters. Either
// both or neither must be present.
func parseSize(r *http.Request) (width, height float64, ok bool, err error) {
	q := r.URL.Query()
	ws, hs := q.Get("width"), q.Get("height")
	if ws == "" && hs == "" {
		return 0, 0, false, nil
	}
	width, err = strconv.ParseFloat(ws, 64)
	if err != nil || width <= 0 {
		return 0, 0, false, errInvalidSize
	}
	height, err = strconv.ParseFloat(hs, 64)
	if err != nil || height <= 0 {
		return 0, 0, false, errInvalidSize
	}
	return width, height, true, nil
}
