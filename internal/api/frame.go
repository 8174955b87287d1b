package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// handleGetFrame serves the live camera frame. With an id in the path it
// answers 404 once that frame has been superseded or has expired.
func (s *Server) handleGetFrame(w http.ResponseWriter, r *http.Request) {
	h := s.dash.Frame()
	if h == nil {
		writeNotFound(w, "no live frame")
		return
	}
	if id := chi.URLParam(r, "id"); id != "" && id != h.ID {
		writeNotFound(w, "frame expired")
		return
	}

	data := h.Data()
	w.Header().Set("Content-Type", h.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Frame-ID", h.ID)
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	w.Write(data)
}
