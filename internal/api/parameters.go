package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// SetParameterRequest writes one device parameter.
type SetParameterRequest struct {
	Value *float64 `json:"value"`
}

func (s *Server) handleListParameters(w http.ResponseWriter, r *http.Request) {
	params, err := s.dash.RefreshParameters(r.Context())
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"parameters": params})
}

func (s *Server) handleSetParameter(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		writeBadRequest(w, "parameter id must be an unsigned 32-bit integer")
		return
	}
	var req SetParameterRequest
	if err := decodeJSON(r, &req); err != nil || req.Value == nil {
		writeBadRequest(w, "body must be {\"value\": number}")
		return
	}

	if err := s.dash.SetParameter(r.Context(), uint32(id), *req.Value); err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "value": *req.Value})
}

func (s *Server) handleSaveParameters(w http.ResponseWriter, r *http.Request) {
	if err := s.dash.SaveParameters(r.Context()); err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (s *Server) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	if err := s.dash.Calibrate(r.Context()); err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "calibrated"})
}
