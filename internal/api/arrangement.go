package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/dropdash/internal/arrangement"
)

func (s *Server) handleGetArrangement(w http.ResponseWriter, r *http.Request) {
	if s.arrangements == nil {
		writeUnavailable(w, "arrangement storage is not configured")
		return
	}
	a, err := s.arrangements.Load(r.Context())
	if errors.Is(err, arrangement.ErrNotFound) {
		writeNotFound(w, "no arrangement saved")
		return
	}
	if err != nil {
		s.logger.Error("loading arrangement failed", "error", err)
		writeInternalError(w, "failed to load arrangement")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handlePutArrangement(w http.ResponseWriter, r *http.Request) {
	if s.arrangements == nil {
		writeUnavailable(w, "arrangement storage is not configured")
		return
	}
	var doc json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	a, err := s.arrangements.Save(r.Context(), doc)
	if errors.Is(err, arrangement.ErrInvalidDocument) {
		writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("saving arrangement failed", "error", err)
		writeInternalError(w, "failed to save arrangement")
		return
	}
	writeJSON(w, http.StatusOK, a)
}
