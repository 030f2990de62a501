package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/todmy/interolog/internal/interolog"
)

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"stats":  s.service.Stats(),
	})
}

// respondServiceError maps service errors to HTTP statuses
func respondServiceError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, interolog.ErrLinkNotFound):
		respondError(w, http.StatusNotFound, "link not found")
	case errors.Is(err, interolog.ErrHitNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, interolog.ErrNoHits), errors.Is(err, interolog.ErrUnknownFormat),
		errors.Is(err, interolog.ErrInvalidTrimOpts):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("%s: %v", action, err)
		respondError(w, http.StatusInternalServerError, "failed to "+action)
	}
}
