package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/todmy/interolog/internal/auth"
	"github.com/todmy/interolog/internal/interolog"
	"github.com/todmy/interolog/pkg/models"
)

func (s *Server) handleCreateLink(w http.ResponseWriter, r *http.Request) {
	var req interolog.LinkQuery
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.QueryLow == "" || req.QueryHigh == "" {
		respondError(w, http.StatusBadRequest, "query_low and query_high are required")
		return
	}

	req.CreatedBy = auth.CuratorEmail(r.Context())

	view, err := s.service.CreateLink(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, "create link")
		return
	}

	respondJSON(w, http.StatusCreated, view)
}

// handleListLinks lists links, only those created by one curator with
// ?created_by=email
func (s *Server) handleListLinks(w http.ResponseWriter, r *http.Request) {
	links := s.service.ListLinks()

	if curator := r.URL.Query().Get("created_by"); curator != "" {
		mine := []models.Link{}
		for _, l := range links {
			if l.CreatedBy == curator {
				mine = append(mine, l)
			}
		}
		links = mine
	}

	respondJSON(w, http.StatusOK, links)
}

func (s *Server) handleGetLink(w http.ResponseWriter, r *http.Request) {
	id, ok := linkID(w, r)
	if !ok {
		return
	}

	view, err := s.service.GetLink(r.Context(), id)
	if err != nil {
		respondServiceError(w, err, "get link")
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleRemoveLink(w http.ResponseWriter, r *http.Request) {
	id, ok := linkID(w, r)
	if !ok {
		return
	}

	if !s.mayModifyLink(w, r, id) {
		return
	}

	if err := s.service.RemoveLink(r.Context(), id); err != nil {
		respondServiceError(w, err, "remove link")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleTrimLink trims a link. Options missing from the body keep their
// defaults; an empty body trims with the defaults alone.
func (s *Server) handleTrimLink(w http.ResponseWriter, r *http.Request) {
	id, ok := linkID(w, r)
	if !ok {
		return
	}

	if !s.mayModifyLink(w, r, id) {
		return
	}

	opts := s.service.DefaultTrimOptions()
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid trim options")
		return
	}

	view, err := s.service.TrimLink(r.Context(), id, opts)
	if err != nil {
		respondServiceError(w, err, "trim link")
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// handleSimilarHits finds hits of other links with a score profile close
// to the one at ?row=N&side=low|high
func (s *Server) handleSimilarHits(w http.ResponseWriter, r *http.Request) {
	id, ok := linkID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	row, err := strconv.Atoi(q.Get("row"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "row must be an integer")
		return
	}

	side := q.Get("side")
	if side == "" {
		side = interolog.SideLow
	}

	limit := 10
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
	}

	threshold := 0.9
	if v := q.Get("threshold"); v != "" {
		if threshold, err = strconv.ParseFloat(v, 64); err != nil {
			respondError(w, http.StatusBadRequest, "threshold must be a number")
			return
		}
	}

	hits, err := s.service.SimilarHits(r.Context(), id, row, side, limit, threshold)
	if err != nil {
		respondServiceError(w, err, "find similar hits")
		return
	}

	respondJSON(w, http.StatusOK, hits)
}

func (s *Server) handleOutliers(w http.ResponseWriter, r *http.Request) {
	id, ok := linkID(w, r)
	if !ok {
		return
	}

	k := 0
	if v := r.URL.Query().Get("k"); v != "" {
		var err error
		if k, err = strconv.Atoi(v); err != nil || k <= 0 {
			respondError(w, http.StatusBadRequest, "k must be a positive integer")
			return
		}
	}

	outliers, err := s.service.Outliers(r.Context(), id, k)
	if err != nil {
		respondServiceError(w, err, "score outliers")
		return
	}

	respondJSON(w, http.StatusOK, outliers)
}

// mayModifyLink writes 403 when the link belongs to another curator.
func (s *Server) mayModifyLink(w http.ResponseWriter, r *http.Request, id uuid.UUID) bool {
	view, err := s.service.GetLink(r.Context(), id)
	if err != nil {
		respondServiceError(w, err, "get link")
		return false
	}
	if !auth.MayModify(r.Context(), view.CreatedBy) {
		respondError(w, http.StatusForbidden, "link belongs to another curator")
		return false
	}
	return true
}

func linkID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "linkID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid link id")
		return uuid.Nil, false
	}
	return id, true
}
