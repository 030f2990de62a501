package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/todmy/interolog/internal/auth"
	"github.com/todmy/interolog/internal/interolog"
)

const maxUploadSize = 64 << 20 // 64 MB

var allowedExts = map[string]bool{".txt": true, ".tsv": true, ".tab": true, ".mitab": true, ".mi25": true}

// FilterRequest selects evidence by identifier and detection method
type FilterRequest struct {
	IDs     []string `json:"ids"`
	Methods []string `json:"methods"`
	Format  string   `json:"format"`
}

// handleIngest loads MITAB text sent as the request body or as a
// multipart "file" field
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	source := "body"
	var body io.Reader = r.Body

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			respondError(w, http.StatusBadRequest, "file too large or invalid form")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			respondError(w, http.StatusBadRequest, "no file provided")
			return
		}
		defer file.Close()

		ext := strings.ToLower(filepath.Ext(header.Filename))
		if !allowedExts[ext] {
			respondError(w, http.StatusBadRequest, "only .txt, .tsv, .tab, .mitab and .mi25 files are allowed")
			return
		}

		source = header.Filename
		body = file
	}

	if curator := auth.CuratorEmail(r.Context()); curator != "" {
		source = curator + ":" + source
	}

	result, err := s.service.Ingest(r.Context(), body, source)
	if err != nil {
		respondServiceError(w, err, "ingest evidence")
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

// handleDump returns the whole store as text or as a mitabResult document
func (s *Server) handleDump(w http.ResponseWriter, r *http.Request) {
	writeDump(w, r.URL.Query().Get("format"), s.service.Dump)
}

func writeDump(w http.ResponseWriter, format string, dump func(string) ([]byte, error)) {
	if format == "" {
		format = "json"
	}

	data, err := dump(format)
	if err != nil {
		respondServiceError(w, err, "dump evidence")
		return
	}

	if format == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Clear(r.Context()); err != nil {
		respondServiceError(w, err, "clear evidence")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleFlushRawText(w http.ResponseWriter, r *http.Request) {
	s.service.FlushRawText()
	respondJSON(w, http.StatusOK, map[string]string{"status": "flushed"})
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	var req FilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.IDs) == 0 && len(req.Methods) == 0 {
		respondError(w, http.StatusBadRequest, "ids or methods are required")
		return
	}

	filtered := s.service.Filter(req.IDs, req.Methods)
	writeDump(w, req.Format, func(format string) ([]byte, error) {
		switch format {
		case "text":
			return []byte(filtered.String()), nil
		case "json":
			return filtered.MarshalJSON()
		default:
			return nil, fmt.Errorf("%w: %q", interolog.ErrUnknownFormat, format)
		}
	})
}

func (s *Server) handleEvidence(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.service.Evidence(chi.URLParam(r, "id")))
}

func (s *Server) handleEvidencePair(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.service.EvidencePair(chi.URLParam(r, "id1"), chi.URLParam(r, "id2")))
}

// handlePartners returns partner lists, or the evidence lines of every
// pair with ?view=lines
func (s *Server) handlePartners(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("view") == "lines" {
		respondJSON(w, http.StatusOK, s.service.PairedLines())
		return
	}
	respondJSON(w, http.StatusOK, s.service.Partners())
}

func (s *Server) handleTopology(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.service.Topology())
}
