package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

type searchRequest struct {
	Query                string   `json:"query"`
	DocumentIDs          []string `json:"document_ids"`
	MaxSections          int      `json:"max_sections"`
	MinRelevanceScore    *float64 `json:"min_relevance_score"`
	MaxContentPerSection int      `json:"max_content_per_section"`
}

// handleSearch runs one navigation call over the requested tree indexes, or
// over all of them when document_ids is empty.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		jsonError(w, "query is required", http.StatusBadRequest)
		return
	}

	opts := s.cfg.Navigator()
	if req.MaxSections > 0 {
		opts.MaxSections = req.MaxSections
	}
	if req.MinRelevanceScore != nil {
		opts.MinRelevanceScore = *req.MinRelevanceScore
	}
	if req.MaxContentPerSection > 0 {
		opts.MaxContentPerSection = req.MaxContentPerSection
	}

	recs, err := s.deps.Records.GetTreeIndexes(r.Context(), req.DocumentIDs)
	if err != nil {
		jsonError(w, "failed to load tree indexes: "+err.Error(), http.StatusInternalServerError)
		return
	}

	results := s.deps.Navigator.Search(r.Context(), req.Query, recs, opts)
	writeJSON(w, http.StatusOK, map[string]any{
		"query":              req.Query,
		"documents_searched": len(recs),
		"results":            results,
	})
}
