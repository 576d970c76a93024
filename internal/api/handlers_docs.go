package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/treeindex/internal/doctree"
	"github.com/dgallion1/treeindex/internal/graphsync"
	"github.com/dgallion1/treeindex/internal/navigator"
	"github.com/dgallion1/treeindex/internal/store"
)

type documentSummary struct {
	DocumentID string    `json:"documentId"`
	Title      string    `json:"title"`
	Method     string    `json:"method"`
	NodeCount  int       `json:"nodeCount"`
	Version    int       `json:"version"`
	Model      string    `json:"model,omitempty"`
	Provider   string    `json:"provider,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// handleListDocuments lists every persisted tree index without the trees.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	recs, err := s.deps.Records.ListTreeIndexes(r.Context())
	if err != nil {
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	docs := make([]documentSummary, 0, len(recs))
	for _, rec := range recs {
		docs = append(docs, documentSummary{
			DocumentID: rec.DocumentID,
			Title:      rec.Title,
			Method:     rec.Method,
			NodeCount:  rec.NodeCount,
			Version:    rec.Version,
			Model:      rec.Model,
			Provider:   rec.Provider,
			UpdatedAt:  rec.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

type treeResponse struct {
	*doctree.Record
	Content string `json:"content,omitempty"`
}

// handleGetTree returns the persisted record. ?format=outline renders the
// navigation outline as text; ?include_content=true adds the raw content.
func (s *Server) handleGetTree(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadRecord(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	if q.Get("format") == "outline" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(navigator.Outline(rec.Tree)))
		return
	}
	resp := treeResponse{Record: rec}
	if q.Get("include_content") == "true" {
		resp.Content = rec.FullContent
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDeleteDocument deletes a tree index and its local graph projection.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	err := s.deps.Records.DeleteTreeIndex(r.Context(), docID)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to delete document: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": docID})
}

type graphSyncRequest struct {
	Entities []graphsync.Entity `json:"entities"`
}

// handleGraphSync projects a stored tree into the graph and links the given
// entities to their sections.
func (s *Server) handleGraphSync(w http.ResponseWriter, r *http.Request) {
	if s.deps.Graph == nil {
		jsonError(w, "graph sync unavailable", http.StatusServiceUnavailable)
		return
	}
	var req graphSyncRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<20)).Decode(&req); err != nil {
			jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	rec, ok := s.loadRecord(w, r)
	if !ok {
		return
	}
	res := s.mapper.Sync(r.Context(), rec, s.deps.Graph, req.Entities)
	body := map[string]any{
		"documentId": rec.DocumentID,
		"result":     res,
	}
	if counter, ok := s.deps.Graph.(GraphCounter); ok {
		counts, err := counter.Counts(r.Context(), rec.DocumentID)
		if err != nil {
			s.log.Warn("graph counts failed", "doc_id", rec.DocumentID, "error", err)
		} else {
			body["graph"] = counts
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) loadRecord(w http.ResponseWriter, r *http.Request) (*doctree.Record, bool) {
	docID := chi.URLParam(r, "docID")
	rec, err := s.deps.Records.GetTreeIndex(r.Context(), docID)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "document not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		jsonError(w, "failed to load document: "+err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return rec, true
}
