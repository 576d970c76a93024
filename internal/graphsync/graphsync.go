// Package graphsync projects a persisted tree index into graph nodes and
// edges, and links previously extracted entities to the section whose range
// contains their text.
package graphsync

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/treeindex/internal/doctree"
)

const (
	LabelSection    = "TreeSection"
	EdgeContains    = "CONTAINS"
	EdgeDerivedFrom = "DERIVED_FROM"

	minEntityChars   = 10
	entityProbeChars = 200
)

// Node is a graph vertex write.
type Node struct {
	ID         string
	Label      string
	Properties map[string]any
}

// Edge is a directed graph edge write.
type Edge struct {
	From       string
	To         string
	Type       string
	Properties map[string]any
}

// Graph is the graph collaborator. Writes are upserts keyed by id (nodes) or
// (from, to, type) (edges).
type Graph interface {
	AddNode(ctx context.Context, n Node) error
	AddEdge(ctx context.Context, e Edge) error
}

// Entity is a previously extracted knowledge item. The first non-empty of
// Content, Text, Title, Name is used for matching.
type Entity struct {
	ID      string `json:"id"`
	Content string `json:"content,omitempty"`
	Text    string `json:"text,omitempty"`
	Title   string `json:"title,omitempty"`
	Name    string `json:"name,omitempty"`
}

func (e Entity) searchText() string {
	for _, s := range []string{e.Content, e.Text, e.Title, e.Name} {
		if s != "" {
			return s
		}
	}
	return ""
}

// Result counts successful writes. EdgesCreated includes EntityLinks.
type Result struct {
	SectionsCreated int `json:"sectionsCreated"`
	EdgesCreated    int `json:"edgesCreated"`
	EntityLinks     int `json:"entityLinks"`
}

// SectionID is the deterministic graph id for a section.
func SectionID(documentID string, charStart int) string {
	return fmt.Sprintf("docsec_%s_%d", documentID, charStart)
}

// Mapper runs graph syncs. It holds no per-call state.
type Mapper struct {
	log *slog.Logger
}

func NewMapper(log *slog.Logger) *Mapper {
	return &Mapper{log: log}
}

// Sync writes one node per section, one CONTAINS edge per section, and at most
// one DERIVED_FROM edge per (entity, section). Individual write failures are
// logged and skipped.
func (m *Mapper) Sync(ctx context.Context, rec *doctree.Record, g Graph, entities []Entity) Result {
	var res Result
	if rec == nil || rec.Tree == nil {
		return res
	}
	log := m.log.With("doc_id", rec.DocumentID)

	flat := doctree.Flatten(rec.Tree)
	ids := make([]string, len(flat))
	for i, f := range flat {
		ids[i] = SectionID(rec.DocumentID, f.Node.CharStart)
	}

	for i, f := range flat {
		node := Node{
			ID:    ids[i],
			Label: LabelSection,
			Properties: map[string]any{
				"title":      f.Node.Title,
				"summary":    f.Node.Summary,
				"charStart":  f.Node.CharStart,
				"charEnd":    f.Node.CharEnd,
				"depth":      f.Depth,
				"documentId": rec.DocumentID,
			},
		}
		if err := g.AddNode(ctx, node); err != nil {
			log.Warn("section node write failed", "section_id", node.ID, "error", err)
			graphWrites.WithLabelValues("node", "error").Inc()
		} else {
			res.SectionsCreated++
			graphWrites.WithLabelValues("node", "ok").Inc()
		}

		from := rec.DocumentID
		if f.Parent >= 0 {
			from = ids[f.Parent]
		}
		if from == node.ID {
			// A child starting where its parent starts shares the parent's id.
			log.Warn("skipping self-referencing containment edge", "section_id", node.ID)
			graphWrites.WithLabelValues("edge", "skipped").Inc()
			continue
		}
		if m.addEdge(ctx, log, g, Edge{From: from, To: node.ID, Type: EdgeContains}) {
			res.EdgesCreated++
		}
	}

	if len(entities) == 0 || len(flat) == 0 {
		return res
	}

	folded := newFoldIndex(rec.FullContent)
	seen := make(map[string]struct{})
	for _, ent := range entities {
		if ent.ID == "" {
			continue
		}
		text := ent.searchText()
		if utf8.RuneCountInString(text) < minEntityChars {
			continue
		}
		offset, ok := folded.find(headRunes(text, entityProbeChars))
		if !ok {
			continue
		}
		idx := sectionAt(flat, offset)
		if idx < 0 {
			continue
		}
		key := ent.ID + "\x00" + ids[idx]
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		edge := Edge{
			From:       ent.ID,
			To:         ids[idx],
			Type:       EdgeDerivedFrom,
			Properties: map[string]any{"matchOffset": offset},
		}
		if m.addEdge(ctx, log, g, edge) {
			res.EdgesCreated++
			res.EntityLinks++
		}
	}

	log.Info("graph sync complete",
		"sections", res.SectionsCreated,
		"edges", res.EdgesCreated,
		"entity_links", res.EntityLinks,
	)
	return res
}

func (m *Mapper) addEdge(ctx context.Context, log *slog.Logger, g Graph, e Edge) bool {
	if err := g.AddEdge(ctx, e); err != nil {
		log.Warn("edge write failed", "from", e.From, "to", e.To, "type", e.Type, "error", err)
		graphWrites.WithLabelValues("edge", "error").Inc()
		return false
	}
	graphWrites.WithLabelValues("edge", "ok").Inc()
	return true
}

// sectionAt returns the first section in pre-order whose range contains offset.
func sectionAt(flat []doctree.FlatNode, offset int) int {
	for i, f := range flat {
		if offset >= f.Node.CharStart && offset < f.Node.CharEnd {
			return i
		}
	}
	return -1
}

func headRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// foldIndex is a lower-cased copy of a text with a map from every byte of the
// folded text back to the byte offset of the rune it came from.
type foldIndex struct {
	folded  string
	origins []int
}

func newFoldIndex(s string) *foldIndex {
	var b strings.Builder
	b.Grow(len(s))
	origins := make([]int, 0, len(s))
	for pos, r := range s {
		before := b.Len()
		b.WriteRune(unicode.ToLower(r))
		for range b.Len() - before {
			origins = append(origins, pos)
		}
	}
	return &foldIndex{folded: b.String(), origins: origins}
}

func (f *foldIndex) find(needle string) (int, bool) {
	idx := strings.Index(f.folded, foldString(needle))
	if idx < 0 {
		return 0, false
	}
	return f.origins[idx], true
}

func foldString(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
