package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/dgallion1/treeindex/internal/doctree"
	"github.com/dgallion1/treeindex/internal/graphsync"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "treeindex.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTree(total int) *doctree.TreeNode {
	return &doctree.TreeNode{
		Title: "Doc", CharStart: 0, CharEnd: total,
		Children: []*doctree.TreeNode{
			{Title: "A", CharStart: 0, CharEnd: 10},
			{Title: "B", CharStart: 11, CharEnd: total},
		},
	}
}

func TestSaveAndGetTreeIndex(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	content := "# A\nhello\n# B\nworld"

	rec, err := s.SaveTreeIndex(ctx, "doc-1", sampleTree(len(content)), content, doctree.Metadata{
		Title: "Doc", Model: "m", Provider: "p", Method: doctree.MethodHeaders, NodeCount: 2,
	})
	if err != nil {
		t.Fatalf("SaveTreeIndex: %v", err)
	}
	if rec.Version != 1 || rec.ID == "" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.FullContent != content || rec.ContentHash != ContentHash(content) {
		t.Fatalf("content not persisted")
	}
	if len(rec.Tree.Children) != 2 || rec.Tree.Children[1].Title != "B" {
		t.Fatalf("tree not round-tripped: %+v", rec.Tree)
	}

	again, err := s.SaveTreeIndex(ctx, "doc-1", sampleTree(len(content)), content, doctree.Metadata{Method: doctree.MethodSynthesized})
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if again.Version != 2 || again.ID != rec.ID || again.Method != doctree.MethodSynthesized {
		t.Fatalf("rebuild should bump version and keep id, got %+v", again)
	}
}

func TestGetTreeIndexNotFound(t *testing.T) {
	s := openTemp(t)
	_, err := s.GetTreeIndex(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteTreeIndex(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on delete, got %v", err)
	}
}

func TestFindByHashAndList(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		content := "content of " + id
		if _, err := s.SaveTreeIndex(ctx, id, sampleTree(len(content)), content, doctree.Metadata{}); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	docID, ok, err := s.FindByHash(ctx, ContentHash("content of b"))
	if err != nil || !ok || docID != "b" {
		t.Fatalf("FindByHash = %q %v %v", docID, ok, err)
	}
	if _, ok, _ := s.FindByHash(ctx, ContentHash("nope")); ok {
		t.Fatal("unexpected hash hit")
	}

	all, err := s.ListTreeIndexes(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("ListTreeIndexes = %d, %v", len(all), err)
	}
	some, err := s.GetTreeIndexes(ctx, []string{"b", "missing"})
	if err != nil || len(some) != 1 || some[0].DocumentID != "b" {
		t.Fatalf("GetTreeIndexes = %v, %v", some, err)
	}
}

func TestGraphUpsertAndDelete(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	content := "# A\nrevenue grew 20% in Q3\n# B\nworld"
	rec, err := s.SaveTreeIndex(ctx, "doc-1", sampleTree(len(content)), content, doctree.Metadata{})
	if err != nil {
		t.Fatal(err)
	}

	g := s.Graph()
	mapper := graphsync.NewMapper(slog.New(slog.NewTextHandler(io.Discard, nil)))
	entities := []graphsync.Entity{{ID: "fact-1", Content: "Revenue grew 20% in Q3"}}
	first := mapper.Sync(ctx, rec, g, entities)
	second := mapper.Sync(ctx, rec, g, entities)
	if first != second {
		t.Fatalf("resync should report identical counts: %+v vs %+v", first, second)
	}

	counts, err := g.Counts(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts.Sections != 2 || counts.Containment != 2 || counts.EntityLinks != 1 {
		t.Fatalf("unexpected counts after resync: %+v", counts)
	}

	if err := s.DeleteTreeIndex(ctx, "doc-1"); err != nil {
		t.Fatalf("DeleteTreeIndex: %v", err)
	}
	counts, _ = g.Counts(ctx, "doc-1")
	if counts.Sections != 0 {
		t.Fatalf("graph nodes should be removed with the record, got %+v", counts)
	}
}
