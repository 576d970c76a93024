// Package treeindex builds a hierarchical index over a document: a fast path
// from heading markers plus batched summaries, or an inference-synthesized
// tree when the document has too few headings.
package treeindex

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/treeindex/internal/doctree"
	"github.com/dgallion1/treeindex/internal/llm"
)

// Saver persists a built tree.
type Saver interface {
	SaveTreeIndex(ctx context.Context, documentID string, tree *doctree.TreeNode, rawContent string, meta doctree.Metadata) (*doctree.Record, error)
}

// Builder runs one build per call and keeps no state between calls.
type Builder struct {
	gen   llm.Generator
	saver Saver
	cfg   Config
	log   *slog.Logger
}

func NewBuilder(gen llm.Generator, saver Saver, cfg Config, log *slog.Logger) *Builder {
	return &Builder{gen: gen, saver: saver, cfg: cfg.withDefaults(), log: log}
}

func (b *Builder) tree(ctx context.Context, log *slog.Logger, title, content string) (*doctree.TreeNode, doctree.Metadata) {
	meta := doctree.Metadata{Title: title}
	headers := ScanHeaders(content)

	if len(headers) >= b.cfg.MinHeaders {
		root := BuildFromHeaders(title, headers, len(content), b.cfg)
		prov := Enrich(ctx, b.gen, log, root, content, b.cfg)
		meta.Method = doctree.MethodHeaders
		meta.Model, meta.Provider = prov.Model, prov.Provider
		meta.NodeCount = doctree.CountSections(root)
		return root, meta
	}

	log.Info("too few headers, synthesizing tree", "headers", len(headers), "min_headers", b.cfg.MinHeaders)
	root, prov := Synthesize(ctx, b.gen, log, title, content, b.cfg)
	if root == nil {
		return nil, meta
	}
	meta.Method = doctree.MethodSynthesized
	meta.Model, meta.Provider = prov.Model, prov.Provider
	meta.NodeCount = doctree.CountSections(root)
	return root, meta
}

// Build builds and persists the tree index for a document. It returns
// (nil, nil) when no tree could be produced; only a persistence failure is
// returned as an error.
func (b *Builder) Build(ctx context.Context, documentID, title, content string) (*doctree.Record, error) {
	log := b.log.With("doc_id", documentID)
	start := time.Now()

	root, meta := b.tree(ctx, log, title, content)
	if root == nil {
		buildsTotal.WithLabelValues(doctree.MethodSynthesized, "no_structure").Inc()
		log.Warn("no tree index produced")
		return nil, nil
	}

	rec, err := b.saver.SaveTreeIndex(ctx, documentID, root, content, meta)
	if err != nil {
		buildsTotal.WithLabelValues(meta.Method, "error").Inc()
		return nil, fmt.Errorf("save tree index: %w", err)
	}

	buildsTotal.WithLabelValues(meta.Method, "ok").Inc()
	buildDuration.WithLabelValues(meta.Method).Observe(time.Since(start).Seconds())
	log.Info("tree index built",
		"method", meta.Method,
		"sections", meta.NodeCount,
		"version", rec.Version,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return rec, nil
}
