package treeindex

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/treeindex/internal/doctree"
	"github.com/dgallion1/treeindex/internal/llm"
)

// Enrich fills section summaries in batches of SummaryBatchSize, one inference
// call per batch, in order. A failed batch leaves its summaries empty and does
// not stop later batches. The root summary becomes a stats line. The returned
// provenance is that of the last successful call.
func Enrich(ctx context.Context, gen llm.Generator, log *slog.Logger, root *doctree.TreeNode, content string, cfg Config) Provenance {
	cfg = cfg.withDefaults()
	var prov Provenance
	if root == nil {
		return prov
	}
	flat := doctree.Flatten(root)

	for start := 0; start < len(flat); start += cfg.SummaryBatchSize {
		end := min(start+cfg.SummaryBatchSize, len(flat))
		batch := flat[start:end]

		previews := make([]sectionPreview, len(batch))
		for i, f := range batch {
			limit := min(f.Node.CharEnd, f.Node.CharStart+cfg.SectionPreviewChars)
			previews[i] = sectionPreview{
				Title:   f.Node.Title,
				Preview: strings.TrimSpace(doctree.Slice(content, f.Node.CharStart, limit)),
			}
		}

		blog := log.With("batch_start", start, "batch_size", len(batch))
		resp, err := gen.Generate(ctx, buildSummaryPrompt(root.Title, previews), llm.Options{JSONMode: true})
		if err != nil {
			blog.Warn("summary batch failed", "error", err)
			continue
		}
		if resp == nil || resp.Text == "" {
			blog.Warn("summary batch returned no result")
			continue
		}
		prov = Provenance{Model: resp.Model, Provider: resp.Provider}

		decoded := llm.DecodeArray[[]any](resp.Text)
		if !decoded.OK() {
			blog.Warn("summary batch response unparseable", "error", decoded.Err)
			continue
		}
		for i, v := range decoded.Value {
			if i >= len(batch) {
				break
			}
			if s, ok := v.(string); ok {
				batch[i].Node.Summary = strings.TrimSpace(s)
			}
		}
	}

	root.Summary = statsSummary(len(flat), len(content))
	return prov
}

func statsSummary(sections, total int) string {
	return fmt.Sprintf("Document with %d sections, %d characters", sections, total)
}
