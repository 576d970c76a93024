package treeindex

import (
	"context"
	"log/slog"

	"github.com/dgallion1/treeindex/internal/doctree"
	"github.com/dgallion1/treeindex/internal/llm"
)

const untitledSection = "Untitled section"

type synthNode struct {
	Title     string      `json:"title"`
	Summary   string      `json:"summary"`
	CharStart *int        `json:"charStart"`
	CharEnd   *int        `json:"charEnd"`
	Children  []synthNode `json:"children"`
}

// Provenance names the model that produced a tree's content.
type Provenance struct {
	Model    string
	Provider string
}

// Synthesize asks inference for a whole tree when the document has too few
// headings. It returns nil when the call fails or the reply is not a JSON
// object with at least one section; it never invents structure itself.
func Synthesize(ctx context.Context, gen llm.Generator, log *slog.Logger, title, content string, cfg Config) (*doctree.TreeNode, Provenance) {
	cfg = cfg.withDefaults()
	total := len(content)
	preview := cfg.SynthesisPreviewChars

	head := doctree.Slice(content, 0, preview)
	var tail string
	tailStart := 0
	if total > 2*preview {
		tailStart = total - preview
		tail = doctree.Slice(content, tailStart, total)
	}

	prompt := buildSynthesisPrompt(title, head, tail, tailStart, total, cfg.MaxDepth)
	log.Debug("synthesizing tree", "content_chars", total, "prompt_tokens", llm.EstimateTokens(prompt))
	resp, err := gen.Generate(ctx, prompt, llm.Options{JSONMode: true})
	if err != nil {
		log.Warn("tree synthesis call failed", "error", err)
		return nil, Provenance{}
	}
	if resp == nil || resp.Text == "" {
		log.Warn("tree synthesis returned no result")
		return nil, Provenance{}
	}

	decoded := llm.DecodeObject[synthNode](resp.Text)
	if !decoded.OK() {
		log.Warn("tree synthesis response unparseable", "error", decoded.Err)
		return nil, Provenance{}
	}
	if len(decoded.Value.Children) == 0 {
		log.Warn("tree synthesis produced no sections")
		return nil, Provenance{}
	}

	root := &doctree.TreeNode{
		Title:     decoded.Value.Title,
		Summary:   decoded.Value.Summary,
		CharStart: 0,
		CharEnd:   total,
		Children:  convertSynth(decoded.Value.Children, total),
	}
	if title != "" {
		root.Title = title
	}
	doctree.Clamp(root, total)
	return root, Provenance{Model: resp.Model, Provider: resp.Provider}
}

func convertSynth(nodes []synthNode, total int) []*doctree.TreeNode {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]*doctree.TreeNode, 0, len(nodes))
	for _, n := range nodes {
		start, end := 0, total
		if n.CharStart != nil {
			start = *n.CharStart
		}
		if n.CharEnd != nil {
			end = *n.CharEnd
		}
		title := n.Title
		if title == "" {
			title = untitledSection
		}
		out = append(out, &doctree.TreeNode{
			Title:     title,
			Summary:   n.Summary,
			CharStart: start,
			CharEnd:   end,
			Children:  convertSynth(n.Children, total),
		})
	}
	return out
}
