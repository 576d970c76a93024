// Package navigator answers a query by asking inference to pick sections from
// the outlines of persisted tree indexes, then slicing those sections out of
// the source text.
package navigator

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/treeindex/internal/doctree"
	"github.com/dgallion1/treeindex/internal/llm"
)

const (
	ResultType   = "tree_section"
	ResultSource = "tree"

	truncationMarker = "\n...[truncated]"
)

type Options struct {
	MaxSections          int
	MinRelevanceScore    float64
	MaxContentPerSection int
}

func DefaultOptions() Options {
	return Options{
		MaxSections:          5,
		MinRelevanceScore:    0.3,
		MaxContentPerSection: 8000,
	}
}

type CharRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type ResultData struct {
	SourceDocumentID string    `json:"source_document_id"`
	SectionTitle     string    `json:"section_title"`
	CharRange        CharRange `json:"char_range"`
	Reason           string    `json:"reason"`
}

// Result is one extracted section, shaped for downstream rank fusion.
type Result struct {
	ID     string     `json:"id"`
	Type   string     `json:"type"`
	Text   string     `json:"text"`
	Score  float64    `json:"score"`
	Data   ResultData `json:"data"`
	Source string     `json:"source"`
}

type selection struct {
	DocIndex  *int    `json:"docIndex"`
	Title     string  `json:"title"`
	CharStart int     `json:"charStart"`
	CharEnd   int     `json:"charEnd"`
	Relevance float64 `json:"relevance"`
	Reason    string  `json:"reason"`
}

type Navigator struct {
	gen llm.Generator
	log *slog.Logger
}

func New(gen llm.Generator, log *slog.Logger) *Navigator {
	return &Navigator{gen: gen, log: log}
}

// Search issues a single inference call over all record outlines. It never
// returns an error: inference or parse failures yield an empty slice.
func (n *Navigator) Search(ctx context.Context, query string, records []*doctree.Record, opts Options) []Result {
	results := []Result{}
	records = slices.DeleteFunc(slices.Clone(records), func(r *doctree.Record) bool { return r == nil || r.Tree == nil })
	if len(records) == 0 {
		return results
	}
	opts = opts.withDefaults()
	log := n.log.With("documents", len(records))

	prompt := buildPrompt(query, records, opts.MaxSections)
	log.Debug("navigating", "prompt_tokens", llm.EstimateTokens(prompt))

	resp, err := n.gen.Generate(ctx, prompt, llm.Options{JSONMode: true})
	if err != nil {
		log.Warn("navigation call failed", "error", err)
		selectionsTotal.WithLabelValues("call_failed").Inc()
		return results
	}
	if resp == nil || resp.Text == "" {
		log.Warn("navigation returned no result")
		selectionsTotal.WithLabelValues("call_failed").Inc()
		return results
	}

	decoded := llm.DecodeArray[[]selection](resp.Text)
	if !decoded.OK() {
		log.Warn("navigation response unparseable", "error", decoded.Err)
		selectionsTotal.WithLabelValues("unparseable").Inc()
		return results
	}

	accepted := make([]selection, 0, len(decoded.Value))
	for _, s := range decoded.Value {
		if s.Relevance < opts.MinRelevanceScore {
			selectionsTotal.WithLabelValues("below_threshold").Inc()
			continue
		}
		if s.DocIndex == nil || *s.DocIndex < 0 || *s.DocIndex >= len(records) {
			selectionsTotal.WithLabelValues("bad_document").Inc()
			continue
		}
		accepted = append(accepted, s)
	}
	slices.SortStableFunc(accepted, func(a, b selection) int {
		return cmp.Compare(b.Relevance, a.Relevance)
	})
	if len(accepted) > opts.MaxSections {
		accepted = accepted[:opts.MaxSections]
	}

	for _, s := range accepted {
		rec := records[*s.DocIndex]
		start, end := doctree.ClampRange(s.CharStart, s.CharEnd, len(rec.FullContent))
		text := doctree.Slice(rec.FullContent, start, end)
		if strings.TrimSpace(text) == "" {
			selectionsTotal.WithLabelValues("empty").Inc()
			continue
		}
		text = truncate(text, opts.MaxContentPerSection)

		selectionsTotal.WithLabelValues("accepted").Inc()
		results = append(results, Result{
			ID:     fmt.Sprintf("tree_%s_%d", rec.DocumentID, start),
			Type:   ResultType,
			Text:   text,
			Score:  min(max(s.Relevance, 0), 1),
			Source: ResultSource,
			Data: ResultData{
				SourceDocumentID: rec.DocumentID,
				SectionTitle:     s.Title,
				CharRange:        CharRange{Start: start, End: end},
				Reason:           s.Reason,
			},
		})
	}
	log.Info("navigation complete", "selections", len(decoded.Value), "results", len(results))
	return results
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxSections <= 0 {
		o.MaxSections = d.MaxSections
	}
	if o.MaxContentPerSection <= 0 {
		o.MaxContentPerSection = d.MaxContentPerSection
	}
	return o
}

// truncate keeps text within limit bytes, marker included, cutting on a rune boundary.
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	keep := limit - len(truncationMarker)
	if keep <= 0 {
		return truncationMarker[:min(limit, len(truncationMarker))]
	}
	for keep > 0 && !utf8.RuneStart(text[keep]) {
		keep--
	}
	return text[:keep] + truncationMarker
}
