package treeindex

import (
	"fmt"
	"strings"
)

const synthesisPrompt = `Analyze the following document excerpt and produce a hierarchical table of contents for the whole document. Return a single JSON object with this shape:

{"title": "...", "summary": "...", "children": [{"title": "...", "summary": "...", "charStart": 0, "charEnd": 1200, "children": [...]}]}

Rules:
- "charStart"/"charEnd" are estimated byte offsets into the full document (total length %d), with charStart < charEnd
- Children must be listed in document order
- Keep nesting to at most %d levels
- Summaries are one or two sentences
- Respond with ONLY the JSON object, no other text.`

// buildSynthesisPrompt embeds the head slice and, for long documents, a tail
// slice with its starting offset.
func buildSynthesisPrompt(title, head, tail string, tailStart, total, maxDepth int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(synthesisPrompt, total, maxDepth))
	sb.WriteString("\n\n---\n")
	if title != "" {
		sb.WriteString(fmt.Sprintf("Document: %q\n", title))
	}
	sb.WriteString("Beginning of document (offset 0):\n")
	sb.WriteString(head)
	if tail != "" {
		sb.WriteString(fmt.Sprintf("\n\n[... middle omitted ...]\n\nEnd of document (offset %d):\n", tailStart))
		sb.WriteString(tail)
	}
	return sb.String()
}

const summaryPrompt = `Write a one-sentence summary for each document section below, based on its opening text. Return a JSON array of %d strings, one per section, in the same order as the sections. Use an empty string when a section has no meaningful content.

Respond with ONLY the JSON array, no other text.`

type sectionPreview struct {
	Title   string
	Preview string
}

func buildSummaryPrompt(docTitle string, sections []sectionPreview) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(summaryPrompt, len(sections)))
	sb.WriteString("\n\n---\n")
	if docTitle != "" {
		sb.WriteString(fmt.Sprintf("Document: %q\n\n", docTitle))
	}
	for i, s := range sections {
		sb.WriteString(fmt.Sprintf("[%d] %s\n%s\n\n", i, s.Title, s.Preview))
	}
	return sb.String()
}
