package navigator

import (
	"fmt"
	"strings"

	"github.com/dgallion1/treeindex/internal/doctree"
)

// Outline renders every section as `"title": summary [chars start-end]`,
// indented two spaces per level below the top.
func Outline(root *doctree.TreeNode) string {
	var sb strings.Builder
	for _, f := range doctree.Flatten(root) {
		sb.WriteString(strings.Repeat("  ", f.Depth-1))
		sb.WriteString(fmt.Sprintf("%q: %s [chars %d-%d]\n", f.Node.Title, f.Node.Summary, f.Node.CharStart, f.Node.CharEnd))
	}
	return sb.String()
}

const navigationPrompt = `You are navigating document outlines to answer a question. Each document is listed with its index and an outline of its sections; each line gives the section title, a summary, and its character range.

Select up to %d sections whose text most likely answers the question. Return a JSON array of objects with these fields:

- "docIndex": the document index (integer)
- "title": the section title (string)
- "charStart", "charEnd": the section character range as shown in the outline (integers)
- "relevance": how relevant the section is, from 0.0 to 1.0 (float)
- "reason": a short explanation (string)

Return an empty array [] if nothing is relevant. Respond with ONLY the JSON array, no other text.`

func buildPrompt(query string, records []*doctree.Record, maxSections int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(navigationPrompt, maxSections))
	sb.WriteString("\n\n---\n")
	for i, rec := range records {
		title := rec.Title
		if title == "" {
			title = rec.Tree.Title
		}
		sb.WriteString(fmt.Sprintf("Document %d: %q\n", i, title))
		sb.WriteString(Outline(rec.Tree))
		sb.WriteString("\n")
	}
	sb.WriteString("---\nQuestion: ")
	sb.WriteString(query)
	return sb.String()
}
