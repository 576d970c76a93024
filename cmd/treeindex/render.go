package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dgallion1/treeindex/internal/doctree"
	"github.com/dgallion1/treeindex/internal/navigator"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("160"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("81"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	scoreStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("160")).
			Padding(0, 1)
)

// renderRecord prints a header box followed by the indented section outline.
func renderRecord(w io.Writer, rec *doctree.Record) {
	header := titleStyle.Render(rec.Title) + "\n" + dimStyle.Render(fmt.Sprintf(
		"%s  %s  %d sections  v%d", rec.DocumentID, rec.Method, rec.NodeCount, rec.Version,
	))
	if rec.Model != "" {
		header += "\n" + dimStyle.Render(rec.Provider+"/"+rec.Model)
	}
	fmt.Fprintln(w, boxStyle.Render(header))

	for _, f := range doctree.Flatten(rec.Tree) {
		indent := strings.Repeat("  ", f.Depth-1)
		fmt.Fprintf(w, "%s%s %s\n", indent,
			sectionStyle.Render(f.Node.Title),
			dimStyle.Render(fmt.Sprintf("[%d-%d]", f.Node.CharStart, f.Node.CharEnd)),
		)
		if f.Node.Summary != "" {
			fmt.Fprintf(w, "%s  %s\n", indent, f.Node.Summary)
		}
	}
}

// renderResults prints navigation results, best first.
func renderResults(w io.Writer, results []navigator.Result) {
	if len(results) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no relevant sections"))
		return
	}
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s %s %s\n",
			scoreStyle.Render(fmt.Sprintf("%.2f", r.Score)),
			sectionStyle.Render(r.Data.SectionTitle),
			dimStyle.Render(fmt.Sprintf("%s [%d-%d]", r.Data.SourceDocumentID, r.Data.CharRange.Start, r.Data.CharRange.End)),
		)
		if r.Data.Reason != "" {
			fmt.Fprintln(w, dimStyle.Render(r.Data.Reason))
		}
		fmt.Fprintln(w, r.Text)
	}
}
