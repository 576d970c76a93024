package parser

import (
	"bytes"
	"io"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark. The source is kept
// verbatim except that setext headings are rewritten as "#" headings; the
// title is the first level-1 heading, or the filename.
type MarkdownParser struct{}

type rewrite struct {
	start, end int
	repl       string
}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	src = bytes.ReplaceAll(src, []byte("\r\n"), []byte("\n"))

	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(src))

	doc := &Document{Title: baseTitle(filename)}
	titled := false
	var rewrites []rewrite

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		heading, ok := n.(*ast.Heading)
		if !ok || heading.Lines().Len() == 0 {
			continue
		}
		title := strings.TrimSpace(string(heading.Text(src)))
		if heading.Level == 1 && !titled && title != "" {
			doc.Title = title
			titled = true
		}

		lines := heading.Lines()
		start := lineStart(src, lines.At(0).Start)
		if bytes.HasPrefix(bytes.TrimLeft(src[start:], " "), []byte("#")) {
			continue // Already ATX.
		}
		// Setext: text lines followed by an underline of = or -.
		textEnd := lineEnd(src, lines.At(lines.Len()-1).Start)
		underlineEnd := lineEnd(src, min(textEnd+1, len(src)))
		rewrites = append(rewrites, rewrite{
			start: start,
			end:   underlineEnd,
			repl:  strings.Repeat("#", heading.Level) + " " + title,
		})
	}

	doc.Content = applyRewrites(src, rewrites)
	return doc, nil
}

func lineStart(src []byte, pos int) int {
	pos = min(pos, len(src))
	if i := bytes.LastIndexByte(src[:pos], '\n'); i >= 0 {
		return i + 1
	}
	return 0
}

// lineEnd returns the index of the newline ending the line containing pos, or len(src).
func lineEnd(src []byte, pos int) int {
	pos = min(pos, len(src))
	if i := bytes.IndexByte(src[pos:], '\n'); i >= 0 {
		return pos + i
	}
	return len(src)
}

func applyRewrites(src []byte, rewrites []rewrite) string {
	if len(rewrites) == 0 {
		return string(src)
	}
	sort.Slice(rewrites, func(i, j int) bool { return rewrites[i].start < rewrites[j].start })
	var buf bytes.Buffer
	buf.Grow(len(src))
	prev := 0
	for _, rw := range rewrites {
		if rw.start < prev {
			continue
		}
		buf.Write(src[prev:rw.start])
		buf.WriteString(rw.repl)
		prev = rw.end
	}
	buf.Write(src[prev:])
	return buf.String()
}
