// Package parser turns uploaded files into plain text with "#" heading
// markers, the form the tree builder scans.
package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Document is parsed text ready for indexing.
type Document struct {
	Title   string
	Content string
}

// Parser converts raw document bytes into a Document.
type Parser interface {
	Parse(r io.Reader, filename string) (*Document, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: true}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// baseTitle strips the directory and extension from a filename.
func baseTitle(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// sectionWriter accumulates "#" headings and paragraphs separated by blank lines.
type sectionWriter struct {
	sb strings.Builder
}

func (w *sectionWriter) heading(level int, title string) {
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		return
	}
	level = min(max(level, 1), 6)
	w.block(strings.Repeat("#", level) + " " + title)
}

func (w *sectionWriter) block(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if w.sb.Len() > 0 {
		w.sb.WriteString("\n\n")
	}
	w.sb.WriteString(text)
}

func (w *sectionWriter) String() string {
	if w.sb.Len() == 0 {
		return ""
	}
	return w.sb.String() + "\n"
}
