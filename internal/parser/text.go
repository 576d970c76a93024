package parser

import (
	"bufio"
	"io"
	"strings"
)

// TextParser handles plain text files. Paragraphs are normalized to a single
// blank line between them; line content is kept as-is so "#" headings survive.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	var w sectionWriter
	for _, para := range paragraphs {
		w.block(para)
	}
	return &Document{Title: baseTitle(filename), Content: w.String()}, nil
}
