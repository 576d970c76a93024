package treeindex

import (
	"strings"

	"github.com/dgallion1/treeindex/internal/doctree"
)

// Header is a heading line found in raw text.
type Header struct {
	Level     int
	Title     string
	CharStart int
}

// ScanHeaders finds "#"-style heading lines outside fenced code blocks.
// CharStart is the byte offset of the start of the heading's line.
func ScanHeaders(content string) []Header {
	var headers []Header
	inFence := false
	offset := 0
	for offset <= len(content) {
		lineEnd := strings.IndexByte(content[offset:], '\n')
		var line string
		next := len(content) + 1
		if lineEnd >= 0 {
			line = content[offset : offset+lineEnd]
			next = offset + lineEnd + 1
		} else {
			line = content[offset:]
		}
		line = strings.TrimSuffix(line, "\r")

		trimmed := strings.TrimLeft(line, " ")
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
		} else if !inFence && len(line)-len(trimmed) <= 3 {
			if level, title, ok := parseHeading(trimmed); ok {
				headers = append(headers, Header{Level: level, Title: title, CharStart: offset})
			}
		}
		offset = next
	}
	return headers
}

func parseHeading(s string) (int, string, bool) {
	level := 0
	for level < len(s) && s[level] == '#' {
		level++
	}
	if level == 0 || level > 6 || level >= len(s) {
		return 0, "", false
	}
	if s[level] != ' ' && s[level] != '\t' {
		return 0, "", false
	}
	title := strings.TrimSpace(s[level+1:])
	if title == "" {
		return 0, "", false
	}
	return level, title, true
}

type stackEntry struct {
	node  *doctree.TreeNode
	level int
}

// BuildFromHeaders builds an unsummarized tree. Headers deeper than MaxDepth
// are ignored, so their text belongs to the preceding kept section. A header
// beyond MaxChildren under its parent is dropped together with its subtree.
func BuildFromHeaders(title string, headers []Header, total int, cfg Config) *doctree.TreeNode {
	cfg = cfg.withDefaults()
	root := &doctree.TreeNode{Title: title, CharStart: 0, CharEnd: total}

	kept := make([]Header, 0, len(headers))
	for _, h := range headers {
		if h.Level <= cfg.MaxDepth {
			kept = append(kept, h)
		}
	}

	stack := []stackEntry{{node: root, level: 0}}
	for i, h := range kept {
		end := total
		if i+1 < len(kept) {
			end = kept[i+1].CharStart - 1
		}
		node := &doctree.TreeNode{Title: h.Title, CharStart: h.CharStart, CharEnd: end}

		for len(stack) > 1 && stack[len(stack)-1].level >= h.Level {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1].node
		if parent != nil && len(parent.Children) < cfg.MaxChildren {
			parent.Children = append(parent.Children, node)
		} else {
			// Detached: descendants see a nil parent and are dropped too.
			node = nil
		}
		stack = append(stack, stackEntry{node: node, level: h.Level})
	}

	doctree.Clamp(root, total)
	return root
}
