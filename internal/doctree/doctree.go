package doctree

import "unicode/utf8"

// TreeNode is one node of a tree index. The root spans the whole document;
// every other node is a section covering the half-open range [CharStart, CharEnd).
type TreeNode struct {
	Title     string      `json:"title"`
	Summary   string      `json:"summary"`
	CharStart int         `json:"charStart"`
	CharEnd   int         `json:"charEnd"`
	Children  []*TreeNode `json:"children,omitempty"`
}

// FlatNode is a section in pre-order position. Parent indexes into the same
// flattened slice, or is -1 for sections attached directly to the root.
type FlatNode struct {
	Node   *TreeNode
	Parent int
	Depth  int
}

// Flatten walks the tree depth-first and returns every non-root node in
// document order with its parent index and depth (top-level sections are depth 1).
func Flatten(root *TreeNode) []FlatNode {
	if root == nil {
		return nil
	}
	var out []FlatNode
	var walk func(children []*TreeNode, parent, depth int)
	walk = func(children []*TreeNode, parent, depth int) {
		for _, n := range children {
			if n == nil {
				continue
			}
			idx := len(out)
			out = append(out, FlatNode{Node: n, Parent: parent, Depth: depth})
			walk(n.Children, idx, depth+1)
		}
	}
	walk(root.Children, -1, 1)
	return out
}

// CountSections returns the number of non-root nodes.
func CountSections(root *TreeNode) int {
	if root == nil {
		return 0
	}
	n := 0
	var walk func([]*TreeNode)
	walk = func(children []*TreeNode) {
		for _, c := range children {
			if c == nil {
				continue
			}
			n++
			walk(c.Children)
		}
	}
	walk(root.Children)
	return n
}

// Clamp forces every node's range into [0, total] with CharStart <= CharEnd.
// It mutates the tree in place and is idempotent.
func Clamp(node *TreeNode, total int) {
	if node == nil {
		return
	}
	if total < 0 {
		total = 0
	}
	node.CharStart = clampInt(node.CharStart, 0, total)
	node.CharEnd = clampInt(node.CharEnd, node.CharStart, total)
	for _, c := range node.Children {
		Clamp(c, total)
	}
}

// ClampRange returns start/end clamped into [0, total] with start <= end.
func ClampRange(start, end, total int) (int, int) {
	if total < 0 {
		total = 0
	}
	start = clampInt(start, 0, total)
	end = clampInt(end, start, total)
	return start, end
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Slice returns content[start:end] after clamping the range and widening it
// outward to the nearest rune boundaries, so multi-byte characters are never split.
func Slice(content string, start, end int) string {
	start, end = ClampRange(start, end, len(content))
	for start > 0 && !utf8.RuneStart(content[start]) {
		start--
	}
	for end < len(content) && !utf8.RuneStart(content[end]) {
		end++
	}
	return content[start:end]
}
