package doctree

import "time"

const (
	MethodHeaders     = "headers"
	MethodSynthesized = "synthesized"
)

// Metadata is the provenance a build attaches to a persisted tree.
type Metadata struct {
	Title     string
	Model     string
	Provider  string
	Method    string
	NodeCount int
}

// Record is a persisted tree index. It is immutable once saved; rebuilding a
// document replaces the record and bumps Version.
type Record struct {
	ID          string    `json:"id"`
	DocumentID  string    `json:"documentId"`
	Title       string    `json:"title"`
	Tree        *TreeNode `json:"tree"`
	FullContent string    `json:"-"`
	NodeCount   int       `json:"nodeCount"`
	Model       string    `json:"model"`
	Provider    string    `json:"provider"`
	Method      string    `json:"method"`
	ContentHash string    `json:"contentHash"`
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
