package treeindex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/treeindex/internal/doctree"
	"github.com/dgallion1/treeindex/internal/llm"
)

type fakeGen struct {
	replies []string
	errs    []error
	prompts []string
}

func (f *fakeGen) Generate(_ context.Context, prompt string, _ llm.Options) (*llm.Response, error) {
	i := len(f.prompts)
	f.prompts = append(f.prompts, prompt)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	text := ""
	if i < len(f.replies) {
		text = f.replies[i]
	}
	return &llm.Response{Text: text, Model: "test-model", Provider: "test"}, nil
}

type fakeSaver struct {
	err   error
	saved []doctree.Metadata
}

func (s *fakeSaver) SaveTreeIndex(_ context.Context, documentID string, tree *doctree.TreeNode, raw string, meta doctree.Metadata) (*doctree.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.saved = append(s.saved, meta)
	return &doctree.Record{DocumentID: documentID, Tree: tree, FullContent: raw, NodeCount: meta.NodeCount, Method: meta.Method, Model: meta.Model, Provider: meta.Provider, Version: 1}, nil
}

func quietLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func titles(nodes []*doctree.TreeNode) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Title
	}
	return out
}

func TestScanHeaders(t *testing.T) {
	content := "# A\nbody\n  ## B\r\n```\n# not a header\n```\n#NoSpace\n    # too indented\n####### seven\n### C ###\n"
	headers := ScanHeaders(content)
	require.Len(t, headers, 3)

	assert.Equal(t, Header{Level: 1, Title: "A", CharStart: 0}, headers[0])
	assert.Equal(t, Header{Level: 2, Title: "B", CharStart: strings.Index(content, "  ## B")}, headers[1])
	assert.Equal(t, 3, headers[2].Level)
	assert.Equal(t, "C ###", headers[2].Title)
}

func TestBuildFromHeadersNesting(t *testing.T) {
	content := "# A\naaa\n## B\nbbb\n# C\nccc"
	root := BuildFromHeaders("doc", ScanHeaders(content), len(content), DefaultConfig())

	assert.Equal(t, 0, root.CharStart)
	assert.Equal(t, len(content), root.CharEnd)
	require.Equal(t, []string{"A", "C"}, titles(root.Children))
	require.Equal(t, []string{"B"}, titles(root.Children[0].Children))

	a, b, c := root.Children[0], root.Children[0].Children[0], root.Children[1]
	assert.Equal(t, strings.Index(content, "## B")-1, a.CharEnd)
	assert.Equal(t, strings.Index(content, "# C")-1, b.CharEnd)
	assert.Equal(t, len(content), c.CharEnd)
}

func TestBuildFromHeadersRangesMonotonic(t *testing.T) {
	var sb strings.Builder
	for i := range 20 {
		sb.WriteString(fmt.Sprintf("%s Section %d\nsome text for section %d\n", strings.Repeat("#", i%3+1), i, i))
	}
	content := sb.String()
	root := BuildFromHeaders("doc", ScanHeaders(content), len(content), DefaultConfig())

	prev := -1
	for _, f := range doctree.Flatten(root) {
		assert.GreaterOrEqual(t, f.Node.CharStart, prev)
		assert.LessOrEqual(t, f.Node.CharStart, f.Node.CharEnd)
		assert.LessOrEqual(t, f.Node.CharEnd, len(content))
		prev = f.Node.CharStart
	}
}

func TestBuildFromHeadersMaxDepth(t *testing.T) {
	content := "# A\n## B\n### deep\ntext\n# C\n"
	cfg := DefaultConfig()
	cfg.MaxDepth = 2
	root := BuildFromHeaders("doc", ScanHeaders(content), len(content), cfg)

	require.Equal(t, []string{"A", "C"}, titles(root.Children))
	b := root.Children[0].Children[0]
	assert.Empty(t, b.Children)
	assert.Equal(t, strings.Index(content, "# C")-1, b.CharEnd, "skipped header text stays in B")
}

func TestBuildFromHeadersMaxChildrenDropsSubtree(t *testing.T) {
	content := "# A\n# B\n# C\n## C1\n# D\n"
	cfg := DefaultConfig()
	cfg.MaxChildren = 2
	root := BuildFromHeaders("doc", ScanHeaders(content), len(content), cfg)

	require.Equal(t, []string{"A", "B"}, titles(root.Children))
	assert.Empty(t, root.Children[0].Children)
	assert.Empty(t, root.Children[1].Children)
	assert.Equal(t, 2, doctree.CountSections(root))
}

func TestEnrichBatching(t *testing.T) {
	tests := []struct {
		name     string
		sections int
		calls    int
	}{
		{"exactly one batch", 30, 1},
		{"one over", 31, 2},
		{"none", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := &doctree.TreeNode{Title: "doc"}
			for i := range tt.sections {
				root.Children = append(root.Children, &doctree.TreeNode{Title: fmt.Sprintf("S%d", i)})
			}
			gen := &fakeGen{}
			Enrich(context.Background(), gen, quietLog(), root, "", Config{SummaryBatchSize: 30})
			assert.Len(t, gen.prompts, tt.calls)
			assert.Equal(t, statsSummary(tt.sections, 0), root.Summary)
		})
	}
}

func TestEnrichPositionalAlignmentAndFailures(t *testing.T) {
	content := "# One\nfirst\n# Two\nsecond\n# Three\nthird\n# Four\nfourth\n"
	root := BuildFromHeaders("doc", ScanHeaders(content), len(content), DefaultConfig())
	gen := &fakeGen{
		replies: []string{
			`Here: ["first summary", 42]`,
			`not json`,
		},
	}
	prov := Enrich(context.Background(), gen, quietLog(), root, content, Config{SummaryBatchSize: 2})

	require.Len(t, gen.prompts, 2)
	assert.Contains(t, gen.prompts[0], "first")
	assert.Equal(t, "first summary", root.Children[0].Summary)
	assert.Empty(t, root.Children[1].Summary, "non-string element ignored")
	assert.Empty(t, root.Children[2].Summary)
	assert.Empty(t, root.Children[3].Summary)
	assert.Equal(t, "test-model", prov.Model)
	assert.Equal(t, statsSummary(4, len(content)), root.Summary)
}

func TestEnrichFailedCallContinues(t *testing.T) {
	root := &doctree.TreeNode{Children: []*doctree.TreeNode{{Title: "a"}, {Title: "b"}}}
	gen := &fakeGen{errs: []error{errors.New("down")}, replies: []string{"", `["B"]`}}
	Enrich(context.Background(), gen, quietLog(), root, "", Config{SummaryBatchSize: 1})
	assert.Len(t, gen.prompts, 2)
	assert.Empty(t, root.Children[0].Summary)
	assert.Equal(t, "B", root.Children[1].Summary)
}

func TestSynthesizeClampsAndDefaults(t *testing.T) {
	content := strings.Repeat("plain text without headings. ", 10)
	total := len(content)
	gen := &fakeGen{replies: []string{"```json\n" + `{"title":"T","summary":"S","children":[
		{"title":"Intro","summary":"i","charStart":-20,"charEnd":50,"children":[{"title":"","charStart":40,"charEnd":99999}]},
		{"title":"Rest","charStart":100}
	]}` + "\n```"}}

	root, prov := Synthesize(context.Background(), gen, quietLog(), "", content, DefaultConfig())
	require.NotNil(t, root)
	assert.Equal(t, "T", root.Title)
	assert.Equal(t, 0, root.CharStart)
	assert.Equal(t, total, root.CharEnd)

	intro := root.Children[0]
	assert.Equal(t, 0, intro.CharStart)
	assert.Equal(t, 50, intro.CharEnd)
	assert.Equal(t, untitledSection, intro.Children[0].Title)
	assert.Equal(t, total, intro.Children[0].CharEnd)
	assert.Equal(t, total, root.Children[1].CharEnd)
	assert.Equal(t, Provenance{Model: "test-model", Provider: "test"}, prov)
}

func TestSynthesizeSendsTailForLongDocuments(t *testing.T) {
	content := "HEAD" + strings.Repeat("m", 300) + "TAIL"
	gen := &fakeGen{}
	Synthesize(context.Background(), gen, quietLog(), "doc", content, Config{SynthesisPreviewChars: 100})
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "HEAD")
	assert.Contains(t, gen.prompts[0], "TAIL")

	short := "HEAD" + strings.Repeat("m", 150) + "TAIL"
	gen = &fakeGen{}
	Synthesize(context.Background(), gen, quietLog(), "doc", short, Config{SynthesisPreviewChars: 100})
	assert.NotContains(t, gen.prompts[0], "TAIL")
}

func TestSynthesizeNoTree(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGen
	}{
		{"call fails", &fakeGen{errs: []error{errors.New("boom")}}},
		{"empty reply", &fakeGen{replies: []string{""}}},
		{"not an object", &fakeGen{replies: []string{`["a","b"]`}}},
		{"no sections", &fakeGen{replies: []string{`{"title":"T","children":[]}`}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, _ := Synthesize(context.Background(), tt.gen, quietLog(), "doc", "some text", DefaultConfig())
			assert.Nil(t, root)
		})
	}
}

func TestBuildFastPathPersists(t *testing.T) {
	content := "# A\nalpha\n# B\nbeta\n# C\ngamma\n"
	gen := &fakeGen{replies: []string{`["a","b","c"]`}}
	saver := &fakeSaver{}
	b := NewBuilder(gen, saver, DefaultConfig(), quietLog())

	rec, err := b.Build(context.Background(), "doc-1", "Doc", content)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, doctree.MethodHeaders, rec.Method)
	assert.Equal(t, 3, rec.NodeCount)
	assert.Equal(t, "test-model", rec.Model)
	assert.Equal(t, "c", rec.Tree.Children[2].Summary)
	assert.Len(t, gen.prompts, 1)
}

func TestBuildFallsBackToSynthesis(t *testing.T) {
	content := "# Only one\nthen lots of prose"
	gen := &fakeGen{replies: []string{`{"title":"x","children":[{"title":"Prose","charStart":0,"charEnd":10}]}`}}
	saver := &fakeSaver{}
	rec, err := NewBuilder(gen, saver, DefaultConfig(), quietLog()).Build(context.Background(), "doc-2", "Doc", content)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, doctree.MethodSynthesized, rec.Method)
	assert.Equal(t, "Doc", rec.Tree.Title)
}

func TestBuildNoStructure(t *testing.T) {
	gen := &fakeGen{errs: []error{errors.New("down")}}
	saver := &fakeSaver{}
	rec, err := NewBuilder(gen, saver, DefaultConfig(), quietLog()).Build(context.Background(), "doc-3", "", "prose")
	assert.NoError(t, err)
	assert.Nil(t, rec)
	assert.Empty(t, saver.saved)
}

func TestBuildSaveErrorPropagates(t *testing.T) {
	content := "# A\n# B\n# C\n"
	saver := &fakeSaver{err: errors.New("disk full")}
	_, err := NewBuilder(&fakeGen{}, saver, DefaultConfig(), quietLog()).Build(context.Background(), "doc-4", "", content)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save tree index")
	assert.ErrorIs(t, err, saver.err)
}
