package parser

import (
	"strings"
	"testing"
)

func TestForFile(t *testing.T) {
	tests := []struct {
		filename string
		wantErr  bool
	}{
		{"a.txt", false},
		{"a.MD", false},
		{"a.markdown", false},
		{"a.csv", false},
		{"a.htm", false},
		{"a.pdf", false},
		{"a.docx", false},
		{"a.exe", true},
	}
	for _, tt := range tests {
		_, err := ForFile(tt.filename)
		if (err != nil) != tt.wantErr {
			t.Errorf("ForFile(%q) error = %v, wantErr %v", tt.filename, err, tt.wantErr)
		}
		if IsSupportedExtension(tt.filename) == tt.wantErr {
			t.Errorf("IsSupportedExtension(%q) disagrees with ForFile", tt.filename)
		}
	}
}

func TestHTMLParser_HeadingsBecomeMarkers(t *testing.T) {
	input := `<html><head><title>Handbook</title><style>p{}</style></head><body>
<nav>skip me</nav>
<h1>Policies</h1><p>Intro  text.</p>
<h2>Leave</h2><ul><li>Annual</li><li>Sick</li></ul>
<script>var x = 1;</script>
</body></html>`
	p := &HTMLParser{}
	doc, err := p.Parse(strings.NewReader(input), "handbook.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "Handbook" {
		t.Errorf("expected title from <title>, got %q", doc.Title)
	}
	want := "# Policies\n\nIntro  text.\n\n## Leave\n\nAnnual\n\nSick\n"
	if doc.Content != want {
		t.Errorf("expected %q, got %q", want, doc.Content)
	}
}

func TestCSVParser_RowSections(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("name,qty\n")
	for i := range 45 {
		sb.WriteString("item,")
		sb.WriteString(strings.Repeat("1", i%3+1))
		sb.WriteString("\n")
	}
	p := &CSVParser{}
	doc, err := p.Parse(strings.NewReader(sb.String()), "stock.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "stock" {
		t.Errorf("expected title %q, got %q", "stock", doc.Title)
	}
	for _, h := range []string{"## Rows 2-21", "## Rows 22-41", "## Rows 42-46"} {
		if !strings.Contains(doc.Content, h+"\n") {
			t.Errorf("expected section %q in %q", h, doc.Content)
		}
	}
	if !strings.Contains(doc.Content, "name: item, qty: 11") {
		t.Errorf("expected labelled cells, got %q", doc.Content)
	}
}

func TestCSVParser_Empty(t *testing.T) {
	doc, err := (&CSVParser{}).Parse(strings.NewReader(""), "empty.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Content != "" {
		t.Errorf("expected empty content, got %q", doc.Content)
	}
}
