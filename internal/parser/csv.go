package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

const csvRowsPerSection = 20

// CSVParser handles CSV files. Rows are grouped into "## Rows a-b" sections.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	doc := &Document{Title: baseTitle(filename)}
	if len(records) == 0 {
		return doc, nil
	}

	// First row is headers.
	headers := records[0]
	dataRows := records[1:]

	var w sectionWriter
	for i := 0; i < len(dataRows); i += csvRowsPerSection {
		end := min(i+csvRowsPerSection, len(dataRows))
		batch := dataRows[i:end]

		var text strings.Builder
		text.WriteString("Headers: " + strings.Join(headers, ", ") + "\n\n")
		for _, row := range batch {
			for j, cell := range row {
				if j < len(headers) {
					text.WriteString(headers[j] + ": " + cell)
				} else {
					text.WriteString(cell)
				}
				if j < len(row)-1 {
					text.WriteString(", ")
				}
			}
			text.WriteString("\n")
		}

		w.heading(2, fmt.Sprintf("Rows %d-%d", i+2, end+1)) // 1-indexed, skip header
		w.block(text.String())
	}

	doc.Content = w.String()
	return doc, nil
}
