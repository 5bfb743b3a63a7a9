package parser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"docqa/internal/bus"
)

// parseParagraphs splits plain text or markdown on blank lines, one chunk
// per non-empty paragraph, numbered from 1.
func parseParagraphs(data []byte, kind bus.DocumentKind) ([]bus.Chunk, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")

	var chunks []bus.Chunk
	num := 0
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		num++
		chunks = append(chunks, bus.Chunk{
			Text:    para,
			Locator: bus.Locator{Kind: bus.LocatorParagraph, Value: num},
			DocKind: kind,
		})
	}
	return chunks, nil
}

// csvGroupRows is how many data rows share one chunk.
const csvGroupRows = 10

// parseCSV emits a header chunk at row 0 followed by one chunk per group of
// data rows, each located at the 1-based index of its first row.
func parseCSV(data []byte) ([]bus.Chunk, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty csv")
	}

	chunks := []bus.Chunk{{
		Text:    "CSV Headers: " + strings.Join(records[0], ", "),
		Locator: bus.Locator{Kind: bus.LocatorRow, Value: 0},
		DocKind: bus.DocTabular,
	}}

	rows := records[1:]
	for start := 0; start < len(rows); start += csvGroupRows {
		end := start + csvGroupRows
		if end > len(rows) {
			end = len(rows)
		}
		lines := make([]string, 0, end-start)
		for _, row := range rows[start:end] {
			lines = append(lines, strings.Join(row, ", "))
		}
		chunks = append(chunks, bus.Chunk{
			Text:    strings.Join(lines, "\n"),
			Locator: bus.Locator{Kind: bus.LocatorRow, Value: start + 1},
			DocKind: bus.DocTabular,
		})
	}
	return chunks, nil
}
