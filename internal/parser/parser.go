// Package parser extracts ordered text chunks from uploaded documents. Each
// supported format yields chunks with the locator its kind prescribes:
// pages for PDF, slides for PPTX, rows for CSV, paragraphs for everything
// else.
package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	"docqa/internal/bus"
)

// Parser routes a document to the extractor for its extension.
type Parser struct{}

func New() *Parser { return &Parser{} }

// Parse extracts chunks from data, stamping every chunk with fileName as its
// source document. Unknown extensions fail with bus.ErrUnsupportedFormat,
// broken content with bus.ErrParseFailure.
func (p *Parser) Parse(data []byte, fileName string) ([]bus.Chunk, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))

	var (
		chunks []bus.Chunk
		err    error
	)
	switch ext {
	case "pdf":
		chunks, err = parsePDF(data)
	case "pptx":
		chunks, err = parsePPTX(data)
	case "docx":
		chunks, err = parseDOCX(data)
	case "csv":
		chunks, err = parseCSV(data)
	case "txt":
		chunks, err = parseParagraphs(data, bus.DocText)
	case "md":
		chunks, err = parseParagraphs(data, bus.DocMarkdown)
	default:
		return nil, fmt.Errorf("%w: %q", bus.ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", bus.ErrParseFailure, fileName, err)
	}

	for i := range chunks {
		chunks[i].SourceDocument = fileName
	}
	return chunks, nil
}
