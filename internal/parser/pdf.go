package parser

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"

	"docqa/internal/bus"
)

// parsePDF extracts one chunk per page with printable text. Pages are
// numbered from 1; empty pages are skipped.
func parsePDF(data []byte) (chunks []bus.Chunk, err error) {
	// The pdf package panics on some malformed cross-reference tables;
	// surface those as parse errors instead.
	defer func() {
		if r := recover(); r != nil {
			chunks = nil
			err = errFromRecover(r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		chunks = append(chunks, bus.Chunk{
			Text:    text,
			Locator: bus.Locator{Kind: bus.LocatorPage, Value: pageNum},
			DocKind: bus.DocPDF,
		})
	}
	return chunks, nil
}
