package bus

import (
	"encoding/json"
	"fmt"
)

// DocumentKind is the document format a chunk was extracted from. It drives
// which locator field a retrieval hit or source reference exposes.
type DocumentKind string

const (
	DocPDF      DocumentKind = "pdf"
	DocSlides   DocumentKind = "pptx"
	DocTabular  DocumentKind = "csv"
	DocWord     DocumentKind = "docx"
	DocText     DocumentKind = "txt"
	DocMarkdown DocumentKind = "md"
)

// LocatorKind names the positional reference a DocumentKind carries.
type LocatorKind string

const (
	LocatorPage      LocatorKind = "page"
	LocatorSlide     LocatorKind = "slide"
	LocatorRow       LocatorKind = "row"
	LocatorParagraph LocatorKind = "paragraph"
)

// LocatorFor maps a document kind to its single locator kind. The mapping is
// total over the known kinds; anything else is an error rather than a
// silently locator-less result.
func LocatorFor(kind DocumentKind) (LocatorKind, error) {
	switch kind {
	case DocPDF:
		return LocatorPage, nil
	case DocSlides:
		return LocatorSlide, nil
	case DocTabular:
		return LocatorRow, nil
	case DocWord, DocText, DocMarkdown:
		return LocatorParagraph, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDocumentKind, kind)
	}
}

// Locator is the kind-specific position of a chunk inside its source
// document: page for PDFs, slide for decks, row for tabular data, paragraph
// for everything else.
type Locator struct {
	Kind  LocatorKind `json:"kind"`
	Value int         `json:"value"`
}

// Chunk is a unit of extracted document text. Produced by the parser, owned
// by Ingestion until forwarded, immutable after creation.
type Chunk struct {
	Text           string       `json:"text"`
	SourceDocument string       `json:"source_document"`
	Locator        Locator      `json:"locator"`
	DocKind        DocumentKind `json:"doc_kind"`
}

// RetrievedContext is one retrieval hit. It lives only inside the envelope
// carrying it; nothing persists it past the round-trip.
type RetrievedContext struct {
	Text           string  `json:"text"`
	SourceDocument string  `json:"source_document"`
	Locator        Locator `json:"locator"`
	Score          float32 `json:"score"`
}

// SourceRef is a citation entry in a final result: the source document plus
// its single locator field.
type SourceRef struct {
	Document string
	Locator  Locator
}

// MarshalJSON flattens the locator into a kind-named field, e.g.
// {"document":"report.pdf","page":3}.
func (s SourceRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"document":              s.Document,
		string(s.Locator.Kind): s.Locator.Value,
	})
}
