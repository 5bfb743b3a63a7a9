package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"docqa/internal/bus"
)

// DOCX and PPTX are OOXML: zip archives of XML parts. We pull text runs
// straight out of the relevant parts instead of modelling the full schema.

var slideNameRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

func errFromRecover(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}

// parseDOCX emits one chunk per non-empty paragraph of word/document.xml.
// Paragraphs are numbered by document position from 1; empty paragraphs keep
// their slot but produce no chunk, so citations match the document as a
// reader sees it.
func parseDOCX(data []byte) ([]bus.Chunk, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	doc, err := readZipFile(zr, "word/document.xml")
	if err != nil {
		return nil, err
	}

	paragraphs, err := collectRuns(doc, "p", "t")
	if err != nil {
		return nil, err
	}

	var chunks []bus.Chunk
	for i, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		chunks = append(chunks, bus.Chunk{
			Text:    para,
			Locator: bus.Locator{Kind: bus.LocatorParagraph, Value: i + 1},
			DocKind: bus.DocWord,
		})
	}
	return chunks, nil
}

// parsePPTX emits one chunk per slide with text, using the slide's own
// number from its part name. Empty slides are skipped.
func parsePPTX(data []byte) ([]bus.Chunk, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	type slide struct {
		num  int
		name string
	}
	var slides []slide
	for _, f := range zr.File {
		if m := slideNameRe.FindStringSubmatch(f.Name); m != nil {
			n, _ := strconv.Atoi(m[1])
			slides = append(slides, slide{num: n, name: f.Name})
		}
	}
	if len(slides) == 0 {
		return nil, fmt.Errorf("no slides found")
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var chunks []bus.Chunk
	for _, s := range slides {
		content, err := readZipFile(zr, s.name)
		if err != nil {
			return nil, err
		}
		// Shapes on a slide carry their text in a:t runs.
		runs, err := collectRuns(content, "", "t")
		if err != nil {
			return nil, err
		}
		text := strings.TrimSpace(strings.Join(runs, "\n"))
		if text == "" {
			continue
		}
		chunks = append(chunks, bus.Chunk{
			Text:    text,
			Locator: bus.Locator{Kind: bus.LocatorSlide, Value: s.num},
			DocKind: bus.DocSlides,
		})
	}
	return chunks, nil
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("missing part %s", name)
}

// collectRuns walks the XML token stream and gathers character data inside
// <textEl> elements. When groupEl is non-empty, runs are grouped per
// enclosing <groupEl> element (docx paragraphs) and empty groups are kept,
// so an entry's slice position is the element's document position; otherwise
// every non-empty run is its own entry.
func collectRuns(content []byte, groupEl, textEl string) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))

	var (
		groups  []string
		current strings.Builder
		inGroup bool
		inText  bool
	)

	flush := func() {
		if current.Len() > 0 {
			groups = append(groups, current.String())
			current.Reset()
		}
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case groupEl:
				inGroup = true
			case textEl:
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case groupEl:
				groups = append(groups, current.String())
				current.Reset()
				inGroup = false
			case textEl:
				inText = false
				if groupEl == "" {
					flush()
				}
			}
		case xml.CharData:
			if inText && (groupEl == "" || inGroup) {
				current.Write(t)
			}
		}
	}
	flush()
	return groups, nil
}
