package extractor

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nguyenthenguyen/docx"

	"github.com/kirillkom/doc-annotator/internal/core/domain"
)

func (e *Extractor) extractDOCX(path string) (domain.Extraction, error) {
	doc, err := docx.ReadDocxFile(path)
	if err != nil {
		return domain.Extraction{}, domain.WrapError(domain.ErrCorruptDocument, "open docx", err)
	}
	defer doc.Close()

	paragraphs, cells, err := parseDocumentXML(strings.NewReader(doc.Editable().GetContent()))
	if err != nil {
		return domain.Extraction{}, domain.WrapError(domain.ErrCorruptDocument, "parse docx", err)
	}

	segments := make([]string, 0, len(paragraphs)+len(cells))
	segments = appendNonBlank(segments, paragraphs)
	segments = appendNonBlank(segments, cells)

	extraction := domain.Extraction{
		Text:   strings.Join(segments, segmentSeparator),
		Format: domain.FormatDOCX,
		Method: "docx",
	}
	if len(segments) == 0 {
		return extraction, domain.WrapError(domain.ErrNoTextLayer, "extract docx", errors.New("document has no text"))
	}
	return extraction, nil
}

func appendNonBlank(dst, src []string) []string {
	for _, s := range src {
		s = strings.TrimSpace(s)
		if s != "" {
			dst = append(dst, s)
		}
	}
	return dst
}

// parseDocumentXML walks word/document.xml and returns body paragraphs and
// table cells, each in document order. Cells come from top-level tables in
// row-major order; paragraphs of nested tables fold into the enclosing cell.
func parseDocumentXML(r io.Reader) (paragraphs []string, cells []string, err error) {
	decoder := xml.NewDecoder(r)

	var (
		tableDepth int
		inText     bool
		paragraph  strings.Builder
		cell       []string
		inCell     bool
	)

	for {
		tok, tokErr := decoder.Token()
		if tokErr == io.EOF {
			break
		}
		if tokErr != nil {
			return nil, nil, fmt.Errorf("decode document.xml: %w", tokErr)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth++
			case "tc":
				if tableDepth == 1 {
					inCell = true
					cell = cell[:0]
				}
			case "p":
				paragraph.Reset()
			case "t":
				inText = true
			case "tab":
				paragraph.WriteByte('\t')
			case "br", "cr":
				paragraph.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth--
			case "tc":
				if tableDepth == 1 && inCell {
					cells = append(cells, strings.Join(cell, "\n"))
					inCell = false
				}
			case "p":
				text := paragraph.String()
				if tableDepth == 0 {
					paragraphs = append(paragraphs, text)
				} else if inCell {
					cell = append(cell, text)
				}
				paragraph.Reset()
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				paragraph.Write(t)
			}
		}
	}

	return paragraphs, cells, nil
}
