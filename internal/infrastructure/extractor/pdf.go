package extractor

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/doc-annotator/internal/core/domain"
)

type pageSource interface {
	NumPage() int
	PageText(pageNum int) (string, error)
}

type ledongthucPages struct {
	reader *pdf.Reader
}

func (p ledongthucPages) NumPage() int {
	return p.reader.NumPage()
}

func (p ledongthucPages) PageText(pageNum int) (string, error) {
	page := p.reader.Page(pageNum)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

func (e *Extractor) extractPDF(path string) (domain.Extraction, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return domain.Extraction{}, domain.WrapError(domain.ErrCorruptDocument, "open pdf", err)
	}
	defer f.Close()

	return e.joinPages(ledongthucPages{reader: reader})
}

// joinPages keeps page order and skips pages without a text layer.
func (e *Extractor) joinPages(src pageSource) (domain.Extraction, error) {
	total := src.NumPage()
	segments := make([]string, 0, total)

	for pageNum := 1; pageNum <= total; pageNum++ {
		text, err := src.PageText(pageNum)
		if err != nil {
			e.logger.Warn("extract_pdf_page_failed", "page", pageNum, "error", err)
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			e.logger.Info("extract_pdf_page_empty", "page", pageNum)
			continue
		}
		segments = append(segments, text)
	}

	extraction := domain.Extraction{
		Text:          strings.Join(segments, segmentSeparator),
		Format:        domain.FormatPDF,
		Method:        "ledongthuc/pdf",
		Pages:         total,
		PagesWithText: len(segments),
	}
	if len(segments) == 0 {
		return extraction, domain.WrapError(domain.ErrNoTextLayer, "extract pdf", fmt.Errorf("0 of %d pages have text", total))
	}
	return extraction, nil
}
