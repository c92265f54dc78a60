package extractor

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/kirillkom/doc-annotator/internal/core/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type legacyEncoding struct {
	name    string
	charmap *charmap.Charmap
}

// Tried in order after UTF-8. KOI8-R maps every byte, so ISO-8859-1 is only
// reached when the list is reconfigured.
var legacyEncodings = []legacyEncoding{
	{name: "cp1251", charmap: charmap.Windows1251},
	{name: "koi8-r", charmap: charmap.KOI8R},
	{name: "iso-8859-1", charmap: charmap.ISO8859_1},
}

const lossyEncoding = "utf-8 (lossy)"

func (e *Extractor) extractTXT(path string) (domain.Extraction, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Extraction{}, domain.WrapError(domain.ErrCorruptDocument, "read txt", err)
	}

	text, encoding := decodeText(raw, legacyEncodings)
	if encoding == lossyEncoding {
		e.logger.Warn("extract_txt_lossy_decode", "path", path)
	}

	extraction := domain.Extraction{
		Text:     text,
		Format:   domain.FormatTXT,
		Method:   "txt",
		Encoding: encoding,
	}
	if strings.TrimSpace(text) == "" {
		return extraction, domain.WrapError(domain.ErrNoTextLayer, "extract txt", fmt.Errorf("%d bytes, no text", len(raw)))
	}
	return extraction, nil
}

// decodeText returns the first strict decoding that succeeds, or a lossy UTF-8
// rendition with invalid sequences dropped.
func decodeText(raw []byte, candidates []legacyEncoding) (string, string) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return string(raw), "utf-8"
	}
	for _, enc := range candidates {
		if text, ok := decodeStrict(raw, enc.charmap); ok {
			return text, enc.name
		}
	}
	return strings.ToValidUTF8(string(raw), ""), lossyEncoding
}

func decodeStrict(raw []byte, cm *charmap.Charmap) (string, bool) {
	var b strings.Builder
	b.Grow(len(raw) * 2)
	for _, c := range raw {
		r := cm.DecodeByte(c)
		if r == utf8.RuneError {
			return "", false
		}
		b.WriteRune(r)
	}
	return b.String(), true
}
