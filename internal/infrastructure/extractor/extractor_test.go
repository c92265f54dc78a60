package extractor

import (
	"archive/zip"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf16"

	"golang.org/x/text/encoding/charmap"

	"github.com/kirillkom/doc-annotator/internal/core/domain"
)

func newTestExtractor(caps domain.Capabilities) *Extractor {
	return New(caps, Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
}

func allFormats() domain.Capabilities {
	return domain.Capabilities{PDF: true, DOCX: true}
}

func writeTestFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

type fakePages []string

func (p fakePages) NumPage() int { return len(p) }

func (p fakePages) PageText(pageNum int) (string, error) {
	text := p[pageNum-1]
	if text == "<error>" {
		return "", errors.New("broken content stream")
	}
	return text, nil
}

func TestJoinPagesKeepsOnlyPagesWithText(t *testing.T) {
	e := newTestExtractor(allFormats())

	got, err := e.joinPages(fakePages{"First page", "", "<error>", "  \n ", "Last page\n"})
	if err != nil {
		t.Fatalf("joinPages() error = %v", err)
	}
	if got.Text != "First page\n\nLast page" {
		t.Fatalf("unexpected text %q", got.Text)
	}
	if got.Pages != 5 || got.PagesWithText != 2 {
		t.Fatalf("unexpected page counters %d/%d", got.PagesWithText, got.Pages)
	}
}

func TestJoinPagesScannedDocument(t *testing.T) {
	e := newTestExtractor(allFormats())

	got, err := e.joinPages(fakePages{"", " "})
	if !domain.IsKind(err, domain.ErrNoTextLayer) {
		t.Fatalf("expected ErrNoTextLayer, got %v", err)
	}
	if got.Text != "" || got.Pages != 2 {
		t.Fatalf("unexpected extraction %+v", got)
	}
}

func TestExtractCorruptPDF(t *testing.T) {
	path := writeTestFile(t, "broken.pdf", []byte("this is not a pdf"))

	_, err := newTestExtractor(allFormats()).Extract(context.Background(), path)
	if !domain.IsKind(err, domain.ErrCorruptDocument) {
		t.Fatalf("expected ErrCorruptDocument, got %v", err)
	}
}

func TestExtractUnsupportedExtension(t *testing.T) {
	path := writeTestFile(t, "slides.pptx", []byte("PK"))

	_, err := newTestExtractor(allFormats()).Extract(context.Background(), path)
	if !domain.IsKind(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExtractDisabledReader(t *testing.T) {
	path := writeTestFile(t, "report.pdf", []byte("%PDF-1.4"))

	_, err := newTestExtractor(domain.Capabilities{DOCX: true}).Extract(context.Background(), path)
	if !domain.IsKind(err, domain.ErrToolUnavailable) {
		t.Fatalf("expected ErrToolUnavailable, got %v", err)
	}
}

func TestExtractNeverPanicsOnGarbage(t *testing.T) {
	e := newTestExtractor(allFormats())
	garbage := []byte{0x25, 0x50, 0x44, 0x46, 0x2d, 0x00, 0xff, 0xfe, 0x0a, 0x74, 0x72, 0x61, 0x69, 0x6c, 0x65, 0x72}

	for _, name := range []string{"a.pdf", "a.docx", "a.doc", "a.txt"} {
		path := writeTestFile(t, name, garbage)
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("%s: Extract panicked: %v", name, r)
				}
			}()
			_, _ = e.Extract(context.Background(), path)
		}()
	}
}

func writeDOCX(t *testing.T, documentXML string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	zw := zip.NewWriter(f)
	files := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`,
		"word/document.xml":   documentXML,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8"?>` +
			`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
	}
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip Create(%s) error = %v", name, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("zip Write(%s) error = %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip Close() error = %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return path
}

func paragraphXML(text string) string {
	if text == "" {
		return `<w:p/>`
	}
	return `<w:p><w:r><w:t xml:space="preserve">` + text + `</w:t></w:r></w:p>`
}

func documentXML(body string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body + `</w:body></w:document>`
}

func TestExtractDOCXSkipsBlankParagraphs(t *testing.T) {
	path := writeDOCX(t, documentXML(paragraphXML("")+paragraphXML("  ")+paragraphXML("Hello")))

	got, err := newTestExtractor(allFormats()).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Text != "Hello" {
		t.Fatalf("expected %q, got %q", "Hello", got.Text)
	}
}

func TestParseDocumentXMLTablesAfterParagraphs(t *testing.T) {
	body := paragraphXML("Intro") +
		`<w:tbl>` +
		`<w:tr><w:tc>` + paragraphXML("A1") + `</w:tc><w:tc>` + paragraphXML("B1") + `</w:tc></w:tr>` +
		`<w:tr><w:tc>` + paragraphXML("") + `</w:tc><w:tc>` + paragraphXML("B2") + paragraphXML("more") + `</w:tc></w:tr>` +
		`</w:tbl>` +
		`<w:p><w:r><w:t>Tab</w:t><w:tab/><w:t>bed</w:t><w:br/><w:t>line</w:t></w:r></w:p>`

	paragraphs, cells, err := parseDocumentXML(strings.NewReader(documentXML(body)))
	if err != nil {
		t.Fatalf("parseDocumentXML() error = %v", err)
	}
	if len(paragraphs) != 2 || paragraphs[0] != "Intro" || paragraphs[1] != "Tab\tbed\nline" {
		t.Fatalf("unexpected paragraphs %q", paragraphs)
	}
	wantCells := []string{"A1", "B1", "", "B2\nmore"}
	if len(cells) != len(wantCells) {
		t.Fatalf("unexpected cells %q", cells)
	}
	for i := range wantCells {
		if cells[i] != wantCells[i] {
			t.Fatalf("cell %d: expected %q, got %q", i, wantCells[i], cells[i])
		}
	}
}

func TestExtractDOCXWithoutText(t *testing.T) {
	path := writeDOCX(t, documentXML(paragraphXML("")))

	_, err := newTestExtractor(allFormats()).Extract(context.Background(), path)
	if !domain.IsKind(err, domain.ErrNoTextLayer) {
		t.Fatalf("expected ErrNoTextLayer, got %v", err)
	}
}

func TestExtractTXTDecodesWindows1251(t *testing.T) {
	encoded, err := charmap.Windows1251.NewEncoder().String("Привет, мир")
	if err != nil {
		t.Fatalf("encode error = %v", err)
	}
	path := writeTestFile(t, "note.txt", []byte(encoded))

	got, err := newTestExtractor(allFormats()).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Text != "Привет, мир" || got.Encoding != "cp1251" {
		t.Fatalf("unexpected extraction %+v", got)
	}
}

func TestDecodeTextOrder(t *testing.T) {
	tests := []struct {
		name         string
		raw          []byte
		candidates   []legacyEncoding
		wantText     string
		wantEncoding string
	}{
		{
			name:         "utf8 with bom",
			raw:          append([]byte{0xEF, 0xBB, 0xBF}, []byte("Отчёт")...),
			candidates:   legacyEncodings,
			wantText:     "Отчёт",
			wantEncoding: "utf-8",
		},
		{
			// 0x98 is unassigned in cp1251.
			name:         "falls through to koi8-r",
			raw:          []byte{0xF0, 0x98},
			candidates:   legacyEncodings,
			wantText:     string([]rune{charmap.KOI8R.DecodeByte(0xF0), charmap.KOI8R.DecodeByte(0x98)}),
			wantEncoding: "koi8-r",
		},
		{
			name:         "lossy when nothing fits",
			raw:          []byte{'o', 'k', 0x98, '!'},
			candidates:   legacyEncodings[:1],
			wantText:     "ok!",
			wantEncoding: lossyEncoding,
		},
	}

	for _, tc := range tests {
		text, encoding := decodeText(tc.raw, tc.candidates)
		if text != tc.wantText || encoding != tc.wantEncoding {
			t.Fatalf("%s: got (%q, %q), want (%q, %q)", tc.name, text, encoding, tc.wantText, tc.wantEncoding)
		}
	}
}

func TestExtractDOCWithoutConverters(t *testing.T) {
	path := writeTestFile(t, "old.doc", []byte("not ole"))

	// Antiword cannot read anything but Word binaries.
	e := newTestExtractor(domain.Capabilities{Antiword: true, AntiwordPath: "antiword"})
	runner := &runnerFake{}
	e.runner = runner
	_, err := e.Extract(context.Background(), path)
	if !domain.IsKind(err, domain.ErrToolUnavailable) {
		t.Fatalf("expected ErrToolUnavailable for non-OLE input, got %v", err)
	}
	if len(runner.calls) != 0 {
		t.Fatalf("antiword must not run on non-OLE input, calls=%v", runner.calls)
	}

	_, err = newTestExtractor(domain.Capabilities{}).Extract(context.Background(), path)
	if !domain.IsKind(err, domain.ErrToolUnavailable) {
		t.Fatalf("expected ErrToolUnavailable, got %v", err)
	}
}

func TestExtractDOCRoutesRTFToLibreOffice(t *testing.T) {
	path := writeTestFile(t, "memo.doc", []byte(`{\rtf1\ansi Quarterly report for the board\par}`))

	e := newTestExtractor(converterCaps(true, true))
	runner := &runnerFake{converted: map[string]string{"soffice": "Quarterly report for the board"}}
	e.runner = runner

	got, err := e.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if strings.Join(runner.calls, ",") != "soffice" {
		t.Fatalf("unexpected converter calls %v", runner.calls)
	}
	if got.Method != "libreoffice" || got.Text != "Quarterly report for the board" {
		t.Fatalf("unexpected extraction %+v", got)
	}
}

func TestExtractDOCFallbackChain(t *testing.T) {
	tests := []struct {
		name       string
		caps       domain.Capabilities
		runner     *runnerFake
		wantCalls  string
		wantMethod string
		wantText   string
	}{
		{
			name: "antiword succeeds",
			caps: converterCaps(true, true),
			runner: &runnerFake{
				outputs:   map[string][]byte{"antiword": []byte("Служебная записка\n")},
				converted: map[string]string{"soffice": "unused"},
			},
			wantCalls:  "antiword",
			wantMethod: "antiword",
			wantText:   "Служебная записка",
		},
		{
			name: "antiword fails then libreoffice",
			caps: converterCaps(true, true),
			runner: &runnerFake{
				errs:      map[string]error{"antiword": errors.New("exit status 1")},
				converted: map[string]string{"soffice": "Протокол совещания"},
			},
			wantCalls:  "antiword,soffice",
			wantMethod: "libreoffice",
			wantText:   "Протокол совещания",
		},
		{
			name:       "libreoffice only",
			caps:       converterCaps(false, true),
			runner:     &runnerFake{converted: map[string]string{"soffice": "\ufeffMeeting minutes"}},
			wantCalls:  "soffice",
			wantMethod: "libreoffice",
			wantText:   "Meeting minutes",
		},
	}

	for _, tc := range tests {
		path := writeOLEDoc(t, "memo.doc")
		e := newTestExtractor(tc.caps)
		e.runner = tc.runner

		got, err := e.Extract(context.Background(), path)
		if err != nil {
			t.Fatalf("%s: Extract() error = %v", tc.name, err)
		}
		if calls := strings.Join(tc.runner.calls, ","); calls != tc.wantCalls {
			t.Fatalf("%s: calls = %q, want %q", tc.name, calls, tc.wantCalls)
		}
		if got.Method != tc.wantMethod || got.Text != tc.wantText {
			t.Fatalf("%s: got method %q text %q", tc.name, got.Method, got.Text)
		}
		for _, dir := range tc.runner.outDirs {
			if _, err := os.Stat(dir); !os.IsNotExist(err) {
				t.Fatalf("%s: temp dir %s was not removed (stat err %v)", tc.name, dir, err)
			}
		}
	}
}

func TestExtractDOCAllConvertersFail(t *testing.T) {
	path := writeOLEDoc(t, "memo.doc")
	e := newTestExtractor(converterCaps(true, true))
	runner := &runnerFake{errs: map[string]error{
		"antiword": errors.New("exit status 1"),
		"soffice":  errors.New("exit status 81"),
	}}
	e.runner = runner

	_, err := e.Extract(context.Background(), path)
	if !domain.IsKind(err, domain.ErrCorruptDocument) {
		t.Fatalf("expected ErrCorruptDocument, got %v", err)
	}
	if strings.Join(runner.calls, ",") != "antiword,soffice" {
		t.Fatalf("unexpected converter calls %v", runner.calls)
	}
}

func TestCheckWordBinary(t *testing.T) {
	if err := checkWordBinary(writeOLEDoc(t, "memo.doc")); err != nil {
		t.Fatalf("checkWordBinary() on compound document error = %v", err)
	}
	if err := checkWordBinary(writeTestFile(t, "memo.doc", []byte(`{\rtf1\ansi}`))); err == nil {
		t.Fatalf("expected error for RTF input")
	}
}

func TestDetectCapabilities(t *testing.T) {
	lookPath := func(name string) (string, error) {
		if name == "soffice" {
			return "/usr/bin/soffice", nil
		}
		return "", errors.New("not found")
	}

	caps := DetectCapabilities(CapabilityOptions{DisableDOCX: true, LookPath: lookPath})
	if !caps.PDF || caps.DOCX {
		t.Fatalf("unexpected reader flags %+v", caps)
	}
	if caps.Antiword || !caps.LibreOffice || caps.LibreOfficePath != "/usr/bin/soffice" {
		t.Fatalf("unexpected converter detection %+v", caps)
	}
}

type runnerFake struct {
	outputs map[string][]byte
	errs    map[string]error
	// converted holds text written as <stem>.txt into the --outdir argument.
	converted map[string]string
	calls     []string
	outDirs   []string
}

func (f *runnerFake) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, name)
	if err := f.errs[name]; err != nil {
		return nil, err
	}
	if text, ok := f.converted[name]; ok {
		for i := 0; i+1 < len(args); i++ {
			if args[i] != "--outdir" {
				continue
			}
			outDir := args[i+1]
			f.outDirs = append(f.outDirs, outDir)
			src := args[len(args)-1]
			stem := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
			if err := os.WriteFile(filepath.Join(outDir, stem+".txt"), []byte(text), 0o644); err != nil {
				return nil, err
			}
		}
	}
	return f.outputs[name], nil
}

func converterCaps(antiword, libreoffice bool) domain.Capabilities {
	return domain.Capabilities{
		Antiword:        antiword,
		AntiwordPath:    "antiword",
		LibreOffice:     libreoffice,
		LibreOfficePath: "soffice",
	}
}

// writeOLEDoc writes a minimal version 3 compound file: header, one FAT
// sector and one directory sector holding the root and a WordDocument stream.
func writeOLEDoc(t *testing.T, name string) string {
	t.Helper()
	const (
		sectorSize = 512
		freeSect   = 0xFFFFFFFF
		endOfChain = 0xFFFFFFFE
		fatSect    = 0xFFFFFFFD
		noStream   = 0xFFFFFFFF
	)
	le := binary.LittleEndian
	buf := make([]byte, 3*sectorSize)

	header := buf[:sectorSize]
	copy(header, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})
	le.PutUint16(header[24:], 0x003E)
	le.PutUint16(header[26:], 3)
	le.PutUint16(header[28:], 0xFFFE)
	le.PutUint16(header[30:], 9)
	le.PutUint16(header[32:], 6)
	le.PutUint32(header[44:], 1) // FAT sectors
	le.PutUint32(header[48:], 1) // first directory sector
	le.PutUint32(header[56:], 4096)
	le.PutUint32(header[60:], endOfChain)
	le.PutUint32(header[68:], endOfChain)
	le.PutUint32(header[76:], 0)
	for off := 80; off < sectorSize; off += 4 {
		le.PutUint32(header[off:], freeSect)
	}

	fat := buf[sectorSize : 2*sectorSize]
	for off := 0; off < sectorSize; off += 4 {
		le.PutUint32(fat[off:], freeSect)
	}
	le.PutUint32(fat[0:], fatSect)
	le.PutUint32(fat[4:], endOfChain)

	dir := buf[2*sectorSize:]
	putEntry := func(entry []byte, name string, objectType byte, child uint32) {
		units := utf16.Encode([]rune(name))
		for i, u := range units {
			le.PutUint16(entry[i*2:], u)
		}
		le.PutUint16(entry[64:], uint16((len(units)+1)*2))
		entry[66] = objectType
		entry[67] = 1
		le.PutUint32(entry[68:], noStream)
		le.PutUint32(entry[72:], noStream)
		le.PutUint32(entry[76:], child)
		le.PutUint32(entry[116:], endOfChain)
	}
	putEntry(dir[0:128], "Root Entry", 5, 1)
	putEntry(dir[128:256], "WordDocument", 2, noStream)
	for off := 256; off < sectorSize; off += 128 {
		le.PutUint32(dir[off+68:], noStream)
		le.PutUint32(dir[off+72:], noStream)
		le.PutUint32(dir[off+76:], noStream)
	}

	return writeTestFile(t, name, buf)
}

func TestRunAntiwordDecodesOutput(t *testing.T) {
	e := newTestExtractor(domain.Capabilities{Antiword: true, AntiwordPath: "antiword"})
	encoded, _ := charmap.Windows1251.NewEncoder().String("Служебная записка")
	runner := &runnerFake{outputs: map[string][]byte{"antiword": []byte(encoded)}}
	e.runner = runner

	text, err := e.runAntiword(context.Background(), "memo.doc")
	if err != nil {
		t.Fatalf("runAntiword() error = %v", err)
	}
	if text != "Служебная записка" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestRunLibreOfficeFailureIsReported(t *testing.T) {
	e := newTestExtractor(domain.Capabilities{LibreOffice: true, LibreOfficePath: "soffice"})
	e.runner = &runnerFake{errs: map[string]error{"soffice": errors.New("exit status 1")}}

	if _, err := e.runLibreOffice(context.Background(), "memo.doc"); err == nil {
		t.Fatalf("expected conversion error")
	}
}
