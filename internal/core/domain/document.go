package domain

import (
	"path/filepath"
	"strings"
)

type Format string

const (
	FormatPDF         Format = "pdf"
	FormatDOCX        Format = "docx"
	FormatDOC         Format = "doc"
	FormatTXT         Format = "txt"
	FormatUnsupported Format = "unsupported"
)

// SupportedExtensions lists the extensions picked up by folder scans, lower case with the dot.
var SupportedExtensions = []string{".pdf", ".docx", ".doc", ".txt"}

// DetectFormat maps a path to its format by extension, case-insensitively.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	case ".doc":
		return FormatDOC
	case ".txt":
		return FormatTXT
	default:
		return FormatUnsupported
	}
}

type Document struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
	Format   Format `json:"format"`
}

func NewDocument(path string) Document {
	return Document{
		Path:     path,
		Filename: filepath.Base(path),
		Format:   DetectFormat(path),
	}
}

// Stem is the filename without its extension.
func (d Document) Stem() string {
	return strings.TrimSuffix(d.Filename, filepath.Ext(d.Filename))
}

// Extraction is the flattened text of a document. Blocks (pages, paragraphs,
// table cells) are separated by a blank line; no positional metadata survives.
type Extraction struct {
	Text          string `json:"text"`
	Format        Format `json:"format"`
	Method        string `json:"method"`
	Encoding      string `json:"encoding,omitempty"`
	Pages         int    `json:"pages,omitempty"`
	PagesWithText int    `json:"pages_with_text,omitempty"`
}

func (e Extraction) Empty() bool {
	return strings.TrimSpace(e.Text) == ""
}

// Capabilities records which readers and external converters are usable in
// this process. It is detected once at startup and never mutated.
type Capabilities struct {
	PDF         bool `json:"pdf"`
	DOCX        bool `json:"docx"`
	Antiword    bool `json:"antiword"`
	LibreOffice bool `json:"libreoffice"`

	AntiwordPath    string `json:"antiword_path,omitempty"`
	LibreOfficePath string `json:"libreoffice_path,omitempty"`
}

func (c Capabilities) Supports(format Format) bool {
	switch format {
	case FormatPDF:
		return c.PDF
	case FormatDOCX:
		return c.DOCX
	case FormatDOC:
		return c.Antiword || c.LibreOffice
	case FormatTXT:
		return true
	default:
		return false
	}
}
