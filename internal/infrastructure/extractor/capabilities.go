package extractor

import (
	"os/exec"

	"github.com/kirillkom/doc-annotator/internal/core/domain"
)

type CapabilityOptions struct {
	DisablePDF  bool
	DisableDOCX bool
	// Empty means search PATH for the default binary names.
	AntiwordBin    string
	LibreOfficeBin string
	LookPath       func(file string) (string, error)
}

// DetectCapabilities is computed once at startup; the result is passed into
// New instead of being consulted as global state.
func DetectCapabilities(options CapabilityOptions) domain.Capabilities {
	lookPath := options.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	caps := domain.Capabilities{
		PDF:  !options.DisablePDF,
		DOCX: !options.DisableDOCX,
	}

	if path, ok := firstOnPath(lookPath, options.AntiwordBin, "antiword"); ok {
		caps.Antiword = true
		caps.AntiwordPath = path
	}
	if path, ok := firstOnPath(lookPath, options.LibreOfficeBin, "libreoffice", "soffice"); ok {
		caps.LibreOffice = true
		caps.LibreOfficePath = path
	}
	return caps
}

func firstOnPath(lookPath func(string) (string, error), override string, names ...string) (string, bool) {
	if override != "" {
		names = []string{override}
	}
	for _, name := range names {
		if path, err := lookPath(name); err == nil {
			return path, true
		}
	}
	return "", false
}
