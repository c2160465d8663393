// Package extract converts raw uploaded bytes of a known format into plain
// text, preserving natural reading order. It is a pure transform with no
// side effects.
package extract

import (
	"fmt"
	"strings"

	"docquery/internal/util"
)

// Kinds recognized by Detect.
const (
	KindPDF     = "pdf"
	KindDocx    = "docx"
	KindText    = "txt"
	KindUnknown = "unknown"
)

// Result carries the extracted text. Partial is set when some of the content
// (e.g. individual PDF pages) could not be read but the rest succeeded;
// content is never dropped silently.
type Result struct {
	Text    string
	Kind    string
	Partial bool
}

// Detect resolves the document kind from the declared content type, the raw
// bytes' magic prefix, and finally the filename extension.
func Detect(declared, filename string, content []byte) string {
	switch strings.ToLower(strings.TrimSpace(declared)) {
	case "application/pdf":
		return KindPDF
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/msword":
		return KindDocx
	}
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(declared)), "text/") {
		return KindText
	}
	if len(content) >= 4 && string(content[:4]) == "%PDF" {
		return KindPDF
	}
	// DOCX is a zip container.
	if len(content) >= 2 && content[0] == 'P' && content[1] == 'K' && hasExt(filename, ".docx") {
		return KindDocx
	}
	switch {
	case hasExt(filename, ".pdf"):
		return KindPDF
	case hasExt(filename, ".docx", ".doc"):
		return KindDocx
	case hasExt(filename, ".txt", ".md", ".markdown"):
		return KindText
	}
	return KindUnknown
}

// Extract produces plain text from content of the given declared type.
// Returns util.ErrUnsupportedFormat for unrecognized kinds and a wrapped
// util.ErrExtraction for malformed content of a recognized kind.
func Extract(content []byte, declared, filename string) (Result, error) {
	kind := Detect(declared, filename, content)
	switch kind {
	case KindPDF:
		return extractPDF(content)
	case KindDocx:
		return extractDocx(content)
	case KindText:
		return extractText(content)
	default:
		return Result{Kind: kind}, fmt.Errorf("%w: %s (%s)", util.ErrUnsupportedFormat, filename, declared)
	}
}

func hasExt(filename string, exts ...string) bool {
	low := strings.ToLower(filename)
	for _, e := range exts {
		if strings.HasSuffix(low, e) {
			return true
		}
	}
	return false
}

func extractionErr(stage string, err error) error {
	return fmt.Errorf("%w: %s: %v", util.ErrExtraction, stage, err)
}
