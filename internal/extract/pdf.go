package extract

import (
	"bytes"
	"fmt"
	"strings"

	"docquery/internal/util"

	"github.com/ledongthuc/pdf"
)

func extractPDF(content []byte) (Result, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return Result{Kind: KindPDF}, extractionErr("open pdf", err)
	}

	var (
		buf     strings.Builder
		partial bool
	)
	total := r.NumPage()
	for i := 1; i <= total; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			partial = true
			continue
		}
		text, err := pageText(page)
		if err != nil {
			partial = true
			continue
		}
		buf.WriteString(text)
		buf.WriteString("\n")
	}

	text := util.SanitizeText(strings.TrimSpace(buf.String()))
	if text == "" {
		return Result{Kind: KindPDF}, fmt.Errorf("%w: no extractable text in pdf", util.ErrExtraction)
	}
	return Result{Text: text, Kind: KindPDF, Partial: partial}, nil
}

func pageText(page pdf.Page) (text string, err error) {
	// The underlying parser panics on some malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf page parse: %v", r)
		}
	}()
	return page.GetPlainText(nil)
}
