package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"docquery/internal/util"
)

// extractDocx walks word/document.xml and emits one line per paragraph,
// in document order.
func extractDocx(content []byte) (Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return Result{Kind: KindDocx}, extractionErr("open docx container", err)
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return Result{Kind: KindDocx}, fmt.Errorf("%w: docx missing word/document.xml", util.ErrExtraction)
	}

	rc, err := doc.Open()
	if err != nil {
		return Result{Kind: KindDocx}, extractionErr("open docx document part", err)
	}
	defer rc.Close()

	text, err := docxParagraphs(rc)
	if err != nil {
		return Result{Kind: KindDocx}, extractionErr("parse docx xml", err)
	}
	text = util.SanitizeText(strings.TrimSpace(text))
	if text == "" {
		return Result{Kind: KindDocx}, fmt.Errorf("%w: no extractable text in docx", util.ErrExtraction)
	}
	return Result{Text: text, Kind: KindDocx}, nil
}

func docxParagraphs(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		buf    strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "br":
				buf.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				buf.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				buf.Write(t)
			}
		}
	}
	return buf.String(), nil
}
