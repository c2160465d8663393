package extract

import (
	"fmt"
	"unicode/utf8"

	"docquery/internal/util"
)

func extractText(content []byte) (Result, error) {
	if len(content) == 0 {
		return Result{Kind: KindText}, fmt.Errorf("%w: empty text file", util.ErrExtraction)
	}
	var text string
	if utf8.Valid(content) {
		text = string(content)
	} else {
		// Latin-1 decode never fails; it covers the cp1252/iso-8859-1
		// fallbacks for legacy exports.
		text = decodeLatin1(content)
	}
	return Result{Text: util.SanitizeText(text), Kind: KindText}, nil
}

func decodeLatin1(b []byte) string {
	r := make([]rune, len(b))
	for i, c := range b {
		r[i] = rune(c)
	}
	return string(r)
}
