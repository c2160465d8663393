// Package chunk splits extracted text into ordered, overlapping passages.
// Splitting is deterministic: the same text and parameters always produce
// the same sequence, which keeps re-ingestion idempotent.
package chunk

// Chunk is one passage of the source text. Start/End are rune offsets of the
// chunk's span in the source; Overlap is the number of leading runes shared
// with the previous chunk's tail (0 for the first chunk).
type Chunk struct {
	Index   int
	Text    string
	Start   int
	End     int
	Overlap int
}

// Separator classes, coarsest first. The final fallback is a hard split at
// the size boundary.
var separators = [][]string{
	{"\n\n"},
	{". ", "! ", "? ", "\n"},
	{" ", "\t"},
}

// Split breaks text into chunks of at most size runes. Each chunk after the
// first begins with the trailing overlap runes of the previous chunk's span,
// measured in source text. Empty input yields nil; input within size yields
// a single chunk with no overlap.
func Split(text string, size, overlap int) []Chunk {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}
	if n <= size {
		return []Chunk{{Index: 0, Text: text, Start: 0, End: n}}
	}

	out := make([]Chunk, 0, n/(size-overlap)+1)
	pos := 0
	for {
		if pos+size >= n {
			out = append(out, newChunk(len(out), runes, pos, n, overlap))
			break
		}
		end := breakBefore(runes, pos, pos+size, overlap)
		out = append(out, newChunk(len(out), runes, pos, end, overlap))
		pos = end - overlap
	}
	return out
}

func newChunk(index int, runes []rune, start, end, overlap int) Chunk {
	if index == 0 {
		overlap = 0
	}
	return Chunk{
		Index:   index,
		Text:    string(runes[start:end]),
		Start:   start,
		End:     end,
		Overlap: overlap,
	}
}

// breakBefore picks the end of the span starting at pos, at most limit.
// It prefers the coarsest separator class with a usable occurrence; a usable
// end leaves room to make progress past the overlap prefix. With no usable
// separator the span is hard-split at limit.
func breakBefore(runes []rune, pos, limit, overlap int) int {
	min := pos + overlap + 1
	for _, class := range separators {
		best := -1
		for _, sep := range class {
			if end := lastBreak(runes, min, limit, []rune(sep)); end > best {
				best = end
			}
		}
		if best >= min {
			return best
		}
	}
	return limit
}

// lastBreak returns the largest end in [min, limit] such that the span ends
// immediately after an occurrence of sep, or -1.
func lastBreak(runes []rune, min, limit int, sep []rune) int {
	for end := limit; end >= min; end-- {
		if end-len(sep) < 0 {
			break
		}
		if runesEqual(runes[end-len(sep):end], sep) {
			return end
		}
	}
	return -1
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
