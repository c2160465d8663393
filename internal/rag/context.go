package rag

import (
	"strings"
	"unicode/utf8"

	"docquery/internal/models"
)

// Assemble turns reranked chunks into the final result list under a total
// character budget. Chunks are taken in rank order until the next chunk
// would exceed the budget, then assembly stops; lower-ranked chunks never
// leapfrog a rejected one. The sole exception is the top chunk, which is
// truncated at a word boundary so the response is never empty just because
// one chunk is large.
func Assemble(ranked []models.ChunkResult, budget int) []models.SearchResult {
	if budget <= 0 {
		budget = 12000
	}
	var (
		out  []models.SearchResult
		used int
	)
	for i, c := range ranked {
		text := c.Text
		truncated := false
		if used+len(text) > budget {
			if i > 0 {
				break
			}
			text = truncateAtWord(text, budget)
			if text == "" {
				break
			}
			truncated = true
		}
		used += len(text)
		out = append(out, models.SearchResult{
			ChunkID:    c.ChunkID,
			DocumentID: c.DocumentID,
			Text:       text,
			Source:     c.Filename,
			Score:      c.Score,
			Truncated:  truncated,
		})
	}
	return out
}

// truncateAtWord cuts text to at most limit bytes, backing up to the last
// whitespace so words are not split. Falls back to a hard cut when the text
// has no whitespace in range.
func truncateAtWord(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := text[:limit]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	if i := strings.LastIndexAny(cut, " \t\n"); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " \t\n")
}
