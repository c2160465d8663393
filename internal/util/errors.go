package util

import "errors"

// Per-file ingestion failures. Each maps to an error kind recorded on the
// job; none of them aborts the batch.
var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrExtraction        = errors.New("document extraction failed")
	ErrEmbedding         = errors.New("embedding failed")
)

// Caller errors, surfaced directly.
var (
	ErrJobNotFound      = errors.New("ingestion job not found")
	ErrProjectNotFound  = errors.New("project not found")
	ErrDocumentNotFound = errors.New("document not found")
)

// ErrRerankerUnavailable never reaches the caller of Search; it only
// triggers the similarity-order fallback.
var ErrRerankerUnavailable = errors.New("reranker unavailable")

// ErrTenantIsolation marks a search row that belongs to a foreign project.
// Structurally impossible with the scoped query; treated as a bug, not a
// recoverable condition.
var ErrTenantIsolation = errors.New("tenant isolation violation")

// Error kinds recorded in per-file job error entries.
const (
	KindUnsupportedFormat = "unsupported_format"
	KindExtraction        = "extraction"
	KindEmbedding         = "embedding"
	KindStorage           = "storage"
	KindInternal          = "internal"
)

// KindOf maps a per-file pipeline error to its recorded kind.
func KindOf(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		return KindUnsupportedFormat
	case errors.Is(err, ErrExtraction):
		return KindExtraction
	case errors.Is(err, ErrEmbedding):
		return KindEmbedding
	default:
		return KindInternal
	}
}
