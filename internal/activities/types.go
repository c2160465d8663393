package activities

import "docquery/internal/models"

type MarkJobProcessingInput struct {
	JobID string `json:"job_id"`
}

type ExtractTextInput struct {
	DocumentID   string `json:"document_id"`
	SpoolPath    string `json:"spool_path"`
	Filename     string `json:"filename"`
	DeclaredType string `json:"declared_type,omitempty"`
}

type ExtractTextOutput struct {
	Text    string `json:"text"`
	Kind    string `json:"kind"`
	Partial bool   `json:"partial,omitempty"`
}

type ChunkTextInput struct {
	DocumentID   string `json:"document_id"`
	Text         string `json:"text"`
	ChunkSize    int    `json:"chunk_size"`
	ChunkOverlap int    `json:"chunk_overlap"`
}

type ChunkItem struct {
	ChunkID    string `json:"chunk_id"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
	StartChar  int    `json:"start_char"`
	EndChar    int    `json:"end_char"`
}

type ChunkTextOutput struct {
	Chunks []ChunkItem `json:"chunks"`
}

type EmbedChunksInput struct {
	DocumentID string   `json:"document_id"`
	Texts      []string `json:"texts"`
}

type EmbedChunksOutput struct {
	Vectors      [][]float32 `json:"vectors"`
	ProviderName string      `json:"provider_name"`
}

type PersistChunksInput struct {
	DocumentID   string      `json:"document_id"`
	JobID        string      `json:"job_id"`
	Filename     string      `json:"filename"`
	ChunkSize    int         `json:"chunk_size"`
	ChunkOverlap int         `json:"chunk_overlap"`
	Chunks       []ChunkItem `json:"chunks"`
	Vectors      [][]float32 `json:"vectors"`
}

type UpdateDocumentStatusInput struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
	FailReason string `json:"fail_reason,omitempty"`
}

// RecordFileResultInput records one file outcome on the job. An empty
// ErrorKind means success.
type RecordFileResultInput struct {
	JobID     string `json:"job_id"`
	Filename  string `json:"filename"`
	ErrorKind string `json:"error_kind,omitempty"`
	Message   string `json:"message,omitempty"`
}

type CompleteJobInput struct {
	JobID string `json:"job_id"`
}

type CompleteJobOutput struct {
	Completed bool `json:"completed"`
}

type MarkJobFailedInput struct {
	JobID string `json:"job_id"`
}

type MarkJobCancelledInput struct {
	JobID string `json:"job_id"`
}

type RemoveSpoolFileInput struct {
	SpoolPath string `json:"spool_path"`
}

type SearchChunksInput struct {
	ProjectID string    `json:"project_id"`
	QueryVec  []float32 `json:"query_vec"`
	TopK      int       `json:"top_k"`
}

type SearchChunksOutput struct {
	Results []models.ChunkResult `json:"results"`
}
