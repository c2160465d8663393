package models

import "time"

// Job status values. Transitions are monotone: pending -> processing ->
// completed | failed | cancelled. A terminal status never changes again.
const (
	JobPending    = "pending"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
	JobCancelled  = "cancelled"
)

const (
	DocPending   = "pending"
	DocExtracted = "extracted"
	DocFailed    = "failed"
)

type Project struct {
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Document struct {
	DocumentID  string    `json:"document_id"`
	ProjectID   string    `json:"project_id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Status      string    `json:"status"`
	FailReason  string    `json:"fail_reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Chunk struct {
	ChunkID    string    `json:"chunk_id"`
	DocumentID string    `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	Text       string    `json:"text"`
	StartChar  int       `json:"start_char"`
	EndChar    int       `json:"end_char"`
	CreatedAt  time.Time `json:"created_at"`
}

// ChunkMeta is the free-form metadata stored alongside a chunk.
type ChunkMeta struct {
	Filename     string `json:"filename"`
	JobID        string `json:"job_id"`
	ChunkSize    int    `json:"chunk_size"`
	ChunkOverlap int    `json:"chunk_overlap"`
}

type FileError struct {
	Filename  string    `json:"filename"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type IngestionJob struct {
	JobID          string      `json:"job_id"`
	ProjectID      string      `json:"project_id"`
	UserID         string      `json:"user_id"`
	Status         string      `json:"status"`
	TotalFiles     int         `json:"total_files"`
	ProcessedFiles int         `json:"processed_files"`
	FailedFiles    int         `json:"failed_files"`
	FileErrors     []FileError `json:"file_errors,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Progress is processed+failed over total, in percent.
func (j IngestionJob) Progress() float64 {
	if j.TotalFiles == 0 {
		return 0
	}
	return float64(j.ProcessedFiles+j.FailedFiles) / float64(j.TotalFiles) * 100
}

// ChunkResult is one retrieval candidate: chunk plus source attribution and
// its similarity score (1 - cosine distance).
type ChunkResult struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

type SearchResult struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Text       string  `json:"text"`
	Source     string  `json:"source"`
	Score      float64 `json:"score"`
	Truncated  bool    `json:"truncated,omitempty"`
}
