package workflows

// FileRef identifies one spooled upload for a child workflow.
type FileRef struct {
	DocumentID  string `json:"document_id"`
	Filename    string `json:"filename"`
	SpoolPath   string `json:"spool_path"`
	ContentType string `json:"content_type,omitempty"`
}

type IngestionJobInput struct {
	JobID              string    `json:"job_id"`
	ProjectID          string    `json:"project_id"`
	Files              []FileRef `json:"files"`
	ChunkSize          int       `json:"chunk_size"`
	ChunkOverlap       int       `json:"chunk_overlap"`
	MaxConcurrentFiles int       `json:"max_concurrent_files"`
}

type DocumentProcessInput struct {
	JobID        string `json:"job_id"`
	ProjectID    string `json:"project_id"`
	DocumentID   string `json:"document_id"`
	Filename     string `json:"filename"`
	SpoolPath    string `json:"spool_path"`
	ContentType  string `json:"content_type,omitempty"`
	ChunkSize    int    `json:"chunk_size"`
	ChunkOverlap int    `json:"chunk_overlap"`
}

type IngestionJobProgress struct {
	JobID         string            `json:"job_id"`
	Total         int               `json:"total"`
	Done          int               `json:"done"`
	Failed        int               `json:"failed"`
	Cancelled     bool              `json:"cancelled,omitempty"`
	PerFile       map[string]string `json:"per_file_status"`
	ChildWorkflow map[string]string `json:"child_workflow_ids,omitempty"`
}

type DocumentStatus struct {
	DocumentID  string            `json:"document_id"`
	Filename    string            `json:"filename"`
	CurrentStep string            `json:"current_step"`
	Status      string            `json:"status"`
	FailReason  string            `json:"fail_reason,omitempty"`
	Provider    string            `json:"provider,omitempty"`
	Steps       map[string]string `json:"steps"`
}
