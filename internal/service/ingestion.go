// Package service holds the operations the HTTP layer calls into: starting
// and inspecting ingestion jobs, and running search queries.
package service

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"

	"docquery/internal/config"
	"docquery/internal/models"
	"docquery/internal/util"
	"docquery/internal/workflows"
)

// WorkflowClient is the slice of the Temporal client the services use.
type WorkflowClient interface {
	ExecuteWorkflow(ctx context.Context, options tclient.StartWorkflowOptions, workflow interface{}, args ...interface{}) (tclient.WorkflowRun, error)
	CancelWorkflow(ctx context.Context, workflowID, runID string) error
}

type ProjectStore interface {
	Exists(ctx context.Context, projectID string) error
}

type DocumentStore interface {
	Create(ctx context.Context, d *models.Document) error
	Get(ctx context.Context, documentID string) (*models.Document, error)
	ListByProject(ctx context.Context, projectID string) ([]models.Document, error)
	Delete(ctx context.Context, documentID string) error
}

type ChunkStore interface {
	CountByDocument(ctx context.Context, documentID string) (int, error)
}

type JobStore interface {
	CreateJob(ctx context.Context, j *models.IngestionJob) error
	GetJob(ctx context.Context, jobID string) (*models.IngestionJob, error)
	ListJobsByProject(ctx context.Context, projectID string) ([]models.IngestionJob, error)
}

// FileUpload is one file handed to CreateIngestionJob, already read into
// memory by the transport layer.
type FileUpload struct {
	Filename    string
	ContentType string
	Content     []byte
}

type IngestionService struct {
	cfg      config.Config
	projects ProjectStore
	docs     DocumentStore
	chunks   ChunkStore
	jobs     JobStore
	temporal WorkflowClient
}

func NewIngestionService(cfg config.Config, projects ProjectStore, docs DocumentStore, chunks ChunkStore, jobs JobStore, temporal WorkflowClient) *IngestionService {
	return &IngestionService{cfg: cfg, projects: projects, docs: docs, chunks: chunks, jobs: jobs, temporal: temporal}
}

// CreateIngestionJob validates the project, spools the uploads to disk,
// records the job and its documents, and starts the workflow. The returned
// job is the initial pending snapshot; progress is read via GetJobStatus.
func (s *IngestionService) CreateIngestionJob(ctx context.Context, projectID, userID string, files []FileUpload) (*models.IngestionJob, error) {
	if err := s.projects.Exists(ctx, projectID); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("at least one file is required")
	}

	jobID := uuid.NewString()
	spoolDir := filepath.Join(s.cfg.SpoolRoot, jobID)
	if err := util.EnsureDir(spoolDir); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}

	refs := make([]workflows.FileRef, 0, len(files))
	for _, f := range files {
		if f.Filename == "" {
			return nil, fmt.Errorf("file without a name")
		}
		documentID := uuid.NewString()
		spoolPath := util.SafeJoin(spoolDir, util.ContentHash(f.Content)[:16]+"-"+filepath.Base(f.Filename))
		if err := util.WriteFileAtomic(spoolPath, f.Content); err != nil {
			return nil, fmt.Errorf("spool %s: %w", f.Filename, err)
		}
		if err := s.docs.Create(ctx, &models.Document{
			DocumentID:  documentID,
			ProjectID:   projectID,
			Filename:    filepath.Base(f.Filename),
			ContentType: f.ContentType,
		}); err != nil {
			return nil, err
		}
		refs = append(refs, workflows.FileRef{
			DocumentID:  documentID,
			Filename:    filepath.Base(f.Filename),
			SpoolPath:   spoolPath,
			ContentType: f.ContentType,
		})
	}

	job := &models.IngestionJob{
		JobID:      jobID,
		ProjectID:  projectID,
		UserID:     userID,
		Status:     models.JobPending,
		TotalFiles: len(files),
	}
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	_, err := s.temporal.ExecuteWorkflow(ctx, tclient.StartWorkflowOptions{
		ID:                                       "ingestion-" + jobID,
		TaskQueue:                                s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.IngestionJobWorkflow, workflows.IngestionJobInput{
		JobID:              jobID,
		ProjectID:          projectID,
		Files:              refs,
		ChunkSize:          s.cfg.ChunkSize,
		ChunkOverlap:       s.cfg.ChunkOverlap,
		MaxConcurrentFiles: s.cfg.MaxConcurrentFiles,
	})
	if err != nil {
		return nil, fmt.Errorf("start ingestion workflow: %w", err)
	}
	return job, nil
}

// GetJobStatus returns the persisted job snapshot, counters and error list
// included.
func (s *IngestionService) GetJobStatus(ctx context.Context, jobID string) (*models.IngestionJob, error) {
	return s.jobs.GetJob(ctx, jobID)
}

func (s *IngestionService) ListJobs(ctx context.Context, projectID string) ([]models.IngestionJob, error) {
	if err := s.projects.Exists(ctx, projectID); err != nil {
		return nil, err
	}
	return s.jobs.ListJobsByProject(ctx, projectID)
}

// CancelJob requests cancellation of a running job. Files already in flight
// finish and are counted; unstarted files stay unprocessed.
func (s *IngestionService) CancelJob(ctx context.Context, jobID string) error {
	if _, err := s.jobs.GetJob(ctx, jobID); err != nil {
		return err
	}
	return s.temporal.CancelWorkflow(ctx, "ingestion-"+jobID, "")
}

// DocumentSummary is a document with its stored chunk count, as returned by
// the listing endpoint.
type DocumentSummary struct {
	models.Document
	ChunkCount int `json:"chunk_count"`
}

func (s *IngestionService) ListDocuments(ctx context.Context, projectID string) ([]DocumentSummary, error) {
	if err := s.projects.Exists(ctx, projectID); err != nil {
		return nil, err
	}
	docs, err := s.docs.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	out := make([]DocumentSummary, 0, len(docs))
	for _, d := range docs {
		n, err := s.chunks.CountByDocument(ctx, d.DocumentID)
		if err != nil {
			return nil, err
		}
		out = append(out, DocumentSummary{Document: d, ChunkCount: n})
	}
	return out, nil
}

// DeleteDocument removes a document and, via cascade, its chunks. A document
// belonging to a different project is reported as not found rather than
// revealing its existence.
func (s *IngestionService) DeleteDocument(ctx context.Context, projectID, documentID string) error {
	d, err := s.docs.Get(ctx, documentID)
	if err != nil {
		return err
	}
	if d.ProjectID != projectID {
		return fmt.Errorf("document %s: %w", documentID, util.ErrDocumentNotFound)
	}
	return s.docs.Delete(ctx, documentID)
}
