package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tclient "go.temporal.io/sdk/client"

	"docquery/internal/config"
	"docquery/internal/models"
	"docquery/internal/rag"
	"docquery/internal/util"
	"docquery/internal/workflows"
)

type fakeProjects struct {
	known map[string]bool
}

func (f *fakeProjects) Exists(ctx context.Context, projectID string) error {
	if f.known[projectID] {
		return nil
	}
	return util.ErrProjectNotFound
}

type fakeDocs struct {
	created []models.Document
	deleted []string
}

func (f *fakeDocs) Create(ctx context.Context, d *models.Document) error {
	f.created = append(f.created, *d)
	return nil
}

func (f *fakeDocs) Get(ctx context.Context, documentID string) (*models.Document, error) {
	for i := range f.created {
		if f.created[i].DocumentID == documentID {
			return &f.created[i], nil
		}
	}
	return nil, util.ErrDocumentNotFound
}

func (f *fakeDocs) ListByProject(ctx context.Context, projectID string) ([]models.Document, error) {
	var out []models.Document
	for _, d := range f.created {
		if d.ProjectID == projectID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDocs) Delete(ctx context.Context, documentID string) error {
	f.deleted = append(f.deleted, documentID)
	return nil
}

type fakeChunks struct {
	counts map[string]int
}

func (f *fakeChunks) CountByDocument(ctx context.Context, documentID string) (int, error) {
	return f.counts[documentID], nil
}

type fakeJobs struct {
	created *models.IngestionJob
	jobs    map[string]*models.IngestionJob
}

func (f *fakeJobs) CreateJob(ctx context.Context, j *models.IngestionJob) error {
	f.created = j
	return nil
}

func (f *fakeJobs) GetJob(ctx context.Context, jobID string) (*models.IngestionJob, error) {
	if j, ok := f.jobs[jobID]; ok {
		return j, nil
	}
	return nil, util.ErrJobNotFound
}

func (f *fakeJobs) ListJobsByProject(ctx context.Context, projectID string) ([]models.IngestionJob, error) {
	var out []models.IngestionJob
	for _, j := range f.jobs {
		if j.ProjectID == projectID {
			out = append(out, *j)
		}
	}
	return out, nil
}

type fakeRun struct{ id string }

func (r *fakeRun) GetID() string    { return r.id }
func (r *fakeRun) GetRunID() string { return "run-1" }

func (r *fakeRun) Get(ctx context.Context, valuePtr interface{}) error { return nil }
func (r *fakeRun) GetWithOptions(ctx context.Context, valuePtr interface{}, options tclient.WorkflowRunGetOptions) error {
	return nil
}

type fakeTemporal struct {
	started   []tclient.StartWorkflowOptions
	input     workflows.IngestionJobInput
	cancelled []string
	startErr  error
}

func (f *fakeTemporal) ExecuteWorkflow(ctx context.Context, options tclient.StartWorkflowOptions, workflow interface{}, args ...interface{}) (tclient.WorkflowRun, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.started = append(f.started, options)
	if len(args) == 1 {
		f.input = args[0].(workflows.IngestionJobInput)
	}
	return &fakeRun{id: options.ID}, nil
}

func (f *fakeTemporal) CancelWorkflow(ctx context.Context, workflowID, runID string) error {
	f.cancelled = append(f.cancelled, workflowID)
	return nil
}

func testConfig(t *testing.T) config.Config {
	cfg := config.Load()
	cfg.SpoolRoot = t.TempDir()
	return cfg
}

func TestCreateIngestionJobSpoolsAndStarts(t *testing.T) {
	projects := &fakeProjects{known: map[string]bool{"proj-1": true}}
	docs := &fakeDocs{}
	jobs := &fakeJobs{jobs: map[string]*models.IngestionJob{}}
	temporal := &fakeTemporal{}
	cfg := testConfig(t)
	svc := NewIngestionService(cfg, projects, docs, &fakeChunks{}, jobs, temporal)

	job, err := svc.CreateIngestionJob(context.Background(), "proj-1", "user-1", []FileUpload{
		{Filename: "a.pdf", ContentType: "application/pdf", Content: []byte("pdf bytes")},
		{Filename: "b.txt", ContentType: "text/plain", Content: []byte("plain text")},
	})
	require.NoError(t, err)
	require.NotNil(t, job)

	assert.Equal(t, models.JobPending, job.Status)
	assert.Equal(t, 2, job.TotalFiles)
	assert.Equal(t, "proj-1", job.ProjectID)
	require.NotNil(t, jobs.created)
	assert.Equal(t, job.JobID, jobs.created.JobID)

	require.Len(t, docs.created, 2)
	assert.Equal(t, "a.pdf", docs.created[0].Filename)
	assert.Equal(t, "proj-1", docs.created[0].ProjectID)

	require.Len(t, temporal.started, 1)
	assert.Equal(t, "ingestion-"+job.JobID, temporal.started[0].ID)
	require.Len(t, temporal.input.Files, 2)

	// Uploads land on disk before the workflow starts, named by content
	// hash so identical re-uploads land on the same path.
	wantPrefix := map[string]string{
		"a.pdf": util.ContentHash([]byte("pdf bytes"))[:16],
		"b.txt": util.ContentHash([]byte("plain text"))[:16],
	}
	for _, ref := range temporal.input.Files {
		_, err := os.Stat(ref.SpoolPath)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(cfg.SpoolRoot, job.JobID), filepath.Dir(ref.SpoolPath))
		assert.True(t, strings.HasPrefix(filepath.Base(ref.SpoolPath), wantPrefix[ref.Filename]))
	}
}

func TestCreateIngestionJobAnonymousUser(t *testing.T) {
	projects := &fakeProjects{known: map[string]bool{"proj-1": true}}
	jobs := &fakeJobs{jobs: map[string]*models.IngestionJob{}}
	svc := NewIngestionService(testConfig(t), projects, &fakeDocs{}, &fakeChunks{}, jobs, &fakeTemporal{})

	// No caller identity is required to ingest.
	job, err := svc.CreateIngestionJob(context.Background(), "proj-1", "", []FileUpload{
		{Filename: "a.txt", Content: []byte("text")},
	})
	require.NoError(t, err)
	assert.Equal(t, "", job.UserID)
	assert.Equal(t, "", jobs.created.UserID)
}

func TestCreateIngestionJobUnknownProject(t *testing.T) {
	svc := NewIngestionService(testConfig(t), &fakeProjects{}, &fakeDocs{}, &fakeChunks{}, &fakeJobs{}, &fakeTemporal{})

	_, err := svc.CreateIngestionJob(context.Background(), "nope", "user-1", []FileUpload{{Filename: "a.pdf"}})
	require.ErrorIs(t, err, util.ErrProjectNotFound)
}

func TestCreateIngestionJobRequiresFiles(t *testing.T) {
	projects := &fakeProjects{known: map[string]bool{"proj-1": true}}
	svc := NewIngestionService(testConfig(t), projects, &fakeDocs{}, &fakeChunks{}, &fakeJobs{}, &fakeTemporal{})

	_, err := svc.CreateIngestionJob(context.Background(), "proj-1", "user-1", nil)
	require.Error(t, err)
}

func TestGetJobStatusNotFound(t *testing.T) {
	jobs := &fakeJobs{jobs: map[string]*models.IngestionJob{}}
	svc := NewIngestionService(testConfig(t), &fakeProjects{}, &fakeDocs{}, &fakeChunks{}, jobs, &fakeTemporal{})

	_, err := svc.GetJobStatus(context.Background(), "missing")
	require.ErrorIs(t, err, util.ErrJobNotFound)
}

func TestCancelJob(t *testing.T) {
	jobs := &fakeJobs{jobs: map[string]*models.IngestionJob{
		"job-1": {JobID: "job-1", Status: models.JobProcessing},
	}}
	temporal := &fakeTemporal{}
	svc := NewIngestionService(testConfig(t), &fakeProjects{}, &fakeDocs{}, &fakeChunks{}, jobs, temporal)

	require.NoError(t, svc.CancelJob(context.Background(), "job-1"))
	assert.Equal(t, []string{"ingestion-job-1"}, temporal.cancelled)

	require.ErrorIs(t, svc.CancelJob(context.Background(), "missing"), util.ErrJobNotFound)
}

func TestListDocumentsWithChunkCounts(t *testing.T) {
	projects := &fakeProjects{known: map[string]bool{"proj-1": true}}
	docs := &fakeDocs{created: []models.Document{
		{DocumentID: "d1", ProjectID: "proj-1", Filename: "a.pdf", Status: models.DocExtracted},
		{DocumentID: "d2", ProjectID: "proj-1", Filename: "b.txt", Status: models.DocFailed},
		{DocumentID: "d3", ProjectID: "other", Filename: "c.txt"},
	}}
	chunks := &fakeChunks{counts: map[string]int{"d1": 12}}
	svc := NewIngestionService(testConfig(t), projects, docs, chunks, &fakeJobs{}, &fakeTemporal{})

	out, err := svc.ListDocuments(context.Background(), "proj-1")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "d1", out[0].DocumentID)
	assert.Equal(t, 12, out[0].ChunkCount)
	assert.Equal(t, 0, out[1].ChunkCount)

	_, err = svc.ListDocuments(context.Background(), "nope")
	require.ErrorIs(t, err, util.ErrProjectNotFound)
}

func TestDeleteDocumentScopedToProject(t *testing.T) {
	docs := &fakeDocs{created: []models.Document{
		{DocumentID: "d1", ProjectID: "proj-1"},
		{DocumentID: "d2", ProjectID: "other"},
	}}
	svc := NewIngestionService(testConfig(t), &fakeProjects{}, docs, &fakeChunks{}, &fakeJobs{}, &fakeTemporal{})

	require.NoError(t, svc.DeleteDocument(context.Background(), "proj-1", "d1"))
	assert.Equal(t, []string{"d1"}, docs.deleted)

	// A document in another project is indistinguishable from a missing one.
	err := svc.DeleteDocument(context.Background(), "proj-1", "d2")
	require.ErrorIs(t, err, util.ErrDocumentNotFound)
	assert.Equal(t, []string{"d1"}, docs.deleted)

	require.ErrorIs(t, svc.DeleteDocument(context.Background(), "proj-1", "missing"), util.ErrDocumentNotFound)
}

type fakeRetriever struct {
	results []models.ChunkResult
	err     error
	gotTopK int
}

func (f *fakeRetriever) Retrieve(ctx context.Context, projectID, query string, topK int) ([]models.ChunkResult, error) {
	f.gotTopK = topK
	return f.results, f.err
}

type passthroughReranker struct{}

func (passthroughReranker) Rerank(ctx context.Context, query string, candidates []models.ChunkResult, topM int) []models.ChunkResult {
	if len(candidates) > topM {
		candidates = candidates[:topM]
	}
	return candidates
}

func TestSearchPipeline(t *testing.T) {
	projects := &fakeProjects{known: map[string]bool{"proj-1": true}}
	cfg := testConfig(t)
	cfg.ContextTopM = 2
	retriever := &fakeRetriever{results: []models.ChunkResult{
		{ChunkID: "c1", Text: "first", Filename: "a.pdf", Score: 0.9},
		{ChunkID: "c2", Text: "second", Filename: "a.pdf", Score: 0.8},
		{ChunkID: "c3", Text: "third", Filename: "b.pdf", Score: 0.7},
	}}
	svc := NewQueryService(cfg, projects, retriever, passthroughReranker{}, rag.Assemble)

	out, err := svc.Search(context.Background(), "proj-1", "what is first", 0, 0)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "c1", out[0].ChunkID)
	assert.Equal(t, "a.pdf", out[0].Source)
	assert.Equal(t, cfg.RetrievalTopK, retriever.gotTopK)
}

func TestSearchPerQueryKAndM(t *testing.T) {
	projects := &fakeProjects{known: map[string]bool{"proj-1": true}}
	cfg := testConfig(t)
	retriever := &fakeRetriever{results: []models.ChunkResult{
		{ChunkID: "c1", Text: "first", Filename: "a.pdf", Score: 0.9},
		{ChunkID: "c2", Text: "second", Filename: "a.pdf", Score: 0.8},
		{ChunkID: "c3", Text: "third", Filename: "b.pdf", Score: 0.7},
	}}
	svc := NewQueryService(cfg, projects, retriever, passthroughReranker{}, rag.Assemble)

	// Caller-supplied k and m override the configured defaults.
	out, err := svc.Search(context.Background(), "proj-1", "what is first", 7, 1)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "c1", out[0].ChunkID)
	assert.Equal(t, 7, retriever.gotTopK)
}

func TestSearchEmptyProject(t *testing.T) {
	projects := &fakeProjects{known: map[string]bool{"proj-1": true}}
	svc := NewQueryService(testConfig(t), projects, &fakeRetriever{}, passthroughReranker{}, rag.Assemble)

	out, err := svc.Search(context.Background(), "proj-1", "anything", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSearchRejectsUnknownProjectAndEmptyQuery(t *testing.T) {
	projects := &fakeProjects{known: map[string]bool{"proj-1": true}}
	svc := NewQueryService(testConfig(t), projects, &fakeRetriever{err: errors.New("should not be called")}, passthroughReranker{}, rag.Assemble)

	_, err := svc.Search(context.Background(), "nope", "query", 0, 0)
	require.ErrorIs(t, err, util.ErrProjectNotFound)

	_, err = svc.Search(context.Background(), "proj-1", "   ", 0, 0)
	require.Error(t, err)
}
