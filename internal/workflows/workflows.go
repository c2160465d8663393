package workflows

import (
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"docquery/internal/activities"
	"docquery/internal/util"
)

const (
	QueryGetJobProgress    = "GetJobProgress"
	QueryGetDocumentStatus = "GetDocumentStatus"
)

// IngestionJobWorkflow processes every file of one ingestion job. Files run
// as child workflows in bounded batches; a failed file is recorded on the
// job and never aborts its siblings. The workflow itself fails only when
// the job store is unreachable.
func IngestionJobWorkflow(ctx workflow.Context, input IngestionJobInput) (string, error) {
	progress := IngestionJobProgress{
		JobID:         input.JobID,
		Total:         len(input.Files),
		PerFile:       map[string]string{},
		ChildWorkflow: map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetJobProgress, func() (IngestionJobProgress, error) {
		return progress, nil
	}); err != nil {
		return "", err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	// Children and cleanup activities run on a disconnected context:
	// cancelling the job stops new batches from being scheduled, but files
	// already in flight finish and get counted, and the job row is
	// finalized either way.
	cleanupCtx, _ := workflow.NewDisconnectedContext(ctx)
	cleanupCtx = workflow.WithActivityOptions(cleanupCtx, ao)

	if err := workflow.ExecuteActivity(ctx, "MarkJobProcessingActivity", activities.MarkJobProcessingInput{JobID: input.JobID}).Get(ctx, nil); err != nil {
		return "", err
	}

	maxChildren := input.MaxConcurrentFiles
	if maxChildren <= 0 {
		maxChildren = 3
	}

	files := input.Files
	for i := 0; i < len(files); i += maxChildren {
		if ctx.Err() != nil {
			// Cancelled: in-flight children have finished, unstarted files
			// stay unscheduled.
			progress.Cancelled = true
			break
		}
		end := i + maxChildren
		if end > len(files) {
			end = len(files)
		}
		futures := make([]workflow.ChildWorkflowFuture, 0, end-i)
		batch := files[i:end]
		for _, f := range batch {
			progress.PerFile[f.Filename] = "processing"
			workflowID := "document-" + sanitizeID(input.JobID) + "-" + sanitizeID(f.DocumentID)
			cwo := workflow.ChildWorkflowOptions{WorkflowID: workflowID}
			childCtx := workflow.WithChildOptions(cleanupCtx, cwo)
			fut := workflow.ExecuteChildWorkflow(childCtx, DocumentProcessWorkflow, DocumentProcessInput{
				JobID:        input.JobID,
				ProjectID:    input.ProjectID,
				DocumentID:   f.DocumentID,
				Filename:     f.Filename,
				SpoolPath:    f.SpoolPath,
				ContentType:  f.ContentType,
				ChunkSize:    input.ChunkSize,
				ChunkOverlap: input.ChunkOverlap,
			})
			futures = append(futures, fut)
			progress.ChildWorkflow[f.Filename] = workflowID
		}

		for idx, fut := range futures {
			f := batch[idx]
			var childStatus string
			err := fut.Get(cleanupCtx, &childStatus)
			if err != nil {
				// The child itself records pipeline failures; an error here
				// means the child crashed before it could. Record it so the
				// job can still finish.
				progress.Failed++
				progress.PerFile[f.Filename] = "failed"
				if rerr := workflow.ExecuteActivity(cleanupCtx, "RecordFileResultActivity", activities.RecordFileResultInput{
					JobID:     input.JobID,
					Filename:  f.Filename,
					ErrorKind: util.KindInternal,
					Message:   err.Error(),
				}).Get(cleanupCtx, nil); rerr != nil {
					return "", rerr
				}
				continue
			}
			if childStatus == "failed" {
				progress.Failed++
			} else {
				progress.Done++
			}
			progress.PerFile[f.Filename] = childStatus
		}
	}

	if progress.Cancelled {
		// Unprocessed files remain, so the job can never complete. Record
		// the cancellation so the row does not sit in processing forever.
		if err := workflow.ExecuteActivity(cleanupCtx, "MarkJobCancelledActivity", activities.MarkJobCancelledInput{JobID: input.JobID}).Get(cleanupCtx, nil); err != nil {
			return "", err
		}
		return "cancelled", nil
	}

	var completed activities.CompleteJobOutput
	if err := workflow.ExecuteActivity(cleanupCtx, "CompleteJobActivity", activities.CompleteJobInput{JobID: input.JobID}).Get(cleanupCtx, &completed); err != nil {
		_ = workflow.ExecuteActivity(cleanupCtx, "MarkJobFailedActivity", activities.MarkJobFailedInput{JobID: input.JobID}).Get(cleanupCtx, nil)
		return "", err
	}
	return "completed", nil
}

// DocumentProcessWorkflow runs one file through extract, chunk, embed, and
// persist. A pipeline failure marks the document failed and records the
// error kind on the job; the workflow still returns cleanly so the parent
// keeps going.
func DocumentProcessWorkflow(ctx workflow.Context, input DocumentProcessInput) (string, error) {
	status := DocumentStatus{
		DocumentID:  input.DocumentID,
		Filename:    input.Filename,
		CurrentStep: "init",
		Status:      "processing",
		Steps:       map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetDocumentStatus, func() (DocumentStatus, error) {
		return status, nil
	}); err != nil {
		return "", err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    2,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	fail := func(step string, err error) (string, error) {
		kind := errorKind(err)
		status.Status = "failed"
		status.FailReason = err.Error()
		status.Steps[step] = "failed"
		if rerr := workflow.ExecuteActivity(ctx, "UpdateDocumentStatusActivity", activities.UpdateDocumentStatusInput{
			DocumentID: input.DocumentID,
			Status:     "failed",
			FailReason: status.FailReason,
		}).Get(ctx, nil); rerr != nil {
			return "", rerr
		}
		if rerr := workflow.ExecuteActivity(ctx, "RecordFileResultActivity", activities.RecordFileResultInput{
			JobID:     input.JobID,
			Filename:  input.Filename,
			ErrorKind: kind,
			Message:   err.Error(),
		}).Get(ctx, nil); rerr != nil {
			return "", rerr
		}
		return status.Status, nil
	}

	status.CurrentStep = "extract_text"
	status.Steps[status.CurrentStep] = "processing"
	var textOut activities.ExtractTextOutput
	if err := workflow.ExecuteActivity(ctx, "ExtractTextActivity", activities.ExtractTextInput{
		DocumentID:   input.DocumentID,
		SpoolPath:    input.SpoolPath,
		Filename:     input.Filename,
		DeclaredType: input.ContentType,
	}).Get(ctx, &textOut); err != nil {
		return fail(status.CurrentStep, err)
	}
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "chunk_text"
	status.Steps[status.CurrentStep] = "processing"
	var chunkOut activities.ChunkTextOutput
	if err := workflow.ExecuteActivity(ctx, "ChunkTextActivity", activities.ChunkTextInput{
		DocumentID:   input.DocumentID,
		Text:         textOut.Text,
		ChunkSize:    input.ChunkSize,
		ChunkOverlap: input.ChunkOverlap,
	}).Get(ctx, &chunkOut); err != nil {
		return fail(status.CurrentStep, err)
	}
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "embed_chunks"
	status.Steps[status.CurrentStep] = "processing"
	texts := make([]string, 0, len(chunkOut.Chunks))
	for _, c := range chunkOut.Chunks {
		texts = append(texts, c.Text)
	}
	var embedOut activities.EmbedChunksOutput
	if err := workflow.ExecuteActivity(ctx, "EmbedChunksActivity", activities.EmbedChunksInput{
		DocumentID: input.DocumentID,
		Texts:      texts,
	}).Get(ctx, &embedOut); err != nil {
		return fail(status.CurrentStep, err)
	}
	status.Provider = embedOut.ProviderName
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "persist_chunks"
	status.Steps[status.CurrentStep] = "processing"
	if err := workflow.ExecuteActivity(ctx, "PersistChunksActivity", activities.PersistChunksInput{
		DocumentID:   input.DocumentID,
		JobID:        input.JobID,
		Filename:     input.Filename,
		ChunkSize:    input.ChunkSize,
		ChunkOverlap: input.ChunkOverlap,
		Chunks:       chunkOut.Chunks,
		Vectors:      embedOut.Vectors,
	}).Get(ctx, nil); err != nil {
		return fail(status.CurrentStep, err)
	}
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "record_result"
	if err := workflow.ExecuteActivity(ctx, "RecordFileResultActivity", activities.RecordFileResultInput{
		JobID:    input.JobID,
		Filename: input.Filename,
	}).Get(ctx, nil); err != nil {
		return "", err
	}
	_ = workflow.ExecuteActivity(ctx, "RemoveSpoolFileActivity", activities.RemoveSpoolFileInput{SpoolPath: input.SpoolPath}).Get(ctx, nil)

	status.CurrentStep = "done"
	status.Status = "indexed"
	return status.Status, nil
}

// errorKind maps an activity error back to the recorded file-error kind.
// Sentinel matching handles errors still carrying their chain; activity
// errors that crossed the wire arrive as flattened messages, so those fall
// back to substring classification, same as the retry classifier on the
// provider side.
func errorKind(err error) string {
	if kind := util.KindOf(err); kind != util.KindInternal {
		return kind
	}
	e := strings.ToLower(err.Error())
	switch {
	case strings.Contains(e, "unsupported"):
		return util.KindUnsupportedFormat
	case strings.Contains(e, "extraction"), strings.Contains(e, "no extractable text"):
		return util.KindExtraction
	case strings.Contains(e, "embedding"):
		return util.KindEmbedding
	case strings.Contains(e, "chunk insert"), strings.Contains(e, "sqlstate"), strings.Contains(e, "storage"):
		return util.KindStorage
	default:
		return util.KindInternal
	}
}

func sanitizeID(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", "-")
	s = strings.ReplaceAll(s, ".", "-")
	s = strings.ReplaceAll(s, "/", "-")
	return s
}
