package activities

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"docquery/internal/chunk"
	"docquery/internal/config"
	"docquery/internal/embed"
	"docquery/internal/extract"
	"docquery/internal/models"
	"docquery/internal/providers"
	"docquery/internal/storage"
	"docquery/internal/util"
	"docquery/internal/vector"
)

type Activities struct {
	cfg       config.Config
	docRepo   *storage.DocumentRepo
	chunkRepo *storage.ChunkRepo
	jobRepo   *storage.JobRepo
	searcher  *vector.Searcher
	providers *providers.Manager
	gate      *providers.Gate
}

func New(cfg config.Config, db *storage.DB) (*Activities, error) {
	pm, err := providers.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	return &Activities{
		cfg:       cfg,
		docRepo:   storage.NewDocumentRepo(db),
		chunkRepo: storage.NewChunkRepo(db),
		jobRepo:   storage.NewJobRepo(db),
		searcher:  vector.NewSearcher(db),
		providers: pm,
		gate:      providers.NewGate(cfg.ProviderPermits, cfg.ProviderRatePerSec),
	}, nil
}

func (a *Activities) MarkJobProcessingActivity(ctx context.Context, in MarkJobProcessingInput) error {
	return a.jobRepo.MarkProcessing(ctx, in.JobID)
}

// ExtractTextActivity reads the spooled upload, detects its format, and
// extracts plain text. The sanitized text goes back through the workflow
// payload, matching how the rest of the pipeline activities hand off data.
func (a *Activities) ExtractTextActivity(ctx context.Context, in ExtractTextInput) (ExtractTextOutput, error) {
	_ = ctx
	content, err := os.ReadFile(in.SpoolPath)
	if err != nil {
		return ExtractTextOutput{}, fmt.Errorf("read spooled file: %w", err)
	}
	res, err := extract.Extract(content, in.DeclaredType, in.Filename)
	if err != nil {
		return ExtractTextOutput{}, err
	}
	return ExtractTextOutput{
		Text:    util.SanitizeText(res.Text),
		Kind:    res.Kind,
		Partial: res.Partial,
	}, nil
}

func (a *Activities) ChunkTextActivity(ctx context.Context, in ChunkTextInput) (ChunkTextOutput, error) {
	_ = ctx
	parts := chunk.Split(in.Text, in.ChunkSize, in.ChunkOverlap)
	out := ChunkTextOutput{Chunks: make([]ChunkItem, 0, len(parts))}
	for _, c := range parts {
		out.Chunks = append(out.Chunks, ChunkItem{
			ChunkID:    uuid.NewString(),
			ChunkIndex: c.Index,
			Text:       c.Text,
			StartChar:  c.Start,
			EndChar:    c.End,
		})
	}
	return out, nil
}

// EmbedChunksActivity vectorizes every chunk of one document. Providers are
// tried in preference order; a document embeds completely or the activity
// fails, so partial vector sets never reach storage.
func (a *Activities) EmbedChunksActivity(ctx context.Context, in EmbedChunksInput) (EmbedChunksOutput, error) {
	opts := embed.Options{
		Dimension:   a.cfg.EmbedDim,
		BatchSize:   a.cfg.EmbedBatchSize,
		MaxRetries:  a.cfg.EmbedMaxRetries,
		CallTimeout: time.Duration(a.cfg.EmbedTimeoutSecs) * time.Second,
	}
	var lastErr error
	for _, idx := range a.providers.PreferredEmbedOrder() {
		provider, ref := a.providers.EmbedProviderByIndex(idx)
		e := embed.New(provider, a.gate, opts)
		vecs, itemErrs := e.EmbedTexts(ctx, in.Texts)
		if len(itemErrs) == 0 {
			return EmbedChunksOutput{Vectors: vecs, ProviderName: ref.Name}, nil
		}
		lastErr = itemErrs[0].Err
	}
	return EmbedChunksOutput{}, fmt.Errorf("%w: document %s: %v", util.ErrEmbedding, in.DocumentID, lastErr)
}

// PersistChunksActivity stores chunks and vectors in one transaction and
// marks the document indexed. Safe to retry: the insert replaces any rows a
// previous attempt left behind.
func (a *Activities) PersistChunksActivity(ctx context.Context, in PersistChunksInput) error {
	if len(in.Chunks) != len(in.Vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(in.Chunks), len(in.Vectors))
	}
	records := make([]storage.ChunkRecord, 0, len(in.Chunks))
	for i, c := range in.Chunks {
		records = append(records, storage.ChunkRecord{
			Chunk: models.Chunk{
				ChunkID:    c.ChunkID,
				DocumentID: in.DocumentID,
				ChunkIndex: c.ChunkIndex,
				Text:       c.Text,
				StartChar:  c.StartChar,
				EndChar:    c.EndChar,
			},
			Embedding: in.Vectors[i],
			Meta: models.ChunkMeta{
				Filename:     in.Filename,
				JobID:        in.JobID,
				ChunkSize:    in.ChunkSize,
				ChunkOverlap: in.ChunkOverlap,
			},
		})
	}
	if err := a.chunkRepo.InsertDocumentChunks(ctx, in.DocumentID, records); err != nil {
		return err
	}
	return a.docRepo.MarkStatus(ctx, in.DocumentID, models.DocExtracted, "")
}

func (a *Activities) UpdateDocumentStatusActivity(ctx context.Context, in UpdateDocumentStatusInput) error {
	return a.docRepo.MarkStatus(ctx, in.DocumentID, in.Status, in.FailReason)
}

func (a *Activities) RecordFileResultActivity(ctx context.Context, in RecordFileResultInput) error {
	if in.ErrorKind == "" {
		return a.jobRepo.RecordFileResult(ctx, in.JobID, nil)
	}
	return a.jobRepo.RecordFileResult(ctx, in.JobID, &models.FileError{
		Filename:  in.Filename,
		Kind:      in.ErrorKind,
		Message:   in.Message,
		Timestamp: time.Now().UTC(),
	})
}

func (a *Activities) CompleteJobActivity(ctx context.Context, in CompleteJobInput) (CompleteJobOutput, error) {
	done, err := a.jobRepo.CompleteIfDone(ctx, in.JobID)
	if err != nil {
		return CompleteJobOutput{}, err
	}
	return CompleteJobOutput{Completed: done}, nil
}

func (a *Activities) MarkJobFailedActivity(ctx context.Context, in MarkJobFailedInput) error {
	return a.jobRepo.MarkFailed(ctx, in.JobID)
}

func (a *Activities) MarkJobCancelledActivity(ctx context.Context, in MarkJobCancelledInput) error {
	return a.jobRepo.MarkCancelled(ctx, in.JobID)
}

func (a *Activities) RemoveSpoolFileActivity(ctx context.Context, in RemoveSpoolFileInput) error {
	_ = ctx
	if err := os.Remove(in.SpoolPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove spool file: %w", err)
	}
	return nil
}

func (a *Activities) SearchChunksActivity(ctx context.Context, in SearchChunksInput) (SearchChunksOutput, error) {
	results, err := a.searcher.Search(ctx, in.ProjectID, in.QueryVec, in.TopK)
	if err != nil {
		return SearchChunksOutput{}, err
	}
	return SearchChunksOutput{Results: results}, nil
}
