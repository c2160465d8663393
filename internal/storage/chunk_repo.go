package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"docquery/internal/models"
)

type ChunkRepo struct {
	db *DB
}

func NewChunkRepo(db *DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// ChunkRecord pairs a chunk with its embedding for persistence.
type ChunkRecord struct {
	Chunk     models.Chunk
	Embedding []float32
	Meta      models.ChunkMeta
}

// InsertDocumentChunks replaces the document's chunks in a single
// transaction. A document is either fully indexed or not indexed at all;
// re-running ingestion for the same document is safe.
func (r *ChunkRepo) InsertDocumentChunks(ctx context.Context, documentID string, records []ChunkRecord) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin chunk insert: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("clear prior chunks: %w", err)
	}

	for _, rec := range records {
		meta, err := json.Marshal(rec.Meta)
		if err != nil {
			return fmt.Errorf("marshal chunk metadata: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO chunks (chunk_id, document_id, chunk_index, text, start_char, end_char, embedding, metadata)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			rec.Chunk.ChunkID, documentID, rec.Chunk.ChunkIndex, rec.Chunk.Text,
			rec.Chunk.StartChar, rec.Chunk.EndChar, pgvector.NewVector(rec.Embedding), meta)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", rec.Chunk.ChunkIndex, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit chunk insert: %w", err)
	}
	return nil
}

func (r *ChunkRepo) CountByDocument(ctx context.Context, documentID string) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT count(*) FROM chunks WHERE document_id = $1`, documentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}
