// Package vector runs similarity search over stored chunk embeddings.
// Every query is scoped to one project; the project predicate lives inside
// the SQL itself rather than being filtered after the fact.
package vector

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"docquery/internal/models"
	"docquery/internal/storage"
	"docquery/internal/util"
)

type Searcher struct {
	db *storage.DB
}

func NewSearcher(db *storage.DB) *Searcher {
	return &Searcher{db: db}
}

// Search returns up to topK chunks from the given project ordered by cosine
// distance to the query vector. Ties are broken by insertion order so equal
// distances always come back in the same sequence. Score is 1 - distance.
func (s *Searcher) Search(ctx context.Context, projectID string, queryVec []float32, topK int) ([]models.ChunkResult, error) {
	if topK <= 0 {
		topK = 50
	}
	rows, err := s.db.Pool.Query(ctx,
		`SELECT c.chunk_id, c.document_id, d.filename, d.project_id, c.chunk_index, c.text,
		        c.embedding <=> $2 AS distance
		 FROM chunks c
		 JOIN documents d ON d.document_id = c.document_id
		 WHERE d.project_id = $1
		 ORDER BY distance ASC, c.seq ASC
		 LIMIT $3`,
		projectID, pgvector.NewVector(queryVec), topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var results []models.ChunkResult
	for rows.Next() {
		var (
			r          models.ChunkResult
			rowProject string
			distance   float64
		)
		if err := rows.Scan(&r.ChunkID, &r.DocumentID, &r.Filename, &rowProject, &r.ChunkIndex, &r.Text, &distance); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		if rowProject != projectID {
			return nil, fmt.Errorf("chunk %s belongs to project %s: %w", r.ChunkID, rowProject, util.ErrTenantIsolation)
		}
		r.Score = 1 - distance
		results = append(results, r)
	}
	return results, rows.Err()
}
