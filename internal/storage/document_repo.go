package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"docquery/internal/models"
	"docquery/internal/util"
)

type DocumentRepo struct {
	db *DB
}

func NewDocumentRepo(db *DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) Create(ctx context.Context, d *models.Document) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	if d.Status == "" {
		d.Status = models.DocPending
	}
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO documents (document_id, project_id, filename, content_type, status, fail_reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		d.DocumentID, d.ProjectID, d.Filename, d.ContentType, d.Status, d.FailReason, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (r *DocumentRepo) Get(ctx context.Context, documentID string) (*models.Document, error) {
	var d models.Document
	err := r.db.Pool.QueryRow(ctx,
		`SELECT document_id, project_id, filename, content_type, status, fail_reason, created_at
		 FROM documents WHERE document_id = $1`, documentID).
		Scan(&d.DocumentID, &d.ProjectID, &d.Filename, &d.ContentType, &d.Status, &d.FailReason, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", documentID, util.ErrDocumentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &d, nil
}

func (r *DocumentRepo) MarkStatus(ctx context.Context, documentID, status, failReason string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE documents SET status = $2, fail_reason = $3 WHERE document_id = $1`,
		documentID, status, failReason)
	if err != nil {
		return fmt.Errorf("mark document %s: %w", status, err)
	}
	return nil
}

func (r *DocumentRepo) ListByProject(ctx context.Context, projectID string) ([]models.Document, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT document_id, project_id, filename, content_type, status, fail_reason, created_at
		 FROM documents WHERE project_id = $1 ORDER BY created_at ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.DocumentID, &d.ProjectID, &d.Filename, &d.ContentType, &d.Status, &d.FailReason, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Delete removes the document row; chunks cascade.
func (r *DocumentRepo) Delete(ctx context.Context, documentID string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM documents WHERE document_id = $1`, documentID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}
