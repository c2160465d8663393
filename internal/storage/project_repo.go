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

type ProjectRepo struct {
	db *DB
}

func NewProjectRepo(db *DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

func (r *ProjectRepo) Create(ctx context.Context, p *models.Project) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO projects (project_id, name, created_at) VALUES ($1, $2, $3)`,
		p.ProjectID, p.Name, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (r *ProjectRepo) Get(ctx context.Context, projectID string) (*models.Project, error) {
	var p models.Project
	err := r.db.Pool.QueryRow(ctx,
		`SELECT project_id, name, created_at FROM projects WHERE project_id = $1`,
		projectID).Scan(&p.ProjectID, &p.Name, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", projectID, util.ErrProjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &p, nil
}

// Exists resolves the tenant before any job or query is admitted.
func (r *ProjectRepo) Exists(ctx context.Context, projectID string) error {
	var one int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT 1 FROM projects WHERE project_id = $1`, projectID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("project %s: %w", projectID, util.ErrProjectNotFound)
	}
	if err != nil {
		return fmt.Errorf("check project: %w", err)
	}
	return nil
}
