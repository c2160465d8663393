package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"docquery/internal/models"
	"docquery/internal/util"
)

type JobRepo struct {
	db *DB
}

func NewJobRepo(db *DB) *JobRepo {
	return &JobRepo{db: db}
}

func (r *JobRepo) CreateJob(ctx context.Context, j *models.IngestionJob) error {
	now := time.Now().UTC()
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	j.UpdatedAt = now
	if j.Status == "" {
		j.Status = models.JobPending
	}
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO ingestion_jobs (job_id, project_id, user_id, status, total_files, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		j.JobID, j.ProjectID, j.UserID, j.Status, j.TotalFiles, j.CreatedAt, j.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// GetJob returns a consistent snapshot of the job row. Counters and the
// error list come from the same SELECT, so a reader never sees a failure
// counted without its error record.
func (r *JobRepo) GetJob(ctx context.Context, jobID string) (*models.IngestionJob, error) {
	var (
		j      models.IngestionJob
		errRaw []byte
	)
	err := r.db.Pool.QueryRow(ctx,
		`SELECT job_id, project_id, user_id, status, total_files, processed_files, failed_files, file_errors, created_at, updated_at
		 FROM ingestion_jobs WHERE job_id = $1`, jobID).
		Scan(&j.JobID, &j.ProjectID, &j.UserID, &j.Status, &j.TotalFiles, &j.ProcessedFiles, &j.FailedFiles, &errRaw, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", jobID, util.ErrJobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	if len(errRaw) > 0 {
		if err := json.Unmarshal(errRaw, &j.FileErrors); err != nil {
			return nil, fmt.Errorf("decode file errors: %w", err)
		}
	}
	return &j, nil
}

func (r *JobRepo) ListJobsByProject(ctx context.Context, projectID string) ([]models.IngestionJob, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT job_id, project_id, user_id, status, total_files, processed_files, failed_files, file_errors, created_at, updated_at
		 FROM ingestion_jobs WHERE project_id = $1 ORDER BY created_at DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.IngestionJob
	for rows.Next() {
		var (
			j      models.IngestionJob
			errRaw []byte
		)
		if err := rows.Scan(&j.JobID, &j.ProjectID, &j.UserID, &j.Status, &j.TotalFiles, &j.ProcessedFiles, &j.FailedFiles, &errRaw, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		if len(errRaw) > 0 {
			if err := json.Unmarshal(errRaw, &j.FileErrors); err != nil {
				return nil, fmt.Errorf("decode file errors: %w", err)
			}
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// MarkProcessing moves pending -> processing. The WHERE guard makes the
// transition one-way; a completed or failed job never reverts.
func (r *JobRepo) MarkProcessing(ctx context.Context, jobID string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE ingestion_jobs SET status = $2, updated_at = now()
		 WHERE job_id = $1 AND status = $3`,
		jobID, models.JobProcessing, models.JobPending)
	if err != nil {
		return fmt.Errorf("mark job processing: %w", err)
	}
	return nil
}

func (r *JobRepo) MarkCompleted(ctx context.Context, jobID string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE ingestion_jobs SET status = $2, updated_at = now()
		 WHERE job_id = $1 AND status = $3`,
		jobID, models.JobCompleted, models.JobProcessing)
	if err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}
	return nil
}

// MarkFailed is reserved for job-level breakage, not per-file errors.
func (r *JobRepo) MarkFailed(ctx context.Context, jobID string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE ingestion_jobs SET status = $2, updated_at = now()
		 WHERE job_id = $1 AND status <> $3`,
		jobID, models.JobFailed, models.JobCompleted)
	if err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}
	return nil
}

// MarkCancelled records that the job stopped before processing every file.
// Jobs already completed or failed keep their terminal status.
func (r *JobRepo) MarkCancelled(ctx context.Context, jobID string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE ingestion_jobs SET status = $2, updated_at = now()
		 WHERE job_id = $1 AND status IN ($3, $4)`,
		jobID, models.JobCancelled, models.JobPending, models.JobProcessing)
	if err != nil {
		return fmt.Errorf("mark job cancelled: %w", err)
	}
	return nil
}

// RecordFileResult folds one file outcome into the job row as a single
// additive UPDATE, so concurrent per-file workers never lose increments.
func (r *JobRepo) RecordFileResult(ctx context.Context, jobID string, fileErr *models.FileError) error {
	if fileErr == nil {
		_, err := r.db.Pool.Exec(ctx,
			`UPDATE ingestion_jobs
			 SET processed_files = processed_files + 1, updated_at = now()
			 WHERE job_id = $1`, jobID)
		if err != nil {
			return fmt.Errorf("record file success: %w", err)
		}
		return nil
	}
	if fileErr.Timestamp.IsZero() {
		fileErr.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal([]models.FileError{*fileErr})
	if err != nil {
		return fmt.Errorf("marshal file error: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx,
		`UPDATE ingestion_jobs
		 SET failed_files = failed_files + 1,
		     file_errors = file_errors || $2::jsonb,
		     updated_at = now()
		 WHERE job_id = $1`, jobID, payload)
	if err != nil {
		return fmt.Errorf("record file failure: %w", err)
	}
	return nil
}

// CompleteIfDone flips processing -> completed once every file has been
// accounted for. Files that failed still count toward done; a job with
// failures and no crash ends completed, with the failures listed.
func (r *JobRepo) CompleteIfDone(ctx context.Context, jobID string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE ingestion_jobs SET status = $2, updated_at = now()
		 WHERE job_id = $1 AND status = $3
		   AND processed_files + failed_files >= total_files`,
		jobID, models.JobCompleted, models.JobProcessing)
	if err != nil {
		return false, fmt.Errorf("complete job: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
