package storage

import (
	"context"
	"fmt"
)

// Embedding dimensionality is fixed per deployment; changing it invalidates
// every stored chunk and requires full re-ingestion.
const schemaSQL = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS projects (
	project_id uuid PRIMARY KEY,
	name       text NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS documents (
	document_id  uuid PRIMARY KEY,
	project_id   uuid NOT NULL REFERENCES projects(project_id) ON DELETE CASCADE,
	filename     text NOT NULL,
	content_type text NOT NULL DEFAULT '',
	status       text NOT NULL DEFAULT 'pending',
	fail_reason  text NOT NULL DEFAULT '',
	created_at   timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS documents_project_idx ON documents(project_id);

CREATE TABLE IF NOT EXISTS chunks (
	chunk_id    uuid PRIMARY KEY,
	document_id uuid NOT NULL REFERENCES documents(document_id) ON DELETE CASCADE,
	chunk_index int NOT NULL,
	text        text NOT NULL,
	start_char  int NOT NULL DEFAULT 0,
	end_char    int NOT NULL DEFAULT 0,
	embedding   vector(%d) NOT NULL,
	metadata    jsonb NOT NULL DEFAULT '{}'::jsonb,
	seq         bigserial,
	created_at  timestamptz NOT NULL DEFAULT now(),
	UNIQUE (document_id, chunk_index)
);
CREATE INDEX IF NOT EXISTS chunks_document_idx ON chunks(document_id);
CREATE INDEX IF NOT EXISTS chunks_embedding_idx ON chunks USING hnsw (embedding vector_cosine_ops);

CREATE TABLE IF NOT EXISTS ingestion_jobs (
	job_id          uuid PRIMARY KEY,
	project_id      uuid NOT NULL REFERENCES projects(project_id) ON DELETE CASCADE,
	user_id         text NOT NULL DEFAULT '',
	status          text NOT NULL DEFAULT 'pending',
	total_files     int NOT NULL DEFAULT 0,
	processed_files int NOT NULL DEFAULT 0,
	failed_files    int NOT NULL DEFAULT 0,
	file_errors     jsonb NOT NULL DEFAULT '[]'::jsonb,
	created_at      timestamptz NOT NULL DEFAULT now(),
	updated_at      timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS ingestion_jobs_project_idx ON ingestion_jobs(project_id);
`

// EnsureSchema creates the tables if they do not exist. Full migration
// tooling is out of scope; this is the bootstrap path for a fresh database.
func (d *DB) EnsureSchema(ctx context.Context, embedDim int) error {
	if embedDim <= 0 {
		embedDim = 1536
	}
	if _, err := d.Pool.Exec(ctx, fmt.Sprintf(schemaSQL, embedDim)); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
