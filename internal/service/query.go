package service

import (
	"context"
	"fmt"
	"strings"

	"docquery/internal/config"
	"docquery/internal/models"
)

type Retriever interface {
	Retrieve(ctx context.Context, projectID, query string, topK int) ([]models.ChunkResult, error)
}

type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []models.ChunkResult, topM int) []models.ChunkResult
}

// Assembler turns reranked chunks into budgeted results, normally
// rag.Assemble.
type Assembler func(ranked []models.ChunkResult, budget int) []models.SearchResult

type QueryService struct {
	cfg       config.Config
	projects  ProjectStore
	retriever Retriever
	reranker  Reranker
	assemble  Assembler
}

func NewQueryService(cfg config.Config, projects ProjectStore, retriever Retriever, reranker Reranker, assemble Assembler) *QueryService {
	return &QueryService{cfg: cfg, projects: projects, retriever: retriever, reranker: reranker, assemble: assemble}
}

// Search runs the full retrieval pipeline for one query: embed, fetch the
// k nearest candidates from the project, rerank to the top m, assemble
// under the context budget. k and m are per-query overrides; zero or
// negative values fall back to the configured defaults. An empty project
// yields an empty result, not an error.
func (s *QueryService) Search(ctx context.Context, projectID, query string, k, m int) ([]models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required")
	}
	if err := s.projects.Exists(ctx, projectID); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = s.cfg.RetrievalTopK
	}
	if m <= 0 {
		m = s.cfg.ContextTopM
	}
	candidates, err := s.retriever.Retrieve(ctx, projectID, query, k)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	ranked := s.reranker.Rerank(ctx, query, candidates, m)
	return s.assemble(ranked, s.cfg.ContextBudget), nil
}
