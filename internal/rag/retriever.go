// Package rag implements the retrieval side: embed the query, pull
// candidate chunks, rerank them, and assemble a bounded context block.
package rag

import (
	"context"
	"fmt"
	"log"

	"docquery/internal/embed"
	"docquery/internal/models"
	"docquery/internal/providers"
)

// ChunkSearcher is the similarity-search backend, normally vector.Searcher.
type ChunkSearcher interface {
	Search(ctx context.Context, projectID string, queryVec []float32, topK int) ([]models.ChunkResult, error)
}

// EmbedSource yields embedding providers in preference order. Satisfied by
// providers.Manager.
type EmbedSource interface {
	PreferredEmbedOrder() []int
	EmbedProviderByIndex(i int) (providers.EmbeddingProvider, providers.ProviderRef)
}

type Retriever struct {
	manager EmbedSource
	gate    *providers.Gate
	opts    embed.Options
	search  ChunkSearcher
	topK    int
}

func NewRetriever(manager EmbedSource, gate *providers.Gate, opts embed.Options, search ChunkSearcher, topK int) *Retriever {
	if topK <= 0 {
		topK = 50
	}
	return &Retriever{manager: manager, gate: gate, opts: opts, search: search, topK: topK}
}

// Retrieve embeds the query and returns the topK nearest chunks within the
// project; topK <= 0 falls back to the configured default. Embedding
// providers are tried in preference order; the search only fails once every
// provider has refused the query.
func (r *Retriever) Retrieve(ctx context.Context, projectID, query string, topK int) ([]models.ChunkResult, error) {
	if topK <= 0 {
		topK = r.topK
	}
	var lastErr error
	for _, idx := range r.manager.PreferredEmbedOrder() {
		provider, ref := r.manager.EmbedProviderByIndex(idx)
		e := embed.New(provider, r.gate, r.opts)
		vec, err := e.EmbedQuery(ctx, query)
		if err != nil {
			log.Printf("query embedding via %s failed: %v", ref.Name, err)
			lastErr = err
			continue
		}
		return r.search.Search(ctx, projectID, vec, topK)
	}
	return nil, fmt.Errorf("embed query: %w", lastErr)
}
