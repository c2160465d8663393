package rag

import (
	"context"
	"log"
	"sort"
	"time"

	"docquery/internal/models"
	"docquery/internal/providers"
	"docquery/internal/util"
)

// ScoreSource yields scoring providers in preference order. Satisfied by
// providers.Manager.
type ScoreSource interface {
	PreferredScoreOrder() []int
	ScoreProviderByIndex(i int) (providers.ScoringProvider, providers.ProviderRef)
}

// Reranker reorders retrieved chunks by provider-scored relevance to the
// query. Scoring is best-effort: when every provider fails, the caller gets
// the first topM candidates in similarity order instead of an error.
type Reranker struct {
	manager     ScoreSource
	gate        *providers.Gate
	batchSize   int
	callTimeout time.Duration
}

func NewReranker(manager ScoreSource, gate *providers.Gate, batchSize int, callTimeout time.Duration) *Reranker {
	if batchSize <= 0 {
		batchSize = 8
	}
	if callTimeout <= 0 {
		callTimeout = 15 * time.Second
	}
	return &Reranker{manager: manager, gate: gate, batchSize: batchSize, callTimeout: callTimeout}
}

// Rerank returns up to topM candidates ordered by score descending. Equal
// scores keep their original similarity rank. The input slice is not
// modified.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []models.ChunkResult, topM int) []models.ChunkResult {
	if topM <= 0 {
		topM = 10
	}
	if len(candidates) == 0 {
		return nil
	}

	scores, ok := r.scoreAll(ctx, query, candidates)
	if !ok {
		// Fall back to similarity order when no provider could score.
		log.Printf("%v: returning top %d in similarity order", util.ErrRerankerUnavailable, topM)
		out := make([]models.ChunkResult, 0, topM)
		for i := 0; i < len(candidates) && i < topM; i++ {
			out = append(out, candidates[i])
		}
		return out
	}

	type ranked struct {
		idx   int
		score float64
	}
	order := make([]ranked, len(candidates))
	for i := range candidates {
		order[i] = ranked{idx: i, score: scores[i]}
	}
	sort.SliceStable(order, func(a, b int) bool {
		if order[a].score != order[b].score {
			return order[a].score > order[b].score
		}
		return order[a].idx < order[b].idx
	})

	out := make([]models.ChunkResult, 0, topM)
	for _, rk := range order {
		if len(out) >= topM {
			break
		}
		c := candidates[rk.idx]
		c.Score = rk.score
		out = append(out, c)
	}
	return out
}

// scoreAll returns an index-aligned score slice. ok is false only when every
// batch failed on every provider; a partially scored run still counts, with
// unscored candidates at zero.
func (r *Reranker) scoreAll(ctx context.Context, query string, candidates []models.ChunkResult) ([]float64, bool) {
	scores := make([]float64, len(candidates))
	anyScored := false

	for lo := 0; lo < len(candidates); lo += r.batchSize {
		hi := lo + r.batchSize
		if hi > len(candidates) {
			hi = len(candidates)
		}
		texts := make([]string, 0, hi-lo)
		for _, c := range candidates[lo:hi] {
			texts = append(texts, c.Text)
		}
		batch, err := r.scoreBatch(ctx, query, texts)
		if err != nil {
			log.Printf("rerank batch [%d:%d] failed: %v", lo, hi, err)
			continue
		}
		copy(scores[lo:hi], batch)
		anyScored = true
	}
	return scores, anyScored
}

func (r *Reranker) scoreBatch(ctx context.Context, query string, texts []string) ([]float64, error) {
	var lastErr error
	for _, idx := range r.manager.PreferredScoreOrder() {
		provider, ref := r.manager.ScoreProviderByIndex(idx)
		batch, err := r.callProvider(ctx, provider, query, texts)
		if err != nil {
			log.Printf("scoring via %s failed: %v", ref.Name, err)
			lastErr = err
			continue
		}
		return batch, nil
	}
	return nil, lastErr
}

func (r *Reranker) callProvider(ctx context.Context, provider providers.ScoringProvider, query string, texts []string) ([]float64, error) {
	release, err := r.gate.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	scores, _, err := provider.Score(callCtx, providers.ScoreRequest{
		Operation:  "rerank",
		Query:      query,
		Candidates: texts,
	})
	return scores, err
}
