package providers

import "context"

type ProviderInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
	Key   string `json:"key"`
}

type EmbedRequest struct {
	Operation string   `json:"operation"`
	Inputs    []string `json:"inputs"`
	Dimension int      `json:"dimension"`
}

// ScoreRequest asks for a relevance score per candidate, index-aligned with
// Candidates. Scores are on a 0-10 scale.
type ScoreRequest struct {
	Operation  string   `json:"operation"`
	Query      string   `json:"query"`
	Candidates []string `json:"candidates"`
}

type EmbeddingProvider interface {
	Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error)
}

type ScoringProvider interface {
	Score(ctx context.Context, req ScoreRequest) ([]float64, ProviderInfo, error)
}
