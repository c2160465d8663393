package providers

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

type MockProvider struct {
	dim int
}

func NewMockProvider(dim int) *MockProvider {
	if dim <= 0 {
		dim = 1536
	}
	return &MockProvider{dim: dim}
}

func (m *MockProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	_ = ctx
	dim := req.Dimension
	if dim <= 0 {
		dim = m.dim
	}
	vectors := make([][]float32, 0, len(req.Inputs))
	for _, input := range req.Inputs {
		vectors = append(vectors, deterministicVector(input, dim))
	}
	return vectors, ProviderInfo{Name: "mock", Model: fmt.Sprintf("mock-embed-%d", dim), Key: "mock"}, nil
}

// Score rates candidates by query-term overlap. Deterministic for identical
// inputs, which is all tests and keyless runs need.
func (m *MockProvider) Score(ctx context.Context, req ScoreRequest) ([]float64, ProviderInfo, error) {
	_ = ctx
	terms := strings.Fields(strings.ToLower(req.Query))
	out := make([]float64, 0, len(req.Candidates))
	for _, cand := range req.Candidates {
		low := strings.ToLower(cand)
		matched := 0
		for _, t := range terms {
			if strings.Contains(low, t) {
				matched++
			}
		}
		score := 0.0
		if len(terms) > 0 {
			score = 10 * float64(matched) / float64(len(terms))
		}
		out = append(out, score)
	}
	return out, ProviderInfo{Name: "mock", Model: "mock-score-v1", Key: "mock"}, nil
}

func deterministicVector(input string, dim int) []float32 {
	vec := make([]float32, dim)
	seed := []byte(input)
	if len(seed) == 0 {
		seed = []byte("empty")
	}
	for i := 0; i < dim; i++ {
		h := sha256.Sum256(append(seed, byte(i%251)))
		u := binary.BigEndian.Uint32(h[:4])
		v := float32(u%2000)/1000.0 - 1.0
		vec[i] = v
	}
	return normalize(vec)
}

func normalize(v []float32) []float32 {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return v
	}
	inv := float32(1.0 / math.Sqrt(float64(sum)))
	for i := range v {
		v[i] *= inv
	}
	return v
}
