package embed

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"docquery/internal/providers"
	"docquery/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider fails any batch containing a "poison" input, and can fail the
// first N calls with a transient error.
type fakeProvider struct {
	mu             sync.Mutex
	calls          int
	batchSizes     []int
	transientFails int
	dim            int
	badDimFor      string
}

func (f *fakeProvider) Embed(_ context.Context, req providers.EmbedRequest) ([][]float32, providers.ProviderInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.batchSizes = append(f.batchSizes, len(req.Inputs))
	if f.transientFails > 0 {
		f.transientFails--
		return nil, providers.ProviderInfo{Name: "fake"}, errors.New("temporarily unavailable")
	}
	out := make([][]float32, 0, len(req.Inputs))
	for _, in := range req.Inputs {
		if strings.Contains(in, "poison") {
			return nil, providers.ProviderInfo{Name: "fake"}, errors.New("invalid input content")
		}
		dim := f.dim
		if in == f.badDimFor {
			dim = f.dim + 1
		}
		vec := make([]float32, dim)
		vec[0] = float32(len(in))
		out = append(out, vec)
	}
	return out, providers.ProviderInfo{Name: "fake"}, nil
}

func newTestEmbedder(p providers.EmbeddingProvider, batch int) *Embedder {
	return New(p, nil, Options{
		Dimension:      4,
		BatchSize:      batch,
		MaxRetries:     3,
		CallTimeout:    time.Second,
		RetryBaseDelay: time.Millisecond,
	})
}

func TestEmbedTextsOrderAndBatching(t *testing.T) {
	p := &fakeProvider{dim: 4}
	e := newTestEmbedder(p, 3)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee", "ffffff", "g"}
	vecs, errs := e.EmbedTexts(context.Background(), texts)
	require.Empty(t, errs)
	require.Len(t, vecs, len(texts))
	for i, v := range vecs {
		require.Len(t, v, 4)
		assert.Equal(t, float32(len(texts[i])), v[0], "vector %d must align with input %d", i, i)
	}
	assert.Equal(t, []int{3, 3, 1}, p.batchSizes)
}

func TestEmbedTextsBisectsToIsolateBadItem(t *testing.T) {
	p := &fakeProvider{dim: 4}
	e := newTestEmbedder(p, 8)

	texts := []string{"one", "two", "poison pill", "four", "five"}
	vecs, errs := e.EmbedTexts(context.Background(), texts)
	require.Len(t, errs, 1)
	assert.Equal(t, 2, errs[0].Index)
	assert.True(t, errors.Is(errs[0].Err, util.ErrEmbedding))
	for i, v := range vecs {
		if i == 2 {
			assert.Nil(t, v)
			continue
		}
		assert.Len(t, v, 4, "sibling %d must still be embedded", i)
	}
}

func TestEmbedTextsRetriesTransientErrors(t *testing.T) {
	p := &fakeProvider{dim: 4, transientFails: 2}
	e := newTestEmbedder(p, 8)

	vecs, errs := e.EmbedTexts(context.Background(), []string{"hello"})
	require.Empty(t, errs)
	require.Len(t, vecs, 1)
	assert.Equal(t, 3, p.calls)
}

func TestEmbedTextsExhaustedRetriesFailItem(t *testing.T) {
	p := &fakeProvider{dim: 4, transientFails: 100}
	e := newTestEmbedder(p, 8)

	vecs, errs := e.EmbedTexts(context.Background(), []string{"hello"})
	require.Len(t, errs, 1)
	assert.Nil(t, vecs[0])
	assert.True(t, errors.Is(errs[0].Err, util.ErrEmbedding))
}

func TestEmbedTextsRejectsWrongDimension(t *testing.T) {
	p := &fakeProvider{dim: 4, badDimFor: "odd one"}
	e := newTestEmbedder(p, 8)

	vecs, errs := e.EmbedTexts(context.Background(), []string{"fine", "odd one"})
	require.Len(t, errs, 1)
	assert.Equal(t, 1, errs[0].Index)
	assert.Nil(t, vecs[1])
	require.NotNil(t, vecs[0])
}

func TestEmbedQuery(t *testing.T) {
	p := &fakeProvider{dim: 4}
	e := newTestEmbedder(p, 8)

	vec, err := e.EmbedQuery(context.Background(), "what is docquery")
	require.NoError(t, err)
	assert.Len(t, vec, 4)
}

func TestEmbedTextsEmptyInput(t *testing.T) {
	p := &fakeProvider{dim: 4}
	e := newTestEmbedder(p, 8)

	vecs, errs := e.EmbedTexts(context.Background(), nil)
	assert.Empty(t, vecs)
	assert.Empty(t, errs)
	assert.Zero(t, p.calls)
}
