// Package embed wraps an embedding provider with the batching, retry, and
// partial-failure policy the ingestion pipeline needs: ordered fixed-size
// batches, exponential backoff on transient errors, and bisection of failed
// batches down to single items so one malformed input cannot sink its
// siblings.
package embed

import (
	"context"
	"fmt"
	"time"

	"docquery/internal/providers"
	"docquery/internal/util"
)

type Options struct {
	Dimension      int
	BatchSize      int
	MaxRetries     int
	CallTimeout    time.Duration
	RetryBaseDelay time.Duration
}

type ItemError struct {
	Index int
	Err   error
}

type Embedder struct {
	provider providers.EmbeddingProvider
	gate     *providers.Gate
	opts     Options
}

func New(p providers.EmbeddingProvider, gate *providers.Gate, opts Options) *Embedder {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 64
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 30 * time.Second
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = time.Second
	}
	return &Embedder{provider: p, gate: gate, opts: opts}
}

// EmbedTexts vectorizes texts in order. The returned slice is index-aligned
// with the input; entries for failed items are nil and reported in the item
// error list. A vector is either complete (dimension checked) or absent.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, []ItemError) {
	out := make([][]float32, len(texts))
	var errs []ItemError
	for start := 0; start < len(texts); start += e.opts.BatchSize {
		end := start + e.opts.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		errs = e.embedRange(ctx, texts, start, end, out, errs)
	}
	return out, errs
}

// EmbedQuery vectorizes a single query string.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, errs := e.EmbedTexts(ctx, []string{text})
	if len(errs) > 0 {
		return nil, errs[0].Err
	}
	return vecs[0], nil
}

func (e *Embedder) embedRange(ctx context.Context, texts []string, lo, hi int, out [][]float32, errs []ItemError) []ItemError {
	vecs, err := e.callWithRetry(ctx, texts[lo:hi])
	if err == nil && len(vecs) != hi-lo {
		err = fmt.Errorf("provider returned %d vectors for %d inputs", len(vecs), hi-lo)
	}
	if err == nil {
		for i, v := range vecs {
			if e.opts.Dimension > 0 && len(v) != e.opts.Dimension {
				errs = append(errs, ItemError{Index: lo + i, Err: fmt.Errorf("%w: vector dimension %d, want %d", util.ErrEmbedding, len(v), e.opts.Dimension)})
				continue
			}
			out[lo+i] = v
		}
		return errs
	}
	if hi-lo == 1 {
		return append(errs, ItemError{Index: lo, Err: fmt.Errorf("%w: %v", util.ErrEmbedding, err)})
	}
	// Split the failed batch so a single bad item surfaces alone.
	mid := lo + (hi-lo)/2
	errs = e.embedRange(ctx, texts, lo, mid, out, errs)
	return e.embedRange(ctx, texts, mid, hi, out, errs)
}

func (e *Embedder) callWithRetry(ctx context.Context, inputs []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt < e.opts.MaxRetries; attempt++ {
		vecs, err := e.callOnce(ctx, inputs)
		if err == nil {
			return vecs, nil
		}
		lastErr = err
		if !providers.IsRetryable(providers.ClassifyError(err)) {
			return nil, err
		}
		if attempt == e.opts.MaxRetries-1 {
			break
		}
		delay := e.opts.RetryBaseDelay << attempt
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}

func (e *Embedder) callOnce(ctx context.Context, inputs []string) ([][]float32, error) {
	if e.gate != nil {
		release, err := e.gate.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		defer release()
	}
	callCtx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
	defer cancel()
	vecs, _, err := e.provider.Embed(callCtx, providers.EmbedRequest{
		Operation: "embed",
		Inputs:    inputs,
		Dimension: e.opts.Dimension,
	})
	return vecs, err
}
