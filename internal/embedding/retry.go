// Package embedding holds the retry decorator shared by all Embedder
// implementations. Retry policy is deliberately kept out of the
// clients themselves so the pipeline's logic stays retry-free and
// testable.
package embedding

import (
	"context"
	"time"

	"rag-agent/internal/domain"
)

type retryEmbedder struct {
	inner      domain.Embedder
	maxRetries int
	baseDelay  time.Duration
}

// WithRetry wraps an Embedder with exponential backoff on transient
// failures. Configuration errors and other fatal failures pass
// through untouched. maxRetries <= 0 returns the embedder unwrapped.
func WithRetry(inner domain.Embedder, maxRetries int) domain.Embedder {
	if maxRetries <= 0 {
		return inner
	}
	return &retryEmbedder{inner: inner, maxRetries: maxRetries, baseDelay: 200 * time.Millisecond}
}

func (r *retryEmbedder) Name() string                  { return r.inner.Name() }
func (r *retryEmbedder) Prepare(corpus []string) error { return r.inner.Prepare(corpus) }
func (r *retryEmbedder) Dimension() int                { return r.inner.Dimension() }

func (r *retryEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		vec, err := r.inner.Embed(ctx, text)
		if err == nil {
			return vec, nil
		}
		if !domain.IsTransient(err) {
			return nil, err
		}
		lastErr = err
		if attempt == r.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.delay(attempt)):
		}
	}
	return nil, lastErr
}

// delay is exponential backoff capped at 5s.
func (r *retryEmbedder) delay(attempt int) time.Duration {
	d := r.baseDelay << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
