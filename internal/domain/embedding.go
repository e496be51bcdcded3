package domain

import (
	"context"
	"fmt"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the
// decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// ValidateEmbedding checks that a provider vector is non-empty and has the
// configured dimensionality. dims == 0 skips the length check (provider
// default dimensionality).
func ValidateEmbedding(vec []float32, dims int) error {
	if len(vec) == 0 {
		return fmt.Errorf("empty vector: %w", ErrInvalidProviderResponse)
	}
	if dims > 0 && len(vec) != dims {
		return fmt.Errorf("vector has %d dimensions, want %d: %w",
			len(vec), dims, ErrInvalidProviderResponse)
	}
	return nil
}
