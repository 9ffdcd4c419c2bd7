package chat

import (
	"context"

	"github.com/coachchat/coachchat/internal/domain"
)

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Searcher runs KNN queries against the chunk index.
type Searcher interface {
	Query(ctx context.Context, vector []float32, topK int) ([]domain.Match, error)
}

// Generator produces the answer text from a system prompt and user message.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userMessage string) (string, error)
}
