package domain

import "errors"

var (
	// ErrModelUnavailable signals that the embedding model cannot be reached
	// at startup. Fatal to the process, never retried.
	ErrModelUnavailable = errors.New("embedding model unavailable")
	// ErrEmbeddingProvider signals a per-call embedding provider failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrIndexUnavailable signals that the vector index cannot be queried.
	// Transient, safe to retry with backoff.
	ErrIndexUnavailable = errors.New("vector index unavailable")
	// ErrGenerationFailed signals an LLM API error, rate limit, or timeout.
	// Transient, safe to retry with backoff.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrSessionNotFound signals a missing or expired chat session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrEmptyQuery signals a blank user query.
	ErrEmptyQuery = errors.New("query must not be empty")
)
