package domain

import "errors"

var (
	// ErrInvalidConfig signals a configuration that cannot drive a run.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrDimensionMismatch signals a vector of the wrong length.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerationFailed signals a text-generation service failure.
	ErrGenerationFailed = errors.New("text generation failed")
	// ErrEmptyResponse signals that a service answered with no usable content.
	ErrEmptyResponse = errors.New("empty response")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrCircuitOpen signals that calls are short-circuited after repeated failures.
	ErrCircuitOpen = errors.New("circuit open")
	// ErrIndexUnavailable signals that the similarity index backend cannot be reached.
	ErrIndexUnavailable = errors.New("similarity index unavailable")
)
