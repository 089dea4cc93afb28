package domain

import "context"

// GenerationRequest is one prompt sent to the text-generation service.
type GenerationRequest struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// TextGenerator produces free-form text. Output is untrusted and may be malformed.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}
