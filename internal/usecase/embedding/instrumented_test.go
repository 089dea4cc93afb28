package embedding

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/tableadvisor/internal/domain"
)

func TestInstrumentedEmbedder_Success(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:    []float32{0.1, 0.2, 0.3},
		Tier:         domain.TierAPI,
		PromptTokens: 100,
		TotalTokens:  100,
	}}
	p := NewInstrumentedEmbedder(inner, "ollama", "nomic-embed-text", zap.NewNop())

	result, err := p.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 {
		t.Fatalf("expected 3 dimensions, got %d", len(result.Embedding))
	}
	if result.TotalTokens != 100 {
		t.Errorf("expected TotalTokens=100, got %d", result.TotalTokens)
	}
}

func TestInstrumentedEmbedder_Error(t *testing.T) {
	inner := &mockEmbedder{err: domain.ErrEmbeddingProviderError}
	p := NewInstrumentedEmbedder(inner, "ollama", "nomic-embed-text", zap.NewNop())

	_, err := p.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
}

func TestInstrumentedEmbedder_LogsProviderFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}, Tier: domain.TierSemantic}}
	p := NewInstrumentedEmbedder(inner, "semantic", "llama3", zap.New(core))

	if _, err := p.Embed(context.Background(), "Table: p.d.t"); err != nil {
		t.Fatal(err)
	}

	entries := logs.FilterMessage("Embedding tier answered").All()
	if len(entries) != 1 {
		t.Fatalf("expected one debug line, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["provider"] != "semantic" || fields["model"] != "llama3" || fields["tier"] != "semantic" {
		t.Errorf("fields = %v", fields)
	}
}
