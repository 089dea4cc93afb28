package embedding

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/kailas-cloud/tableadvisor/internal/domain"
	"github.com/kailas-cloud/tableadvisor/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	os.Exit(m.Run())
}

type mockEmbedder struct {
	result domain.EmbeddingResult
	err    error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return m.result, m.err
}

// mockGenerator answers every prompt with reply, or fails with err.
type mockGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (m *mockGenerator) Generate(_ context.Context, req domain.GenerationRequest) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, req.Prompt)
	m.mu.Unlock()
	return m.reply, m.err
}
