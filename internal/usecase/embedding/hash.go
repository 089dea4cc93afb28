package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"

	"github.com/kailas-cloud/tableadvisor/internal/domain"
)

// HashEmbedder is the last-resort tier: a pure function of the raw text.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a deterministic hash embedder.
func NewHashEmbedder(dim int) *HashEmbedder {
	return &HashEmbedder{dim: dim}
}

// Embed never fails.
func (h *HashEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: hashVector(text, h.dim), Tier: domain.TierHash}, nil
}

// hashVector chains sha256 blocks over text, mapping every byte to [-1, 1], then normalizes.
func hashVector(text string, dim int) []float32 {
	v := make([]float32, 0, dim)
	var counter [8]byte
	for block := uint64(0); len(v) < dim; block++ {
		binary.BigEndian.PutUint64(counter[:], block)
		h := sha256.New()
		h.Write([]byte(text))
		h.Write(counter[:])
		for _, b := range h.Sum(nil) {
			if len(v) == dim {
				break
			}
			v = append(v, float32(b)/127.5-1)
		}
	}
	return Normalize(v)
}
