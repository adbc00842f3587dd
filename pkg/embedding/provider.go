package embedding

import (
	"context"
	"math"
)

// Config holds tenant-scoped provider settings. Providers hold no global
// state: a Config is resolved per tenant and a provider constructed from it.
type Config struct {
	Provider string // "openai", "gemini", "ollama" or "voyage"
	Model    string
	APIKey   string
	BaseURL  string
}

// Provider defines the interface for generating text embeddings.
//
// GenerateBatch preserves input order: result[i] always corresponds to
// texts[i]. Empty inputs and per-item failures yield a nil vector at that
// position instead of aborting the batch, so callers can store the owning
// chunk without a vector and simply skip the vector-index upsert.
type Provider interface {
	GenerateOne(ctx context.Context, text string) ([]float32, error)
	GenerateBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	HealthCheck(ctx context.Context) bool
}

// NormalizeVector normalizes a vector to unit length. Cosine similarity in
// the vector index assumes normalized vectors; providers that do not return
// them normalized (Ollama) must call this before handing vectors out.
func NormalizeVector(vec []float32) []float32 {
	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)

	if magnitude == 0 {
		return vec
	}

	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / magnitude)
	}
	return normalized
}
