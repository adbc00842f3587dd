package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeVector(t *testing.T) {
	vec := NormalizeVector([]float32{3, 4})

	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(magnitude), 1e-6)

	// Zero vector passes through untouched.
	zero := NormalizeVector([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, zero)
}

func TestOllamaBatchOrderPreserved(t *testing.T) {
	// Each prompt gets a distinguishable vector so we can verify ordering.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaEmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var v float64
		fmt.Sscanf(req.Prompt, "text-%f", &v)
		json.NewEncoder(w).Encode(ollamaEmbeddingResponse{Embedding: []float64{v, 0}})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "nomic-embed-text")

	results, err := p.GenerateBatch(context.Background(), []string{"text-1", "", "text-3"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Empty input yields nil at its position without shifting the rest.
	assert.NotNil(t, results[0])
	assert.Nil(t, results[1])
	assert.NotNil(t, results[2])

	// Vectors are normalized, so text-1 and text-3 both map to [1, 0].
	assert.InDelta(t, 1.0, float64(results[0][0]), 1e-6)
	assert.InDelta(t, 1.0, float64(results[2][0]), 1e-6)
}

func TestOllamaBatchToleratesItemFailure(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "model overloaded", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(ollamaEmbeddingResponse{Embedding: []float64{1}})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "nomic-embed-text")

	results, err := p.GenerateBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Nil(t, results[0])
	assert.NotNil(t, results[1])
}

func TestVoyageBatchChunking(t *testing.T) {
	var batchSizes []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req voyageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		batchSizes = append(batchSizes, len(req.Input))

		resp := voyageResponse{}
		for i := range req.Input {
			resp.Data = append(resp.Data, struct {
				Index     int       `json:"index"`
				Embedding []float32 `json:"embedding"`
			}{Index: i, Embedding: []float32{float32(i)}})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p := NewVoyageProvider("key", "voyage-2")
	p.baseURL = srv.URL

	texts := make([]string, voyageMaxBatchSize+10)
	for i := range texts {
		texts[i] = fmt.Sprintf("text %d", i)
	}

	results, err := p.GenerateBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, results, len(texts))

	// Oversized input is chunked internally at the provider's ceiling.
	assert.Equal(t, []int{voyageMaxBatchSize, 10}, batchSizes)
	for i, vec := range results {
		assert.NotNil(t, vec, "missing vector at position %d", i)
	}
}

func TestGeminiGenerateOne(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		json.NewEncoder(w).Encode(geminiEmbedResponse{
			Embedding: geminiEmbedding{Values: []float32{0.1, 0.2}},
		})
	}))
	defer srv.Close()

	p := NewGeminiProvider("test-key", "text-embedding-004")
	p.baseURL = srv.URL

	vec, err := p.GenerateOne(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, vec)
	assert.Equal(t, 768, p.Dimensions())
}

func TestEmptyInputYieldsNilVector(t *testing.T) {
	p := NewGeminiProvider("key", "")

	vec, err := p.GenerateOne(context.Background(), "   ")
	require.NoError(t, err)
	assert.Nil(t, vec)
}

func TestFactory(t *testing.T) {
	tests := []struct {
		provider string
		wantErr  bool
	}{
		{"openai", false},
		{"", false},
		{"ollama", false},
		{"gemini", false},
		{"voyage", false},
		{"cohere", true},
	}

	for _, tt := range tests {
		p, err := NewProvider(Config{Provider: tt.provider, APIKey: "k"})
		if tt.wantErr {
			assert.Error(t, err, tt.provider)
		} else {
			assert.NoError(t, err, tt.provider)
			assert.NotNil(t, p)
		}
	}
}
