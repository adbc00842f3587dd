package embedding

import (
	"context"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// openaiMaxBatchSize is the documented input limit of the OpenAI
// embeddings endpoint.
const openaiMaxBatchSize = 2048

var openaiModelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIProvider generates embeddings via the OpenAI API. It also serves
// OpenAI-compatible endpoints when BaseURL is set.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAIProvider(apiKey, model, baseURL string) *OpenAIProvider {
	if model == "" {
		model = "text-embedding-3-small"
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (p *OpenAIProvider) GenerateOne(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	res, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(p.model),
	})
	if err != nil {
		return nil, err
	}
	if len(res.Data) == 0 {
		return nil, nil
	}

	return res.Data[0].Embedding, nil
}

func (p *OpenAIProvider) GenerateBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))

	// Positions of non-empty inputs; empty strings keep a nil slot so the
	// output stays aligned with the input.
	var indices []int
	var valid []string
	for i, t := range texts {
		if strings.TrimSpace(t) != "" {
			indices = append(indices, i)
			valid = append(valid, t)
		}
	}

	for offset := 0; offset < len(valid); offset += openaiMaxBatchSize {
		end := offset + openaiMaxBatchSize
		if end > len(valid) {
			end = len(valid)
		}

		res, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: valid[offset:end],
			Model: openai.EmbeddingModel(p.model),
		})
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			// Failed sub-batch degrades to nil vectors, the rest continues.
			continue
		}

		for _, item := range res.Data {
			if idx := offset + item.Index; idx < len(indices) {
				results[indices[idx]] = item.Embedding
			}
		}
	}

	return results, nil
}

func (p *OpenAIProvider) Dimensions() int {
	if dims, ok := openaiModelDimensions[p.model]; ok {
		return dims
	}
	return 1536
}

func (p *OpenAIProvider) HealthCheck(ctx context.Context) bool {
	vec, err := p.GenerateOne(ctx, "ping")
	return err == nil && len(vec) > 0
}
