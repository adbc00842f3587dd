package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// geminiMaxBatchSize is the input limit of the batchEmbedContents endpoint.
const geminiMaxBatchSize = 100

var geminiModelDimensions = map[string]int{
	"text-embedding-004": 768,
	"embedding-001":      768,
}

// GeminiProvider generates embeddings via the Google Generative Language API.
type GeminiProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewGeminiProvider(apiKey, model string) *GeminiProvider {
	if model == "" {
		model = "text-embedding-004"
	}
	return &GeminiProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://generativelanguage.googleapis.com/v1",
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type geminiContentPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiContentPart `json:"parts"`
}

type geminiEmbedRequest struct {
	Model   string        `json:"model"`
	Content geminiContent `json:"content"`
}

type geminiBatchRequest struct {
	Requests []geminiEmbedRequest `json:"requests"`
}

type geminiEmbedding struct {
	Values []float32 `json:"values"`
}

type geminiEmbedResponse struct {
	Embedding geminiEmbedding `json:"embedding"`
}

type geminiBatchResponse struct {
	Embeddings []geminiEmbedding `json:"embeddings"`
}

func (p *GeminiProvider) GenerateOne(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	reqBody := geminiEmbedRequest{
		Model:   "models/" + p.model,
		Content: geminiContent{Parts: []geminiContentPart{{Text: text}}},
	}

	endpoint := fmt.Sprintf("%s/models/%s:embedContent", p.baseURL, p.model)
	body, err := p.post(ctx, endpoint, reqBody)
	if err != nil {
		return nil, err
	}

	var res geminiEmbedResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode gemini response: %w", err)
	}

	return res.Embedding.Values, nil
}

func (p *GeminiProvider) GenerateBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))

	var indices []int
	var valid []string
	for i, t := range texts {
		if strings.TrimSpace(t) != "" {
			indices = append(indices, i)
			valid = append(valid, t)
		}
	}

	endpoint := fmt.Sprintf("%s/models/%s:batchEmbedContents", p.baseURL, p.model)

	for offset := 0; offset < len(valid); offset += geminiMaxBatchSize {
		end := offset + geminiMaxBatchSize
		if end > len(valid) {
			end = len(valid)
		}

		reqBody := geminiBatchRequest{}
		for _, t := range valid[offset:end] {
			reqBody.Requests = append(reqBody.Requests, geminiEmbedRequest{
				Model:   "models/" + p.model,
				Content: geminiContent{Parts: []geminiContentPart{{Text: t}}},
			})
		}

		body, err := p.post(ctx, endpoint, reqBody)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			continue
		}

		var res geminiBatchResponse
		if err := json.Unmarshal(body, &res); err != nil {
			continue
		}

		for i, emb := range res.Embeddings {
			if idx := offset + i; idx < len(indices) {
				results[indices[idx]] = emb.Values
			}
		}
	}

	return results, nil
}

func (p *GeminiProvider) Dimensions() int {
	if dims, ok := geminiModelDimensions[p.model]; ok {
		return dims
	}
	return 768
}

func (p *GeminiProvider) HealthCheck(ctx context.Context) bool {
	vec, err := p.GenerateOne(ctx, "ping")
	return err == nil && len(vec) > 0
}

func (p *GeminiProvider) post(ctx context.Context, endpoint string, payload interface{}) ([]byte, error) {
	reqJson, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(reqJson))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-goog-api-key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	resByte, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error from gemini response, code %d, body %s", res.StatusCode, string(resByte))
	}

	return resByte, nil
}
