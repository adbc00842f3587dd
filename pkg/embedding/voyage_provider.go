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

// voyageMaxBatchSize is the per-request input limit of the Voyage AI API.
const voyageMaxBatchSize = 128

var voyageModelDimensions = map[string]int{
	"voyage-2":       1024,
	"voyage-large-2": 1536,
	"voyage-code-2":  1536,
}

// VoyageProvider generates embeddings via the Voyage AI API.
type VoyageProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewVoyageProvider(apiKey, model string) *VoyageProvider {
	if model == "" {
		model = "voyage-2"
	}
	return &VoyageProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://api.voyageai.com/v1/embeddings",
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type voyageRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type voyageResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *VoyageProvider) GenerateOne(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	res, err := p.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(res.Data) == 0 {
		return nil, fmt.Errorf("empty embeddings from voyage api")
	}

	return res.Data[0].Embedding, nil
}

func (p *VoyageProvider) GenerateBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))

	var indices []int
	var valid []string
	for i, t := range texts {
		if strings.TrimSpace(t) != "" {
			indices = append(indices, i)
			valid = append(valid, t)
		}
	}

	for offset := 0; offset < len(valid); offset += voyageMaxBatchSize {
		end := offset + voyageMaxBatchSize
		if end > len(valid) {
			end = len(valid)
		}

		res, err := p.embed(ctx, valid[offset:end])
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
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

func (p *VoyageProvider) Dimensions() int {
	if dims, ok := voyageModelDimensions[p.model]; ok {
		return dims
	}
	return 1024
}

func (p *VoyageProvider) HealthCheck(ctx context.Context) bool {
	vec, err := p.GenerateOne(ctx, "ping")
	return err == nil && len(vec) > 0
}

func (p *VoyageProvider) embed(ctx context.Context, input []string) (*voyageResponse, error) {
	reqBody := voyageRequest{Model: p.model, Input: input}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.apiKey))

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("voyage api error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	var voyageResp voyageResponse
	if err := json.Unmarshal(bodyBytes, &voyageResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if voyageResp.Error != nil {
		return nil, fmt.Errorf("voyage api returned error: %s", voyageResp.Error.Message)
	}

	return &voyageResp, nil
}
