package rag

import (
	"context"
	"log"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"rag-orchestrator-be/pkg/embedding"
	"rag-orchestrator-be/pkg/llm"
	"rag-orchestrator-be/pkg/vectorindex"
)

// Config holds per-pipeline knobs. Construct a fresh value per caller,
// never share a mutable instance.
type Config struct {
	TopK                  int
	ScoreThreshold        float64
	GradingEnabled        bool
	GroundednessEnabled   bool
	GroundednessThreshold float64
	IncludeSources        bool
}

func DefaultConfig() Config {
	return Config{
		TopK:                  5,
		ScoreThreshold:        0.7,
		GradingEnabled:        true,
		GroundednessEnabled:   true,
		GroundednessThreshold: 0.7,
		IncludeSources:        true,
	}
}

// RetrievedDocument is one search hit carried through the pipeline stages.
type RetrievedDocument struct {
	ID         uuid.UUID `json:"id"`
	Content    string    `json:"content"`
	Score      float64   `json:"score"`
	DocumentID string    `json:"document_id,omitempty"`
	ChunkIndex int       `json:"chunk_index"`
	Filename   string    `json:"filename,omitempty"`
}

// Pipeline runs retrieval, relevance grading, grounded generation and the
// groundedness check. Every stage degrades on failure instead of failing
// the whole turn; only generation itself surfaces an error.
type Pipeline struct {
	embedder embedding.Provider
	index    vectorindex.Index
	llm      llm.Provider
	config   Config
	logger   *log.Logger
}

func NewPipeline(embedder embedding.Provider, index vectorindex.Index, provider llm.Provider, config Config, logger *log.Logger) *Pipeline {
	if config.TopK <= 0 {
		config.TopK = 5
	}
	return &Pipeline{
		embedder: embedder,
		index:    index,
		llm:      provider,
		config:   config,
		logger:   logger,
	}
}

// Retrieve embeds the query and searches the tenant's collection. An
// embedding or index failure yields zero context rather than an error so
// the turn can continue without documents.
func (p *Pipeline) Retrieve(ctx context.Context, tenantID uuid.UUID, query string, filter map[string]string) []RetrievedDocument {
	vector, err := p.embedder.GenerateOne(ctx, query)
	if err != nil || vector == nil {
		p.logger.Printf("[rag] query embedding unavailable, continuing without context: %v", err)
		return nil
	}

	hits, err := p.index.Search(ctx, tenantID, vector, vectorindex.SearchOptions{
		Limit:     p.config.TopK,
		Threshold: p.config.ScoreThreshold,
		Filter:    filter,
	})
	if err != nil {
		p.logger.Printf("[rag] vector search failed, continuing without context: %v", err)
		return nil
	}

	docs := make([]RetrievedDocument, 0, len(hits))
	for _, hit := range hits {
		doc := RetrievedDocument{
			ID:    hit.ID,
			Score: hit.Similarity,
		}
		if v, ok := hit.Payload["content"].(string); ok {
			doc.Content = v
		}
		if v, ok := hit.Payload["document_id"].(string); ok {
			doc.DocumentID = v
		}
		if v, ok := hit.Payload["filename"].(string); ok {
			doc.Filename = v
		}
		switch v := hit.Payload["chunk_index"].(type) {
		case float64:
			doc.ChunkIndex = int(v)
		case int:
			doc.ChunkIndex = v
		}
		docs = append(docs, doc)
	}
	return docs
}

// Grade asks the model a strict yes/no relevance question per document and
// drops the "no" answers. Any grading failure passes the ungraded set
// through untouched.
func (p *Pipeline) Grade(ctx context.Context, query string, docs []RetrievedDocument) []RetrievedDocument {
	if !p.config.GradingEnabled || len(docs) == 0 {
		return docs
	}

	graded := make([]RetrievedDocument, 0, len(docs))
	for _, doc := range docs {
		answer, err := p.llm.Generate(ctx, gradingPrompt(query, doc.Content),
			llm.WithTemperature(0),
			llm.WithMaxTokens(10),
		)
		if err != nil {
			p.logger.Printf("[rag] grading failed, passing ungraded set through: %v", err)
			return docs
		}
		if strings.Contains(strings.ToLower(strings.TrimSpace(answer)), "yes") {
			graded = append(graded, doc)
		}
	}
	return graded
}

// Generate builds a context-grounded prompt from the surviving documents.
// With no documents it falls back to answering the raw query directly.
func (p *Pipeline) Generate(ctx context.Context, query string, docs []RetrievedDocument) (string, error) {
	prompt := query
	if len(docs) > 0 {
		prompt = generationPrompt(query, docs, p.config.IncludeSources)
	}
	return p.llm.Generate(ctx, prompt, llm.WithTemperature(0.7))
}

// Chat answers a turn from conversation history alone, without retrieval.
func (p *Pipeline) Chat(ctx context.Context, history []llm.Message) (string, error) {
	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{Role: "system", Content: chatSystemPrompt})
	messages = append(messages, history...)
	return p.llm.Chat(ctx, messages, llm.WithTemperature(0.7))
}

// Groundedness scores how well the answer is supported by the documents.
// No documents force 0.0; model failure or an unparseable reply defaults
// to 0.5. The result is clamped to [0, 1].
func (p *Pipeline) Groundedness(ctx context.Context, answer string, docs []RetrievedDocument) float64 {
	if len(docs) == 0 {
		return 0.0
	}

	reply, err := p.llm.Generate(ctx, groundednessPrompt(answer, docs), llm.WithTemperature(0))
	if err != nil {
		p.logger.Printf("[rag] groundedness check failed, defaulting to uncertain: %v", err)
		return 0.5
	}

	score, err := strconv.ParseFloat(strings.TrimSpace(reply), 64)
	if err != nil {
		p.logger.Printf("[rag] groundedness score unparseable: %q", reply)
		return 0.5
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

// GroundednessThreshold exposes the configured review floor.
func (p *Pipeline) GroundednessThreshold() float64 {
	return p.config.GroundednessThreshold
}

// GroundednessEnabled reports whether the check stage runs at all.
func (p *Pipeline) GroundednessEnabled() bool {
	return p.config.GroundednessEnabled
}
