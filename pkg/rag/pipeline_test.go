package rag

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-orchestrator-be/pkg/llm"
	"rag-orchestrator-be/pkg/vectorindex"
)

type stubLLM struct {
	reply   func(prompt string) (string, error)
	prompts []string
}

func (s *stubLLM) Generate(_ context.Context, prompt string, _ ...llm.Option) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.reply(prompt)
}

func (s *stubLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	return s.Generate(ctx, history[len(history)-1].Content, opts...)
}

type stubEmbedder struct {
	vector []float32
	err    error
}

func (s *stubEmbedder) GenerateOne(context.Context, string) ([]float32, error) {
	return s.vector, s.err
}

func (s *stubEmbedder) GenerateBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vector
	}
	return out, s.err
}

func (s *stubEmbedder) Dimensions() int                { return len(s.vector) }
func (s *stubEmbedder) HealthCheck(context.Context) bool { return s.err == nil }

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestPipeline(t *testing.T, provider *stubLLM, embedder *stubEmbedder, index vectorindex.Index) *Pipeline {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ScoreThreshold = 0.1
	return NewPipeline(embedder, index, provider, cfg, testLogger())
}

func TestRetrieveDegradesOnEmbeddingFailure(t *testing.T) {
	p := newTestPipeline(t,
		&stubLLM{reply: func(string) (string, error) { return "", nil }},
		&stubEmbedder{err: errors.New("backend down")},
		vectorindex.NewMemoryIndex(),
	)

	docs := p.Retrieve(context.Background(), uuid.New(), "query", nil)
	assert.Empty(t, docs)
}

func TestRetrieveMapsPayload(t *testing.T) {
	ctx := context.Background()
	index := vectorindex.NewMemoryIndex()
	tenant := uuid.New()

	id := uuid.New()
	require.NoError(t, index.Upsert(ctx, tenant, []vectorindex.Point{{
		ID:     id,
		Vector: []float32{1, 0},
		Payload: map[string]any{
			"content":     "finches diverged on separate islands",
			"document_id": "doc-1",
			"chunk_index": 2,
			"filename":    "origin.pdf",
		},
	}}))

	p := newTestPipeline(t,
		&stubLLM{reply: func(string) (string, error) { return "yes", nil }},
		&stubEmbedder{vector: []float32{1, 0}},
		index,
	)

	docs := p.Retrieve(ctx, tenant, "finches", nil)
	require.Len(t, docs, 1)
	assert.Equal(t, id, docs[0].ID)
	assert.Equal(t, "finches diverged on separate islands", docs[0].Content)
	assert.Equal(t, "doc-1", docs[0].DocumentID)
	assert.Equal(t, 2, docs[0].ChunkIndex)
	assert.Equal(t, "origin.pdf", docs[0].Filename)
	assert.Greater(t, docs[0].Score, 0.9)
}

func TestGradeDropsIrrelevantDocuments(t *testing.T) {
	provider := &stubLLM{reply: func(prompt string) (string, error) {
		if strings.Contains(prompt, "weather report") {
			return "no", nil
		}
		return "Yes", nil
	}}
	p := newTestPipeline(t, provider, &stubEmbedder{}, vectorindex.NewMemoryIndex())

	docs := []RetrievedDocument{
		{Content: "finch beak variation"},
		{Content: "weather report for tuesday"},
	}
	graded := p.Grade(context.Background(), "finches", docs)
	require.Len(t, graded, 1)
	assert.Equal(t, "finch beak variation", graded[0].Content)
}

func TestGradePassesThroughOnError(t *testing.T) {
	provider := &stubLLM{reply: func(string) (string, error) {
		return "", errors.New("model overloaded")
	}}
	p := newTestPipeline(t, provider, &stubEmbedder{}, vectorindex.NewMemoryIndex())

	docs := []RetrievedDocument{{Content: "a"}, {Content: "b"}}
	graded := p.Grade(context.Background(), "query", docs)
	assert.Equal(t, docs, graded)
}

func TestGenerateFallsBackWithoutDocuments(t *testing.T) {
	provider := &stubLLM{reply: func(string) (string, error) { return "answer", nil }}
	p := newTestPipeline(t, provider, &stubEmbedder{}, vectorindex.NewMemoryIndex())

	_, err := p.Generate(context.Background(), "what is evolution", nil)
	require.NoError(t, err)
	require.Len(t, provider.prompts, 1)
	assert.Equal(t, "what is evolution", provider.prompts[0])

	// With documents the prompt carries the grounding instruction.
	_, err = p.Generate(context.Background(), "what is evolution", []RetrievedDocument{{Content: "ctx", Filename: "origin.pdf"}})
	require.NoError(t, err)
	require.Len(t, provider.prompts, 2)
	assert.Contains(t, provider.prompts[1], "Use only information from the provided documents")
	assert.Contains(t, provider.prompts[1], "origin.pdf")
}

func TestGroundednessScoring(t *testing.T) {
	docs := []RetrievedDocument{{Content: "ctx"}}

	cases := []struct {
		name  string
		reply string
		err   error
		docs  []RetrievedDocument
		want  float64
	}{
		{"no documents forces zero", "0.9", nil, nil, 0.0},
		{"plain score", "0.42", nil, docs, 0.42},
		{"clamped above one", "1.5", nil, docs, 1.0},
		{"clamped below zero", "-0.3", nil, docs, 0.0},
		{"parse failure uncertain", "well, mostly grounded", nil, docs, 0.5},
		{"model failure uncertain", "", errors.New("timeout"), docs, 0.5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			provider := &stubLLM{reply: func(string) (string, error) { return tc.reply, tc.err }}
			p := newTestPipeline(t, provider, &stubEmbedder{}, vectorindex.NewMemoryIndex())
			assert.InDelta(t, tc.want, p.Groundedness(context.Background(), "answer", tc.docs), 1e-9)
		})
	}
}
