package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-orchestrator-be/pkg/llm"
	"rag-orchestrator-be/pkg/rag"
	"rag-orchestrator-be/pkg/routing"
	"rag-orchestrator-be/pkg/vectorindex"
)

// scriptedLLM answers grading, groundedness and generation prompts from
// fixed scripts, popping generation/groundedness replies in order.
type scriptedLLM struct {
	gradeReply    string
	generations   []string
	groundedness  []string
	generationErr error
}

func (s *scriptedLLM) Generate(_ context.Context, prompt string, _ ...llm.Option) (string, error) {
	switch {
	case strings.Contains(prompt, "Answer with just 'yes' or 'no'"):
		return s.gradeReply, nil
	case strings.Contains(prompt, "Rate from 0.0 to 1.0"):
		reply := s.groundedness[0]
		if len(s.groundedness) > 1 {
			s.groundedness = s.groundedness[1:]
		}
		return reply, nil
	default:
		if s.generationErr != nil {
			return "", s.generationErr
		}
		reply := s.generations[0]
		if len(s.generations) > 1 {
			s.generations = s.generations[1:]
		}
		return reply, nil
	}
}

func (s *scriptedLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	return s.Generate(ctx, history[len(history)-1].Content, opts...)
}

// blockingLLM hangs until the context is cancelled, like a completion
// backend that stopped answering.
type blockingLLM struct{}

func (b *blockingLLM) Generate(ctx context.Context, _ string, _ ...llm.Option) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (b *blockingLLM) Chat(ctx context.Context, _ []llm.Message, _ ...llm.Option) (string, error) {
	return b.Generate(ctx, "")
}

type fixedEmbedder struct {
	vector []float32
	err    error
}

func (f *fixedEmbedder) GenerateOne(context.Context, string) ([]float32, error) {
	return f.vector, f.err
}

func (f *fixedEmbedder) GenerateBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, f.err
}

func (f *fixedEmbedder) Dimensions() int                  { return len(f.vector) }
func (f *fixedEmbedder) HealthCheck(context.Context) bool { return f.err == nil }

type recordingSink struct {
	events []Event
}

func (r *recordingSink) Publish(event Event) {
	r.events = append(r.events, event)
}

func (r *recordingSink) types() []EventType {
	out := make([]EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

type fixture struct {
	executor *Executor
	sink     *recordingSink
	store    *MemoryCheckpointStore
	index    *vectorindex.MemoryIndex
	tenant   uuid.UUID
	session  uuid.UUID
}

func newFixture(t *testing.T, provider llm.Provider, embedder *fixedEmbedder) *fixture {
	t.Helper()

	cfg := rag.DefaultConfig()
	cfg.ScoreThreshold = 0.1

	index := vectorindex.NewMemoryIndex()
	logger := log.New(io.Discard, "", 0)
	pipeline := rag.NewPipeline(embedder, index, provider, cfg, logger)

	sink := &recordingSink{}
	store := NewMemoryCheckpointStore()

	return &fixture{
		executor: NewExecutor(routing.NewEngine(), pipeline, store, sink, logger),
		sink:     sink,
		store:    store,
		index:    index,
		tenant:   uuid.New(),
		session:  uuid.New(),
	}
}

func (f *fixture) seedChunk(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, f.index.Upsert(context.Background(), f.tenant, []vectorindex.Point{{
		ID:     uuid.New(),
		Vector: []float32{1, 0},
		Payload: map[string]any{
			"content":     content,
			"document_id": "doc-1",
			"chunk_index": 0,
			"filename":    "origin.pdf",
		},
	}}))
}

func TestThreadIDDerivation(t *testing.T) {
	tenant := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	session := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	assert.Equal(t,
		"tenant_11111111-1111-1111-1111-111111111111_session_22222222-2222-2222-2222-222222222222",
		ThreadID(tenant, session))
}

func TestDirectChatFlow(t *testing.T) {
	f := newFixture(t, &scriptedLLM{generations: []string{"hello back"}}, &fixedEmbedder{vector: []float32{1, 0}})

	result, err := f.executor.Run(context.Background(), RunInput{
		TenantID:    f.tenant,
		SessionID:   f.session,
		UserInput:   "hello there",
		SessionMode: routing.ModeChatOnly,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, "hello back", result.State.Generation)
	assert.Equal(t, routing.PathDirect, result.State.Route.Path)
	assert.Equal(t, []EventType{EventStart, EventUpdate, EventUpdate, EventDone}, f.sink.types())
	assert.Equal(t, StepRoute, f.sink.events[1].Step)
	assert.Equal(t, StepChatGenerate, f.sink.events[2].Step)
}

func TestRetrievalFlowCompletes(t *testing.T) {
	provider := &scriptedLLM{
		gradeReply:   "yes",
		generations:  []string{"finches adapted per island"},
		groundedness: []string{"0.9"},
	}
	f := newFixture(t, provider, &fixedEmbedder{vector: []float32{1, 0}})
	f.seedChunk(t, "finch beaks varied between islands")

	result, err := f.executor.Run(context.Background(), RunInput{
		TenantID:       f.tenant,
		SessionID:      f.session,
		UserInput:      "what does the document say about finches",
		SessionMode:    routing.ModeAuto,
		HasDocuments:   true,
		TotalDocuments: 1,
		TotalChunks:    1,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, routing.PathRetrieval, result.State.Route.Path)
	assert.Equal(t, 0.85, result.State.Route.Confidence)
	require.Len(t, result.State.Documents, 1)
	assert.Equal(t, "finches adapted per island", result.State.Generation)
	require.NotNil(t, result.State.GroundednessScore)
	assert.InDelta(t, 0.9, *result.State.GroundednessScore, 1e-9)
}

func TestHybridFallsBackToChatOnEmptyRetrieval(t *testing.T) {
	provider := &scriptedLLM{generations: []string{"general answer"}}
	f := newFixture(t, provider, &fixedEmbedder{vector: []float32{1, 0}})
	// No chunks seeded: retrieval comes back empty.

	result, err := f.executor.Run(context.Background(), RunInput{
		TenantID:       f.tenant,
		SessionID:      f.session,
		UserInput:      "compare darwin ideas with modern evolutionary biology views",
		SessionMode:    routing.ModeAuto,
		HasDocuments:   true,
		TotalDocuments: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, routing.PathHybrid, result.State.Route.Path)

	var steps []string
	for _, ev := range f.sink.events {
		if ev.Type == EventUpdate {
			steps = append(steps, ev.Step)
		}
	}
	assert.Equal(t, []string{StepRoute, StepRetrieve, StepChatGenerate}, steps)
}

func TestLowGroundednessInterruptsThenAcceptCompletes(t *testing.T) {
	provider := &scriptedLLM{
		gradeReply:   "yes",
		generations:  []string{"speculative answer"},
		groundedness: []string{"0.4"},
	}
	f := newFixture(t, provider, &fixedEmbedder{vector: []float32{1, 0}})
	f.seedChunk(t, "finch beaks varied between islands")

	result, err := f.executor.Run(context.Background(), RunInput{
		TenantID:     f.tenant,
		SessionID:    f.session,
		UserInput:    "what does the document say about finches",
		SessionMode:  routing.ModeAuto,
		HasDocuments: true,
	})
	require.NoError(t, err)

	require.Equal(t, StatusInterrupted, result.Status)
	require.NotNil(t, result.Interrupt)
	assert.Equal(t, "hallucination_detected", result.Interrupt.Type)
	assert.InDelta(t, 0.4, result.Interrupt.Score, 1e-9)
	assert.Len(t, result.Interrupt.Options, 3)

	resumed, err := f.executor.Resume(context.Background(), result.ThreadID, ResumePayload{Action: ActionAccept})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, resumed.Status)
	assert.Equal(t, "speculative answer", resumed.State.Generation)
	assert.Nil(t, resumed.State.PendingInterrupt)
}

func TestResumeEditReplacesAnswer(t *testing.T) {
	provider := &scriptedLLM{
		gradeReply:   "yes",
		generations:  []string{"wrong answer"},
		groundedness: []string{"0.2"},
	}
	f := newFixture(t, provider, &fixedEmbedder{vector: []float32{1, 0}})
	f.seedChunk(t, "finch beaks varied between islands")

	result, err := f.executor.Run(context.Background(), RunInput{
		TenantID:     f.tenant,
		SessionID:    f.session,
		UserInput:    "summarize the document",
		SessionMode:  routing.ModeAuto,
		HasDocuments: true,
	})
	require.NoError(t, err)
	require.Equal(t, StatusInterrupted, result.Status)

	resumed, err := f.executor.Resume(context.Background(), result.ThreadID, ResumePayload{
		Action:     ActionEdit,
		EditedText: "corrected answer",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, resumed.Status)
	assert.Equal(t, "corrected answer", resumed.State.Generation)
	last := resumed.State.Messages[len(resumed.State.Messages)-1]
	assert.Equal(t, "assistant", last.Role)
	assert.Equal(t, "corrected answer", last.Content)
}

func TestResumeRegenerateProducesFreshAnswer(t *testing.T) {
	provider := &scriptedLLM{
		gradeReply:   "yes",
		generations:  []string{"first attempt", "second attempt"},
		groundedness: []string{"0.3", "0.95"},
	}
	f := newFixture(t, provider, &fixedEmbedder{vector: []float32{1, 0}})
	f.seedChunk(t, "finch beaks varied between islands")

	result, err := f.executor.Run(context.Background(), RunInput{
		TenantID:     f.tenant,
		SessionID:    f.session,
		UserInput:    "summarize the document",
		SessionMode:  routing.ModeAuto,
		HasDocuments: true,
	})
	require.NoError(t, err)
	require.Equal(t, StatusInterrupted, result.Status)

	resumed, err := f.executor.Resume(context.Background(), result.ThreadID, ResumePayload{Action: ActionRegenerate})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, resumed.Status)
	assert.Equal(t, "second attempt", resumed.State.Generation)

	// The regenerated reply replaces the first one instead of stacking.
	var assistant []string
	for _, msg := range resumed.State.Messages {
		if msg.Role == "assistant" {
			assistant = append(assistant, msg.Content)
		}
	}
	assert.Equal(t, []string{"second attempt"}, assistant)
}

func TestRunRefusedWhileInterruptPending(t *testing.T) {
	provider := &scriptedLLM{
		gradeReply:   "yes",
		generations:  []string{"speculative answer", "follow-up answer"},
		groundedness: []string{"0.4", "0.9"},
	}
	f := newFixture(t, provider, &fixedEmbedder{vector: []float32{1, 0}})
	f.seedChunk(t, "finch beaks varied between islands")

	input := RunInput{
		TenantID:     f.tenant,
		SessionID:    f.session,
		UserInput:    "what does the document say about finches",
		SessionMode:  routing.ModeAuto,
		HasDocuments: true,
	}

	result, err := f.executor.Run(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, StatusInterrupted, result.Status)

	// A new turn must not overwrite the checkpoint the pending decision
	// needs.
	_, err = f.executor.Run(context.Background(), input)
	require.ErrorIs(t, err, ErrInterruptPending)

	resumed, err := f.executor.Resume(context.Background(), result.ThreadID, ResumePayload{Action: ActionAccept})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, resumed.Status)
	assert.Equal(t, "speculative answer", resumed.State.Generation)

	// Once resolved, the thread accepts turns again.
	next, err := f.executor.Run(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, next.Status)
	assert.Equal(t, "follow-up answer", next.State.Generation)
}

func TestRunDeadlineFailsInsteadOfHanging(t *testing.T) {
	f := newFixture(t, &blockingLLM{}, &fixedEmbedder{vector: []float32{1, 0}})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan *Result, 1)
	go func() {
		result, err := f.executor.Run(ctx, RunInput{
			TenantID:    f.tenant,
			SessionID:   f.session,
			UserInput:   "hello",
			SessionMode: routing.ModeChatOnly,
		})
		require.NoError(t, err)
		done <- result
	}()

	select {
	case result := <-done:
		assert.Equal(t, StatusFailed, result.Status)
		assert.Contains(t, result.Error, context.DeadlineExceeded.Error())
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after its deadline expired")
	}

	// The thread lock was released, so the next turn starts immediately.
	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	result, err := f.executor.Run(ctx2, RunInput{
		TenantID:    f.tenant,
		SessionID:   f.session,
		UserInput:   "hello again",
		SessionMode: routing.ModeChatOnly,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, result.Status)
}

func TestCheckpointRoundTrip(t *testing.T) {
	provider := &scriptedLLM{
		gradeReply:   "yes",
		generations:  []string{"answer"},
		groundedness: []string{"0.1"},
	}
	f := newFixture(t, provider, &fixedEmbedder{vector: []float32{1, 0}})
	f.seedChunk(t, "finch beaks varied between islands")

	result, err := f.executor.Run(context.Background(), RunInput{
		TenantID:     f.tenant,
		SessionID:    f.session,
		UserInput:    "summarize the document",
		SessionMode:  routing.ModeAuto,
		HasDocuments: true,
	})
	require.NoError(t, err)
	require.Equal(t, StatusInterrupted, result.Status)

	blob, ok, err := f.store.Get(context.Background(), result.ThreadID)
	require.NoError(t, err)
	require.True(t, ok)

	var loaded State
	require.NoError(t, json.Unmarshal(blob, &loaded))
	require.NotNil(t, loaded.PendingInterrupt)
	assert.Equal(t, result.State.Generation, loaded.Generation)
	assert.Equal(t, result.State.Messages, loaded.Messages)
	assert.Equal(t, result.State.Step, loaded.Step)
	assert.Equal(t, *result.State.GroundednessScore, *loaded.GroundednessScore)
}

func TestStepErrorFailsExecution(t *testing.T) {
	provider := &scriptedLLM{generationErr: errors.New("completion backend down")}
	f := newFixture(t, provider, &fixedEmbedder{vector: []float32{1, 0}})

	result, err := f.executor.Run(context.Background(), RunInput{
		TenantID:    f.tenant,
		SessionID:   f.session,
		UserInput:   "hello",
		SessionMode: routing.ModeChatOnly,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, result.Status)
	assert.Contains(t, result.Error, "completion backend down")

	last := f.sink.events[len(f.sink.events)-1]
	assert.Equal(t, EventError, last.Type)

	// A failed run leaves nothing to resume.
	_, err = f.executor.Resume(context.Background(), result.ThreadID, ResumePayload{Action: ActionAccept})
	assert.Error(t, err)
}

func TestResumeWithoutCheckpointFails(t *testing.T) {
	f := newFixture(t, &scriptedLLM{generations: []string{"x"}}, &fixedEmbedder{vector: []float32{1, 0}})

	_, err := f.executor.Resume(context.Background(), "tenant_x_session_y", ResumePayload{Action: ActionAccept})
	assert.Error(t, err)
}

func TestCorruptCheckpointReportsFailed(t *testing.T) {
	f := newFixture(t, &scriptedLLM{generations: []string{"x"}}, &fixedEmbedder{vector: []float32{1, 0}})

	threadID := ThreadID(f.tenant, f.session)
	require.NoError(t, f.store.Put(context.Background(), threadID, []byte("{not json")))

	result, err := f.executor.Resume(context.Background(), threadID, ResumePayload{Action: ActionAccept})
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Contains(t, result.Error, "checkpoint corrupted")
}

func TestEventOrderingNoDuplicates(t *testing.T) {
	provider := &scriptedLLM{
		gradeReply:   "yes",
		generations:  []string{"answer"},
		groundedness: []string{"0.9"},
	}
	f := newFixture(t, provider, &fixedEmbedder{vector: []float32{1, 0}})
	f.seedChunk(t, "content")

	_, err := f.executor.Run(context.Background(), RunInput{
		TenantID:     f.tenant,
		SessionID:    f.session,
		UserInput:    "what does the document say",
		SessionMode:  routing.ModeAuto,
		HasDocuments: true,
	})
	require.NoError(t, err)

	types := f.sink.types()
	require.GreaterOrEqual(t, len(types), 3)
	assert.Equal(t, EventStart, types[0])
	assert.Equal(t, EventDone, types[len(types)-1])

	seen := map[string]int{}
	for _, ev := range f.sink.events {
		if ev.Type == EventUpdate {
			seen[ev.Step]++
		}
	}
	for step, n := range seen {
		assert.Equal(t, 1, n, fmt.Sprintf("step %s emitted %d updates", step, n))
	}
}
