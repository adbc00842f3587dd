package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"rag-orchestrator-be/pkg/llm"
	"rag-orchestrator-be/pkg/rag"
	"rag-orchestrator-be/pkg/routing"
)

// Executor drives the step graph route → {chat_generate | retrieve →
// rag_generate} → [groundedness_review] → end. The full state is
// checkpointed at every step boundary so a run can suspend on a human
// approval and resume on another process.
type Executor struct {
	router      *routing.Engine
	pipeline    *rag.Pipeline
	checkpoints CheckpointStore
	events      EventSink
	logger      *log.Logger

	mu      sync.Mutex
	threads map[string]*sync.Mutex
}

func NewExecutor(router *routing.Engine, pipeline *rag.Pipeline, checkpoints CheckpointStore, events EventSink, logger *log.Logger) *Executor {
	return &Executor{
		router:      router,
		pipeline:    pipeline,
		checkpoints: checkpoints,
		events:      events,
		logger:      logger,
		threads:     make(map[string]*sync.Mutex),
	}
}

// RunInput is everything one turn needs; the executor itself holds no
// per-tenant state.
type RunInput struct {
	TenantID       uuid.UUID
	SessionID      uuid.UUID
	UserInput      string
	History        []llm.Message
	SessionMode    routing.Mode
	HasDocuments   bool
	TotalDocuments int
	TotalChunks    int
	DocumentFilter map[string]string
}

// Result is the terminal outcome of a Run or Resume call.
type Result struct {
	ThreadID  string     `json:"thread_id"`
	Status    Status     `json:"status"`
	State     *State     `json:"state"`
	Interrupt *Interrupt `json:"interrupt,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// ErrInterruptPending is returned by Run when the thread's checkpoint
// holds an unresolved interruption. Starting a new turn would overwrite
// the state the pending resume needs.
var ErrInterruptPending = errors.New("pending interruption must be resolved before a new turn")

// Run executes one turn from scratch. Steps within a thread are strictly
// sequential; different threads run independently.
func (e *Executor) Run(ctx context.Context, input RunInput) (*Result, error) {
	threadID := ThreadID(input.TenantID, input.SessionID)
	unlock := e.lockThread(threadID)
	defer unlock()

	if blob, ok, err := e.checkpoints.Get(ctx, threadID); err == nil && ok {
		var prev State
		if json.Unmarshal(blob, &prev) == nil && prev.PendingInterrupt != nil {
			return nil, fmt.Errorf("thread %s: %w", threadID, ErrInterruptPending)
		}
	}

	state := &State{
		ThreadID:       threadID,
		TenantID:       input.TenantID,
		SessionID:      input.SessionID,
		Messages:       append(append([]llm.Message{}, input.History...), llm.Message{Role: "user", Content: input.UserInput}),
		SessionMode:    input.SessionMode,
		HasDocuments:   input.HasDocuments,
		TotalDocuments: input.TotalDocuments,
		TotalChunks:    input.TotalChunks,
		DocumentFilter: input.DocumentFilter,
		Step:           StepRoute,
	}

	e.emit(Event{Type: EventStart, ThreadID: threadID, Status: StatusRunning})
	return e.loop(ctx, state, nil), nil
}

// Resume reloads the last checkpoint for the thread and re-enters the
// interrupted step with the external response injected.
func (e *Executor) Resume(ctx context.Context, threadID string, response ResumePayload) (*Result, error) {
	unlock := e.lockThread(threadID)
	defer unlock()

	blob, ok, err := e.checkpoints.Get(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("no checkpoint found for thread %s", threadID)
	}

	var state State
	if err := json.Unmarshal(blob, &state); err != nil {
		// Corrupted checkpoint is fatal for this thread; the caller must
		// start a new turn.
		e.logger.Printf("[workflow] checkpoint corrupted for thread %s: %v", threadID, err)
		msg := fmt.Sprintf("checkpoint corrupted: %v", err)
		e.emit(Event{Type: EventError, ThreadID: threadID, Status: StatusFailed, Error: msg})
		return &Result{ThreadID: threadID, Status: StatusFailed, Error: msg}, nil
	}

	if state.PendingInterrupt == nil {
		return nil, fmt.Errorf("thread %s has no pending interruption", threadID)
	}

	state.Step = state.PendingInterrupt.Step
	state.PendingInterrupt = nil
	return e.loop(ctx, &state, &response), nil
}

func (e *Executor) loop(ctx context.Context, state *State, resume *ResumePayload) *Result {
	for state.Step != StepEnd {
		stepName := state.Step

		interrupt, err := e.executeStep(ctx, state, resume)
		resume = nil

		if err != nil {
			state.Error = err.Error()
			if perr := e.persist(ctx, state); perr != nil {
				e.logger.Printf("[workflow] checkpoint write failed for thread %s: %v", state.ThreadID, perr)
			}
			e.emit(Event{Type: EventError, ThreadID: state.ThreadID, Step: stepName, Status: StatusFailed, Error: state.Error})
			return &Result{ThreadID: state.ThreadID, Status: StatusFailed, State: state, Error: state.Error}
		}

		if interrupt != nil {
			state.PendingInterrupt = interrupt
			if perr := e.persist(ctx, state); perr != nil {
				return e.fail(state, stepName, fmt.Errorf("checkpoint write: %w", perr))
			}
			e.emit(Event{Type: EventUpdate, ThreadID: state.ThreadID, Step: stepName, Status: StatusInterrupted, State: snapshot(state), Interrupt: interrupt})
			return &Result{ThreadID: state.ThreadID, Status: StatusInterrupted, State: state, Interrupt: interrupt}
		}

		// The next step never begins before this write completes.
		if perr := e.persist(ctx, state); perr != nil {
			return e.fail(state, stepName, fmt.Errorf("checkpoint write: %w", perr))
		}
		e.emit(Event{Type: EventUpdate, ThreadID: state.ThreadID, Step: stepName, Status: StatusRunning, State: snapshot(state)})
	}

	e.emit(Event{Type: EventDone, ThreadID: state.ThreadID, Status: StatusCompleted, State: snapshot(state)})
	return &Result{ThreadID: state.ThreadID, Status: StatusCompleted, State: state}
}

func (e *Executor) executeStep(ctx context.Context, state *State, resume *ResumePayload) (*Interrupt, error) {
	switch state.Step {
	case StepRoute:
		return nil, e.stepRoute(state)
	case StepChatGenerate:
		return nil, e.stepChatGenerate(ctx, state)
	case StepRetrieve:
		return nil, e.stepRetrieve(ctx, state)
	case StepRagGenerate:
		return nil, e.stepRagGenerate(ctx, state)
	case StepGroundednessReview:
		return e.stepGroundednessReview(ctx, state, resume)
	default:
		return nil, fmt.Errorf("unknown workflow step: %s", state.Step)
	}
}

func (e *Executor) stepRoute(state *State) error {
	decision := e.router.Route(state.LastUserMessage(), state.HasDocuments, state.SessionMode, routing.Context{
		TotalDocuments: state.TotalDocuments,
		TotalChunks:    state.TotalChunks,
	})
	state.Route = &decision

	if decision.Path == routing.PathDirect {
		state.Step = StepChatGenerate
	} else {
		state.Step = StepRetrieve
	}
	return nil
}

func (e *Executor) stepChatGenerate(ctx context.Context, state *State) error {
	reply, err := e.pipeline.Chat(ctx, state.Messages)
	if err != nil {
		return fmt.Errorf("chat generation: %w", err)
	}
	state.Generation = reply
	state.appendAssistantMessage(reply)
	state.Step = StepEnd
	return nil
}

func (e *Executor) stepRetrieve(ctx context.Context, state *State) error {
	query := state.LastUserMessage()
	docs := e.pipeline.Retrieve(ctx, state.TenantID, query, state.DocumentFilter)
	docs = e.pipeline.Grade(ctx, query, docs)
	state.Documents = docs

	// Hybrid tolerates an empty result by falling back to plain chat.
	if len(docs) == 0 && state.Route != nil && state.Route.Path == routing.PathHybrid {
		state.Step = StepChatGenerate
		return nil
	}
	state.Step = StepRagGenerate
	return nil
}

func (e *Executor) stepRagGenerate(ctx context.Context, state *State) error {
	reply, err := e.pipeline.Generate(ctx, state.LastUserMessage(), state.Documents)
	if err != nil {
		return fmt.Errorf("rag generation: %w", err)
	}

	// A regenerate re-entry replaces the reply it previously appended.
	if n := len(state.Messages); n > 0 && state.Messages[n-1].Role == "assistant" && state.Messages[n-1].Content == state.Generation && state.Generation != "" {
		state.Messages[n-1].Content = reply
	} else {
		state.appendAssistantMessage(reply)
	}
	state.Generation = reply

	if e.pipeline.GroundednessEnabled() {
		state.Step = StepGroundednessReview
	} else {
		state.Step = StepEnd
	}
	return nil
}

func (e *Executor) stepGroundednessReview(ctx context.Context, state *State, resume *ResumePayload) (*Interrupt, error) {
	if resume != nil {
		switch resume.Action {
		case ActionEdit:
			edited := resume.EditedText
			if edited == "" {
				edited = state.Generation
			}
			state.Generation = edited
			state.replaceLastAssistantMessage(edited)
			state.Step = StepEnd
		case ActionAccept:
			state.Step = StepEnd
		default:
			// Unknown actions regenerate, matching the review options'
			// default resolution.
			state.GroundednessScore = nil
			state.Step = StepRagGenerate
		}
		return nil, nil
	}

	score := e.pipeline.Groundedness(ctx, state.Generation, state.Documents)
	state.GroundednessScore = &score

	threshold := e.pipeline.GroundednessThreshold()
	if score < threshold {
		return &Interrupt{
			Type:           "hallucination_detected",
			Step:           StepGroundednessReview,
			Score:          score,
			Threshold:      threshold,
			Generation:     state.Generation,
			DocumentsCount: len(state.Documents),
			Message:        fmt.Sprintf("The generated answer may contain hallucinations (score: %.2f). What would you like to do?", score),
			Options: map[string]string{
				ActionRegenerate: "Regenerate the answer",
				ActionEdit:       "Edit the answer manually",
				ActionAccept:     "Accept the answer as-is",
			},
		}, nil
	}

	state.Step = StepEnd
	return nil, nil
}

func (e *Executor) fail(state *State, stepName string, err error) *Result {
	state.Error = err.Error()
	e.emit(Event{Type: EventError, ThreadID: state.ThreadID, Step: stepName, Status: StatusFailed, Error: state.Error})
	return &Result{ThreadID: state.ThreadID, Status: StatusFailed, State: state, Error: state.Error}
}

func (e *Executor) persist(ctx context.Context, state *State) error {
	blob, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return e.checkpoints.Put(ctx, state.ThreadID, blob)
}

func (e *Executor) emit(event Event) {
	if e.events != nil {
		e.events.Publish(event)
	}
}

func (e *Executor) lockThread(threadID string) func() {
	e.mu.Lock()
	m, ok := e.threads[threadID]
	if !ok {
		m = &sync.Mutex{}
		e.threads[threadID] = m
	}
	e.mu.Unlock()
	m.Lock()
	return m.Unlock
}

func snapshot(state *State) *State {
	s := *state
	return &s
}
