package workflow

import (
	"fmt"

	"github.com/google/uuid"

	"rag-orchestrator-be/pkg/llm"
	"rag-orchestrator-be/pkg/rag"
	"rag-orchestrator-be/pkg/routing"
)

// Step names form a closed set; new behavior means a new constant and a
// new case in the executor, not a runtime-registered callback.
const (
	StepRoute              = "route"
	StepChatGenerate       = "chat_generate"
	StepRetrieve           = "retrieve"
	StepRagGenerate        = "rag_generate"
	StepGroundednessReview = "groundedness_review"
	StepEnd                = "end"
)

type Status string

const (
	StatusRunning     Status = "running"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusInterrupted Status = "interrupted"
)

// State is the full execution record shared by all steps. It must stay
// JSON-serializable: across a human-approval suspension nothing may live
// only in memory.
type State struct {
	ThreadID  string    `json:"thread_id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	SessionID uuid.UUID `json:"session_id"`

	Messages   []llm.Message `json:"messages"`
	Generation string        `json:"generation,omitempty"`

	Documents []rag.RetrievedDocument `json:"documents,omitempty"`

	Route             *routing.Decision `json:"route,omitempty"`
	GroundednessScore *float64          `json:"groundedness_score,omitempty"`

	SessionMode    routing.Mode      `json:"session_mode"`
	HasDocuments   bool              `json:"has_documents"`
	TotalDocuments int               `json:"total_documents"`
	TotalChunks    int               `json:"total_chunks"`
	DocumentFilter map[string]string `json:"document_filter,omitempty"`

	// Step is the next step to execute, not the last one completed.
	Step             string     `json:"step"`
	PendingInterrupt *Interrupt `json:"pending_interrupt,omitempty"`
	Error            string     `json:"error,omitempty"`
}

// Interrupt is the structured payload a step raises to suspend the run
// pending an external decision.
type Interrupt struct {
	Type           string            `json:"type"`
	Step           string            `json:"step"`
	Score          float64           `json:"score,omitempty"`
	Threshold      float64           `json:"threshold,omitempty"`
	Generation     string            `json:"generation,omitempty"`
	DocumentsCount int               `json:"documents_count,omitempty"`
	Message        string            `json:"message"`
	Options        map[string]string `json:"options,omitempty"`
}

// ResumePayload is the external answer injected back into the step that
// raised the interrupt.
type ResumePayload struct {
	Action     string `json:"action"`
	EditedText string `json:"edited_text,omitempty"`
}

const (
	ActionRegenerate = "regenerate"
	ActionEdit       = "edit"
	ActionAccept     = "accept"
)

// ThreadID derives the stable per-conversation execution key.
func ThreadID(tenantID, sessionID uuid.UUID) string {
	return fmt.Sprintf("tenant_%s_session_%s", tenantID, sessionID)
}

// LastUserMessage returns the most recent user turn, or "".
func (s *State) LastUserMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == "user" {
			return s.Messages[i].Content
		}
	}
	return ""
}

func (s *State) appendAssistantMessage(content string) {
	s.Messages = append(s.Messages, llm.Message{Role: "assistant", Content: content})
}

func (s *State) replaceLastAssistantMessage(content string) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == "assistant" {
			s.Messages[i].Content = content
			return
		}
	}
	s.appendAssistantMessage(content)
}
