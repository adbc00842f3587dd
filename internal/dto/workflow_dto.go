package dto

import (
	"time"

	"github.com/google/uuid"
)

type ExecuteWorkflowRequest struct {
	SessionId uuid.UUID `json:"session_id" validate:"required"`
	Input     string    `json:"input" validate:"required"`
}

type ExecuteWorkflowResponse struct {
	ExecutionId uuid.UUID `json:"execution_id"`
	ThreadId    string    `json:"thread_id"`
	Status      string    `json:"status"`
}

type RouteReasoningDTO struct {
	Rule        string `json:"rule"`
	Description string `json:"description"`
}

type RetrievedSourceDTO struct {
	DocumentId uuid.UUID `json:"document_id"`
	Filename   string    `json:"filename"`
	ChunkIndex int       `json:"chunk_index"`
	Score      float64   `json:"score"`
}

type ShowExecutionResponse struct {
	Id                uuid.UUID            `json:"id"`
	ThreadId          string               `json:"thread_id"`
	Status            string               `json:"status"`
	Input             string               `json:"input"`
	Answer            string               `json:"answer,omitempty"`
	RoutePath         string               `json:"route_path,omitempty"`
	RouteConfidence   float64              `json:"route_confidence,omitempty"`
	GroundednessScore *float64             `json:"groundedness_score,omitempty"`
	Sources           []RetrievedSourceDTO `json:"sources,omitempty"`
	ErrorMessage      string               `json:"error_message,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         *time.Time           `json:"updated_at"`
}

type ResumeWorkflowRequest struct {
	Action     string `json:"action" validate:"required,oneof=regenerate edit accept"`
	EditedText string `json:"edited_text" validate:"required_if=Action edit"`
}

type ShowApprovalResponse struct {
	Id          uuid.UUID  `json:"id"`
	ExecutionId uuid.UUID  `json:"execution_id"`
	Prompt      string     `json:"prompt"`
	Status      string     `json:"status"`
	Feedback    string     `json:"feedback,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}
