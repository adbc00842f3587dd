package dto

import (
	"time"

	"github.com/google/uuid"
)

type UploadDocumentRequest struct {
	Filename string `json:"filename" validate:"required,max=255"`
	Content  string `json:"content" validate:"required"`
}

type UploadDocumentResponse struct {
	Id     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

type ShowDocumentResponse struct {
	Id         uuid.UUID  `json:"id"`
	Filename   string     `json:"filename"`
	Status     string     `json:"status"`
	ChunkCount int        `json:"chunk_count"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
}

type ListDocumentsRequest struct {
	Status string `query:"status"`
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
}

type ListDocumentsResponse struct {
	Documents []ShowDocumentResponse `json:"documents"`
	Total     int64                  `json:"total"`
	Page      int                    `json:"page"`
	Limit     int                    `json:"limit"`
}

type SearchDocumentsRequest struct {
	Query     string  `json:"query" validate:"required"`
	Limit     int     `json:"limit" validate:"omitempty,min=1,max=50"`
	Threshold float64 `json:"threshold" validate:"omitempty,min=0,max=1"`
}

type SearchDocumentsResponse struct {
	ChunkId        uuid.UUID `json:"chunk_id"`
	DocumentId     uuid.UUID `json:"document_id"`
	Filename       string    `json:"filename"`
	Content        string    `json:"content"`
	ChunkIndex     int       `json:"chunk_index"`
	RelevanceScore float64   `json:"relevance_score"`
}

// PublishProcessDocumentMessage is the payload carried on the document
// processing topic between upload and the background consumer.
type PublishProcessDocumentMessage struct {
	DocumentId uuid.UUID `json:"document_id"`
	TenantId   uuid.UUID `json:"tenant_id"`
}
