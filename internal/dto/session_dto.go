package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateConversationSessionRequest struct {
	Title string `json:"title" validate:"max=255"`
	Mode  string `json:"mode" validate:"omitempty,oneof=auto chat_only rag_only"`
}

type CreateConversationSessionResponse struct {
	Id   uuid.UUID `json:"id"`
	Mode string    `json:"mode"`
}

type ShowConversationSessionResponse struct {
	Id        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	Mode      string     `json:"mode"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type UpdateSessionModeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=auto chat_only rag_only"`
}

type UpdateSessionModeResponse struct {
	Id   uuid.UUID `json:"id"`
	Mode string    `json:"mode"`
}

type AttachDocumentRequest struct {
	DocumentId uuid.UUID `json:"document_id" validate:"required"`
}

type SessionDocumentResponse struct {
	DocumentId uuid.UUID `json:"document_id"`
	Filename   string    `json:"filename"`
	Status     string    `json:"status"`
	IsActive   bool      `json:"is_active"`
}

// DocumentContextResponse summarizes the retrieval corpus visible to a
// session. The routing layer uses these counts to decide between the
// direct and retrieval paths.
type DocumentContextResponse struct {
	HasDocuments   bool        `json:"has_documents"`
	TotalDocuments int         `json:"total_documents"`
	TotalChunks    int         `json:"total_chunks"`
	DocumentIds    []uuid.UUID `json:"document_ids"`
}
