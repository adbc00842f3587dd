package entity

import (
	"time"

	"github.com/google/uuid"
)

type ConversationSession struct {
	Id        uuid.UUID
	TenantId  uuid.UUID
	UserId    uuid.UUID
	Title     string
	Mode      string
	Summary   string
	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
	IsDeleted bool
}

// SessionDocument links a session to an attached document. Detaching
// flips IsActive instead of deleting the row so re-attach keeps history.
type SessionDocument struct {
	Id         uuid.UUID
	SessionId  uuid.UUID
	DocumentId uuid.UUID
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}
