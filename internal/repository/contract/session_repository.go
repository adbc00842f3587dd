package contract

import (
	"context"

	"rag-orchestrator-be/internal/entity"
	"rag-orchestrator-be/internal/repository/specification"

	"github.com/google/uuid"
)

type SessionRepository interface {
	Create(ctx context.Context, session *entity.ConversationSession) error
	Update(ctx context.Context, session *entity.ConversationSession) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ConversationSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ConversationSession, error)
}

type SessionDocumentRepository interface {
	Upsert(ctx context.Context, link *entity.SessionDocument) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.SessionDocument, error)
	DeactivateByDocumentId(ctx context.Context, documentId uuid.UUID) error
}
