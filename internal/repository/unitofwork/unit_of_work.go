package unitofwork

import (
	"context"

	"rag-orchestrator-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	DocumentRepository() contract.DocumentRepository
	DocumentChunkRepository() contract.DocumentChunkRepository
	SessionRepository() contract.SessionRepository
	SessionDocumentRepository() contract.SessionDocumentRepository
	WorkflowExecutionRepository() contract.WorkflowExecutionRepository
	HitlApprovalRepository() contract.HitlApprovalRepository
}
