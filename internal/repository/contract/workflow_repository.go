package contract

import (
	"context"

	"rag-orchestrator-be/internal/entity"
	"rag-orchestrator-be/internal/repository/specification"

	"github.com/google/uuid"
)

type WorkflowExecutionRepository interface {
	Create(ctx context.Context, execution *entity.WorkflowExecution) error
	Update(ctx context.Context, execution *entity.WorkflowExecution) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.WorkflowExecution, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.WorkflowExecution, error)
}

type HitlApprovalRepository interface {
	Create(ctx context.Context, approval *entity.HitlApproval) error
	Update(ctx context.Context, approval *entity.HitlApproval) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.HitlApproval, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.HitlApproval, error)
	FindPendingByExecutionId(ctx context.Context, tenantId, executionId uuid.UUID) (*entity.HitlApproval, error)
}
