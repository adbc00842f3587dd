package mapper

import (
	"time"

	"rag-orchestrator-be/internal/entity"
	"rag-orchestrator-be/internal/model"

	"gorm.io/datatypes"
)

type WorkflowMapper struct{}

func NewWorkflowMapper() *WorkflowMapper {
	return &WorkflowMapper{}
}

func (m *WorkflowMapper) ExecutionToEntity(e *model.WorkflowExecution) *entity.WorkflowExecution {
	if e == nil {
		return nil
	}

	var updatedAt *time.Time
	if !e.UpdatedAt.IsZero() {
		t := e.UpdatedAt
		updatedAt = &t
	}

	return &entity.WorkflowExecution{
		Id:           e.Id,
		TenantId:     e.TenantId,
		SessionId:    e.SessionId,
		ThreadId:     e.ThreadId,
		Status:       e.Status,
		Input:        e.Input,
		Output:       e.Output,
		ErrorMessage: e.ErrorMessage,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    updatedAt,
	}
}

func (m *WorkflowMapper) ExecutionToModel(e *entity.WorkflowExecution) *model.WorkflowExecution {
	if e == nil {
		return nil
	}

	var updatedAt time.Time
	if e.UpdatedAt != nil {
		updatedAt = *e.UpdatedAt
	}

	return &model.WorkflowExecution{
		Id:           e.Id,
		TenantId:     e.TenantId,
		SessionId:    e.SessionId,
		ThreadId:     e.ThreadId,
		Status:       e.Status,
		Input:        datatypes.JSONMap(e.Input),
		Output:       datatypes.JSONMap(e.Output),
		ErrorMessage: e.ErrorMessage,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    updatedAt,
	}
}

func (m *WorkflowMapper) ExecutionsToEntities(executions []*model.WorkflowExecution) []*entity.WorkflowExecution {
	entities := make([]*entity.WorkflowExecution, len(executions))
	for i, e := range executions {
		entities[i] = m.ExecutionToEntity(e)
	}
	return entities
}

func (m *WorkflowMapper) ApprovalToEntity(a *model.HitlApproval) *entity.HitlApproval {
	if a == nil {
		return nil
	}

	return &entity.HitlApproval{
		Id:             a.Id,
		TenantId:       a.TenantId,
		ExecutionId:    a.ExecutionId,
		Prompt:         a.Prompt,
		ContextPayload: a.ContextPayload,
		Status:         entity.HitlApprovalStatus(a.Status),
		Feedback:       a.Feedback,
		CreatedAt:      a.CreatedAt,
		ResolvedAt:     a.ResolvedAt,
	}
}

func (m *WorkflowMapper) ApprovalToModel(a *entity.HitlApproval) *model.HitlApproval {
	if a == nil {
		return nil
	}

	return &model.HitlApproval{
		Id:             a.Id,
		TenantId:       a.TenantId,
		ExecutionId:    a.ExecutionId,
		Prompt:         a.Prompt,
		ContextPayload: datatypes.JSONMap(a.ContextPayload),
		Status:         string(a.Status),
		Feedback:       a.Feedback,
		CreatedAt:      a.CreatedAt,
		ResolvedAt:     a.ResolvedAt,
	}
}

func (m *WorkflowMapper) ApprovalsToEntities(approvals []*model.HitlApproval) []*entity.HitlApproval {
	entities := make([]*entity.HitlApproval, len(approvals))
	for i, a := range approvals {
		entities[i] = m.ApprovalToEntity(a)
	}
	return entities
}
