package implementation

import (
	"context"
	"errors"

	"rag-orchestrator-be/internal/entity"
	"rag-orchestrator-be/internal/mapper"
	"rag-orchestrator-be/internal/model"
	"rag-orchestrator-be/internal/repository/contract"
	"rag-orchestrator-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WorkflowExecutionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.WorkflowMapper
}

func NewWorkflowExecutionRepository(db *gorm.DB) contract.WorkflowExecutionRepository {
	return &WorkflowExecutionRepositoryImpl{
		db:     db,
		mapper: mapper.NewWorkflowMapper(),
	}
}

func (r *WorkflowExecutionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *WorkflowExecutionRepositoryImpl) Create(ctx context.Context, execution *entity.WorkflowExecution) error {
	m := r.mapper.ExecutionToModel(execution)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*execution = *r.mapper.ExecutionToEntity(m)
	return nil
}

func (r *WorkflowExecutionRepositoryImpl) Update(ctx context.Context, execution *entity.WorkflowExecution) error {
	m := r.mapper.ExecutionToModel(execution)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*execution = *r.mapper.ExecutionToEntity(m)
	return nil
}

func (r *WorkflowExecutionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.WorkflowExecution, error) {
	var m model.WorkflowExecution
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ExecutionToEntity(&m), nil
}

func (r *WorkflowExecutionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.WorkflowExecution, error) {
	var models []*model.WorkflowExecution
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ExecutionsToEntities(models), nil
}

type HitlApprovalRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.WorkflowMapper
}

func NewHitlApprovalRepository(db *gorm.DB) contract.HitlApprovalRepository {
	return &HitlApprovalRepositoryImpl{
		db:     db,
		mapper: mapper.NewWorkflowMapper(),
	}
}

func (r *HitlApprovalRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *HitlApprovalRepositoryImpl) Create(ctx context.Context, approval *entity.HitlApproval) error {
	m := r.mapper.ApprovalToModel(approval)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*approval = *r.mapper.ApprovalToEntity(m)
	return nil
}

func (r *HitlApprovalRepositoryImpl) Update(ctx context.Context, approval *entity.HitlApproval) error {
	m := r.mapper.ApprovalToModel(approval)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*approval = *r.mapper.ApprovalToEntity(m)
	return nil
}

func (r *HitlApprovalRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.HitlApproval, error) {
	var m model.HitlApproval
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ApprovalToEntity(&m), nil
}

func (r *HitlApprovalRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.HitlApproval, error) {
	var models []*model.HitlApproval
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ApprovalsToEntities(models), nil
}

func (r *HitlApprovalRepositoryImpl) FindPendingByExecutionId(ctx context.Context, tenantId, executionId uuid.UUID) (*entity.HitlApproval, error) {
	return r.FindOne(ctx,
		specification.TenantOwnedBy{TenantID: tenantId},
		specification.ByExecutionID{ExecutionID: executionId},
		specification.ByStatus{Status: string(entity.HitlApprovalPending)},
	)
}
