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
	"gorm.io/gorm/clause"
)

type SessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SessionMapper
}

func NewSessionRepository(db *gorm.DB) contract.SessionRepository {
	return &SessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewSessionMapper(),
	}
}

func (r *SessionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *SessionRepositoryImpl) Create(ctx context.Context, session *entity.ConversationSession) error {
	m := r.mapper.ToModel(session)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*session = *r.mapper.ToEntity(m)
	return nil
}

func (r *SessionRepositoryImpl) Update(ctx context.Context, session *entity.ConversationSession) error {
	m := r.mapper.ToModel(session)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*session = *r.mapper.ToEntity(m)
	return nil
}

func (r *SessionRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.ConversationSession{}, id).Error
}

func (r *SessionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ConversationSession, error) {
	var m model.ConversationSession
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *SessionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ConversationSession, error) {
	var models []*model.ConversationSession
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

type SessionDocumentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SessionMapper
}

func NewSessionDocumentRepository(db *gorm.DB) contract.SessionDocumentRepository {
	return &SessionDocumentRepositoryImpl{
		db:     db,
		mapper: mapper.NewSessionMapper(),
	}
}

func (r *SessionDocumentRepositoryImpl) Upsert(ctx context.Context, link *entity.SessionDocument) error {
	m := r.mapper.SessionDocumentToModel(link)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "document_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_active", "updated_at"}),
		}).
		Create(m).Error
	if err != nil {
		return err
	}
	*link = *r.mapper.SessionDocumentToEntity(m)
	return nil
}

func (r *SessionDocumentRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.SessionDocument, error) {
	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}

	var models []*model.SessionDocument
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	links := make([]*entity.SessionDocument, len(models))
	for i, m := range models {
		links[i] = r.mapper.SessionDocumentToEntity(m)
	}
	return links, nil
}

func (r *SessionDocumentRepositoryImpl) DeactivateByDocumentId(ctx context.Context, documentId uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.SessionDocument{}).
		Where("document_id = ?", documentId).
		Update("is_active", false).Error
}
