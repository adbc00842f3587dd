package mapper

import (
	"time"

	"rag-orchestrator-be/internal/entity"
	"rag-orchestrator-be/internal/model"

	"gorm.io/gorm"
)

type SessionMapper struct{}

func NewSessionMapper() *SessionMapper {
	return &SessionMapper{}
}

func (m *SessionMapper) ToEntity(s *model.ConversationSession) *entity.ConversationSession {
	if s == nil {
		return nil
	}

	var deletedAt *time.Time
	if s.DeletedAt.Valid {
		t := s.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.ConversationSession{
		Id:        s.Id,
		TenantId:  s.TenantId,
		UserId:    s.UserId,
		Title:     s.Title,
		Mode:      s.Mode,
		Summary:   s.Summary,
		CreatedAt: s.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
		IsDeleted: s.DeletedAt.Valid,
	}
}

func (m *SessionMapper) ToModel(s *entity.ConversationSession) *model.ConversationSession {
	if s == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if s.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *s.DeletedAt, Valid: true}
	} else if s.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.ConversationSession{
		Id:        s.Id,
		TenantId:  s.TenantId,
		UserId:    s.UserId,
		Title:     s.Title,
		Mode:      s.Mode,
		Summary:   s.Summary,
		CreatedAt: s.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
	}
}

func (m *SessionMapper) ToEntities(sessions []*model.ConversationSession) []*entity.ConversationSession {
	entities := make([]*entity.ConversationSession, len(sessions))
	for i, s := range sessions {
		entities[i] = m.ToEntity(s)
	}
	return entities
}

func (m *SessionMapper) SessionDocumentToEntity(d *model.SessionDocument) *entity.SessionDocument {
	if d == nil {
		return nil
	}

	var updatedAt *time.Time
	if !d.UpdatedAt.IsZero() {
		t := d.UpdatedAt
		updatedAt = &t
	}

	return &entity.SessionDocument{
		Id:         d.Id,
		SessionId:  d.SessionId,
		DocumentId: d.DocumentId,
		IsActive:   d.IsActive,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  updatedAt,
	}
}

func (m *SessionMapper) SessionDocumentToModel(d *entity.SessionDocument) *model.SessionDocument {
	if d == nil {
		return nil
	}

	var updatedAt time.Time
	if d.UpdatedAt != nil {
		updatedAt = *d.UpdatedAt
	}

	return &model.SessionDocument{
		Id:         d.Id,
		SessionId:  d.SessionId,
		DocumentId: d.DocumentId,
		IsActive:   d.IsActive,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  updatedAt,
	}
}
