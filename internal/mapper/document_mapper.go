package mapper

import (
	"time"

	"rag-orchestrator-be/internal/entity"
	"rag-orchestrator-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type DocumentMapper struct{}

func NewDocumentMapper() *DocumentMapper {
	return &DocumentMapper{}
}

func (m *DocumentMapper) ToEntity(d *model.Document) *entity.Document {
	if d == nil {
		return nil
	}

	var deletedAt *time.Time
	if d.DeletedAt.Valid {
		t := d.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !d.UpdatedAt.IsZero() {
		t := d.UpdatedAt
		updatedAt = &t
	}

	var embedding []float32
	if d.HasEmbedding && d.Embedding != nil {
		embedding = d.Embedding.Slice()
	}

	return &entity.Document{
		Id:            d.Id,
		TenantId:      d.TenantId,
		Filename:      d.Filename,
		ByteSize:      d.ByteSize,
		MimeType:      d.MimeType,
		Status:        entity.DocumentStatus(d.Status),
		ExtractedText: d.ExtractedText,
		ChunkCount:    d.ChunkCount,
		Embedding:     embedding,
		ErrorMessage:  d.ErrorMessage,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     updatedAt,
		DeletedAt:     deletedAt,
		IsDeleted:     d.DeletedAt.Valid,
	}
}

func (m *DocumentMapper) ToModel(d *entity.Document) *model.Document {
	if d == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if d.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *d.DeletedAt, Valid: true}
	} else if d.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if d.UpdatedAt != nil {
		updatedAt = *d.UpdatedAt
	}

	out := &model.Document{
		Id:            d.Id,
		TenantId:      d.TenantId,
		Filename:      d.Filename,
		ByteSize:      d.ByteSize,
		MimeType:      d.MimeType,
		Status:        string(d.Status),
		ExtractedText: d.ExtractedText,
		ChunkCount:    d.ChunkCount,
		ErrorMessage:  d.ErrorMessage,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     updatedAt,
		DeletedAt:     deletedAt,
	}
	if len(d.Embedding) > 0 {
		vec := pgvector.NewVector(d.Embedding)
		out.Embedding = &vec
		out.HasEmbedding = true
	}
	return out
}

func (m *DocumentMapper) ToEntities(docs []*model.Document) []*entity.Document {
	entities := make([]*entity.Document, len(docs))
	for i, d := range docs {
		entities[i] = m.ToEntity(d)
	}
	return entities
}
