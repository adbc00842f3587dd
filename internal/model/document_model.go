package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type Document struct {
	Id            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantId      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Filename      string          `gorm:"type:varchar(512);not null"`
	ByteSize      int64           `gorm:"not null;default:0"`
	MimeType      string          `gorm:"type:varchar(128)"`
	Status        string          `gorm:"type:varchar(32);not null;index"`
	ExtractedText string          `gorm:"type:text"`
	ChunkCount    int             `gorm:"default:0"`
	Embedding     *pgvector.Vector `gorm:"type:vector(768)"`
	HasEmbedding  bool             `gorm:"default:false"`
	ErrorMessage  string          `gorm:"type:text"`
	CreatedAt     time.Time       `gorm:"autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime"`
	DeletedAt     gorm.DeletedAt  `gorm:"index"`
}

func (Document) TableName() string {
	return "documents"
}
