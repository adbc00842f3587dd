package entity

import (
	"time"

	"github.com/google/uuid"
)

type DocumentStatus string

const (
	DocumentStatusUploading  DocumentStatus = "uploading"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusCompleted  DocumentStatus = "completed"
	DocumentStatusFailed     DocumentStatus = "failed"
	DocumentStatusDeleted    DocumentStatus = "deleted"
)

type Document struct {
	Id            uuid.UUID
	TenantId      uuid.UUID
	Filename      string
	ByteSize      int64
	MimeType      string
	Status        DocumentStatus
	ExtractedText string
	ChunkCount    int
	Embedding     []float32
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     *time.Time
	DeletedAt     *time.Time
	IsDeleted     bool
}

// CanTransitionTo enforces the monotonic lifecycle. A failed document
// must be re-uploaded, never re-processed in place.
func (d *Document) CanTransitionTo(next DocumentStatus) bool {
	switch d.Status {
	case DocumentStatusUploading:
		return next == DocumentStatusProcessing || next == DocumentStatusDeleted
	case DocumentStatusProcessing:
		return next == DocumentStatusCompleted || next == DocumentStatusFailed || next == DocumentStatusDeleted
	case DocumentStatusCompleted:
		return next == DocumentStatusDeleted
	case DocumentStatusFailed:
		return next == DocumentStatusDeleted
	default:
		return false
	}
}
