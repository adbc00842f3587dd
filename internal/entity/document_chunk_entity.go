package entity

import (
	"time"

	"github.com/google/uuid"
)

type DocumentChunk struct {
	Id         uuid.UUID
	DocumentId uuid.UUID
	ChunkIndex int
	Content    string
	TokenCount int
	StartChar  int
	EndChar    int
	// Embedded is false when the provider returned no vector for this
	// chunk; the chunk is stored but excluded from vector search.
	Embedded  bool
	Metadata  map[string]interface{}
	CreatedAt time.Time
	DeletedAt *time.Time
	IsDeleted bool
}
